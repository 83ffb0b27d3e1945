package models

import "didreg/internal/domain"

// DIDState is the protocol's per-job state report.
type DIDState struct {
	State          JobState         `json:"state"`
	DID            string           `json:"did,omitempty"`
	Action         string           `json:"action,omitempty"`
	Description    string           `json:"description,omitempty"`
	SigningRequest []SigningRequest `json:"signingRequest,omitempty"`
	DIDDocument    *domain.Document `json:"didDocument,omitempty"`
}

// RegistrationResponse is the envelope returned by create, update, and
// deactivate in both protocol steps.
type RegistrationResponse struct {
	JobID                   string                   `json:"jobId"`
	DIDState                DIDState                 `json:"didState"`
	DIDRegistrationMetadata map[string]any           `json:"didRegistrationMetadata"`
	DIDDocumentMetadata     *domain.DocumentMetadata `json:"didDocumentMetadata,omitempty"`
}

// ResolutionResponse is the body of GET /1.0/did/{did}.
type ResolutionResponse struct {
	DID                 string                   `json:"did"`
	DIDDocument         *domain.Document         `json:"didDocument"`
	DIDDocumentMetadata *domain.DocumentMetadata `json:"didDocumentMetadata"`
}
