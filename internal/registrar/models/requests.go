package models

import "didreg/internal/domain"

// Options tune how an identifier is generated. Validation tags are enforced by
// the service before any job is created.
type Options struct {
	Network              string `json:"network,omitempty" validate:"omitempty,oneof=mainnet testnet"`
	KeyType              string `json:"keyType,omitempty" validate:"omitempty,oneof=ed25519"`
	MethodSpecificIDAlgo string `json:"methodSpecificIdAlgo,omitempty" validate:"omitempty,oneof=uuid"`
}

// Secret carries key material and signatures. Despite the name nothing in it
// is secret to the registrar: it only ever holds public keys and finished
// signatures, mirroring the registrar protocol's field naming.
type Secret struct {
	VerificationMethod *domain.VerificationMethod `json:"verificationMethod,omitempty"`
	SigningResponse    []SigningResponse          `json:"signingResponse,omitempty"`
}

// CreateRequest is the body of POST /1.0/create. A body carrying a job id and
// a signing response is a finalize call; anything else initiates a new job.
type CreateRequest struct {
	JobID       string           `json:"jobId,omitempty"`
	DIDDocument *domain.Document `json:"didDocument,omitempty"`
	Options     *Options         `json:"options,omitempty"`
	Secret      *Secret          `json:"secret,omitempty"`
}

// IsFinalize reports whether the body should be routed to the finalize path.
func (r *CreateRequest) IsFinalize() bool {
	return r.JobID != "" && r.Secret != nil && len(r.Secret.SigningResponse) > 0
}

// UpdateRequest is the body of POST /1.0/update.
type UpdateRequest struct {
	JobID       string           `json:"jobId,omitempty"`
	DID         string           `json:"did,omitempty"`
	DIDDocument *domain.Document `json:"didDocument,omitempty"`
	Options     *Options         `json:"options,omitempty"`
	Secret      *Secret          `json:"secret,omitempty"`
}

func (r *UpdateRequest) IsFinalize() bool {
	return r.JobID != "" && r.Secret != nil && len(r.Secret.SigningResponse) > 0
}

// DeactivateRequest is the body of POST /1.0/deactivate.
type DeactivateRequest struct {
	JobID   string   `json:"jobId,omitempty"`
	DID     string   `json:"did,omitempty"`
	Options *Options `json:"options,omitempty"`
	Secret  *Secret  `json:"secret,omitempty"`
}

func (r *DeactivateRequest) IsFinalize() bool {
	return r.JobID != "" && r.Secret != nil && len(r.Secret.SigningResponse) > 0
}
