// Package models holds the registration job model and the wire types of the
// two-step registrar protocol.
package models

import (
	"time"

	"didreg/internal/domain"
	id "didreg/pkg/domain"
)

// Operation names one of the registrar lifecycle operations.
type Operation string

const (
	OperationCreate     Operation = "create"
	OperationUpdate     Operation = "update"
	OperationDeactivate Operation = "deactivate"
)

// JobState is the protocol-visible state of a registration job.
type JobState string

const (
	// StateAction means the registrar is waiting for the caller to return a
	// signed response.
	StateAction JobState = "action"
	// StateFinished means the operation completed and a document was issued.
	StateFinished JobState = "finished"
	// StateFailed is only ever sent on the wire; failed jobs are not stored.
	StateFailed JobState = "failed"
)

// ActionSignPayload is the only action this registrar ever requests.
const ActionSignPayload = "signPayload"

// RegistrationJob is one in-flight registrar operation. Jobs exist only while
// in StateAction: finalization and expiry both remove them, so a job id is
// single-use by construction.
type RegistrationJob struct {
	ID              id.JobID
	Operation       Operation
	DID             domain.DID
	Document        domain.Document
	SigningRequest  SigningRequest
	VerificationKey string // multibase public key the signing response proves control of
	CreatedAt       time.Time
	State           JobState
}

// SigningRequest is the challenge handed to the caller at initiate time.
type SigningRequest struct {
	KID               string `json:"kid"`
	Type              string `json:"type"`
	Alg               string `json:"alg"`
	SerializedPayload string `json:"serializedPayload"`
}

// SigningResponse is the caller's proof of key control returned at finalize
// time.
type SigningResponse struct {
	KID       string `json:"kid"`
	Signature string `json:"signature"`
}
