// Package audit defines the job-lifecycle audit events emitted by the
// registrar and the sinks they fan out to.
package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose. Categories
// allow different retention and routing downstream.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance, such as
	// identifier issuance and deactivation.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and operational
	// visibility, such as sweep activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key registrar actions. Keep
// it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	JobID     string        `json:"job_id,omitempty"`
	DID       string        `json:"did,omitempty"`
	Operation string        `json:"operation,omitempty"`
	Action    string        `json:"action"`
	Reason    string        `json:"reason,omitempty"`
	// RequestID is the correlation id from the HTTP request context, when the
	// event originated from a request rather than a background task.
	RequestID string `json:"request_id,omitempty"`
}

// AuditEvent names the registrar actions worth a trail.
type AuditEvent string

const (
	EventJobInitiated      AuditEvent = "job_initiated"
	EventJobFinalized      AuditEvent = "job_finalized"
	EventJobExpired        AuditEvent = "job_expired"
	EventSignatureRejected AuditEvent = "signature_rejected"
	EventDIDDeactivated    AuditEvent = "did_deactivated"
)

// Store persists events for later listing.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByDID(ctx context.Context, did string) ([]Event, error)
}

// Sink receives a copy of every event, typically to forward it out of
// process. Sinks must tolerate being called concurrently.
type Sink interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
