// Package store persists registration jobs and finalized DID documents.
// Implementations are interface-driven so the service can run against
// in-memory state in tests and Redis/Postgres in deployments.
package store

import (
	"context"
	"time"

	"didreg/internal/domain"
	"didreg/internal/registrar/models"
	id "didreg/pkg/domain"
	dErrors "didreg/pkg/domain-errors"
)

// ErrNotFound keeps store-level misses consistent across implementations.
// Absent, expired, and already-deleted records are indistinguishable to
// callers, which is what gives finalized job ids their single-use property.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "record not found")

// JobStore tracks in-flight registration jobs.
//
// Find must not return expired jobs. Delete must be atomic: when two callers
// race to finalize the same job, exactly one Delete succeeds and the loser
// observes ErrNotFound.
type JobStore interface {
	Save(ctx context.Context, job *models.RegistrationJob) error
	Find(ctx context.Context, jobID id.JobID) (*models.RegistrationJob, error)
	Delete(ctx context.Context, jobID id.JobID) error
	// DeleteExpired reclaims jobs older than the store's expiry window and
	// reports how many were removed. Backends with native TTL may make this
	// a no-op.
	DeleteExpired(ctx context.Context) (int, error)
}

// DocumentStore holds documents this registrar finalized.
type DocumentStore interface {
	Save(ctx context.Context, doc domain.Document, meta domain.DocumentMetadata) error
	Find(ctx context.Context, did domain.DID) (domain.Document, domain.DocumentMetadata, error)
	Deactivate(ctx context.Context, did domain.DID, at time.Time) error
}
