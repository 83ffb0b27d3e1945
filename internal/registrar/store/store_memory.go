package store

import (
	"context"
	"sync"
	"time"

	"didreg/internal/domain"
	"didreg/internal/registrar/models"
	id "didreg/pkg/domain"
	"didreg/pkg/requestcontext"
)

// InMemoryJobStore is the default job table: a mutex-guarded map with lazy
// expiry on read plus the periodic sweep. It favors clarity over performance.
type InMemoryJobStore struct {
	mu   sync.RWMutex
	ttl  time.Duration
	jobs map[id.JobID]*models.RegistrationJob
}

func NewInMemoryJobStore(ttl time.Duration) *InMemoryJobStore {
	return &InMemoryJobStore{
		ttl:  ttl,
		jobs: make(map[id.JobID]*models.RegistrationJob),
	}
}

func (s *InMemoryJobStore) Save(_ context.Context, job *models.RegistrationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

// Find treats expired jobs as absent even before the sweep has removed them,
// so a stale job id can never be finalized.
func (s *InMemoryJobStore) Find(ctx context.Context, jobID id.JobID) (*models.RegistrationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	if requestcontext.Now(ctx).Sub(job.CreatedAt) > s.ttl {
		return nil, ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *InMemoryJobStore) Delete(_ context.Context, jobID id.JobID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return ErrNotFound
	}
	delete(s.jobs, jobID)
	return nil
}

func (s *InMemoryJobStore) DeleteExpired(ctx context.Context) (int, error) {
	cutoff := requestcontext.Now(ctx).Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for jobID, job := range s.jobs {
		if job.CreatedAt.Before(cutoff) {
			delete(s.jobs, jobID)
			removed++
		}
	}
	return removed, nil
}

// InMemoryDocumentStore keeps finalized documents for the lifetime of the
// process. Deployments that need durable resolution use the Postgres store.
type InMemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[domain.DID]storedDocument
}

type storedDocument struct {
	doc  domain.Document
	meta domain.DocumentMetadata
}

func NewInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{docs: make(map[domain.DID]storedDocument)}
}

func (s *InMemoryDocumentStore) Save(_ context.Context, doc domain.Document, meta domain.DocumentMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[domain.DID(doc.ID)] = storedDocument{doc: doc, meta: meta}
	return nil
}

func (s *InMemoryDocumentStore) Find(_ context.Context, did domain.DID) (domain.Document, domain.DocumentMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.docs[did]
	if !ok {
		return domain.Document{}, domain.DocumentMetadata{}, ErrNotFound
	}
	return stored.doc, stored.meta, nil
}

func (s *InMemoryDocumentStore) Deactivate(_ context.Context, did domain.DID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.docs[did]
	if !ok {
		return ErrNotFound
	}
	stored.meta.Deactivated = true
	stored.meta.Updated = at
	s.docs[did] = stored
	return nil
}
