package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"didreg/internal/domain"
	"didreg/internal/registrar/models"
	id "didreg/pkg/domain"
	"didreg/pkg/requestcontext"
)

func newJob() *models.RegistrationJob {
	did := domain.NewDID(domain.NetworkTestnet, "11e83b3e-5a3e-4fd8-b29c-1b2a6a1f9e6f")
	return &models.RegistrationJob{
		ID:        id.NewJobID(),
		Operation: models.OperationCreate,
		DID:       did,
		Document:  domain.Document{ID: did.String()},
		SigningRequest: models.SigningRequest{
			KID:               did.String() + "#key-1",
			Alg:               "EdDSA",
			SerializedPayload: "cGF5bG9hZA==",
		},
		CreatedAt: time.Now(),
		State:     models.StateAction,
	}
}

func TestInMemoryJobStoreRoundTrip(t *testing.T) {
	s := NewInMemoryJobStore(time.Minute)
	ctx := context.Background()
	job := newJob()

	require.NoError(t, s.Save(ctx, job))

	found, err := s.Find(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.DID, found.DID)
	assert.Equal(t, job.SigningRequest, found.SigningRequest)

	require.NoError(t, s.Delete(ctx, job.ID))
	_, err = s.Find(ctx, job.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryJobStoreDeleteIsSingleUse(t *testing.T) {
	s := NewInMemoryJobStore(time.Minute)
	ctx := context.Background()
	job := newJob()
	require.NoError(t, s.Save(ctx, job))

	require.NoError(t, s.Delete(ctx, job.ID))
	require.ErrorIs(t, s.Delete(ctx, job.ID), ErrNotFound)
}

func TestInMemoryJobStoreFindHidesExpiredJobs(t *testing.T) {
	s := NewInMemoryJobStore(time.Minute)
	ctx := context.Background()
	job := newJob()
	require.NoError(t, s.Save(ctx, job))

	later := requestcontext.WithTime(ctx, time.Now().Add(2*time.Minute))
	_, err := s.Find(later, job.ID)
	require.ErrorIs(t, err, ErrNotFound)

	// Still visible under a clock inside the window.
	_, err = s.Find(ctx, job.ID)
	require.NoError(t, err)
}

func TestInMemoryJobStoreDeleteExpired(t *testing.T) {
	s := NewInMemoryJobStore(time.Minute)
	ctx := context.Background()

	stale := newJob()
	stale.CreatedAt = time.Now().Add(-2 * time.Minute)
	fresh := newJob()
	require.NoError(t, s.Save(ctx, stale))
	require.NoError(t, s.Save(ctx, fresh))

	removed, err := s.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.Find(ctx, stale.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Find(ctx, fresh.ID)
	require.NoError(t, err)
}

func TestInMemoryDocumentStoreLifecycle(t *testing.T) {
	s := NewInMemoryDocumentStore()
	ctx := context.Background()

	did := domain.NewDID(domain.NetworkTestnet, "6f34a4cf-84f1-4b73-bd9e-9f2c7a3d51e0")
	doc := domain.Document{ID: did.String()}
	created := time.Now()
	meta := domain.DocumentMetadata{Created: created, Updated: created, VersionID: "v1"}

	require.NoError(t, s.Save(ctx, doc, meta))

	gotDoc, gotMeta, err := s.Find(ctx, did)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, gotDoc.ID)
	assert.False(t, gotMeta.Deactivated)

	deactivatedAt := created.Add(time.Hour)
	require.NoError(t, s.Deactivate(ctx, did, deactivatedAt))

	_, gotMeta, err = s.Find(ctx, did)
	require.NoError(t, err)
	assert.True(t, gotMeta.Deactivated)
	assert.Equal(t, deactivatedAt, gotMeta.Updated)

	require.ErrorIs(t, s.Deactivate(ctx, domain.DID("did:cheqd:testnet:missing"), deactivatedAt), ErrNotFound)
}
