package service

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"didreg/internal/diddoc"
	"didreg/internal/domain"
	"didreg/internal/registrar/models"
	"didreg/internal/registrar/store"
	dErrors "didreg/pkg/domain-errors"
	"didreg/pkg/requestcontext"
)

const jobTTL = 5 * time.Minute

func newService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	jobs := store.NewInMemoryJobStore(jobTTL)
	documents := store.NewInMemoryDocumentStore()
	return New(jobs, documents, opts...)
}

func initiate(t *testing.T, svc *Service) *models.RegistrationResponse {
	t.Helper()
	resp, err := svc.Create(context.Background(), &models.CreateRequest{})
	require.NoError(t, err)
	return resp
}

func finalizeCreate(t *testing.T, svc *Service, ctx context.Context, jobID string) (*models.RegistrationResponse, error) {
	t.Helper()
	return svc.Create(ctx, &models.CreateRequest{
		JobID: jobID,
		Secret: &models.Secret{
			SigningResponse: []models.SigningResponse{{KID: "any", Signature: "c2lnbmF0dXJl"}},
		},
	})
}

func TestInitiateReturnsActionStateWithChallenge(t *testing.T) {
	svc := newService(t)

	resp := initiate(t, svc)

	assert.Equal(t, models.StateAction, resp.DIDState.State)
	assert.Equal(t, models.ActionSignPayload, resp.DIDState.Action)
	require.Len(t, resp.DIDState.SigningRequest, 1)
	assert.NotEmpty(t, resp.DIDState.SigningRequest[0].SerializedPayload)
	assert.NotEmpty(t, resp.JobID)
	assert.Contains(t, resp.DIDState.DID, "did:cheqd:testnet:")
}

func TestInitiateIssuesUniqueJobIDs(t *testing.T) {
	svc := newService(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		resp := initiate(t, svc)
		require.False(t, seen[resp.JobID], "job id %s issued twice", resp.JobID)
		seen[resp.JobID] = true
	}
}

func TestCreateFinalizeReturnsFinishedDocument(t *testing.T) {
	svc := newService(t)
	action := initiate(t, svc)

	finished, err := finalizeCreate(t, svc, context.Background(), action.JobID)
	require.NoError(t, err)

	assert.Equal(t, models.StateFinished, finished.DIDState.State)
	assert.Equal(t, action.DIDState.DID, finished.DIDState.DID)
	require.NotNil(t, finished.DIDState.DIDDocument)
	assert.Equal(t, action.DIDState.DID, finished.DIDState.DIDDocument.ID)
	require.NotNil(t, finished.DIDDocumentMetadata)
	assert.NotEmpty(t, finished.DIDDocumentMetadata.VersionID)
}

func TestFinalizeUnknownJobFails(t *testing.T) {
	svc := newService(t)

	_, err := finalizeCreate(t, svc, context.Background(), "does-not-exist")
	require.ErrorIs(t, err, ErrJobNotFound)
}

func TestFinalizeIsSingleUse(t *testing.T) {
	svc := newService(t)
	action := initiate(t, svc)

	_, err := finalizeCreate(t, svc, context.Background(), action.JobID)
	require.NoError(t, err)

	_, err = finalizeCreate(t, svc, context.Background(), action.JobID)
	require.ErrorIs(t, err, ErrJobNotFound)
}

func TestExpiredJobIsUnreachable(t *testing.T) {
	svc := newService(t)
	action := initiate(t, svc)

	// Move the observed clock past the expiry window instead of sleeping.
	future := requestcontext.WithTime(context.Background(), time.Now().Add(jobTTL+time.Minute))
	_, err := finalizeCreate(t, svc, future, action.JobID)
	require.ErrorIs(t, err, ErrJobNotFound)
}

func TestSweepReclaimsExpiredJobs(t *testing.T) {
	svc := newService(t)
	initiate(t, svc)
	initiate(t, svc)

	future := requestcontext.WithTime(context.Background(), time.Now().Add(jobTTL+time.Minute))
	removed, err := svc.SweepExpired(future)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	// Nothing left for a second sweep.
	removed, err = svc.SweepExpired(future)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestFinalizedDocumentIsResolvable(t *testing.T) {
	svc := newService(t)
	action := initiate(t, svc)
	_, err := finalizeCreate(t, svc, context.Background(), action.JobID)
	require.NoError(t, err)

	resolved, err := svc.Resolve(context.Background(), action.DIDState.DID)
	require.NoError(t, err)
	assert.Equal(t, action.DIDState.DID, resolved.DIDDocument.ID)
	assert.False(t, resolved.DIDDocumentMetadata.Deactivated)
}

func TestResolveUnknownDIDFails(t *testing.T) {
	svc := newService(t)

	_, err := svc.Resolve(context.Background(), "did:cheqd:testnet:1b8e4e3c-4b63-44a4-a7b1-8e2d4a3e28a1")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestCreateRejectsUnknownNetwork(t *testing.T) {
	svc := newService(t)

	_, err := svc.Create(context.Background(), &models.CreateRequest{
		Options: &models.Options{Network: "devnet"},
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestCreateHonorsNetworkOption(t *testing.T) {
	svc := newService(t)

	resp, err := svc.Create(context.Background(), &models.CreateRequest{
		Options: &models.Options{Network: domain.NetworkMainnet, KeyType: "ed25519"},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.DIDState.DID, "did:cheqd:mainnet:")
}

func TestUpdateFlow(t *testing.T) {
	svc := newService(t)
	action := initiate(t, svc)
	_, err := finalizeCreate(t, svc, context.Background(), action.JobID)
	require.NoError(t, err)

	newDoc := &domain.Document{
		ID: action.DIDState.DID,
		Service: []domain.Service{{
			ID:              action.DIDState.DID + "#service-1",
			Type:            "LinkedDomains",
			ServiceEndpoint: []string{"https://example.com"},
		}},
	}
	updateAction, err := svc.Update(context.Background(), &models.UpdateRequest{
		DID:         action.DIDState.DID,
		DIDDocument: newDoc,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StateAction, updateAction.DIDState.State)
	assert.NotEqual(t, action.JobID, updateAction.JobID)

	finished, err := svc.Update(context.Background(), &models.UpdateRequest{
		JobID: updateAction.JobID,
		Secret: &models.Secret{
			SigningResponse: []models.SigningResponse{{Signature: "c2ln"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StateFinished, finished.DIDState.State)

	resolved, err := svc.Resolve(context.Background(), action.DIDState.DID)
	require.NoError(t, err)
	require.Len(t, resolved.DIDDocument.Service, 1)
	assert.Equal(t, "LinkedDomains", resolved.DIDDocument.Service[0].Type)
}

func TestUpdateUnknownDIDFails(t *testing.T) {
	svc := newService(t)

	_, err := svc.Update(context.Background(), &models.UpdateRequest{
		DID:         "did:cheqd:testnet:2e9c0e57-6cb6-4d7c-95a4-7f1f38f4a8d2",
		DIDDocument: &domain.Document{},
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestDeactivateFlow(t *testing.T) {
	svc := newService(t)
	action := initiate(t, svc)
	_, err := finalizeCreate(t, svc, context.Background(), action.JobID)
	require.NoError(t, err)

	deactivateAction, err := svc.Deactivate(context.Background(), &models.DeactivateRequest{
		DID: action.DIDState.DID,
	})
	require.NoError(t, err)

	_, err = svc.Deactivate(context.Background(), &models.DeactivateRequest{
		JobID: deactivateAction.JobID,
		Secret: &models.Secret{
			SigningResponse: []models.SigningResponse{{Signature: "c2ln"}},
		},
	})
	require.NoError(t, err)

	resolved, err := svc.Resolve(context.Background(), action.DIDState.DID)
	require.NoError(t, err)
	assert.True(t, resolved.DIDDocumentMetadata.Deactivated)

	// Deactivating twice is a conflict, not a crash.
	_, err = svc.Deactivate(context.Background(), &models.DeactivateRequest{
		DID: action.DIDState.DID,
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

// flakyDocumentStore fails Find on demand so store faults surface in
// finalize results instead of being swallowed.
type flakyDocumentStore struct {
	*store.InMemoryDocumentStore
	failFind bool
}

func (s *flakyDocumentStore) Find(ctx context.Context, did domain.DID) (domain.Document, domain.DocumentMetadata, error) {
	if s.failFind {
		return domain.Document{}, domain.DocumentMetadata{}, dErrors.New(dErrors.CodeUnavailable, "document store offline")
	}
	return s.InMemoryDocumentStore.Find(ctx, did)
}

func TestDeactivateFinalizeSurfacesLookupFailure(t *testing.T) {
	jobs := store.NewInMemoryJobStore(jobTTL)
	documents := &flakyDocumentStore{InMemoryDocumentStore: store.NewInMemoryDocumentStore()}
	svc := New(jobs, documents)

	action := initiate(t, svc)
	_, err := finalizeCreate(t, svc, context.Background(), action.JobID)
	require.NoError(t, err)

	deactivateAction, err := svc.Deactivate(context.Background(), &models.DeactivateRequest{
		DID: action.DIDState.DID,
	})
	require.NoError(t, err)

	documents.failFind = true
	_, err = svc.Deactivate(context.Background(), &models.DeactivateRequest{
		JobID: deactivateAction.JobID,
		Secret: &models.Secret{
			SigningResponse: []models.SigningResponse{{Signature: "c2ln"}},
		},
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestFinalizeWrongOperationFails(t *testing.T) {
	svc := newService(t)
	action := initiate(t, svc)

	// A create job id must not finalize an update.
	_, err := svc.Update(context.Background(), &models.UpdateRequest{
		JobID: action.JobID,
		Secret: &models.Secret{
			SigningResponse: []models.SigningResponse{{Signature: "c2ln"}},
		},
	})
	require.ErrorIs(t, err, ErrJobNotFound)

	// The job survives the mismatched call and still finalizes as a create.
	_, err = finalizeCreate(t, svc, context.Background(), action.JobID)
	require.NoError(t, err)
}

func TestSignatureVerification(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	svc := newService(t, WithSignatureVerification(true))

	action, err := svc.Create(context.Background(), &models.CreateRequest{
		Secret: &models.Secret{
			VerificationMethod: &domain.VerificationMethod{
				Type:               diddoc.VerificationMethodType,
				PublicKeyMultibase: diddoc.EncodeMultibase(pub),
			},
		},
	})
	require.NoError(t, err)
	kid := action.DIDState.SigningRequest[0].KID
	payloadB64 := action.DIDState.SigningRequest[0].SerializedPayload

	t.Run("rejects a bad signature and keeps the job", func(t *testing.T) {
		_, err := svc.Create(context.Background(), &models.CreateRequest{
			JobID: action.JobID,
			Secret: &models.Secret{
				SigningResponse: []models.SigningResponse{{
					KID:       kid,
					Signature: base64.StdEncoding.EncodeToString(make([]byte, ed25519.SignatureSize)),
				}},
			},
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidSignature))
	})

	t.Run("accepts the correct signature", func(t *testing.T) {
		payload, err := base64.StdEncoding.DecodeString(payloadB64)
		require.NoError(t, err)
		sig := ed25519.Sign(priv, payload)

		finished, err := svc.Create(context.Background(), &models.CreateRequest{
			JobID: action.JobID,
			Secret: &models.Secret{
				SigningResponse: []models.SigningResponse{{
					KID:       kid,
					Signature: base64.StdEncoding.EncodeToString(sig),
				}},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, models.StateFinished, finished.DIDState.State)
	})
}
