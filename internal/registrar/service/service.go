// Package service implements the registration job tracker: it issues pending
// jobs with signing challenges, finalizes them against signed responses, and
// reclaims jobs that were never finished.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"didreg/internal/diddoc"
	"didreg/internal/domain"
	"didreg/internal/registrar/metrics"
	"didreg/internal/registrar/models"
	"didreg/internal/registrar/store"
	id "didreg/pkg/domain"
	dErrors "didreg/pkg/domain-errors"
	"didreg/pkg/platform/audit/publisher"
	"didreg/pkg/requestcontext"
)

// ErrJobNotFound is returned whenever a finalize call references a job this
// registrar is not currently tracking: never issued, expired, or already
// finalized. The wire message is part of the protocol.
var ErrJobNotFound = dErrors.New(dErrors.CodeBadRequest, "Job not found")

// Service orchestrates the registration job lifecycle.
type Service struct {
	jobs      store.JobStore
	documents store.DocumentStore
	logger    *slog.Logger
	metrics   *metrics.Metrics
	audit     *auditEmitter
	validate  *validator.Validate

	network          string
	verifySignatures bool
}

type serviceConfig struct {
	logger           *slog.Logger
	metrics          *metrics.Metrics
	auditPublisher   *publisher.Publisher
	network          string
	verifySignatures bool
}

// Option configures the service.
type Option func(*serviceConfig)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) { c.logger = logger }
}

// WithMetrics attaches registrar metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

// WithAuditPublisher attaches the audit event publisher.
func WithAuditPublisher(p *publisher.Publisher) Option {
	return func(c *serviceConfig) { c.auditPublisher = p }
}

// WithNetwork sets the network generated identifiers are issued on.
func WithNetwork(network string) Option {
	return func(c *serviceConfig) { c.network = network }
}

// WithSignatureVerification enables Ed25519 verification of signing
// responses. Off by default for compatibility with wallets that sign with
// keys the registrar never saw.
func WithSignatureVerification(on bool) Option {
	return func(c *serviceConfig) { c.verifySignatures = on }
}

// New wires a registrar service over the given stores.
func New(jobs store.JobStore, documents store.DocumentStore, opts ...Option) *Service {
	cfg := &serviceConfig{network: domain.NetworkTestnet}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &Service{
		jobs:             jobs,
		documents:        documents,
		logger:           cfg.logger,
		metrics:          cfg.metrics,
		audit:            newAuditEmitter(cfg.logger, cfg.auditPublisher),
		validate:         validator.New(validator.WithRequiredStructEnabled()),
		network:          cfg.network,
		verifySignatures: cfg.verifySignatures,
	}
}

// Create handles POST /1.0/create bodies: either step of the protocol.
func (s *Service) Create(ctx context.Context, req *models.CreateRequest) (*models.RegistrationResponse, error) {
	if req.IsFinalize() {
		return s.finalize(ctx, models.OperationCreate, req.JobID, req.Secret)
	}
	return s.initiateCreate(ctx, req)
}

// Update handles POST /1.0/update bodies.
func (s *Service) Update(ctx context.Context, req *models.UpdateRequest) (*models.RegistrationResponse, error) {
	if req.IsFinalize() {
		return s.finalize(ctx, models.OperationUpdate, req.JobID, req.Secret)
	}
	return s.initiateUpdate(ctx, req)
}

// Deactivate handles POST /1.0/deactivate bodies.
func (s *Service) Deactivate(ctx context.Context, req *models.DeactivateRequest) (*models.RegistrationResponse, error) {
	if req.IsFinalize() {
		return s.finalize(ctx, models.OperationDeactivate, req.JobID, req.Secret)
	}
	return s.initiateDeactivate(ctx, req)
}

// Resolve returns a document this registrar finalized.
func (s *Service) Resolve(ctx context.Context, didStr string) (*models.ResolutionResponse, error) {
	did, err := domain.ParseDID(didStr)
	if err != nil {
		return nil, err
	}
	doc, meta, err := s.documents.Find(ctx, did)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "DID not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "resolve failed")
	}
	return &models.ResolutionResponse{
		DID:                 did.String(),
		DIDDocument:         &doc,
		DIDDocumentMetadata: &meta,
	}, nil
}

// SweepExpired reclaims jobs whose age exceeds the expiry window. Runs on the
// background schedule; nothing is communicated to the callers whose jobs were
// removed.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	removed, err := s.jobs.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.metrics.AddExpired(removed)
		s.audit.emitSweep(ctx, removed)
		s.logger.Info("expired registration jobs reclaimed", "count", removed)
	}
	return removed, nil
}

func (s *Service) initiateCreate(ctx context.Context, req *models.CreateRequest) (*models.RegistrationResponse, error) {
	network, err := s.checkOptions(req.Options)
	if err != nil {
		return nil, err
	}

	did := diddoc.GenerateDID(network)
	doc, verificationKey, err := s.draftDocument(did, req)
	if err != nil {
		return nil, err
	}

	job, err := s.openJob(ctx, models.OperationCreate, did, doc, verificationKey)
	if err != nil {
		return nil, err
	}
	return actionResponse(job), nil
}

func (s *Service) initiateUpdate(ctx context.Context, req *models.UpdateRequest) (*models.RegistrationResponse, error) {
	did, err := domain.ParseDID(req.DID)
	if err != nil {
		return nil, err
	}
	if req.DIDDocument == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "update requires a didDocument")
	}
	current, meta, err := s.documents.Find(ctx, did)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "DID not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "lookup failed")
	}
	if meta.Deactivated {
		return nil, dErrors.New(dErrors.CodeConflict, "DID is deactivated")
	}

	// The replacement document keeps the caller's content but always names
	// the DID under update.
	doc := *req.DIDDocument
	doc.ID = did.String()

	job, err := s.openJob(ctx, models.OperationUpdate, did, doc, firstKey(current))
	if err != nil {
		return nil, err
	}
	return actionResponse(job), nil
}

func (s *Service) initiateDeactivate(ctx context.Context, req *models.DeactivateRequest) (*models.RegistrationResponse, error) {
	did, err := domain.ParseDID(req.DID)
	if err != nil {
		return nil, err
	}
	current, meta, err := s.documents.Find(ctx, did)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "DID not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "lookup failed")
	}
	if meta.Deactivated {
		return nil, dErrors.New(dErrors.CodeConflict, "DID is already deactivated")
	}

	job, err := s.openJob(ctx, models.OperationDeactivate, did, current, firstKey(current))
	if err != nil {
		return nil, err
	}
	return actionResponse(job), nil
}

// openJob stores a new job in action state and hands back the signing
// challenge.
func (s *Service) openJob(ctx context.Context, op models.Operation, did domain.DID, doc domain.Document, verificationKey string) (*models.RegistrationJob, error) {
	challenge, err := diddoc.NewChallenge()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not create signing challenge")
	}

	job := &models.RegistrationJob{
		ID:        id.NewJobID(),
		Operation: op,
		DID:       did,
		Document:  doc,
		SigningRequest: models.SigningRequest{
			KID:               diddoc.KeyID(did),
			Type:              diddoc.VerificationMethodType,
			Alg:               "EdDSA",
			SerializedPayload: challenge,
		},
		VerificationKey: verificationKey,
		CreatedAt:       requestcontext.Now(ctx),
		State:           models.StateAction,
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not store job")
	}

	s.metrics.IncInitiated(string(op))
	s.audit.emitJobInitiated(ctx, job)
	s.logger.InfoContext(ctx, "registration job initiated",
		"job_id", job.ID.String(),
		"operation", op,
		"did", did.String(),
	)
	return job, nil
}

func (s *Service) finalize(ctx context.Context, op models.Operation, jobIDStr string, secret *models.Secret) (*models.RegistrationResponse, error) {
	jobID, err := id.ParseJobID(jobIDStr)
	if err != nil {
		// Unknown and malformed ids are indistinguishable on the wire.
		s.metrics.IncNotFound()
		return nil, ErrJobNotFound
	}

	job, err := s.jobs.Find(ctx, jobID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.metrics.IncNotFound()
			return nil, ErrJobNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "job lookup failed")
	}
	if job.Operation != op {
		// A create job id cannot finalize an update and vice versa.
		s.metrics.IncNotFound()
		return nil, ErrJobNotFound
	}

	if err := s.checkSignature(ctx, job, secret); err != nil {
		return nil, err
	}

	// Delete is the single-use gate: of two racing finalize calls, the one
	// that loses the delete observes the job as already gone.
	if err := s.jobs.Delete(ctx, jobID); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.metrics.IncNotFound()
			return nil, ErrJobNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "job removal failed")
	}

	meta, err := s.commit(ctx, job)
	if err != nil {
		return nil, err
	}

	s.metrics.IncFinalized(string(op))
	s.audit.emitJobFinalized(ctx, job)
	s.logger.InfoContext(ctx, "registration job finalized",
		"job_id", job.ID.String(),
		"operation", op,
		"did", job.DID.String(),
	)

	doc := job.Document
	return &models.RegistrationResponse{
		JobID: job.ID.String(),
		DIDState: models.DIDState{
			State:       models.StateFinished,
			DID:         job.DID.String(),
			DIDDocument: &doc,
		},
		DIDRegistrationMetadata: map[string]any{},
		DIDDocumentMetadata:     meta,
	}, nil
}

// commit applies the finalized operation to the document store.
func (s *Service) commit(ctx context.Context, job *models.RegistrationJob) (*domain.DocumentMetadata, error) {
	now := requestcontext.Now(ctx)

	switch job.Operation {
	case models.OperationDeactivate:
		if err := s.documents.Deactivate(ctx, job.DID, now); err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "deactivation failed")
		}
		s.audit.emitDIDDeactivated(ctx, job)
		_, meta, err := s.documents.Find(ctx, job.DID)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				// Nothing stored for this DID; the response simply carries
				// no document metadata.
				return nil, nil
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "deactivated document lookup failed")
		}
		return &meta, nil

	case models.OperationUpdate:
		created := now
		if _, existing, err := s.documents.Find(ctx, job.DID); err == nil {
			created = existing.Created
		}
		meta := domain.DocumentMetadata{
			Created:   created,
			Updated:   now,
			VersionID: uuid.NewString(),
		}
		if err := s.documents.Save(ctx, job.Document, meta); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "document save failed")
		}
		return &meta, nil

	default:
		meta := domain.DocumentMetadata{
			Created:   now,
			Updated:   now,
			VersionID: uuid.NewString(),
		}
		if err := s.documents.Save(ctx, job.Document, meta); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "document save failed")
		}
		return &meta, nil
	}
}

// checkSignature verifies the signing response when verification is enabled
// and the job knows the key it challenged. Jobs stay in the table on
// rejection so the caller can retry with a correct signature.
func (s *Service) checkSignature(ctx context.Context, job *models.RegistrationJob, secret *models.Secret) error {
	if !s.verifySignatures || job.VerificationKey == "" {
		return nil
	}
	var responses []models.SigningResponse
	if secret != nil {
		responses = secret.SigningResponse
	}
	response := pickSigningResponse(job.SigningRequest.KID, responses)
	if response == nil {
		s.rejectSignature(ctx, job, "no signing response for requested key")
		return dErrors.New(dErrors.CodeInvalidSignature, "Invalid signature")
	}
	if err := diddoc.VerifySignature(job.VerificationKey, job.SigningRequest.SerializedPayload, response.Signature); err != nil {
		s.rejectSignature(ctx, job, err.Error())
		return dErrors.New(dErrors.CodeInvalidSignature, "Invalid signature")
	}
	return nil
}

func (s *Service) rejectSignature(ctx context.Context, job *models.RegistrationJob, reason string) {
	s.metrics.IncSignatureFailure()
	s.audit.emitSignatureRejected(ctx, job, reason)
	s.logger.WarnContext(ctx, "signing response rejected",
		"job_id", job.ID.String(),
		"did", job.DID.String(),
		"reason", reason,
	)
}

// checkOptions validates generation options and resolves the target network.
func (s *Service) checkOptions(opts *models.Options) (string, error) {
	if opts == nil {
		return s.network, nil
	}
	if err := s.validate.Struct(opts); err != nil {
		var verr validator.ValidationErrors
		if errors.As(err, &verr) {
			return "", dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid options")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "options validation failed")
	}
	if opts.Network != "" {
		return opts.Network, nil
	}
	return s.network, nil
}

// draftDocument builds the document a create job will finalize. Callers may
// supply their own public key; otherwise the registrar mints a placeholder,
// which leaves nothing to verify signatures against.
func (s *Service) draftDocument(did domain.DID, req *models.CreateRequest) (domain.Document, string, error) {
	if key := suppliedKey(req); key != "" {
		if _, err := diddoc.DecodeMultibase(key); err != nil {
			return domain.Document{}, "", err
		}
		doc := domain.Document{
			Context:    []string{"https://www.w3.org/ns/did/v1"},
			ID:         did.String(),
			Controller: []string{did.String()},
			VerificationMethod: []domain.VerificationMethod{{
				ID:                 diddoc.KeyID(did),
				Type:               diddoc.VerificationMethodType,
				Controller:         did.String(),
				PublicKeyMultibase: key,
			}},
			Authentication:  []string{diddoc.KeyID(did)},
			AssertionMethod: []string{diddoc.KeyID(did)},
		}
		return doc, key, nil
	}

	pub, err := diddoc.GenerateKey()
	if err != nil {
		return domain.Document{}, "", dErrors.Wrap(err, dErrors.CodeInternal, "key generation failed")
	}
	return diddoc.NewDocument(did, pub), "", nil
}

func suppliedKey(req *models.CreateRequest) string {
	if req.DIDDocument != nil && len(req.DIDDocument.VerificationMethod) > 0 {
		return req.DIDDocument.VerificationMethod[0].PublicKeyMultibase
	}
	if req.Secret != nil && req.Secret.VerificationMethod != nil {
		return req.Secret.VerificationMethod.PublicKeyMultibase
	}
	return ""
}

func firstKey(doc domain.Document) string {
	if len(doc.VerificationMethod) > 0 {
		return doc.VerificationMethod[0].PublicKeyMultibase
	}
	return ""
}

func pickSigningResponse(kid string, responses []models.SigningResponse) *models.SigningResponse {
	for i := range responses {
		if responses[i].KID == kid {
			return &responses[i]
		}
	}
	if len(responses) > 0 {
		return &responses[0]
	}
	return nil
}

func actionResponse(job *models.RegistrationJob) *models.RegistrationResponse {
	return &models.RegistrationResponse{
		JobID: job.ID.String(),
		DIDState: models.DIDState{
			State:          models.StateAction,
			DID:            job.DID.String(),
			Action:         models.ActionSignPayload,
			Description:    "sign the serialized payload with the key named by kid and call back with the signing response",
			SigningRequest: []models.SigningRequest{job.SigningRequest},
		},
		DIDRegistrationMetadata: map[string]any{},
	}
}
