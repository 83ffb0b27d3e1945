package service

import (
	"context"
	"log/slog"
	"strconv"

	"didreg/internal/registrar/models"
	audit "didreg/pkg/platform/audit"
	"didreg/pkg/platform/audit/publisher"
	"didreg/pkg/requestcontext"
)

// auditEmitter wraps the publisher so service code can emit events without
// nil checks; a registrar without audit wiring simply logs at debug level.
type auditEmitter struct {
	logger    *slog.Logger
	publisher *publisher.Publisher
}

func newAuditEmitter(logger *slog.Logger, pub *publisher.Publisher) *auditEmitter {
	return &auditEmitter{logger: logger, publisher: pub}
}

func (e *auditEmitter) emit(ctx context.Context, event audit.Event) {
	if e.publisher == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	if err := e.publisher.Emit(ctx, event); err != nil {
		// Audit failures must not fail the operation being audited.
		e.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}

func (e *auditEmitter) emitJobInitiated(ctx context.Context, job *models.RegistrationJob) {
	e.emit(ctx, audit.Event{
		Category:  audit.CategoryCompliance,
		JobID:     job.ID.String(),
		DID:       job.DID.String(),
		Operation: string(job.Operation),
		Action:    string(audit.EventJobInitiated),
	})
}

func (e *auditEmitter) emitJobFinalized(ctx context.Context, job *models.RegistrationJob) {
	e.emit(ctx, audit.Event{
		Category:  audit.CategoryCompliance,
		JobID:     job.ID.String(),
		DID:       job.DID.String(),
		Operation: string(job.Operation),
		Action:    string(audit.EventJobFinalized),
	})
}

func (e *auditEmitter) emitSignatureRejected(ctx context.Context, job *models.RegistrationJob, reason string) {
	e.emit(ctx, audit.Event{
		Category:  audit.CategoryCompliance,
		JobID:     job.ID.String(),
		DID:       job.DID.String(),
		Operation: string(job.Operation),
		Action:    string(audit.EventSignatureRejected),
		Reason:    reason,
	})
}

func (e *auditEmitter) emitDIDDeactivated(ctx context.Context, job *models.RegistrationJob) {
	e.emit(ctx, audit.Event{
		Category:  audit.CategoryCompliance,
		JobID:     job.ID.String(),
		DID:       job.DID.String(),
		Operation: string(job.Operation),
		Action:    string(audit.EventDIDDeactivated),
	})
}

func (e *auditEmitter) emitSweep(ctx context.Context, removed int) {
	e.emit(ctx, audit.Event{
		Category: audit.CategoryOperations,
		Action:   string(audit.EventJobExpired),
		Reason:   strconv.Itoa(removed) + " jobs past expiry window",
	})
}
