// Package handler is the thin HTTP layer over the registrar service. It
// decodes protocol bodies, delegates, and translates errors; no business
// logic lives here.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"didreg/internal/registrar/models"
	"didreg/internal/transport/http/shared"
	dErrors "didreg/pkg/domain-errors"
	"didreg/pkg/requestcontext"
)

// Service defines the registrar operations the handler delegates to.
type Service interface {
	Create(ctx context.Context, req *models.CreateRequest) (*models.RegistrationResponse, error)
	Update(ctx context.Context, req *models.UpdateRequest) (*models.RegistrationResponse, error)
	Deactivate(ctx context.Context, req *models.DeactivateRequest) (*models.RegistrationResponse, error)
	Resolve(ctx context.Context, did string) (*models.ResolutionResponse, error)
}

// Handler handles the registrar protocol endpoints.
type Handler struct {
	logger    *slog.Logger
	registrar Service
}

// New creates a registrar Handler.
func New(registrar Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, registrar: registrar}
}

// Register mounts the protocol routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/1.0", func(r chi.Router) {
		r.Post("/create", h.handleCreate)
		r.Post("/update", h.handleUpdate)
		r.Post("/deactivate", h.handleDeactivate)
		r.Get("/did/{did}", h.handleResolve)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warnDecode(r, err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid request body"))
		return
	}
	resp, err := h.registrar.Create(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warnDecode(r, err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid request body"))
		return
	}
	resp, err := h.registrar.Update(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	var req models.DeactivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warnDecode(r, err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid request body"))
		return
	}
	resp, err := h.registrar.Deactivate(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	did := chi.URLParam(r, "did")
	resp, err := h.registrar.Resolve(r.Context(), did)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) warnDecode(r *http.Request, err error) {
	h.logger.WarnContext(r.Context(), "unparseable request body",
		"path", r.URL.Path,
		"request_id", requestcontext.RequestID(r.Context()),
		"error", err.Error(),
	)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(r.Context(), "registrar operation failed",
			"path", r.URL.Path,
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err.Error(),
		)
	}
	shared.WriteError(w, err)
}
