package lease

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openintent-ai/openintent/internal/auth"
	"github.com/openintent-ai/openintent/internal/httpserver"
	"github.com/openintent-ai/openintent/internal/validation"
)

// Handler exposes the lease manager over HTTP (spec §6).
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts lease endpoints under /intents/{intentID}/leases.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleAcquire)
	r.Get("/", h.handleList)
	r.Delete("/{leaseID}", h.handleRelease)
	r.Post("/{leaseID}/renew", h.handleRenew)
	return r
}

type acquireRequest struct {
	Scope      string `json:"scope" validate:"required"`
	TTLSeconds int64  `json:"ttl_seconds" validate:"required,min=1"`
}

func (h *Handler) handleAcquire(w http.ResponseWriter, r *http.Request) {
	intentID, err := uuid.Parse(chi.URLParam(r, "intentID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent id")
		return
	}
	var req acquireRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := validation.ValidateScope(req.Scope); err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	id := auth.FromContext(r.Context())
	l, err := h.svc.Acquire(r.Context(), intentID, req.Scope, id.AgentID, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		if conflict, ok := err.(*ErrConflict); ok {
			httpserver.Respond(w, http.StatusConflict, map[string]any{
				"error":      "lease_conflict",
				"holder":     conflict.Holder,
				"expires_at": conflict.ExpiresAt,
			})
			return
		}
		h.logger.Error("acquiring lease", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "could not acquire lease")
		return
	}
	httpserver.Respond(w, http.StatusCreated, l)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	intentID, err := uuid.Parse(chi.URLParam(r, "intentID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent id")
		return
	}
	leases, err := h.svc.List(r.Context(), intentID)
	if err != nil {
		h.logger.Error("listing leases", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "could not list leases")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"leases": leases})
}

func (h *Handler) handleRelease(w http.ResponseWriter, r *http.Request) {
	leaseID, err := uuid.Parse(chi.URLParam(r, "leaseID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid lease id")
		return
	}
	id := auth.FromContext(r.Context())
	if err := h.svc.Release(r.Context(), leaseID, id.AgentID); err != nil {
		switch err {
		case ErrNotFound:
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "lease not found")
		case ErrNotHeld:
			httpserver.RespondError(w, http.StatusForbidden, "unauthorized", "lease not held by caller")
		default:
			h.logger.Error("releasing lease", "error", err)
			httpserver.RespondError(w, http.StatusInternalServerError, "internal", "could not release lease")
		}
		return
	}
	httpserver.RespondNoContent(w)
}

type renewRequest struct {
	TTLSeconds int64 `json:"ttl_seconds" validate:"required,min=1"`
}

func (h *Handler) handleRenew(w http.ResponseWriter, r *http.Request) {
	leaseID, err := uuid.Parse(chi.URLParam(r, "leaseID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid lease id")
		return
	}
	var req renewRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	id := auth.FromContext(r.Context())
	l, err := h.svc.Renew(r.Context(), leaseID, id.AgentID, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		switch err {
		case ErrNotFound, ErrNotHeld:
			httpserver.RespondError(w, http.StatusConflict, "lease_not_held", "lease not held by caller")
		default:
			h.logger.Error("renewing lease", "error", err)
			httpserver.RespondError(w, http.StatusInternalServerError, "internal", "could not renew lease")
		}
		return
	}
	httpserver.Respond(w, http.StatusOK, l)
}
