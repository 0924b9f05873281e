package retry

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openintent-ai/openintent/internal/auth"
	"github.com/openintent-ai/openintent/internal/httpserver"
	"github.com/openintent-ai/openintent/internal/telemetry"
	"github.com/openintent-ai/openintent/pkg/intent"
)

// Handler exposes the retry/failure subsystem over HTTP (spec §6).
type Handler struct {
	store  *Store
	logger *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Routes mounts retry endpoints under /intents/{intentID}.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	h.Mount(r)
	return r
}

// Mount registers retry endpoints onto a router that already carries the
// /intents/{intentID} prefix, so it can share that prefix with sibling
// per-intent resources (leases, costs, attachments).
func (h *Handler) Mount(r chi.Router) {
	r.Post("/retry_policy", h.handleSetPolicy)
	r.Post("/failures", h.handleRecordFailure)
	r.Get("/failures", h.handleGetAttempts)
}

type setPolicyRequest struct {
	Strategy         string `json:"strategy" validate:"required,oneof=FIXED LINEAR EXPONENTIAL"`
	MaxRetries       int    `json:"max_retries"`
	BaseDelayMs      int64  `json:"base_delay_ms" validate:"required,min=1"`
	MaxDelayMs       int64  `json:"max_delay_ms"`
	FailureThreshold int    `json:"failure_threshold"`
}

func (h *Handler) handleSetPolicy(w http.ResponseWriter, r *http.Request) {
	intentID, err := uuid.Parse(chi.URLParam(r, "intentID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent id")
		return
	}
	var req setPolicyRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	id := auth.FromContext(r.Context())
	iv, err := h.store.SetPolicy(r.Context(), intentID, intent.RetryPolicy{
		Strategy:         req.Strategy,
		MaxRetries:       req.MaxRetries,
		BaseDelayMs:      req.BaseDelayMs,
		MaxDelayMs:       req.MaxDelayMs,
		FailureThreshold: req.FailureThreshold,
	}, id.AgentID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, iv)
}

type recordFailureRequest struct {
	ErrorType    string         `json:"error_type" validate:"required"`
	ErrorMessage string         `json:"error_message" validate:"required"`
	Recoverable  bool           `json:"recoverable"`
	Context      map[string]any `json:"context"`
}

func (h *Handler) handleRecordFailure(w http.ResponseWriter, r *http.Request) {
	intentID, err := uuid.Parse(chi.URLParam(r, "intentID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent id")
		return
	}
	var req recordFailureRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	id := auth.FromContext(r.Context())
	outcome, err := h.store.RecordFailure(r.Context(), intentID, req.ErrorType, req.ErrorMessage, req.Recoverable, req.Context, id.AgentID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if outcome.Exhausted {
		telemetry.RetryExhaustedTotal.Inc()
	} else {
		telemetry.RetryScheduledTotal.WithLabelValues(outcome.Strategy).Inc()
	}
	httpserver.Respond(w, http.StatusOK, outcome)
}

func (h *Handler) handleGetAttempts(w http.ResponseWriter, r *http.Request) {
	intentID, err := uuid.Parse(chi.URLParam(r, "intentID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent id")
		return
	}
	attempts, err := h.store.GetAttempts(r.Context(), intentID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"attempts": attempts})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if err == intent.ErrNotFound {
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "intent not found")
		return
	}
	h.logger.Error("retry operation failed", "error", err)
	httpserver.RespondError(w, http.StatusInternalServerError, "internal", "could not complete operation")
}
