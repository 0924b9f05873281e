package governance

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openintent-ai/openintent/internal/auth"
	"github.com/openintent-ai/openintent/internal/httpserver"
	"github.com/openintent-ai/openintent/internal/validation"
)

// Handler exposes governance operations over HTTP (spec §6): costs,
// attachments, arbitration, and decisions, all scoped to one intent.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts governance endpoints under /intents/{intentID}.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	h.Mount(r)
	return r
}

// Mount registers governance endpoints onto a router that already carries
// the /intents/{intentID} prefix, so it can share that prefix with sibling
// per-intent resources (leases, retry policy).
func (h *Handler) Mount(r chi.Router) {
	r.Post("/costs", h.handleRecordCost)
	r.Get("/costs", h.handleCostSummary)
	r.Post("/attachments", h.handleCreateAttachment)
	r.Post("/arbitration", h.handleRequestArbitration)
	r.Post("/decisions", h.handleRecordDecision)
}

type recordCostRequest struct {
	AgentID     string  `json:"agent_id" validate:"required"`
	CostType    string  `json:"cost_type" validate:"required"`
	Amount      float64 `json:"amount" validate:"gte=0"`
	Currency    string  `json:"currency" validate:"required"`
	Description string  `json:"description"`
}

func (h *Handler) handleRecordCost(w http.ResponseWriter, r *http.Request) {
	intentID, err := uuid.Parse(chi.URLParam(r, "intentID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent id")
		return
	}
	var req recordCostRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := validation.ValidateAgentID(req.AgentID); err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	if !IsValidCostType(req.CostType) {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid cost_type")
		return
	}
	if !IsValidCurrency(req.Currency) {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "currency must be a 3-letter ISO code")
		return
	}

	entry, err := h.svc.RecordCost(r.Context(), intentID, req.AgentID, req.CostType, req.Amount, req.Currency, req.Description)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusCreated, entry)
}

func (h *Handler) handleCostSummary(w http.ResponseWriter, r *http.Request) {
	intentID, err := uuid.Parse(chi.URLParam(r, "intentID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent id")
		return
	}
	summary, err := h.svc.CostSummary(r.Context(), intentID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, summary)
}

type createAttachmentRequest struct {
	Filename        string         `json:"filename" validate:"required"`
	ContentType     string         `json:"content_type" validate:"required"`
	ContentBase64   string         `json:"content_base64" validate:"required"`
	BlobHandle      string         `json:"blob_handle"`
	Metadata        map[string]any `json:"metadata"`
}

func (h *Handler) handleCreateAttachment(w http.ResponseWriter, r *http.Request) {
	intentID, err := uuid.Parse(chi.URLParam(r, "intentID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent id")
		return
	}
	var req createAttachmentRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "content_base64 must be valid base64")
		return
	}

	id := auth.FromContext(r.Context())
	att, err := h.svc.CreateAttachment(r.Context(), intentID, req.Filename, req.ContentType, data, req.BlobHandle, id.AgentID, req.Metadata)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusCreated, att)
}

type requestArbitrationRequest struct {
	Reason  string   `json:"reason" validate:"required"`
	Options []string `json:"options"`
}

func (h *Handler) handleRequestArbitration(w http.ResponseWriter, r *http.Request) {
	intentID, err := uuid.Parse(chi.URLParam(r, "intentID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent id")
		return
	}
	var req requestArbitrationRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	id := auth.FromContext(r.Context())
	arb, err := h.svc.RequestArbitration(r.Context(), intentID, id.AgentID, req.Reason, req.Options)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusCreated, arb)
}

type recordDecisionRequest struct {
	Decision  string `json:"decision" validate:"required"`
	Rationale string `json:"rationale"`
}

func (h *Handler) handleRecordDecision(w http.ResponseWriter, r *http.Request) {
	intentID, err := uuid.Parse(chi.URLParam(r, "intentID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent id")
		return
	}
	var req recordDecisionRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	id := auth.FromContext(r.Context())
	d, err := h.svc.RecordDecision(r.Context(), intentID, id.AgentID, req.Decision, req.Rationale)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusCreated, d)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if err == ErrNotFound {
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "intent not found")
		return
	}
	h.logger.Error("governance operation failed", "error", err)
	httpserver.RespondError(w, http.StatusInternalServerError, "internal", "could not complete operation")
}
