package portfolio

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openintent-ai/openintent/internal/auth"
	"github.com/openintent-ai/openintent/internal/httpserver"
)

// Handler exposes portfolio operations over HTTP (spec §6).
type Handler struct {
	store  *Store
	logger *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Routes mounts portfolio endpoints under /portfolios.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/{portfolioID}", h.handleGet)
	r.Post("/{portfolioID}/members", h.handleAddMember)
	r.Delete("/{portfolioID}/members/{intentID}", h.handleRemoveMember)
	r.Patch("/{portfolioID}/status", h.handleUpdateStatus)
	return r
}

type createRequest struct {
	Name             string           `json:"name" validate:"required"`
	GovernancePolicy GovernancePolicy `json:"governance_policy"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	p, err := h.store.Create(r.Context(), req.Name, req.GovernancePolicy)
	if err != nil {
		h.logger.Error("creating portfolio", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "could not create portfolio")
		return
	}
	httpserver.Respond(w, http.StatusCreated, p)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("listing portfolios", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "could not list portfolios")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"portfolios": portfolios})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "portfolioID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid portfolio id")
		return
	}
	p, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, p)
}

type addMemberRequest struct {
	IntentID uuid.UUID `json:"intent_id" validate:"required"`
	Role     string    `json:"role" validate:"required"`
	Priority int       `json:"priority"`
}

func (h *Handler) handleAddMember(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := uuid.Parse(chi.URLParam(r, "portfolioID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid portfolio id")
		return
	}
	var req addMemberRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	if !IsValidRole(req.Role) {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid role")
		return
	}

	id := auth.FromContext(r.Context())
	p, err := h.store.AddMember(r.Context(), portfolioID, req.IntentID, req.Role, req.Priority, id.AgentID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, p)
}

func (h *Handler) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := uuid.Parse(chi.URLParam(r, "portfolioID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid portfolio id")
		return
	}
	intentID, err := uuid.Parse(chi.URLParam(r, "intentID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent id")
		return
	}
	id := auth.FromContext(r.Context())
	if err := h.store.RemoveMember(r.Context(), portfolioID, intentID, id.AgentID); err != nil {
		h.respondError(w, err)
		return
	}
	httpserver.RespondNoContent(w)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := uuid.Parse(chi.URLParam(r, "portfolioID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid portfolio id")
		return
	}
	var req updateStatusRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	p, err := h.store.UpdateStatus(r.Context(), portfolioID, req.Status)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, p)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch err {
	case ErrNotFound:
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "portfolio not found")
	case ErrMemberExists:
		httpserver.RespondError(w, http.StatusConflict, "member_exists", "intent already a portfolio member")
	case ErrMemberNotFound:
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "intent is not a portfolio member")
	default:
		h.logger.Error("portfolio operation failed", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "could not complete operation")
	}
}
