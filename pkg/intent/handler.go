package intent

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openintent-ai/openintent/internal/auth"
	"github.com/openintent-ai/openintent/internal/httpserver"
	"github.com/openintent-ai/openintent/internal/telemetry"
)

// Handler exposes intent core operations over HTTP (spec §6).
type Handler struct {
	store  *Store
	logger *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Routes mounts intent endpoints under /intents.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	h.Mount(r)
	return r
}

// Mount registers intent endpoints onto a router that already carries the
// /intents prefix, leaving room for sibling per-intent resource handlers
// (leases, retry policy, governance) to register under /{intentID} too.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/{intentID}", h.handleGet)
	r.Patch("/{intentID}/state", h.handlePatchState)
	r.Put("/{intentID}/state", h.handleReplaceState)
	r.Patch("/{intentID}/status", h.handlePatchStatus)
	r.Patch("/{intentID}/constraints", h.handlePatchConstraints)
	r.Post("/{intentID}/children", h.handleCreateChild)
	r.Get("/{intentID}/graph", h.handleGetGraph)
	r.Get("/{intentID}/ready_children", h.handleReadyChildren)
	r.Get("/{intentID}/blocked_children", h.handleBlockedChildren)
}

type createRequest struct {
	Title          string          `json:"title" validate:"required"`
	Description    string          `json:"description"`
	Constraints    []string        `json:"constraints"`
	DependsOn      []uuid.UUID     `json:"depends_on"`
	State          json.RawMessage `json:"state"`
	IdempotencyKey string          `json:"idempotency_key"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	id := auth.FromContext(r.Context())

	iv, err := h.store.Create(r.Context(), CreateInput{
		Title:          req.Title,
		Description:    req.Description,
		CreatorAgentID: id.AgentID,
		Constraints:    req.Constraints,
		DependsOn:      req.DependsOn,
		State:          req.State,
		IdempotencyKey: req.IdempotencyKey,
	}, nil)
	h.respondMutation(w, "create", err, iv)
}

func (h *Handler) handleCreateChild(w http.ResponseWriter, r *http.Request) {
	parentID, err := uuid.Parse(chi.URLParam(r, "intentID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent id")
		return
	}
	var req createRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	id := auth.FromContext(r.Context())

	iv, err := h.store.CreateChild(r.Context(), parentID, CreateInput{
		Title:          req.Title,
		Description:    req.Description,
		CreatorAgentID: id.AgentID,
		Constraints:    req.Constraints,
		DependsOn:      req.DependsOn,
		State:          req.State,
	})
	h.respondMutation(w, "create_child", err, iv)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "intentID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent id")
		return
	}
	iv, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.respondReadError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, iv)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ListFilters{
		Status:         q.Get("status"),
		CreatorAgentID: q.Get("creator_agent_id"),
	}
	if pid := q.Get("parent_id"); pid != "" {
		parsed, err := uuid.Parse(pid)
		if err != nil {
			httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid parent_id")
			return
		}
		f.ParentID = &parsed
	}
	if lim, err := strconv.Atoi(q.Get("limit")); err == nil {
		f.Limit = lim
	}
	if off, err := strconv.Atoi(q.Get("offset")); err == nil {
		f.Offset = off
	}

	intents, err := h.store.List(r.Context(), f)
	if err != nil {
		h.logger.Error("listing intents", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "could not list intents")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"intents": intents})
}

type patchStateRequest struct {
	ExpectedVersion int64                      `json:"expected_version"`
	Patch           map[string]json.RawMessage `json:"patch"`
}

func (h *Handler) handlePatchState(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "intentID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent id")
		return
	}
	var req patchStateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	actor := auth.FromContext(r.Context())
	iv, err := h.store.UpdateState(r.Context(), id, req.ExpectedVersion, req.Patch, actor.AgentID)
	h.respondMutation(w, "update_state", err, iv)
}

type replaceStateRequest struct {
	ExpectedVersion int64           `json:"expected_version"`
	State           json.RawMessage `json:"state"`
}

func (h *Handler) handleReplaceState(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "intentID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent id")
		return
	}
	var req replaceStateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	actor := auth.FromContext(r.Context())
	iv, err := h.store.ReplaceState(r.Context(), id, req.ExpectedVersion, req.State, actor.AgentID)
	h.respondMutation(w, "replace_state", err, iv)
}

type patchStatusRequest struct {
	ExpectedVersion int64  `json:"expected_version"`
	Status          string `json:"status" validate:"required"`
}

func (h *Handler) handlePatchStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "intentID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent id")
		return
	}
	var req patchStatusRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	actor := auth.FromContext(r.Context())
	iv, err := h.store.SetStatus(r.Context(), id, req.ExpectedVersion, req.Status, actor.AgentID)
	h.respondMutation(w, "set_status", err, iv)
}

type patchConstraintsRequest struct {
	ExpectedVersion int64    `json:"expected_version"`
	Constraints     []string `json:"constraints"`
}

func (h *Handler) handlePatchConstraints(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "intentID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent id")
		return
	}
	var req patchConstraintsRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	actor := auth.FromContext(r.Context())
	iv, err := h.store.SetConstraints(r.Context(), id, req.ExpectedVersion, req.Constraints, actor.AgentID)
	h.respondMutation(w, "set_constraints", err, iv)
}

func (h *Handler) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "intentID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent id")
		return
	}
	g, err := h.store.GetGraph(r.Context(), id)
	if err != nil {
		h.respondReadError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, g)
}

func (h *Handler) handleReadyChildren(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "intentID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent id")
		return
	}
	children, err := h.store.ReadyChildren(r.Context(), id)
	if err != nil {
		h.respondReadError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"ready_children": children})
}

func (h *Handler) handleBlockedChildren(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "intentID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent id")
		return
	}
	children, err := h.store.BlockedChildren(r.Context(), id)
	if err != nil {
		h.respondReadError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"blocked_children": children})
}

// respondMutation writes the common success/error shape for every versioned
// mutation and records IntentMutationsTotal.
func (h *Handler) respondMutation(w http.ResponseWriter, kind string, err error, iv Intent) {
	if err == nil {
		telemetry.IntentMutationsTotal.WithLabelValues(kind, "ok").Inc()
		httpserver.Respond(w, http.StatusOK, iv)
		return
	}

	switch e := err.(type) {
	case *ErrVersionConflict:
		telemetry.IntentMutationsTotal.WithLabelValues(kind, "version_conflict").Inc()
		httpserver.Respond(w, http.StatusConflict, map[string]any{
			"error":           "version_conflict",
			"current_version": e.CurrentVersion,
		})
	case *ErrInvalidTransition:
		telemetry.IntentMutationsTotal.WithLabelValues(kind, "invalid_transition").Inc()
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_transition", e.Error())
	case *ErrTerminal:
		telemetry.IntentMutationsTotal.WithLabelValues(kind, "terminal").Inc()
		httpserver.RespondError(w, http.StatusBadRequest, "terminal", e.Error())
	default:
		switch err {
		case ErrNotFound:
			telemetry.IntentMutationsTotal.WithLabelValues(kind, "not_found").Inc()
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "intent not found")
		case ErrDependencyNotFound:
			telemetry.IntentMutationsTotal.WithLabelValues(kind, "dependency_not_found").Inc()
			httpserver.RespondError(w, http.StatusBadRequest, "validation", "depends_on target not found")
		case ErrCycle:
			telemetry.IntentMutationsTotal.WithLabelValues(kind, "cycle").Inc()
			httpserver.RespondError(w, http.StatusBadRequest, "validation", "would create a cycle")
		default:
			telemetry.IntentMutationsTotal.WithLabelValues(kind, "error").Inc()
			h.logger.Error("intent mutation failed", "kind", kind, "error", err)
			httpserver.RespondError(w, http.StatusInternalServerError, "internal", "could not complete operation")
		}
	}
}

func (h *Handler) respondReadError(w http.ResponseWriter, err error) {
	if err == ErrNotFound {
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "intent not found")
		return
	}
	h.logger.Error("intent read failed", "error", err)
	httpserver.RespondError(w, http.StatusInternalServerError, "internal", "could not complete operation")
}
