package toolbroker

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

// Handler exposes grant management and tool invocation over HTTP (spec §6).
type Handler struct {
	store   *Store
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(store *Store, service *Service, logger *slog.Logger) *Handler {
	return &Handler{store: store, service: service, logger: logger}
}

// Routes mounts grant/credential management under /tools.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/credentials", h.handleCreateCredential)
	r.Post("/grants", h.handleCreateGrant)
	return r
}

// InvokeRoutes mounts the invocation endpoint under /intents/{intentID}/tools.
func (h *Handler) InvokeRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{toolName}/invoke", h.handleInvoke)
	return r
}

type createCredentialRequest struct {
	AuthType string         `json:"auth_type" validate:"required,oneof=API_KEY BEARER BASIC OAUTH2 WEBHOOK"`
	Metadata map[string]any `json:"metadata"`
	Secret   string         `json:"secret" validate:"required"`
}

func (h *Handler) handleCreateCredential(w http.ResponseWriter, r *http.Request) {
	var req createCredentialRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	cred, err := h.store.CreateCredential(r.Context(), req.AuthType, req.Metadata, []byte(req.Secret))
	if err != nil {
		h.logger.Error("creating credential", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "could not create credential")
		return
	}
	httpserver.Respond(w, http.StatusCreated, cred)
}

type createGrantRequest struct {
	AgentID      string     `json:"agent_id" validate:"required"`
	ToolName     string     `json:"tool_name" validate:"required"`
	CredentialID uuid.UUID  `json:"credential_id" validate:"required"`
	AllowedHosts []string   `json:"allowed_hosts"`
	RateLimit    *RateLimit `json:"rate_limit"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

func (h *Handler) handleCreateGrant(w http.ResponseWriter, r *http.Request) {
	var req createGrantRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := validation.ValidateAgentID(req.AgentID); err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	g, err := h.store.CreateGrant(r.Context(), req.AgentID, req.ToolName, req.CredentialID, req.AllowedHosts, req.RateLimit, req.ExpiresAt)
	if err != nil {
		h.logger.Error("creating grant", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "could not create grant")
		return
	}
	httpserver.Respond(w, http.StatusCreated, g)
}

type invokeRequest struct {
	Parameters map[string]any `json:"parameters"`
}

func (h *Handler) handleInvoke(w http.ResponseWriter, r *http.Request) {
	intentID, err := uuid.Parse(chi.URLParam(r, "intentID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent id")
		return
	}
	toolName := chi.URLParam(r, "toolName")

	var req invokeRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	id := auth.FromContext(r.Context())
	result, err := h.service.Invoke(r.Context(), intentID, id.AgentID, toolName, req.Parameters)
	if err != nil {
		h.logger.Error("invoking tool", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "tool invocation failed")
		return
	}

	status := http.StatusOK
	if result.Status == StatusDenied {
		status = http.StatusForbidden
	}
	httpserver.Respond(w, status, result)
}
