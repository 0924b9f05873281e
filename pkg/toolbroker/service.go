package toolbroker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openintent-ai/openintent/internal/telemetry"
	"github.com/openintent-ai/openintent/pkg/toolbroker/adapters"
	"github.com/openintent-ai/openintent/pkg/toolbroker/security"
)

// EndpointResolver looks up the Endpoint configuration for a tool by name.
// Endpoint catalogs are operator-provided configuration, not spec-mandated
// storage, so the broker accepts any implementation (a static map is enough
// for most deployments).
type EndpointResolver interface {
	Resolve(toolName string) (Endpoint, bool)
}

// StaticEndpoints is the simplest EndpointResolver: a fixed map loaded once
// at startup.
type StaticEndpoints map[string]Endpoint

func (m StaticEndpoints) Resolve(toolName string) (Endpoint, bool) {
	ep, ok := m[toolName]
	return ep, ok
}

// Service implements the invoke(agent_id, tool_name, parameters) entry point
// of spec §4.6: grant check, URL validation, adapter dispatch, response
// sanitization.
type Service struct {
	store     *Store
	registry  *Registry
	endpoints EndpointResolver
	logger    *slog.Logger
}

// NewService constructs a Service.
func NewService(store *Store, registry *Registry, endpoints EndpointResolver, logger *slog.Logger) *Service {
	return &Service{store: store, registry: registry, endpoints: endpoints, logger: logger}
}

// Invoke performs one brokered tool call on behalf of intentID, returning a
// sanitized Result. Every call emits TOOL_CALL_STARTED before dispatch and
// TOOL_CALL_COMPLETED after, regardless of outcome.
func (s *Service) Invoke(ctx context.Context, intentID uuid.UUID, agentID, toolName string, parameters map[string]any) (Result, error) {
	started := time.Now()

	if err := s.store.RecordCall(ctx, intentID, "TOOL_CALL_STARTED", agentID, map[string]any{
		"tool_name":  toolName,
		"parameters": security.Sanitize(parameters),
	}); err != nil {
		s.logger.Error("recording tool call start", "error", err)
	}

	result := s.dispatch(ctx, intentID, agentID, toolName, parameters, started)

	telemetry.ToolCallsTotal.WithLabelValues(toolName, result.Status).Inc()
	telemetry.ToolCallDuration.WithLabelValues(toolName).Observe(time.Since(started).Seconds())

	completedPayload := map[string]any{
		"tool_name":           toolName,
		"status":              result.Status,
		"duration_ms":         result.DurationMs,
		"request_fingerprint": result.RequestFingerprint,
	}
	if result.Error != "" {
		completedPayload["error"] = security.Sanitize(result.Error)
	}
	if err := s.store.RecordCall(ctx, intentID, "TOOL_CALL_COMPLETED", agentID, completedPayload); err != nil {
		s.logger.Error("recording tool call completion", "error", err)
	}

	return result, nil
}

func (s *Service) dispatch(ctx context.Context, intentID uuid.UUID, agentID, toolName string, parameters map[string]any, started time.Time) Result {
	envelope := func(status string, errMsg string, httpStatus int, body []byte, fingerprint string, refreshed bool) Result {
		r := Result{
			Status:             status,
			Error:              errMsg,
			HTTPStatus:         httpStatus,
			DurationMs:         time.Since(started).Milliseconds(),
			RequestFingerprint: fingerprint,
			Refreshed:          refreshed,
		}
		if len(body) > 0 {
			var sanitized any
			if err := json.Unmarshal(body, &sanitized); err == nil {
				sanitizedOut, _ := json.Marshal(security.Sanitize(sanitized))
				r.Result = sanitizedOut
			}
		}
		return r
	}

	grant, err := s.store.GrantFor(ctx, agentID, toolName)
	if err != nil {
		return envelope(StatusDenied, err.Error(), 0, nil, "", false)
	}
	if grant.Expired(time.Now()) {
		return envelope(StatusDenied, "grant expired", 0, nil, "", false)
	}

	ep, ok := s.endpoints.Resolve(toolName)
	if !ok {
		return envelope(StatusError, "no endpoint configured for tool", 0, nil, "", false)
	}

	authType, secret, err := s.store.secret(ctx, grant.CredentialID)
	if err != nil {
		s.logger.Error("unsealing credential", "error", err)
		return envelope(StatusError, "could not load credential", 0, nil, "", false)
	}

	fingerprint := security.Fingerprint(ep.Method, ep.BaseURL+ep.Path, nil)

	adapter, err := s.registry.Get(authType)
	if err != nil {
		return envelope(StatusError, err.Error(), 0, nil, fingerprint, false)
	}

	adapterReq := adapters.Request{
		ToolName:   toolName,
		Parameters: parameters,
		Secret:     secret,
		Timeout:    ClampTimeout(0).Milliseconds(),
		Endpoint: adapters.Endpoint{
			Method:       ep.Method,
			BaseURL:      ep.BaseURL,
			Path:         ep.Path,
			AuthLocation: ep.AuthLocation,
			AuthParam:    ep.AuthParam,
			ParamMapping: ep.ParamMapping,
		},
	}

	resp, err := adapter.Invoke(ctx, adapterReq)
	if err != nil {
		switch err.(type) {
		case *security.ErrDenied:
			return envelope(StatusDenied, err.Error(), 0, nil, fingerprint, false)
		case *security.ErrResponseTooLarge:
			return envelope(StatusError, err.Error(), 502, nil, fingerprint, false)
		}
		if ctx.Err() != nil {
			return envelope(StatusTimeout, "upstream call exceeded timeout", 0, nil, fingerprint, false)
		}
		return envelope(StatusError, security.SanitizeSecretLeak(err.Error(), secret), 0, nil, fingerprint, false)
	}

	status := StatusSuccess
	if resp.HTTPStatus >= 400 {
		status = StatusError
	}
	return envelope(status, "", resp.HTTPStatus, resp.Body, fingerprint, resp.Refreshed)
}
