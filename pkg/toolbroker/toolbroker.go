// Package toolbroker implements the brokered tool-execution subsystem (spec
// §4.6): grant-validated invocation of external APIs with URL, secret, and
// size guardrails. Secrets never leave the broker.
package toolbroker

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/openintent-ai/openintent/pkg/toolbroker/security"
)

// Auth types, per spec §3.
const (
	AuthAPIKey  = "API_KEY"
	AuthBearer  = "BEARER"
	AuthBasic   = "BASIC"
	AuthOAuth2  = "OAUTH2"
	AuthWebhook = "WEBHOOK"
)

// Result statuses, per spec §4.6.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusTimeout = "timeout"
	StatusDenied  = "denied"
)

// Timeout bounds, per spec §4.6.
const (
	MinTimeout     = time.Second
	MaxTimeout     = 120 * time.Second
	DefaultTimeout = 30 * time.Second
)

// MaxResponseBytes is the response size cap, per spec §4.6.
const MaxResponseBytes = security.MaxResponseBytes

// ClampTimeout clamps d to [MinTimeout, MaxTimeout], substituting
// DefaultTimeout for a zero value.
func ClampTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	if d < MinTimeout {
		return MinTimeout
	}
	if d > MaxTimeout {
		return MaxTimeout
	}
	return d
}

// RateLimit is an optional per-grant counter window.
type RateLimit struct {
	MaxCalls int           `json:"max_calls,omitempty"`
	Window   time.Duration `json:"window,omitempty"`
}

// Credential holds auth material for a tool. Secret is never marshaled to
// JSON; the store does not populate it, and unsealed secrets are passed to
// adapters separately at call time.
type Credential struct {
	ID        uuid.UUID      `json:"id"`
	AuthType  string         `json:"auth_type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Secret    []byte         `json:"-"`
	CreatedAt time.Time      `json:"created_at"`
}

// ToolGrant authorizes an agent to invoke a named tool with a credential and
// constraints (spec §3, §4.6).
type ToolGrant struct {
	ID           uuid.UUID  `json:"id"`
	AgentID      string     `json:"agent_id"`
	ToolName     string     `json:"tool_name"`
	CredentialID uuid.UUID  `json:"credential_id"`
	AllowedHosts []string   `json:"allowed_hosts,omitempty"`
	RateLimit    *RateLimit `json:"rate_limit,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Expired reports whether the grant has passed its expiry, if any.
func (g ToolGrant) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && !g.ExpiresAt.After(now)
}

// Endpoint describes how a REST adapter builds a request for one tool call.
type Endpoint struct {
	Method       string            `json:"method"`
	BaseURL      string            `json:"base_url"`
	Path         string            `json:"path"`
	AuthLocation string            `json:"auth_location,omitempty"` // header | query
	AuthParam    string            `json:"auth_param,omitempty"`
	ParamMapping map[string]string `json:"param_mapping,omitempty"`
	SigningKey   string            `json:"-"` // webhook adapter only
}

// Result is the sanitized envelope returned from invoke (spec §4.6).
type Result struct {
	Status             string          `json:"status"`
	Result             json.RawMessage `json:"result,omitempty"`
	Error              string          `json:"error,omitempty"`
	HTTPStatus         int             `json:"http_status,omitempty"`
	DurationMs         int64           `json:"duration_ms"`
	RequestFingerprint string          `json:"request_fingerprint,omitempty"`
	Refreshed          bool            `json:"_refreshed,omitempty"`
}

// ErrGrantDenied is returned when no usable grant exists for the
// (agent_id, tool_name) pair.
type ErrGrantDenied struct{ Reason string }

func (e *ErrGrantDenied) Error() string { return "grant denied: " + e.Reason }

// ErrNotFound is returned when a grant or credential id does not exist.
var ErrNotFound = errors.New("toolbroker: not found")
