// Package auth resolves the API key on every request to an agent identity
// and role (spec component H), and provides role-gating middleware.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

const (
	RoleAdmin    = "admin"    // full access, including tool-grant and credential management
	RoleAgent    = "agent"    // default role: create/mutate intents, acquire leases, invoke tools within its grants
	RoleReadonly = "readonly" // read-only access to intents, events, portfolios
)

// MethodAPIKey indicates authentication via X-API-Key / Bearer API key.
const MethodAPIKey = "apikey"

// Identity is the resolved caller attached to every authenticated request.
type Identity struct {
	AgentID   string
	Role      string
	APIKeyID  string
	KeyPrefix string
	Method    string
}

var validRoles = map[string]bool{
	RoleAdmin:    true,
	RoleAgent:    true,
	RoleReadonly: true,
}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	return validRoles[role]
}

// HashAPIKey returns the hex-encoded SHA-256 digest of a raw API key. Only
// the digest is ever persisted or compared.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

type contextKey int

const identityKey contextKey = iota

// NewContext returns a context carrying id.
func NewContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the Identity stored by the auth middleware, or nil.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}
