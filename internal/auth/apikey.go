package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/openintent-ai/openintent/internal/storage"
)

// APIKeyAuthenticator validates API keys against the api_keys table.
type APIKeyAuthenticator struct {
	DB storage.DBTX
}

// APIKeyResult holds the resolved identity data from an API key lookup.
type APIKeyResult struct {
	APIKeyID  string
	KeyPrefix string
	AgentID   string
	Role      string
}

// Authenticate hashes the raw key, looks it up, and validates expiration.
func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, rawKey string) (*APIKeyResult, error) {
	if rawKey == "" {
		return nil, fmt.Errorf("empty API key")
	}

	hash := HashAPIKey(rawKey)

	var (
		id, keyPrefix, agentID, role string
		expiresAt                    *time.Time
	)
	err := a.DB.QueryRow(ctx,
		`SELECT id, key_prefix, agent_id, role, expires_at FROM api_keys WHERE key_hash = $1`,
		hash,
	).Scan(&id, &keyPrefix, &agentID, &role, &expiresAt)
	if err != nil {
		return nil, fmt.Errorf("looking up API key: %w", err)
	}

	if expiresAt != nil && expiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("API key expired at %s", expiresAt)
	}

	if !IsValidRole(role) {
		role = RoleAgent
	}

	go func() {
		_, _ = a.DB.Exec(context.Background(), `UPDATE api_keys SET last_used_at = now() WHERE id = $1`, id)
	}()

	return &APIKeyResult{
		APIKeyID:  id,
		KeyPrefix: keyPrefix,
		AgentID:   agentID,
		Role:      role,
	}, nil
}
