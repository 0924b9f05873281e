package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openintent-ai/openintent/internal/storage"
)

// Middleware authenticates the caller via an API key presented either as
// "Authorization: Bearer <key>" or "X-API-Key: <key>", and stores the
// resulting Identity in the request context. Unknown or missing keys reject
// the request with 401 (spec §6 UNAUTHENTICATED).
func Middleware(db storage.DBTX, logger *slog.Logger) func(http.Handler) http.Handler {
	apikeyAuth := &APIKeyAuthenticator{DB: db}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := r.Header.Get("X-API-Key")
			if rawKey == "" {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(auth), "bearer ") {
					rawKey = strings.TrimSpace(auth[len("Bearer "):])
				}
			}

			if rawKey == "" {
				respondErr(w, http.StatusUnauthorized, "unauthenticated", "no API key provided")
				return
			}

			result, err := apikeyAuth.Authenticate(r.Context(), rawKey)
			if err != nil {
				logger.Warn("API key authentication failed", "error", err)
				respondErr(w, http.StatusUnauthorized, "unauthenticated", "invalid API key")
				return
			}

			identity := &Identity{
				AgentID:   result.AgentID,
				Role:      result.Role,
				APIKeyID:  result.APIKeyID,
				KeyPrefix: result.KeyPrefix,
				Method:    MethodAPIKey,
			}

			logger.Debug("authenticated request",
				"agent_id", identity.AgentID,
				"role", identity.Role,
				"key_prefix", identity.KeyPrefix,
			)

			ctx := NewContext(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func respondErr(w http.ResponseWriter, status int, errStr, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errStr,
		"message": message,
	})
}
