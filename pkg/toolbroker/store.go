package toolbroker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openintent-ai/openintent/internal/eventlog"
	"github.com/openintent-ai/openintent/internal/storage"
)

// Publisher fans out a freshly-committed event to live subscribers.
type Publisher interface {
	Publish(eventlog.Event)
}

// Store persists credentials and tool grants (spec §3) and is the sealing
// boundary for secret material: Unseal is only ever called from Service.Invoke.
type Store struct {
	db        storage.Beginner
	vault     *Vault
	publisher Publisher
}

// NewStore constructs a Store.
func NewStore(db storage.Beginner, vault *Vault) *Store {
	return &Store{db: db, vault: vault}
}

// WithPublisher attaches a live-fan-out publisher (spec §4.2).
func (s *Store) WithPublisher(p Publisher) *Store {
	s.publisher = p
	return s
}

func (s *Store) publish(ev eventlog.Event) {
	if s.publisher != nil {
		s.publisher.Publish(ev)
	}
}

// RecordCall appends TOOL_CALL_STARTED or TOOL_CALL_COMPLETED against
// intentID's event log, inside its own transaction per spec §5 (the call
// itself is best-effort, not transactional with network I/O, but each
// audit append is atomic on its own).
func (s *Store) RecordCall(ctx context.Context, intentID uuid.UUID, eventType, actorAgentID string, payload any) error {
	var appended eventlog.Event
	err := storage.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := eventlog.LockIntent(ctx, tx, intentID); err != nil {
			return err
		}
		ev, err := eventlog.Append(ctx, tx, intentID, eventType, actorAgentID, payload)
		if err != nil {
			return err
		}
		appended = ev
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(appended)
	return nil
}

// CreateCredential seals secret and persists a new Credential.
func (s *Store) CreateCredential(ctx context.Context, authType string, metadata map[string]any, secret []byte) (Credential, error) {
	cred := Credential{ID: uuid.New(), AuthType: authType, Metadata: metadata}

	ciphertext, nonce, err := s.vault.Seal(cred.ID.String(), secret)
	if err != nil {
		return Credential{}, fmt.Errorf("sealing credential secret: %w", err)
	}

	metaRaw, err := json.Marshal(metadata)
	if err != nil {
		return Credential{}, fmt.Errorf("marshaling credential metadata: %w", err)
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO credentials (id, auth_type, metadata, secret_ciphertext, secret_nonce)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, cred.ID, authType, metaRaw, ciphertext, nonce)
	if err := row.Scan(&cred.CreatedAt); err != nil {
		return Credential{}, fmt.Errorf("inserting credential: %w", err)
	}
	return cred, nil
}

// secret unseals a credential's secret for use inside a single invocation.
// The plaintext is never returned to any caller outside the broker.
func (s *Store) secret(ctx context.Context, credentialID uuid.UUID) (authType string, secret []byte, err error) {
	var ciphertext, nonce []byte
	row := s.db.QueryRow(ctx, `SELECT auth_type, secret_ciphertext, secret_nonce FROM credentials WHERE id = $1`, credentialID)
	if err := row.Scan(&authType, &ciphertext, &nonce); err != nil {
		if err == pgx.ErrNoRows {
			return "", nil, ErrNotFound
		}
		return "", nil, fmt.Errorf("loading credential: %w", err)
	}
	secret, err = s.vault.Unseal(credentialID.String(), ciphertext, nonce)
	if err != nil {
		return "", nil, err
	}
	return authType, secret, nil
}

// CreateGrant authorizes agentID to invoke toolName using credentialID.
func (s *Store) CreateGrant(ctx context.Context, agentID, toolName string, credentialID uuid.UUID, allowedHosts []string, rateLimit *RateLimit, expiresAt *time.Time) (ToolGrant, error) {
	g := ToolGrant{
		ID:           uuid.New(),
		AgentID:      agentID,
		ToolName:     toolName,
		CredentialID: credentialID,
		AllowedHosts: allowedHosts,
		RateLimit:    rateLimit,
		ExpiresAt:    expiresAt,
	}

	var rateLimitRaw []byte
	if rateLimit != nil {
		raw, err := json.Marshal(rateLimit)
		if err != nil {
			return ToolGrant{}, fmt.Errorf("marshaling rate limit: %w", err)
		}
		rateLimitRaw = raw
	} else {
		rateLimitRaw = []byte("{}")
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO tool_grants (id, agent_id, tool_name, credential_id, allowed_hosts, rate_limit, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (agent_id, tool_name) DO UPDATE SET
			credential_id = EXCLUDED.credential_id,
			allowed_hosts = EXCLUDED.allowed_hosts,
			rate_limit = EXCLUDED.rate_limit,
			expires_at = EXCLUDED.expires_at
		RETURNING created_at
	`, g.ID, agentID, toolName, credentialID, allowedHosts, rateLimitRaw, expiresAt)
	if err := row.Scan(&g.CreatedAt); err != nil {
		return ToolGrant{}, fmt.Errorf("inserting grant: %w", err)
	}
	return g, nil
}

// GrantFor resolves the (agent_id, tool_name) grant used by Service.Invoke.
func (s *Store) GrantFor(ctx context.Context, agentID, toolName string) (ToolGrant, error) {
	var g ToolGrant
	var rateLimitRaw []byte
	row := s.db.QueryRow(ctx, `
		SELECT id, agent_id, tool_name, credential_id, allowed_hosts, rate_limit, expires_at, created_at
		FROM tool_grants WHERE agent_id = $1 AND tool_name = $2
	`, agentID, toolName)
	err := row.Scan(&g.ID, &g.AgentID, &g.ToolName, &g.CredentialID, &g.AllowedHosts, &rateLimitRaw, &g.ExpiresAt, &g.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ToolGrant{}, &ErrGrantDenied{Reason: "no grant for agent/tool"}
		}
		return ToolGrant{}, fmt.Errorf("loading grant: %w", err)
	}
	if len(rateLimitRaw) > 0 && string(rateLimitRaw) != "{}" {
		var rl RateLimit
		if err := json.Unmarshal(rateLimitRaw, &rl); err == nil {
			g.RateLimit = &rl
		}
	}
	return g, nil
}
