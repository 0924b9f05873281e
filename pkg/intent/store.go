package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openintent-ai/openintent/internal/eventlog"
	"github.com/openintent-ai/openintent/internal/storage"
)

const intentColumns = `id, title, description, creator_agent_id, status, state, version, constraints, parent_id, depends_on, retry_policy, created_at, updated_at`

// Publisher fans out a freshly-committed event to live subscribers
// (implemented by *event.Broker; kept as an interface here to avoid a
// dependency on the event package).
type Publisher interface {
	Publish(eventlog.Event)
}

// Store persists intents and appends their lifecycle events atomically.
type Store struct {
	db                storage.Beginner
	publisher         Publisher
	idempotencyWindow time.Duration
}

func NewStore(db storage.Beginner) *Store {
	return &Store{db: db, idempotencyWindow: DefaultIdempotencyWindow}
}

// WithPublisher attaches a live-fan-out publisher, notified with each
// appended event immediately after its transaction commits (spec §4.2).
func (s *Store) WithPublisher(p Publisher) *Store {
	s.publisher = p
	return s
}

// WithIdempotencyWindow overrides the default idempotency-key replay window
// (spec.md §9c; wired to config.IdempotencyWindow in production).
func (s *Store) WithIdempotencyWindow(d time.Duration) *Store {
	if d > 0 {
		s.idempotencyWindow = d
	}
	return s
}

// replayIdempotent looks up a prior create_intent result recorded under key
// and creatorAgentID within the replay window. The second return reports
// whether a replayable result was found.
func (s *Store) replayIdempotent(ctx context.Context, key, creatorAgentID string) (Intent, bool, error) {
	if key == "" {
		return Intent{}, false, nil
	}
	var response []byte
	err := s.db.QueryRow(ctx, `
		SELECT response FROM idempotency_keys
		WHERE key = $1 AND agent_id = $2 AND created_at > now() - ($3 * interval '1 second')
	`, key, creatorAgentID, s.idempotencyWindow.Seconds()).Scan(&response)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Intent{}, false, nil
		}
		return Intent{}, false, fmt.Errorf("checking idempotency key: %w", err)
	}
	var replayed Intent
	if err := json.Unmarshal(response, &replayed); err != nil {
		return Intent{}, false, fmt.Errorf("unmarshaling replayed intent: %w", err)
	}
	return replayed, true, nil
}

func (s *Store) publish(ev eventlog.Event) {
	if s.publisher != nil {
		s.publisher.Publish(ev)
	}
}

func scanIntent(row pgx.Row) (Intent, error) {
	var (
		in          Intent
		constraints []string
		retryRaw    []byte
	)
	err := row.Scan(
		&in.ID, &in.Title, &in.Description, &in.CreatorAgentID, &in.Status, &in.State,
		&in.Version, &constraints, &in.ParentID, &in.DependsOn, &retryRaw, &in.CreatedAt, &in.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Intent{}, ErrNotFound
		}
		return Intent{}, fmt.Errorf("scanning intent: %w", err)
	}
	in.Constraints = constraints
	if len(retryRaw) > 0 {
		if err := json.Unmarshal(retryRaw, &in.RetryPolicy); err != nil {
			return Intent{}, fmt.Errorf("unmarshaling retry policy: %w", err)
		}
	}
	return in, nil
}

// Create inserts a new intent and appends CREATED. If in.ParentID is set the
// caller is expected to have validated the parent exists (CreateChild does
// this inline). If in.IdempotencyKey is set and a prior Create with the same
// key and creator agent succeeded within the replay window, Create replays
// that earlier result instead of creating a second intent (spec.md §9c).
func (s *Store) Create(ctx context.Context, in CreateInput, parentID *uuid.UUID) (Intent, error) {
	if replayed, ok, err := s.replayIdempotent(ctx, in.IdempotencyKey, in.CreatorAgentID); err != nil {
		return Intent{}, err
	} else if ok {
		return replayed, nil
	}

	state := in.State
	if len(state) == 0 {
		state = json.RawMessage(`{}`)
	}
	constraints := in.Constraints
	if constraints == nil {
		constraints = []string{}
	}
	dependsOn := in.DependsOn
	if dependsOn == nil {
		dependsOn = []uuid.UUID{}
	}

	var created Intent
	var appended eventlog.Event
	err := storage.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		for _, dep := range dependsOn {
			var discard uuid.UUID
			if err := tx.QueryRow(ctx, `SELECT id FROM intents WHERE id = $1`, dep).Scan(&discard); err != nil {
				return ErrDependencyNotFound
			}
		}

		id := uuid.New()
		row := tx.QueryRow(ctx, `
			INSERT INTO intents (id, title, description, creator_agent_id, status, state, version, constraints, parent_id, depends_on, retry_policy)
			VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $8, $9, '{}'::jsonb)
			RETURNING `+intentColumns, id, in.Title, in.Description, in.CreatorAgentID, StatusPending, state, constraints, parentID, dependsOn)

		iv, err := scanIntent(row)
		if err != nil {
			return err
		}

		if err := eventlog.LockIntent(ctx, tx, iv.ID); err != nil {
			return err
		}
		ev, err := eventlog.Append(ctx, tx, iv.ID, eventlog.TypeCreated, in.CreatorAgentID, iv)
		if err != nil {
			return err
		}

		if in.IdempotencyKey != "" {
			response, err := json.Marshal(iv)
			if err != nil {
				return fmt.Errorf("marshaling idempotent response: %w", err)
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO idempotency_keys (key, agent_id, response)
				VALUES ($1, $2, $3)
				ON CONFLICT (key, agent_id) DO NOTHING
			`, in.IdempotencyKey, in.CreatorAgentID, response); err != nil {
				return fmt.Errorf("recording idempotency key: %w", err)
			}
		}

		created = iv
		appended = ev
		return nil
	})
	if err != nil {
		return Intent{}, err
	}
	s.publish(appended)
	return created, nil
}

// CreateChild creates an intent with parent_id = parentID after verifying
// the parent exists and that neither the parent edge nor any depends_on edge
// introduces a cycle (spec §3 invariants).
func (s *Store) CreateChild(ctx context.Context, parentID uuid.UUID, in CreateInput) (Intent, error) {
	if _, err := s.Get(ctx, parentID); err != nil {
		return Intent{}, err
	}

	for _, dep := range in.DependsOn {
		cycle, err := wouldCycle(ctx, s.db, parentID, dep)
		if err != nil {
			return Intent{}, err
		}
		if cycle {
			return Intent{}, ErrCycle
		}
	}

	return s.Create(ctx, in, &parentID)
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (Intent, error) {
	row := s.db.QueryRow(ctx, `SELECT `+intentColumns+` FROM intents WHERE id = $1`, id)
	return scanIntent(row)
}

func (s *Store) List(ctx context.Context, f ListFilters) ([]Intent, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `SELECT ` + intentColumns + ` FROM intents WHERE 1=1`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != "" {
		query += " AND status = " + arg(f.Status)
	}
	if f.ParentID != nil {
		query += " AND parent_id = " + arg(*f.ParentID)
	}
	if f.CreatorAgentID != "" {
		query += " AND creator_agent_id = " + arg(f.CreatorAgentID)
	}
	query += " ORDER BY created_at DESC LIMIT " + arg(limit) + " OFFSET " + arg(f.Offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing intents: %w", err)
	}
	defer rows.Close()

	var out []Intent
	for rows.Next() {
		iv, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

// mutate runs the read-check-write pattern common to every versioned
// mutation: lock the row, verify expectedVersion, verify the intent is not
// terminal (unless allowTerminal), apply fn to compute the new column
// values, bump version/updated_at, append ev, and return the fresh row.
func (s *Store) mutate(ctx context.Context, id uuid.UUID, expectedVersion int64, allowTerminal bool, apply func(cur Intent) (setClause string, args []any, err error), eventType, actorAgentID string, eventPayload func(Intent) any) (Intent, error) {
	var result Intent
	var appended eventlog.Event
	err := storage.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := eventlog.LockIntent(ctx, tx, id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		cur, err := scanIntent(tx.QueryRow(ctx, `SELECT `+intentColumns+` FROM intents WHERE id = $1`, id))
		if err != nil {
			return err
		}

		if cur.Version != expectedVersion {
			return &ErrVersionConflict{CurrentVersion: cur.Version}
		}
		if !allowTerminal && IsTerminal(cur.Status) {
			return &ErrTerminal{Status: cur.Status}
		}

		setClause, args, err := apply(cur)
		if err != nil {
			return err
		}

		args = append(args, id)
		row := tx.QueryRow(ctx, fmt.Sprintf(`
			UPDATE intents SET %s, version = version + 1, updated_at = now()
			WHERE id = $%d
			RETURNING %s
		`, setClause, len(args), intentColumns), args...)

		updated, err := scanIntent(row)
		if err != nil {
			return err
		}

		ev, err := eventlog.Append(ctx, tx, id, eventType, actorAgentID, eventPayload(updated))
		if err != nil {
			return err
		}

		result = updated
		appended = ev
		return nil
	})
	if err != nil {
		return Intent{}, err
	}
	s.publish(appended)
	return result, nil
}

// UpdateState performs the top-level shallow merge of patch into state
// (spec §4.1, §13.1).
func (s *Store) UpdateState(ctx context.Context, id uuid.UUID, expectedVersion int64, patch map[string]json.RawMessage, actorAgentID string) (Intent, error) {
	return s.mutate(ctx, id, expectedVersion, false, func(cur Intent) (string, []any, error) {
		var base map[string]json.RawMessage
		if err := json.Unmarshal(cur.State, &base); err != nil || base == nil {
			base = map[string]json.RawMessage{}
		}
		for k, v := range patch {
			base[k] = v
		}
		merged, err := json.Marshal(base)
		if err != nil {
			return "", nil, fmt.Errorf("marshaling merged state: %w", err)
		}
		return "state = $1", []any{merged}, nil
	}, eventlog.TypeStatePatched, actorAgentID, func(updated Intent) any {
		return map[string]any{"patch": patch, "state": updated.State}
	})
}

// ReplaceState fully replaces state (the explicit alternative to the shallow
// merge of UpdateState, spec §4.1).
func (s *Store) ReplaceState(ctx context.Context, id uuid.UUID, expectedVersion int64, newState json.RawMessage, actorAgentID string) (Intent, error) {
	return s.mutate(ctx, id, expectedVersion, false, func(cur Intent) (string, []any, error) {
		return "state = $1", []any{newState}, nil
	}, eventlog.TypeStatePatched, actorAgentID, func(updated Intent) any {
		return map[string]any{"state": updated.State, "replace": true}
	})
}

// SetStatus validates the transition against the state machine and applies it.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, expectedVersion int64, newStatus, actorAgentID string) (Intent, error) {
	return s.mutate(ctx, id, expectedVersion, false, func(cur Intent) (string, []any, error) {
		if !ValidTransition(cur.Status, newStatus) {
			return "", nil, &ErrInvalidTransition{From: cur.Status, To: newStatus}
		}
		return "status = $1", []any{newStatus}, nil
	}, eventlog.TypeStatusChanged, actorAgentID, func(updated Intent) any {
		return map[string]any{"status": updated.Status}
	})
}

// ForceStatus transitions the intent regardless of the normal state machine
// rules. Used internally by the retry subsystem to fail an intent whose
// retries are exhausted.
func (s *Store) ForceStatus(ctx context.Context, id uuid.UUID, newStatus, actorAgentID string) (Intent, error) {
	var result Intent
	var appended eventlog.Event
	err := storage.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := eventlog.LockIntent(ctx, tx, id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		cur, err := scanIntent(tx.QueryRow(ctx, `SELECT `+intentColumns+` FROM intents WHERE id = $1`, id))
		if err != nil {
			return err
		}
		if IsTerminal(cur.Status) {
			return &ErrTerminal{Status: cur.Status}
		}

		row := tx.QueryRow(ctx, `UPDATE intents SET status = $1, version = version + 1, updated_at = now() WHERE id = $2 RETURNING `+intentColumns, newStatus, id)
		updated, err := scanIntent(row)
		if err != nil {
			return err
		}
		ev, err := eventlog.Append(ctx, tx, id, eventlog.TypeStatusChanged, actorAgentID, map[string]any{"status": updated.Status})
		if err != nil {
			return err
		}
		result = updated
		appended = ev
		return nil
	})
	if err != nil {
		return Intent{}, err
	}
	s.publish(appended)
	return result, nil
}

// SetConstraints replaces the informational constraints list.
func (s *Store) SetConstraints(ctx context.Context, id uuid.UUID, expectedVersion int64, constraints []string, actorAgentID string) (Intent, error) {
	return s.mutate(ctx, id, expectedVersion, false, func(cur Intent) (string, []any, error) {
		if constraints == nil {
			constraints = []string{}
		}
		return "constraints = $1", []any{constraints}, nil
	}, eventlog.TypeConstraintsUpdated, actorAgentID, func(updated Intent) any {
		return map[string]any{"constraints": updated.Constraints}
	})
}

// SetRetryPolicy persists a retry policy on the intent (spec §4.5).
func (s *Store) SetRetryPolicy(ctx context.Context, id uuid.UUID, policy RetryPolicy, actorAgentID string) (Intent, error) {
	var result Intent
	var appended eventlog.Event
	err := storage.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := eventlog.LockIntent(ctx, tx, id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		raw, err := json.Marshal(policy)
		if err != nil {
			return fmt.Errorf("marshaling retry policy: %w", err)
		}
		row := tx.QueryRow(ctx, `UPDATE intents SET retry_policy = $1, updated_at = now() WHERE id = $2 RETURNING `+intentColumns, raw, id)
		updated, err := scanIntent(row)
		if err != nil {
			return err
		}
		ev, err := eventlog.Append(ctx, tx, id, eventlog.TypeRetryPolicySet, actorAgentID, policy)
		if err != nil {
			return err
		}
		result = updated
		appended = ev
		return nil
	})
	if err != nil {
		return Intent{}, err
	}
	s.publish(appended)
	return result, nil
}
