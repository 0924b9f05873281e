package retry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openintent-ai/openintent/internal/eventlog"
	"github.com/openintent-ai/openintent/internal/storage"
	"github.com/openintent-ai/openintent/pkg/intent"
)

// Publisher fans out a freshly-committed event to live subscribers.
type Publisher interface {
	Publish(eventlog.Event)
}

// Store implements the retry/failure accounting subsystem on top of the
// intent store (spec §4.5).
type Store struct {
	db          storage.Beginner
	intentStore *intent.Store
	publisher   Publisher
}

// NewStore constructs a Store.
func NewStore(db storage.Beginner, intentStore *intent.Store) *Store {
	return &Store{db: db, intentStore: intentStore}
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

// SetPolicy persists a retry policy on the intent.
func (s *Store) SetPolicy(ctx context.Context, intentID uuid.UUID, policy intent.RetryPolicy, actorAgentID string) (intent.Intent, error) {
	return s.intentStore.SetRetryPolicy(ctx, intentID, policy, actorAgentID)
}

// RecordFailure appends a failure record, increments the attempt counter,
// and decides whether the intent should transition to FAILED or merely
// schedule the next attempt (spec §4.5 accounting).
func (s *Store) RecordFailure(ctx context.Context, intentID uuid.UUID, errorType, errorMessage string, recoverable bool, failureContext map[string]any, actorAgentID string) (Outcome, error) {
	iv, err := s.intentStore.Get(ctx, intentID)
	if err != nil {
		return Outcome{}, err
	}

	var attemptNumber int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM failures WHERE intent_id = $1`, intentID).Scan(&attemptNumber); err != nil {
		return Outcome{}, fmt.Errorf("counting prior attempts: %w", err)
	}
	attemptNumber++

	ctxRaw, err := json.Marshal(failureContext)
	if err != nil {
		return Outcome{}, fmt.Errorf("marshaling failure context: %w", err)
	}

	failure := Failure{
		ID:            uuid.New(),
		IntentID:      intentID,
		ErrorType:     errorType,
		ErrorMessage:  errorMessage,
		Recoverable:   recoverable,
		Context:       failureContext,
		AttemptNumber: attemptNumber,
	}

	var appended []eventlog.Event
	err = storage.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO failures (id, intent_id, error_type, error_message, recoverable, context, attempt_number)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at
		`, failure.ID, intentID, errorType, errorMessage, recoverable, ctxRaw, attemptNumber)
		if err := row.Scan(&failure.CreatedAt); err != nil {
			return fmt.Errorf("inserting failure: %w", err)
		}

		if err := eventlog.LockIntent(ctx, tx, intentID); err != nil {
			return err
		}
		ev, err := eventlog.Append(ctx, tx, intentID, eventlog.TypeFailureRecorded, actorAgentID, failure)
		if err != nil {
			return err
		}
		appended = append(appended, ev)
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	for _, ev := range appended {
		s.publish(ev)
	}

	exhausted := !recoverable || (iv.RetryPolicy.FailureThreshold > 0 && attemptNumber >= iv.RetryPolicy.FailureThreshold)

	if exhausted {
		if err := s.exhaust(ctx, intentID, actorAgentID); err != nil {
			return Outcome{}, err
		}
		return Outcome{Failure: failure, Exhausted: true, Strategy: iv.RetryPolicy.Strategy}, nil
	}

	delay := ComputeDelay(iv.RetryPolicy, attemptNumber)
	if err := s.scheduleRetry(ctx, intentID, actorAgentID, attemptNumber, delay); err != nil {
		return Outcome{}, err
	}
	return Outcome{Failure: failure, Exhausted: false, NextDelayMs: delay, Strategy: iv.RetryPolicy.Strategy}, nil
}

func (s *Store) exhaust(ctx context.Context, intentID uuid.UUID, actorAgentID string) error {
	var appended eventlog.Event
	err := storage.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := eventlog.LockIntent(ctx, tx, intentID); err != nil {
			return err
		}
		ev, err := eventlog.Append(ctx, tx, intentID, eventlog.TypeRetryExhausted, actorAgentID, map[string]any{"intent_id": intentID})
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

	if _, err := s.intentStore.ForceStatus(ctx, intentID, intent.StatusFailed, actorAgentID); err != nil {
		if _, alreadyTerminal := err.(*intent.ErrTerminal); !alreadyTerminal {
			return err
		}
	}
	return nil
}

func (s *Store) scheduleRetry(ctx context.Context, intentID uuid.UUID, actorAgentID string, attemptNumber int, delayMs int64) error {
	var appended eventlog.Event
	err := storage.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := eventlog.LockIntent(ctx, tx, intentID); err != nil {
			return err
		}
		ev, err := eventlog.Append(ctx, tx, intentID, eventlog.TypeRetryScheduled, actorAgentID, map[string]any{
			"attempt_number": attemptNumber,
			"delay_ms":       delayMs,
		})
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

// GetAttempts returns every recorded failure for intentID in attempt order.
func (s *Store) GetAttempts(ctx context.Context, intentID uuid.UUID) ([]Failure, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, intent_id, error_type, error_message, recoverable, context, attempt_number, created_at
		FROM failures WHERE intent_id = $1 ORDER BY attempt_number
	`, intentID)
	if err != nil {
		return nil, fmt.Errorf("listing failures: %w", err)
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		var ctxRaw []byte
		if err := rows.Scan(&f.ID, &f.IntentID, &f.ErrorType, &f.ErrorMessage, &f.Recoverable, &ctxRaw, &f.AttemptNumber, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning failure: %w", err)
		}
		if len(ctxRaw) > 0 {
			_ = json.Unmarshal(ctxRaw, &f.Context)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
