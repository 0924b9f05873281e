// Package eventlog implements the append-only per-intent event log shared by
// every component that mutates intent state (spec §3 Event, §4.2, §5). Each
// append happens inside the same storage transaction as the mutation that
// produced it, so a component's store takes a storage.DBTX bound to an
// open transaction rather than managing its own.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openintent-ai/openintent/internal/storage"
)

// Event types, exhaustive per spec §4.2.
const (
	TypeCreated            = "CREATED"
	TypeStatePatched       = "STATE_PATCHED"
	TypeStatusChanged      = "STATUS_CHANGED"
	TypeConstraintsUpdated = "CONSTRAINTS_UPDATED"

	TypeLeaseAcquired = "LEASE_ACQUIRED"
	TypeLeaseReleased = "LEASE_RELEASED"
	TypeLeaseExpired  = "LEASE_EXPIRED"

	TypeMembershipAdded  = "MEMBERSHIP_ADDED"
	TypeAggregateChanged = "AGGREGATE_CHANGED"

	TypeComment              = "COMMENT"
	TypeArbitrationRequested = "ARBITRATION_REQUESTED"
	TypeDecisionRecorded     = "DECISION_RECORDED"

	TypeCostRecorded       = "COST_RECORDED"
	TypeAttachmentCreated  = "ATTACHMENT_CREATED"

	TypeRetryPolicySet  = "RETRY_POLICY_SET"
	TypeFailureRecorded = "FAILURE_RECORDED"
	TypeRetryScheduled  = "RETRY_SCHEDULED"
	TypeRetryExhausted  = "RETRY_EXHAUSTED"

	TypeLLMRequestStarted   = "LLM_REQUEST_STARTED"
	TypeLLMRequestCompleted = "LLM_REQUEST_COMPLETED"
	TypeLLMRequestFailed    = "LLM_REQUEST_FAILED"
	TypeStreamStarted       = "STREAM_STARTED"
	TypeStreamChunk         = "STREAM_CHUNK"
	TypeStreamCompleted     = "STREAM_COMPLETED"
	TypeStreamCancelled     = "STREAM_CANCELLED"
	TypeToolCallStarted     = "TOOL_CALL_STARTED"
	TypeToolCallCompleted   = "TOOL_CALL_COMPLETED"
)

// Event is the append-only, per-intent log record (spec §3).
type Event struct {
	ID             uuid.UUID       `json:"id"`
	IntentID       uuid.UUID       `json:"intent_id"`
	SequenceNumber int64           `json:"sequence_number"`
	EventType      string          `json:"event_type"`
	ActorAgentID   string          `json:"actor_agent_id"`
	Payload        json.RawMessage `json:"payload"`
	CreatedAt      time.Time       `json:"timestamp"`
}

// LockIntent takes a row lock on the intent so that sequence-number
// allocation and the caller's own mutation serialize against any concurrent
// transaction touching the same intent. Callers open a transaction, call
// LockIntent first, perform their mutation, then Append.
func LockIntent(ctx context.Context, tx storage.DBTX, intentID uuid.UUID) error {
	var discard uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM intents WHERE id = $1 FOR UPDATE`, intentID).Scan(&discard)
	if err != nil {
		return fmt.Errorf("locking intent %s: %w", intentID, err)
	}
	return nil
}

// Append inserts the next event in intentID's log, computing the next
// sequence number from the current max within the same transaction. The
// caller must have already locked the intent row with LockIntent in this
// transaction to guarantee monotonicity under concurrent writers.
func Append(ctx context.Context, tx storage.DBTX, intentID uuid.UUID, eventType, actorAgentID string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshaling event payload: %w", err)
	}

	var ev Event
	ev.ID = uuid.New()
	ev.IntentID = intentID
	ev.EventType = eventType
	ev.ActorAgentID = actorAgentID
	ev.Payload = raw

	err = tx.QueryRow(ctx, `
		INSERT INTO events (id, intent_id, sequence_number, event_type, actor_agent_id, payload)
		VALUES ($1, $2, COALESCE((SELECT MAX(sequence_number) FROM events WHERE intent_id = $2), 0) + 1, $3, $4, $5)
		RETURNING sequence_number, created_at
	`, ev.ID, intentID, eventType, actorAgentID, raw).Scan(&ev.SequenceNumber, &ev.CreatedAt)
	if err != nil {
		return Event{}, fmt.Errorf("appending event: %w", err)
	}

	return ev, nil
}

// List pages through an intent's log in sequence order.
func List(ctx context.Context, db storage.DBTX, intentID uuid.UUID, fromSequence int64, limit int) ([]Event, error) {
	rows, err := db.Query(ctx, `
		SELECT id, intent_id, sequence_number, event_type, actor_agent_id, payload, created_at
		FROM events
		WHERE intent_id = $1 AND sequence_number >= $2
		ORDER BY sequence_number ASC
		LIMIT $3
	`, intentID, fromSequence, limit)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.IntentID, &ev.SequenceNumber, &ev.EventType, &ev.ActorAgentID, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// LastSequence returns the highest sequence number recorded for intentID, or
// 0 if the intent has no events yet.
func LastSequence(ctx context.Context, db storage.DBTX, intentID uuid.UUID) (int64, error) {
	var seq int64
	err := db.QueryRow(ctx, `SELECT COALESCE(MAX(sequence_number), 0) FROM events WHERE intent_id = $1`, intentID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("reading last sequence: %w", err)
	}
	return seq, nil
}
