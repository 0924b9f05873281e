package governance

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
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

// Store persists costs, attachments, and governance events against an
// intent, all inside the same per-intent event-log transaction (spec §5).
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

func (s *Store) assertIntentExists(ctx context.Context, intentID uuid.UUID) error {
	if _, err := s.intentStore.Get(ctx, intentID); err != nil {
		if err == intent.ErrNotFound {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// RecordCost appends a cost entry and a COST_RECORDED event.
func (s *Store) RecordCost(ctx context.Context, intentID uuid.UUID, agentID, costType string, amount float64, currency, description string) (CostEntry, error) {
	if err := s.assertIntentExists(ctx, intentID); err != nil {
		return CostEntry{}, err
	}

	entry := CostEntry{
		ID: uuid.New(), IntentID: intentID, AgentID: agentID,
		CostType: costType, Amount: amount, Currency: currency, Description: description,
	}

	var appended eventlog.Event
	err := storage.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO costs (id, intent_id, agent_id, cost_type, amount, currency, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at
		`, entry.ID, intentID, agentID, costType, amount, currency, description)
		if err := row.Scan(&entry.CreatedAt); err != nil {
			return fmt.Errorf("inserting cost entry: %w", err)
		}

		if err := eventlog.LockIntent(ctx, tx, intentID); err != nil {
			return err
		}
		ev, err := eventlog.Append(ctx, tx, intentID, eventlog.TypeCostRecorded, agentID, entry)
		if err != nil {
			return err
		}
		appended = ev
		return nil
	})
	if err != nil {
		return CostEntry{}, err
	}
	s.publish(appended)
	return entry, nil
}

// CostSummary aggregates all recorded cost for an intent, grouped by type.
func (s *Store) CostSummary(ctx context.Context, intentID uuid.UUID) (CostSummary, error) {
	rows, err := s.db.Query(ctx, `SELECT cost_type, currency, amount FROM costs WHERE intent_id = $1`, intentID)
	if err != nil {
		return CostSummary{}, fmt.Errorf("querying costs: %w", err)
	}
	defer rows.Close()

	summary := CostSummary{IntentID: intentID, ByType: map[string]float64{}}
	for rows.Next() {
		var costType, currency string
		var amount float64
		if err := rows.Scan(&costType, &currency, &amount); err != nil {
			return CostSummary{}, fmt.Errorf("scanning cost row: %w", err)
		}
		if summary.Currency == "" {
			summary.Currency = currency
		}
		summary.ByType[costType] += amount
		summary.Total += amount
	}
	return summary, rows.Err()
}

// CreateAttachment records blob metadata and computes its content hash
// inline from the caller-supplied bytes, appending ATTACHMENT_CREATED.
func (s *Store) CreateAttachment(ctx context.Context, intentID uuid.UUID, filename, contentType string, data []byte, blobHandle, createdBy string, metadata map[string]any) (Attachment, error) {
	if err := s.assertIntentExists(ctx, intentID); err != nil {
		return Attachment{}, err
	}

	sum := sha256.Sum256(data)
	att := Attachment{
		ID: uuid.New(), IntentID: intentID, Filename: filename, ContentType: contentType,
		Size: int64(len(data)), SHA256: hex.EncodeToString(sum[:]), BlobHandle: blobHandle,
		Metadata: metadata, CreatedBy: createdBy,
	}

	metaRaw, err := json.Marshal(metadata)
	if err != nil {
		return Attachment{}, fmt.Errorf("marshaling attachment metadata: %w", err)
	}

	var appended eventlog.Event
	err = storage.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO attachments (id, intent_id, filename, content_type, size, sha256, blob_handle, metadata, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING created_at
		`, att.ID, intentID, filename, contentType, att.Size, att.SHA256, blobHandle, metaRaw, createdBy)
		if err := row.Scan(&att.CreatedAt); err != nil {
			return fmt.Errorf("inserting attachment: %w", err)
		}

		if err := eventlog.LockIntent(ctx, tx, intentID); err != nil {
			return err
		}
		ev, err := eventlog.Append(ctx, tx, intentID, eventlog.TypeAttachmentCreated, createdBy, att)
		if err != nil {
			return err
		}
		appended = ev
		return nil
	})
	if err != nil {
		return Attachment{}, err
	}
	s.publish(appended)
	return att, nil
}

// RequestArbitration appends ARBITRATION_REQUESTED to the intent's event log.
// It does not change the intent's status.
func (s *Store) RequestArbitration(ctx context.Context, intentID uuid.UUID, requestedBy, reason string, options []string) (ArbitrationRequest, error) {
	if err := s.assertIntentExists(ctx, intentID); err != nil {
		return ArbitrationRequest{}, err
	}

	req := ArbitrationRequest{ID: uuid.New(), IntentID: intentID, RequestedBy: requestedBy, Reason: reason, Options: options}

	var appended eventlog.Event
	err := storage.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := eventlog.LockIntent(ctx, tx, intentID); err != nil {
			return err
		}
		ev, err := eventlog.Append(ctx, tx, intentID, eventlog.TypeArbitrationRequested, requestedBy, req)
		if err != nil {
			return err
		}
		appended = ev
		return nil
	})
	if err != nil {
		return ArbitrationRequest{}, err
	}
	req.RequestedAt = appended.CreatedAt
	s.publish(appended)
	return req, nil
}

// RecordDecision appends DECISION_RECORDED, resolving an outstanding
// arbitration (or any standalone governance call).
func (s *Store) RecordDecision(ctx context.Context, intentID uuid.UUID, decidedBy, decision, rationale string) (Decision, error) {
	if err := s.assertIntentExists(ctx, intentID); err != nil {
		return Decision{}, err
	}

	d := Decision{ID: uuid.New(), IntentID: intentID, DecidedBy: decidedBy, Decision: decision, Rationale: rationale}

	var appended eventlog.Event
	err := storage.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := eventlog.LockIntent(ctx, tx, intentID); err != nil {
			return err
		}
		ev, err := eventlog.Append(ctx, tx, intentID, eventlog.TypeDecisionRecorded, decidedBy, d)
		if err != nil {
			return err
		}
		appended = ev
		return nil
	})
	if err != nil {
		return Decision{}, err
	}
	d.DecidedAt = appended.CreatedAt
	s.publish(appended)
	return d, nil
}
