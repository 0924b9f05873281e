package event

import (
	"context"

	"github.com/google/uuid"

	"github.com/openintent-ai/openintent/internal/eventlog"
	"github.com/openintent-ai/openintent/internal/storage"
)

// Store reads the durable event log.
type Store struct {
	db storage.DBTX
}

// NewStore constructs a Store.
func NewStore(db storage.DBTX) *Store {
	return &Store{db: db}
}

// List pages through an intent's event log from fromSequence (inclusive).
func (s *Store) List(ctx context.Context, intentID uuid.UUID, fromSequence int64, limit int) ([]Event, error) {
	return eventlog.List(ctx, s.db, intentID, fromSequence, limit)
}

// LastSequence returns the highest durable sequence number for intentID.
func (s *Store) LastSequence(ctx context.Context, intentID uuid.UUID) (int64, error) {
	return eventlog.LastSequence(ctx, s.db, intentID)
}
