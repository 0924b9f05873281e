package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openintent-ai/openintent/internal/eventlog"
	"github.com/openintent-ai/openintent/internal/storage"
)

const leaseColumns = "id, intent_id, scope, holder_agent_id, acquired_at, expires_at, status"

// Publisher fans out a freshly-committed event to live subscribers.
type Publisher interface {
	Publish(eventlog.Event)
}

// Store is the durable lease store, backed by a partial unique index on
// (intent_id, scope) WHERE status = 'ACTIVE' to enforce the at-most-one
// invariant (spec §3).
type Store struct {
	db        storage.Beginner
	publisher Publisher
}

// NewStore constructs a Store.
func NewStore(db storage.Beginner) *Store {
	return &Store{db: db}
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

func scanLease(row pgx.Row) (Lease, error) {
	var l Lease
	err := row.Scan(&l.ID, &l.IntentID, &l.Scope, &l.HolderAgent, &l.AcquiredAt, &l.ExpiresAt, &l.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lease{}, ErrNotFound
	}
	if err != nil {
		return Lease{}, fmt.Errorf("scanning lease: %w", err)
	}
	return l, nil
}

// Acquire grants holder exclusive access to scope within intentID for ttl,
// serialized per (intent_id, scope) via the partial unique index (spec
// §4.3). An existing ACTIVE, unexpired lease on the same scope fails with
// ErrConflict.
func (s *Store) Acquire(ctx context.Context, intentID uuid.UUID, scope, holder string, ttl time.Duration) (Lease, error) {
	ttl = ClampTTL(ttl)
	var out Lease
	var appended eventlog.Event

	err := storage.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := eventlog.LockIntent(ctx, tx, intentID); err != nil {
			return err
		}

		existing, err := scanLease(tx.QueryRow(ctx, `
			SELECT `+leaseColumns+` FROM leases
			WHERE intent_id = $1 AND scope = $2 AND status = 'ACTIVE'
		`, intentID, scope))
		if err == nil {
			if existing.EffectiveStatus(time.Now()) == StatusActive {
				return &ErrConflict{Holder: existing.HolderAgent, ExpiresAt: existing.ExpiresAt}
			}
			// Logically expired but not yet swept: release it in place.
			if _, err := tx.Exec(ctx, `UPDATE leases SET status = 'EXPIRED' WHERE id = $1`, existing.ID); err != nil {
				return fmt.Errorf("expiring stale lease: %w", err)
			}
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		now := time.Now()
		out = Lease{
			ID:          uuid.New(),
			IntentID:    intentID,
			Scope:       scope,
			HolderAgent: holder,
			AcquiredAt:  now,
			ExpiresAt:   now.Add(ttl),
			Status:      StatusActive,
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO leases (id, intent_id, scope, holder_agent_id, acquired_at, expires_at, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, out.ID, out.IntentID, out.Scope, out.HolderAgent, out.AcquiredAt, out.ExpiresAt, out.Status); err != nil {
			return fmt.Errorf("inserting lease: %w", err)
		}

		ev, err := eventlog.Append(ctx, tx, intentID, eventlog.TypeLeaseAcquired, holder, out)
		appended = ev
		return err
	})
	if err != nil {
		return Lease{}, err
	}
	s.publish(appended)
	return out, nil
}

// Release marks lease RELEASED. Idempotent for the current holder; a
// double-release is a no-op. Release by a non-holder is rejected.
func (s *Store) Release(ctx context.Context, leaseID uuid.UUID, holder string) error {
	var appended *eventlog.Event
	err := storage.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		l, err := scanLease(tx.QueryRow(ctx, `SELECT `+leaseColumns+` FROM leases WHERE id = $1`, leaseID))
		if err != nil {
			return err
		}
		if l.HolderAgent != holder {
			return ErrNotHeld
		}
		if l.Status != StatusActive {
			return nil // idempotent
		}

		if err := eventlog.LockIntent(ctx, tx, l.IntentID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE leases SET status = 'RELEASED' WHERE id = $1`, leaseID); err != nil {
			return fmt.Errorf("releasing lease: %w", err)
		}

		l.Status = StatusReleased
		ev, err := eventlog.Append(ctx, tx, l.IntentID, eventlog.TypeLeaseReleased, holder, l)
		if err != nil {
			return err
		}
		appended = &ev
		return nil
	})
	if err != nil {
		return err
	}
	if appended != nil {
		s.publish(*appended)
	}
	return nil
}

// Renew extends an ACTIVE lease's expiry relative to now. Must come from
// the current holder.
func (s *Store) Renew(ctx context.Context, leaseID uuid.UUID, holder string, ttl time.Duration) (Lease, error) {
	ttl = ClampTTL(ttl)
	var out Lease

	err := storage.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		l, err := scanLease(tx.QueryRow(ctx, `SELECT `+leaseColumns+` FROM leases WHERE id = $1`, leaseID))
		if err != nil {
			return err
		}
		if l.HolderAgent != holder {
			return ErrNotHeld
		}
		if l.EffectiveStatus(time.Now()) != StatusActive {
			return ErrNotHeld
		}

		newExpiry := time.Now().Add(ttl)
		if _, err := tx.Exec(ctx, `UPDATE leases SET expires_at = $1 WHERE id = $2`, newExpiry, leaseID); err != nil {
			return fmt.Errorf("renewing lease: %w", err)
		}
		l.ExpiresAt = newExpiry
		out = l
		return nil
	})
	if err != nil {
		return Lease{}, err
	}
	return out, nil
}

// List returns every lease recorded against intentID, with ACTIVE leases
// past expiry reported as EXPIRED regardless of sweeper progress.
func (s *Store) List(ctx context.Context, intentID uuid.UUID) ([]Lease, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+leaseColumns+` FROM leases WHERE intent_id = $1 ORDER BY acquired_at
	`, intentID)
	if err != nil {
		return nil, fmt.Errorf("listing leases: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	var out []Lease
	for rows.Next() {
		l, err := scanLease(rows)
		if err != nil {
			return nil, err
		}
		l.Status = l.EffectiveStatus(now)
		out = append(out, l)
	}
	return out, rows.Err()
}

// SweepExpired marks every ACTIVE lease whose expires_at has passed as
// EXPIRED, emitting LEASE_EXPIRED for each (spec §4.3). Best-effort: used
// by the background sweeper.
func (s *Store) SweepExpired(ctx context.Context) (int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+leaseColumns+` FROM leases WHERE status = 'ACTIVE' AND expires_at <= now()
	`)
	if err != nil {
		return 0, fmt.Errorf("querying expired leases: %w", err)
	}
	var expired []Lease
	for rows.Next() {
		l, err := scanLease(rows)
		if err != nil {
			rows.Close()
			return 0, err
		}
		expired = append(expired, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, l := range expired {
		var appended *eventlog.Event
		err := storage.WithTx(ctx, s.db, func(tx pgx.Tx) error {
			if err := eventlog.LockIntent(ctx, tx, l.IntentID); err != nil {
				return err
			}
			tag, err := tx.Exec(ctx, `UPDATE leases SET status = 'EXPIRED' WHERE id = $1 AND status = 'ACTIVE'`, l.ID)
			if err != nil {
				return fmt.Errorf("expiring lease: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return nil // raced with a release/renew
			}
			l.Status = StatusExpired
			ev, err := eventlog.Append(ctx, tx, l.IntentID, eventlog.TypeLeaseExpired, "system:lease-sweeper", l)
			if err != nil {
				return err
			}
			appended = &ev
			return nil
		})
		if err != nil {
			return 0, err
		}
		if appended != nil {
			s.publish(*appended)
		}
	}
	return len(expired), nil
}
