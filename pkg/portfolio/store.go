package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

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

// Store persists portfolios and memberships.
type Store struct {
	db          storage.Beginner
	intentStore *intent.Store
	publisher   Publisher
}

// NewStore constructs a Store. intentStore is used to read member statuses
// when recomputing the aggregate.
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

func scanPortfolio(row pgx.Row) (Portfolio, error) {
	var (
		p         Portfolio
		policyRaw []byte
		aggRaw    []byte
	)
	err := row.Scan(&p.ID, &p.Name, &policyRaw, &p.Status, &aggRaw, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Portfolio{}, ErrNotFound
	}
	if err != nil {
		return Portfolio{}, fmt.Errorf("scanning portfolio: %w", err)
	}
	if len(policyRaw) > 0 {
		_ = json.Unmarshal(policyRaw, &p.GovernancePolicy)
	}
	if len(aggRaw) > 0 {
		_ = json.Unmarshal(aggRaw, &p.AggregateStatus)
	}
	return p, nil
}

const portfolioColumns = "id, name, governance_policy, status, aggregate_status, created_at, updated_at"

// Create inserts a new, empty portfolio.
func (s *Store) Create(ctx context.Context, name string, policy GovernancePolicy) (Portfolio, error) {
	policyRaw, err := json.Marshal(policy)
	if err != nil {
		return Portfolio{}, fmt.Errorf("marshaling governance policy: %w", err)
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO portfolios (id, name, governance_policy, status, aggregate_status)
		VALUES ($1, $2, $3, $4, '{}'::jsonb)
		RETURNING `+portfolioColumns, uuid.New(), name, policyRaw, StatusActive)
	return scanPortfolio(row)
}

// Get fetches a portfolio with its current member list.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Portfolio, error) {
	p, err := scanPortfolio(s.db.QueryRow(ctx, `SELECT `+portfolioColumns+` FROM portfolios WHERE id = $1`, id))
	if err != nil {
		return Portfolio{}, err
	}
	p.Members, err = s.members(ctx, id)
	if err != nil {
		return Portfolio{}, err
	}
	return p, nil
}

// List returns every portfolio (without members, for summary views).
func (s *Store) List(ctx context.Context) ([]Portfolio, error) {
	rows, err := s.db.Query(ctx, `SELECT `+portfolioColumns+` FROM portfolios ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing portfolios: %w", err)
	}
	defer rows.Close()

	var out []Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) members(ctx context.Context, portfolioID uuid.UUID) ([]Member, error) {
	rows, err := s.db.Query(ctx, `
		SELECT intent_id, role, priority FROM portfolio_members
		WHERE portfolio_id = $1 ORDER BY priority DESC, added_at
	`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("listing portfolio members: %w", err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.IntentID, &m.Role, &m.Priority); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AddMember adds intentID to the portfolio with role/priority, then
// recomputes the aggregate and emits MEMBERSHIP_ADDED.
func (s *Store) AddMember(ctx context.Context, portfolioID, intentID uuid.UUID, role string, priority int, actorAgentID string) (Portfolio, error) {
	var appended eventlog.Event
	err := storage.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := scanPortfolio(tx.QueryRow(ctx, `SELECT `+portfolioColumns+` FROM portfolios WHERE id = $1 FOR UPDATE`, portfolioID)); err != nil {
			return err
		}

		var discard uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM intents WHERE id = $1`, intentID).Scan(&discard); err != nil {
			return intent.ErrNotFound
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO portfolio_members (portfolio_id, intent_id, role, priority)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (portfolio_id, intent_id) DO NOTHING
		`, portfolioID, intentID, role, priority)
		if err != nil {
			return fmt.Errorf("inserting member: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrMemberExists
		}

		if err := eventlog.LockIntent(ctx, tx, intentID); err != nil {
			return err
		}
		ev, err := eventlog.Append(ctx, tx, intentID, eventlog.TypeMembershipAdded, actorAgentID, map[string]any{
			"portfolio_id": portfolioID, "role": role, "priority": priority,
		})
		if err != nil {
			return err
		}
		appended = ev
		return nil
	})
	if err != nil {
		return Portfolio{}, err
	}
	s.publish(appended)

	if err := s.RecomputeAggregate(ctx, portfolioID, actorAgentID); err != nil {
		return Portfolio{}, err
	}
	return s.Get(ctx, portfolioID)
}

// RemoveMember removes intentID from the portfolio and recomputes the
// aggregate.
func (s *Store) RemoveMember(ctx context.Context, portfolioID, intentID uuid.UUID, actorAgentID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM portfolio_members WHERE portfolio_id = $1 AND intent_id = $2`, portfolioID, intentID)
	if err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return s.RecomputeAggregate(ctx, portfolioID, actorAgentID)
}

// UpdateStatus sets the portfolio's own lifecycle status.
func (s *Store) UpdateStatus(ctx context.Context, portfolioID uuid.UUID, status string) (Portfolio, error) {
	_, err := scanPortfolio(s.db.QueryRow(ctx, `
		UPDATE portfolios SET status = $1, updated_at = now() WHERE id = $2
		RETURNING `+portfolioColumns, status, portfolioID))
	if err != nil {
		return Portfolio{}, err
	}
	return s.Get(ctx, portfolioID)
}

// RecomputeAggregate recalculates total/by_status/completion_percentage
// from current member statuses, persists it, and emits AGGREGATE_CHANGED
// only if it differs from the stored value (spec §4.4).
func (s *Store) RecomputeAggregate(ctx context.Context, portfolioID uuid.UUID, actorAgentID string) error {
	members, err := s.members(ctx, portfolioID)
	if err != nil {
		return err
	}

	statuses := make([]string, 0, len(members))
	for _, m := range members {
		iv, err := s.intentStore.Get(ctx, m.IntentID)
		if err != nil {
			continue
		}
		statuses = append(statuses, iv.Status)
	}
	fresh := intent.ComputeAggregate(statuses)

	current, err := scanPortfolio(s.db.QueryRow(ctx, `SELECT `+portfolioColumns+` FROM portfolios WHERE id = $1`, portfolioID))
	if err != nil {
		return err
	}
	if reflect.DeepEqual(current.AggregateStatus, fresh) {
		return nil
	}

	raw, err := json.Marshal(fresh)
	if err != nil {
		return fmt.Errorf("marshaling aggregate: %w", err)
	}
	if _, err := s.db.Exec(ctx, `UPDATE portfolios SET aggregate_status = $1, updated_at = now() WHERE id = $2`, raw, portfolioID); err != nil {
		return fmt.Errorf("persisting aggregate: %w", err)
	}

	// AGGREGATE_CHANGED is portfolio-scoped, not per-intent; there is no
	// single natural intent to lock, so this event is appended, under that
	// intent's lock, to the log of the first PRIMARY member's intent when
	// one exists, else skipped.
	for _, m := range members {
		if m.Role != RolePrimary {
			continue
		}
		err := storage.WithTx(ctx, s.db, func(tx pgx.Tx) error {
			if err := eventlog.LockIntent(ctx, tx, m.IntentID); err != nil {
				return err
			}
			ev, err := eventlog.Append(ctx, tx, m.IntentID, eventlog.TypeAggregateChanged, actorAgentID, map[string]any{
				"portfolio_id": portfolioID, "aggregate_status": fresh,
			})
			if err != nil {
				return err
			}
			s.publish(ev)
			return nil
		})
		if err != nil {
			return err
		}
		break
	}

	return nil
}
