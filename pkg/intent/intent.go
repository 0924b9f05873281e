// Package intent implements the intent lifecycle and state machine with
// optimistic concurrency (spec §4.1), plus the hierarchy/dependency graph
// queries layered on top of parent_id and depends_on (spec §4.4).
package intent

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status values, per spec §3.
const (
	StatusPending   = "PENDING"
	StatusActive    = "ACTIVE"
	StatusBlocked   = "BLOCKED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
	StatusFailed    = "FAILED"
)

var terminalStatuses = map[string]bool{
	StatusCompleted: true,
	StatusCancelled: true,
	StatusFailed:    true,
}

// DefaultIdempotencyWindow bounds how long a create_intent idempotency key
// stays eligible for replay (spec.md §9c).
const DefaultIdempotencyWindow = 24 * time.Hour

// IsTerminal reports whether status accepts no further state/status mutations.
func IsTerminal(status string) bool {
	return terminalStatuses[status]
}

// validTransitions encodes the state machine diagram in spec §4.1.
var validTransitions = map[string]map[string]bool{
	StatusPending: {StatusActive: true, StatusCancelled: true},
	StatusActive: {
		StatusBlocked:   true,
		StatusCompleted: true,
		StatusCancelled: true,
		StatusFailed:    true,
	},
	StatusBlocked: {
		StatusActive:    true,
		StatusCompleted: true,
		StatusCancelled: true,
	},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusFailed:    {},
}

// ValidTransition reports whether from -> to is a legal status transition.
func ValidTransition(from, to string) bool {
	return validTransitions[from][to]
}

// RetryPolicy is embedded on the intent (spec §3, §4.5).
type RetryPolicy struct {
	Strategy         string `json:"strategy,omitempty"`
	MaxRetries       int    `json:"max_retries,omitempty"`
	BaseDelayMs      int64  `json:"base_delay_ms,omitempty"`
	MaxDelayMs       int64  `json:"max_delay_ms,omitempty"`
	FailureThreshold int    `json:"failure_threshold,omitempty"`
}

// Intent is the central coordination entity (spec §3).
type Intent struct {
	ID             uuid.UUID       `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	CreatorAgentID string          `json:"creator_agent_id"`
	Status         string          `json:"status"`
	State          json.RawMessage `json:"state"`
	Version        int64           `json:"version"`
	Constraints    []string        `json:"constraints"`
	ParentID       *uuid.UUID      `json:"parent_id,omitempty"`
	DependsOn      []uuid.UUID     `json:"depends_on"`
	RetryPolicy    RetryPolicy     `json:"retry_policy"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CreateInput carries the fields accepted by Create and CreateChild.
type CreateInput struct {
	Title          string
	Description    string
	CreatorAgentID string
	Constraints    []string
	DependsOn      []uuid.UUID
	State          json.RawMessage
	IdempotencyKey string
}

// ListFilters narrows List results.
type ListFilters struct {
	Status         string
	ParentID       *uuid.UUID
	CreatorAgentID string
	Limit          int
	Offset         int
}

// ErrNotFound indicates the target intent id does not exist.
var ErrNotFound = fmt.Errorf("intent not found")

// ErrVersionConflict indicates an optimistic-concurrency check failed.
type ErrVersionConflict struct {
	CurrentVersion int64
}

func (e *ErrVersionConflict) Error() string {
	return fmt.Sprintf("version conflict: current version is %d", e.CurrentVersion)
}

// ErrInvalidTransition indicates a status change violates the state machine.
type ErrInvalidTransition struct {
	From, To string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
}

// ErrTerminal indicates a mutation was attempted against a terminal intent.
type ErrTerminal struct {
	Status string
}

func (e *ErrTerminal) Error() string {
	return fmt.Sprintf("intent is in terminal status %s and rejects further mutation", e.Status)
}

// ErrCycle indicates a parent_id/depends_on edge would create a cycle.
var ErrCycle = fmt.Errorf("parent_id/depends_on relationship would create a cycle")

// ErrDependencyNotFound indicates a depends_on target does not exist.
var ErrDependencyNotFound = fmt.Errorf("depends_on target not found")

// AggregateStatus is the rolled-up completion summary over a set of intents
// (spec §4.4), shared by graph queries and the portfolio package.
type AggregateStatus struct {
	Total               int            `json:"total"`
	ByStatus             map[string]int `json:"by_status"`
	CompletionPercentage float64        `json:"completion_percentage"`
	ReachableCompletion  float64        `json:"reachable_completion"`
}

// ComputeAggregate derives an AggregateStatus from a flat slice of statuses.
func ComputeAggregate(statuses []string) AggregateStatus {
	agg := AggregateStatus{ByStatus: map[string]int{}}
	agg.Total = len(statuses)

	var unreachable int
	for _, s := range statuses {
		agg.ByStatus[s]++
		if s == StatusFailed || s == StatusCancelled {
			unreachable++
		}
	}

	if agg.Total > 0 {
		completed := agg.ByStatus[StatusCompleted]
		agg.CompletionPercentage = round2(100 * float64(completed) / float64(agg.Total))
		agg.ReachableCompletion = round2(100 * float64(agg.Total-unreachable) / float64(agg.Total))
	}

	return agg
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
