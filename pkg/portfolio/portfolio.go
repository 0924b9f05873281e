// Package portfolio implements the portfolio/graph aggregator (spec §4.4):
// a flat membership bag over intents, with the same aggregate-status
// computation used by the hierarchy queries in pkg/intent.
package portfolio

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openintent-ai/openintent/pkg/intent"
)

// Portfolio status values, per spec §3.
const (
	StatusActive    = "ACTIVE"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// Member roles, per spec §3.
const (
	RoleMember     = "MEMBER"
	RolePrimary    = "PRIMARY"
	RoleDependency = "DEPENDENCY"
)

var validRoles = map[string]bool{RoleMember: true, RolePrimary: true, RoleDependency: true}

// IsValidRole reports whether role is a recognized membership role.
func IsValidRole(role string) bool {
	return validRoles[role]
}

// GovernancePolicy is informational metadata attached to a portfolio (spec
// §4.4). The core stores and returns it; it does not enforce it and emits no
// COST_THRESHOLD_EXCEEDED or TIMEOUT_REACHED events.
type GovernancePolicy struct {
	RequireAllCompleted   bool    `json:"require_all_completed,omitempty"`
	AllowPartialCompletion bool   `json:"allow_partial_completion,omitempty"`
	MaxCostUSD            float64 `json:"max_cost_usd,omitempty"`
	TimeoutHours          float64 `json:"timeout_hours,omitempty"`
}

// Member is a portfolio's membership record.
type Member struct {
	IntentID uuid.UUID `json:"intent_id"`
	Role     string    `json:"role"`
	Priority int       `json:"priority"`
}

// Portfolio is a flat, governed bag of intents (spec §3).
type Portfolio struct {
	ID               uuid.UUID              `json:"id"`
	Name             string                 `json:"name"`
	GovernancePolicy GovernancePolicy       `json:"governance_policy"`
	Members          []Member               `json:"members"`
	Status           string                 `json:"status"`
	AggregateStatus  intent.AggregateStatus `json:"aggregate_status"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// ErrNotFound indicates the target portfolio id does not exist.
var ErrNotFound = fmt.Errorf("portfolio not found")

// ErrMemberExists indicates intent_id is already a member.
var ErrMemberExists = fmt.Errorf("intent already a portfolio member")

// ErrMemberNotFound indicates intent_id is not a member.
var ErrMemberNotFound = fmt.Errorf("intent is not a portfolio member")
