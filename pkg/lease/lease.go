// Package lease implements the scoped lease manager (spec §4.3): mutual
// exclusion over an (intent_id, scope) pair with TTL-based expiry.
package lease

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status values, per spec §3.
const (
	StatusActive   = "ACTIVE"
	StatusReleased = "RELEASED"
	StatusExpired  = "EXPIRED"
)

// TTL bounds, per spec §4.3.
const (
	MinTTL = time.Second
	MaxTTL = 24 * time.Hour
)

// ClampTTL clamps ttl to [MinTTL, MaxTTL].
func ClampTTL(ttl time.Duration) time.Duration {
	if ttl < MinTTL {
		return MinTTL
	}
	if ttl > MaxTTL {
		return MaxTTL
	}
	return ttl
}

// Lease is a time-bound grant of exclusive access to a scope within an
// intent (spec §3).
type Lease struct {
	ID          uuid.UUID `json:"id"`
	IntentID    uuid.UUID `json:"intent_id"`
	Scope       string    `json:"scope"`
	HolderAgent string    `json:"holder_agent_id"`
	AcquiredAt  time.Time `json:"acquired_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Status      string    `json:"status"`
}

// EffectiveStatus reports the lease status as a reader should treat it:
// an ACTIVE lease past its expiry is logically released even if the
// sweeper has not yet marked it EXPIRED (spec §4.3, §13 OQ2).
func (l Lease) EffectiveStatus(now time.Time) string {
	if l.Status == StatusActive && !l.ExpiresAt.After(now) {
		return StatusExpired
	}
	return l.Status
}

// ErrNotFound indicates the target lease id does not exist.
var ErrNotFound = fmt.Errorf("lease not found")

// ErrConflict indicates an ACTIVE, unexpired lease already holds the scope.
type ErrConflict struct {
	Holder    string
	ExpiresAt time.Time
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("scope held by %s until %s", e.Holder, e.ExpiresAt.Format(time.RFC3339))
}

// ErrNotHeld indicates the caller is not the current holder of the lease.
var ErrNotHeld = fmt.Errorf("lease not held by caller")
