// Package retry implements the retry/failure accounting subsystem (spec
// §4.5). It computes backoff delays and records failures, but never
// re-dispatches work itself — RETRY_SCHEDULED is advisory for an external
// worker.
package retry

import (
	"time"

	"github.com/google/uuid"

	"github.com/openintent-ai/openintent/pkg/intent"
)

// Strategy values, per spec §3.
const (
	StrategyFixed       = "FIXED"
	StrategyLinear      = "LINEAR"
	StrategyExponential = "EXPONENTIAL"
)

// ComputeDelay returns the backoff delay in milliseconds for attemptNumber
// under policy (spec §4.5). attemptNumber is 1-indexed.
func ComputeDelay(policy intent.RetryPolicy, attemptNumber int) int64 {
	base := policy.BaseDelayMs
	max := policy.MaxDelayMs
	if max <= 0 {
		max = base
	}

	var delay int64
	switch policy.Strategy {
	case StrategyLinear:
		delay = base * int64(attemptNumber)
	case StrategyExponential:
		delay = base
		for i := 1; i < attemptNumber; i++ {
			delay *= 2
			if delay > max {
				break
			}
		}
	default: // FIXED
		delay = base
	}

	if delay > max {
		delay = max
	}
	return delay
}

// Failure is a recorded failed attempt (spec §3).
type Failure struct {
	ID            uuid.UUID      `json:"id"`
	IntentID      uuid.UUID      `json:"intent_id"`
	ErrorType     string         `json:"error_type"`
	ErrorMessage  string         `json:"error_message"`
	Recoverable   bool           `json:"recoverable"`
	Context       map[string]any `json:"context,omitempty"`
	AttemptNumber int            `json:"attempt_number"`
	CreatedAt     time.Time      `json:"timestamp"`
}

// Outcome reports what record_failure decided (spec §4.5 accounting).
type Outcome struct {
	Failure     Failure `json:"failure"`
	Exhausted   bool    `json:"exhausted"`
	NextDelayMs int64   `json:"next_delay_ms,omitempty"`
	Strategy    string  `json:"strategy,omitempty"`
}
