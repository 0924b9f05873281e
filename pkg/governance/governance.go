// Package governance implements arbitration, decisions, the cost ledger,
// and attachments (spec component I): the collaborative escalation surface
// layered on top of intents.
package governance

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Cost types, per spec §3.
const (
	CostCompute = "COMPUTE"
	CostAPI     = "API"
	CostTokens  = "TOKENS"
	CostStorage = "STORAGE"
	CostOther   = "OTHER"
)

var validCostTypes = map[string]bool{
	CostCompute: true, CostAPI: true, CostTokens: true, CostStorage: true, CostOther: true,
}

// IsValidCostType reports whether t is a recognized cost_type.
func IsValidCostType(t string) bool { return validCostTypes[t] }

// IsValidCurrency reports whether c is a well-formed 3-letter ISO currency
// code, grounded on original_source/openintent/validation.py's
// validate_cost_record.
func IsValidCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// CostEntry is a recorded spend against an intent (spec §3).
type CostEntry struct {
	ID          uuid.UUID `json:"id"`
	IntentID    uuid.UUID `json:"intent_id"`
	AgentID     string    `json:"agent_id"`
	CostType    string    `json:"cost_type"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"timestamp"`
}

// Attachment is an opaque blob reference tied to an intent (spec §3).
type Attachment struct {
	ID          uuid.UUID      `json:"id"`
	IntentID    uuid.UUID      `json:"intent_id"`
	Filename    string         `json:"filename"`
	ContentType string         `json:"content_type"`
	Size        int64          `json:"size"`
	SHA256      string         `json:"sha256"`
	BlobHandle  string         `json:"blob_handle"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedBy   string         `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ArbitrationRequest asks a human or designated arbiter to resolve a
// disagreement or blocking condition on an intent.
type ArbitrationRequest struct {
	ID           uuid.UUID `json:"id"`
	IntentID     uuid.UUID `json:"intent_id"`
	RequestedBy  string    `json:"requested_by"`
	Reason       string    `json:"reason"`
	Options      []string  `json:"options,omitempty"`
	RequestedAt  time.Time `json:"timestamp"`
}

// Decision records the resolution of an ArbitrationRequest (or any
// standalone governance decision).
type Decision struct {
	ID         uuid.UUID `json:"id"`
	IntentID   uuid.UUID `json:"intent_id"`
	DecidedBy  string    `json:"decided_by"`
	Decision   string    `json:"decision"`
	Rationale  string    `json:"rationale,omitempty"`
	DecidedAt  time.Time `json:"timestamp"`
}

// CostSummary aggregates an intent's cost ledger by cost_type.
type CostSummary struct {
	IntentID uuid.UUID          `json:"intent_id"`
	Total    float64            `json:"total"`
	Currency string             `json:"currency"`
	ByType   map[string]float64 `json:"by_type"`
}

// ErrNotFound is returned when a referenced intent does not exist.
var ErrNotFound = errors.New("governance: not found")
