// Package validation holds cross-component input checks applied at the API
// boundary before a request reaches storage, grounded on
// original_source/openintent/validation.py.
package validation

import (
	"fmt"
	"regexp"
)

var scopePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)*$`)

// ValidateScope enforces the dotted-identifier scope grammar (spec §4.3)
// before a lease acquisition reaches storage.
func ValidateScope(scope string) error {
	if !scopePattern.MatchString(scope) {
		return fmt.Errorf("scope must be a dot-separated path (e.g. 'content.draft')")
	}
	return nil
}

const maxAgentIDLength = 255

// ValidateAgentID enforces the non-empty, length-capped agent id format
// applied to every operation that accepts a caller-supplied agent id.
func ValidateAgentID(agentID string) error {
	if agentID == "" {
		return fmt.Errorf("agent_id cannot be empty")
	}
	if len(agentID) > maxAgentIDLength {
		return fmt.Errorf("agent_id must be at most %d characters", maxAgentIDLength)
	}
	return nil
}
