package validation

import (
	"strings"
	"testing"
)

func TestValidateScope(t *testing.T) {
	cases := []struct {
		scope   string
		wantErr bool
	}{
		{"content", false},
		{"content.draft", false},
		{"content.draft.section_1", false},
		{"_private.scope", false},
		{"", true},
		{"1content", true},
		{"content..draft", true},
		{"content.", true},
		{".content", true},
		{"content draft", true},
		{"content-draft", true},
	}
	for _, tc := range cases {
		t.Run(tc.scope, func(t *testing.T) {
			err := ValidateScope(tc.scope)
			if tc.wantErr && err == nil {
				t.Errorf("ValidateScope(%q): expected error, got nil", tc.scope)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("ValidateScope(%q): unexpected error: %v", tc.scope, err)
			}
		})
	}
}

func TestValidateAgentID(t *testing.T) {
	if err := ValidateAgentID(""); err == nil {
		t.Error("expected error for empty agent id")
	}
	if err := ValidateAgentID("agent-007"); err != nil {
		t.Errorf("unexpected error for valid agent id: %v", err)
	}
	tooLong := strings.Repeat("a", maxAgentIDLength+1)
	if err := ValidateAgentID(tooLong); err == nil {
		t.Error("expected error for over-length agent id")
	}
	exact := strings.Repeat("a", maxAgentIDLength)
	if err := ValidateAgentID(exact); err != nil {
		t.Errorf("unexpected error at exact length boundary: %v", err)
	}
}
