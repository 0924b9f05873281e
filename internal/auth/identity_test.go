package auth

import "testing"

func TestHashAPIKey(t *testing.T) {
	h1 := HashAPIKey("test-key-123")
	h2 := HashAPIKey("test-key-123")
	if h1 != h2 {
		t.Fatalf("same key produced different hashes: %q vs %q", h1, h2)
	}

	h3 := HashAPIKey("different-key")
	if h1 == h3 {
		t.Fatal("different keys produced the same hash")
	}

	if len(h1) != 64 {
		t.Fatalf("hash length = %d, want 64", len(h1))
	}
}

func TestIsValidRole(t *testing.T) {
	tests := []struct {
		role  string
		valid bool
	}{
		{RoleAdmin, true},
		{RoleAgent, true},
		{RoleReadonly, true},
		{"superadmin", false},
		{"", false},
		{"Admin", false}, // case-sensitive
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			got := IsValidRole(tt.role)
			if got != tt.valid {
				t.Errorf("IsValidRole(%q) = %v, want %v", tt.role, got, tt.valid)
			}
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	id := &Identity{AgentID: "agent-1", Role: RoleAgent}
	ctx := NewContext(t.Context(), id)

	got := FromContext(ctx)
	if got != id {
		t.Fatalf("FromContext returned %v, want %v", got, id)
	}

	if FromContext(t.Context()) != nil {
		t.Fatal("expected nil identity on a context without one")
	}
}
