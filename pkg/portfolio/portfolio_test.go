package portfolio

import "testing"

func TestIsValidRole(t *testing.T) {
	for _, role := range []string{RoleMember, RolePrimary, RoleDependency} {
		if !IsValidRole(role) {
			t.Errorf("expected %s to be a valid role", role)
		}
	}
	if IsValidRole("OWNER") {
		t.Error("expected unrecognized role to be invalid")
	}
	if IsValidRole("") {
		t.Error("expected empty role to be invalid")
	}
}
