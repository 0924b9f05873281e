package governance

import "testing"

func TestIsValidCostType(t *testing.T) {
	for _, ct := range []string{CostCompute, CostAPI, CostTokens, CostStorage, CostOther} {
		if !IsValidCostType(ct) {
			t.Errorf("expected %s to be valid", ct)
		}
	}
	if IsValidCostType("BANDWIDTH") {
		t.Error("expected unrecognized cost type to be invalid")
	}
}

func TestIsValidCurrency(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"USD", true},
		{"EUR", true},
		{"usd", false},
		{"US", false},
		{"USDT", false},
		{"", false},
		{"U5D", false},
	}
	for _, tc := range cases {
		if got := IsValidCurrency(tc.code); got != tc.want {
			t.Errorf("IsValidCurrency(%q) = %v, want %v", tc.code, got, tc.want)
		}
	}
}
