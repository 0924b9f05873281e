package toolbroker

import (
	"testing"
	"time"
)

func TestClampTimeout(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want time.Duration
	}{
		{in: 0, want: DefaultTimeout},
		{in: -time.Second, want: DefaultTimeout},
		{in: 500 * time.Millisecond, want: MinTimeout},
		{in: MinTimeout, want: MinTimeout},
		{in: 45 * time.Second, want: 45 * time.Second},
		{in: MaxTimeout, want: MaxTimeout},
		{in: 10 * time.Minute, want: MaxTimeout},
	}
	for _, tc := range cases {
		if got := ClampTimeout(tc.in); got != tc.want {
			t.Errorf("ClampTimeout(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestToolGrantExpired(t *testing.T) {
	now := time.Now()

	noExpiry := ToolGrant{}
	if noExpiry.Expired(now) {
		t.Error("grant with no expiry should never expire")
	}

	future := now.Add(time.Hour)
	unexpired := ToolGrant{ExpiresAt: &future}
	if unexpired.Expired(now) {
		t.Error("grant expiring in the future should not be expired")
	}

	past := now.Add(-time.Hour)
	expired := ToolGrant{ExpiresAt: &past}
	if !expired.Expired(now) {
		t.Error("grant with a past expiry should be expired")
	}

	exact := now
	atBoundary := ToolGrant{ExpiresAt: &exact}
	if !atBoundary.Expired(now) {
		t.Error("grant expiring exactly now should be considered expired")
	}
}

func TestErrGrantDeniedMessage(t *testing.T) {
	err := &ErrGrantDenied{Reason: "no active grant"}
	want := "grant denied: no active grant"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}
