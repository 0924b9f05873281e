package lease

import (
	"testing"
	"time"
)

func TestClampTTL(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want time.Duration
	}{
		{in: 500 * time.Millisecond, want: MinTTL},
		{in: MinTTL, want: MinTTL},
		{in: time.Hour, want: time.Hour},
		{in: MaxTTL, want: MaxTTL},
		{in: 48 * time.Hour, want: MaxTTL},
	}
	for _, tc := range cases {
		if got := ClampTTL(tc.in); got != tc.want {
			t.Errorf("ClampTTL(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestLeaseEffectiveStatus(t *testing.T) {
	now := time.Now()

	active := Lease{Status: StatusActive, ExpiresAt: now.Add(time.Minute)}
	if got := active.EffectiveStatus(now); got != StatusActive {
		t.Errorf("want ACTIVE for unexpired lease, got %s", got)
	}

	expiredButUnmarked := Lease{Status: StatusActive, ExpiresAt: now.Add(-time.Minute)}
	if got := expiredButUnmarked.EffectiveStatus(now); got != StatusExpired {
		t.Errorf("want EXPIRED for an ACTIVE lease past its expiry, got %s", got)
	}

	released := Lease{Status: StatusReleased, ExpiresAt: now.Add(time.Minute)}
	if got := released.EffectiveStatus(now); got != StatusReleased {
		t.Errorf("want RELEASED to pass through unchanged, got %s", got)
	}
}

func TestErrConflictMessage(t *testing.T) {
	err := &ErrConflict{Holder: "agent-1", ExpiresAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	want := "scope held by agent-1 until 2026-01-01T00:00:00Z"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}
