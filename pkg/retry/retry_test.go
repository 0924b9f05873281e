package retry

import (
	"testing"

	"github.com/openintent-ai/openintent/pkg/intent"
)

func TestComputeDelayFixed(t *testing.T) {
	policy := intent.RetryPolicy{Strategy: StrategyFixed, BaseDelayMs: 500, MaxDelayMs: 5000}
	for attempt := 1; attempt <= 5; attempt++ {
		if got := ComputeDelay(policy, attempt); got != 500 {
			t.Errorf("attempt %d: want 500, got %d", attempt, got)
		}
	}
}

func TestComputeDelayLinear(t *testing.T) {
	policy := intent.RetryPolicy{Strategy: StrategyLinear, BaseDelayMs: 200, MaxDelayMs: 1000}
	cases := map[int]int64{1: 200, 2: 400, 3: 600, 10: 1000} // capped at MaxDelayMs
	for attempt, want := range cases {
		if got := ComputeDelay(policy, attempt); got != want {
			t.Errorf("attempt %d: want %d, got %d", attempt, want, got)
		}
	}
}

func TestComputeDelayExponential(t *testing.T) {
	policy := intent.RetryPolicy{Strategy: StrategyExponential, BaseDelayMs: 100, MaxDelayMs: 10000}
	cases := map[int]int64{1: 100, 2: 200, 3: 400, 4: 800, 5: 1600}
	for attempt, want := range cases {
		if got := ComputeDelay(policy, attempt); got != want {
			t.Errorf("attempt %d: want %d, got %d", attempt, want, got)
		}
	}
}

func TestComputeDelayExponentialCapsAtMax(t *testing.T) {
	policy := intent.RetryPolicy{Strategy: StrategyExponential, BaseDelayMs: 1000, MaxDelayMs: 3000}
	if got := ComputeDelay(policy, 10); got != 3000 {
		t.Errorf("want delay capped at MaxDelayMs=3000, got %d", got)
	}
}

func TestComputeDelayDefaultsMaxToBaseWhenUnset(t *testing.T) {
	policy := intent.RetryPolicy{Strategy: StrategyExponential, BaseDelayMs: 250, MaxDelayMs: 0}
	if got := ComputeDelay(policy, 5); got != 250 {
		t.Errorf("with MaxDelayMs unset, delay should clamp to BaseDelayMs; got %d", got)
	}
}
