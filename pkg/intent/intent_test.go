package intent

import "testing"

func TestValidTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusActive, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusActive, StatusBlocked, true},
		{StatusActive, StatusCompleted, true},
		{StatusActive, StatusFailed, true},
		{StatusBlocked, StatusActive, true},
		{StatusBlocked, StatusFailed, false},
		{StatusCompleted, StatusActive, false},
		{StatusCancelled, StatusActive, false},
		{StatusFailed, StatusActive, false},
	}
	for _, tc := range cases {
		if got := ValidTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("ValidTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []string{StatusCompleted, StatusCancelled, StatusFailed} {
		if !IsTerminal(s) {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []string{StatusPending, StatusActive, StatusBlocked} {
		if IsTerminal(s) {
			t.Errorf("expected %s to not be terminal", s)
		}
	}
}

func TestComputeAggregateEmpty(t *testing.T) {
	agg := ComputeAggregate(nil)
	if agg.Total != 0 || agg.CompletionPercentage != 0 || agg.ReachableCompletion != 0 {
		t.Errorf("expected zero-value aggregate for empty input, got %+v", agg)
	}
}

func TestComputeAggregateMixed(t *testing.T) {
	statuses := []string{
		StatusCompleted, StatusCompleted, StatusActive, StatusFailed, StatusCancelled,
	}
	agg := ComputeAggregate(statuses)

	if agg.Total != 5 {
		t.Fatalf("want total 5, got %d", agg.Total)
	}
	if agg.ByStatus[StatusCompleted] != 2 {
		t.Errorf("want 2 completed, got %d", agg.ByStatus[StatusCompleted])
	}
	if agg.CompletionPercentage != 40 {
		t.Errorf("want 40%% completion, got %v", agg.CompletionPercentage)
	}
	// 2 of 5 are unreachable (FAILED, CANCELLED) -> 3/5 = 60%
	if agg.ReachableCompletion != 60 {
		t.Errorf("want 60%% reachable completion, got %v", agg.ReachableCompletion)
	}
}

func TestComputeAggregateAllReachable(t *testing.T) {
	statuses := []string{StatusPending, StatusActive, StatusBlocked}
	agg := ComputeAggregate(statuses)
	if agg.ReachableCompletion != 100 {
		t.Errorf("want 100%% reachable completion when nothing has failed, got %v", agg.ReachableCompletion)
	}
	if agg.CompletionPercentage != 0 {
		t.Errorf("want 0%% completion, got %v", agg.CompletionPercentage)
	}
}
