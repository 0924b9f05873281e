package event

import (
	"testing"

	"github.com/google/uuid"
)

func TestFilterMatches(t *testing.T) {
	intentA := uuid.New()
	intentB := uuid.New()

	cases := []struct {
		name   string
		filter Filter
		ev     Event
		want   bool
	}{
		{
			name:   "no filter matches everything",
			filter: Filter{},
			ev:     Event{IntentID: intentA, EventType: "CREATED", ActorAgentID: "agent-1"},
			want:   true,
		},
		{
			name:   "intent filter matches same intent",
			filter: Filter{IntentID: &intentA},
			ev:     Event{IntentID: intentA},
			want:   true,
		},
		{
			name:   "intent filter excludes other intent",
			filter: Filter{IntentID: &intentA},
			ev:     Event{IntentID: intentB},
			want:   false,
		},
		{
			name:   "event type filter matches included type",
			filter: Filter{EventTypes: map[string]bool{"CREATED": true}},
			ev:     Event{EventType: "CREATED"},
			want:   true,
		},
		{
			name:   "event type filter excludes other type",
			filter: Filter{EventTypes: map[string]bool{"CREATED": true}},
			ev:     Event{EventType: "STATUS_CHANGED"},
			want:   false,
		},
		{
			name:   "agent filter matches actor",
			filter: Filter{AgentID: "agent-1"},
			ev:     Event{ActorAgentID: "agent-1"},
			want:   true,
		},
		{
			name:   "agent filter excludes other actor",
			filter: Filter{AgentID: "agent-1"},
			ev:     Event{ActorAgentID: "agent-2"},
			want:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.filter.Matches(tc.ev); got != tc.want {
				t.Errorf("Matches() = %v, want %v", got, tc.want)
			}
		})
	}
}
