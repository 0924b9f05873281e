// Package event implements the HTTP-facing event log reader and the
// in-memory subscription fan-out broker (spec §4.2).
package event

import (
	"github.com/google/uuid"

	"github.com/openintent-ai/openintent/internal/eventlog"
)

// Event is the wire representation of an appended event.
type Event = eventlog.Event

// BackpressurePolicy controls what happens when a subscriber's queue is full
// (spec §4.2).
type BackpressurePolicy string

const (
	PolicyDropOldest  BackpressurePolicy = "DROP_OLDEST"
	PolicyBlock       BackpressurePolicy = "BLOCK"
	PolicyDisconnect  BackpressurePolicy = "DISCONNECT"
	defaultQueueSize                     = 1024
)

// Filter narrows a subscription to a subset of events.
type Filter struct {
	IntentID   *uuid.UUID
	EventTypes map[string]bool
	AgentID    string // "assigned-to-me" sugar: actor_agent_id == AgentID
}

// Matches reports whether ev satisfies f.
func (f Filter) Matches(ev Event) bool {
	if f.IntentID != nil && ev.IntentID != *f.IntentID {
		return false
	}
	if len(f.EventTypes) > 0 && !f.EventTypes[ev.EventType] {
		return false
	}
	if f.AgentID != "" && ev.ActorAgentID != f.AgentID {
		return false
	}
	return true
}
