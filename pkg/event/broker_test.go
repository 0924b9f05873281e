package event

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBrokerPublishDeliversToMatchingSubscriber(t *testing.T) {
	b := NewBroker(4, testLogger())
	intentID := uuid.New()
	sub := b.Subscribe(Filter{IntentID: &intentID}, PolicyDropOldest)

	b.Publish(Event{IntentID: intentID, EventType: "CREATED"})
	b.Publish(Event{IntentID: uuid.New(), EventType: "CREATED"}) // different intent, filtered out

	select {
	case ev := <-sub.Events():
		if ev.IntentID != intentID {
			t.Errorf("delivered event for wrong intent: %s", ev.IntentID)
		}
	case <-time.After(time.Second):
		t.Fatal("expected matching event to be delivered")
	}

	select {
	case ev := <-sub.Events():
		t.Fatalf("did not expect a second delivery, got %+v", ev)
	default:
	}
}

func TestBrokerUnsubscribe(t *testing.T) {
	b := NewBroker(4, testLogger())
	sub := b.Subscribe(Filter{}, PolicyDropOldest)
	b.Unsubscribe(sub.Token)

	b.Publish(Event{EventType: "CREATED"})

	select {
	case ev := <-sub.Events():
		t.Fatalf("unsubscribed subscriber should not receive events, got %+v", ev)
	default:
	}
}

func TestBrokerDropOldestPolicy(t *testing.T) {
	b := NewBroker(1, testLogger())
	sub := b.Subscribe(Filter{}, PolicyDropOldest)

	b.Publish(Event{EventType: "FIRST"})
	b.Publish(Event{EventType: "SECOND"})

	select {
	case ev := <-sub.Events():
		if ev.EventType != "SECOND" {
			t.Errorf("expected oldest event to be dropped, got %s", ev.EventType)
		}
	default:
		t.Fatal("expected the newest event to remain queued")
	}
}

func TestBrokerDisconnectPolicy(t *testing.T) {
	b := NewBroker(1, testLogger())
	sub := b.Subscribe(Filter{}, PolicyDisconnect)

	b.Publish(Event{EventType: "FIRST"})  // fills the queue
	b.Publish(Event{EventType: "SECOND"}) // queue full -> disconnect

	select {
	case <-sub.Closed():
	case <-time.After(time.Second):
		t.Fatal("expected subscriber to be disconnected once its queue filled")
	}

	if !sub.isDisconnected() {
		t.Error("expected subscriber to be marked disconnected")
	}
}

func TestBrokerBlockPolicyUnblocksOnDrain(t *testing.T) {
	b := NewBroker(1, testLogger())
	sub := b.Subscribe(Filter{}, PolicyBlock)

	b.Publish(Event{EventType: "FIRST"}) // fills the queue, does not block

	done := make(chan struct{})
	go func() {
		b.Publish(Event{EventType: "SECOND"}) // blocks until drained
		close(done)
	}()

	// Give the blocked publish a moment to actually be blocked.
	time.Sleep(10 * time.Millisecond)
	<-sub.Events() // drain FIRST, unblocking the goroutine above

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected blocked publish to complete after queue drained")
	}

	select {
	case ev := <-sub.Events():
		if ev.EventType != "SECOND" {
			t.Errorf("expected SECOND to be delivered, got %s", ev.EventType)
		}
	case <-time.After(time.Second):
		t.Fatal("expected SECOND to have been delivered")
	}
}

func TestBrokerShutdownDisconnectsAll(t *testing.T) {
	b := NewBroker(4, testLogger())
	sub1 := b.Subscribe(Filter{}, PolicyDropOldest)
	sub2 := b.Subscribe(Filter{}, PolicyDropOldest)

	b.Shutdown()

	for _, sub := range []*Subscriber{sub1, sub2} {
		select {
		case <-sub.Closed():
		default:
			t.Error("expected subscriber to be closed after shutdown")
		}
	}
}
