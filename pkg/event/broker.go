package event

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/openintent-ai/openintent/internal/telemetry"
)

// Subscriber is a live, in-process fan-out target (spec §3 "Subscription
// (transient)"). It is re-established on reconnect; nothing about it is
// durable.
type Subscriber struct {
	Token    string
	Filter   Filter
	Policy   BackpressurePolicy
	queue    chan Event
	closed   chan struct{}
	once     sync.Once
	disconnectedMu sync.Mutex
	disconnected   bool
}

// Events returns the channel of events delivered to this subscriber.
func (sub *Subscriber) Events() <-chan Event {
	return sub.queue
}

// Closed reports whether the broker disconnected this subscriber (under
// PolicyDisconnect, or for every subscriber on Shutdown).
func (sub *Subscriber) Closed() <-chan struct{} {
	return sub.closed
}

func (sub *Subscriber) markDisconnected() {
	sub.disconnectedMu.Lock()
	sub.disconnected = true
	sub.disconnectedMu.Unlock()
	sub.once.Do(func() { close(sub.closed) })
}

func (sub *Subscriber) isDisconnected() bool {
	sub.disconnectedMu.Lock()
	defer sub.disconnectedMu.Unlock()
	return sub.disconnected
}

// Broker fans out live events to in-process subscribers (spec §4.2). It
// never touches durable storage: Append is still the sole writer of record.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	queueSize   int
	logger      *slog.Logger
}

// NewBroker constructs a Broker. queueSize bounds every subscriber's
// channel (default 1024 per spec §4.2).
func NewBroker(queueSize int, logger *slog.Logger) *Broker {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Broker{
		subscribers: map[string]*Subscriber{},
		queueSize:   queueSize,
		logger:      logger,
	}
}

// Subscribe registers a new subscriber with filter and backpressure policy.
func (b *Broker) Subscribe(filter Filter, policy BackpressurePolicy) *Subscriber {
	if policy == "" {
		policy = PolicyDropOldest
	}
	sub := &Subscriber{
		Token:  uuid.NewString(),
		Filter: filter,
		Policy: policy,
		queue:  make(chan Event, b.queueSize),
		closed: make(chan struct{}),
	}

	b.mu.Lock()
	b.subscribers[sub.Token] = sub
	b.mu.Unlock()

	telemetry.EventSubscribersGauge.Inc()
	return sub
}

// Unsubscribe removes a subscriber (client close/unsubscribe, spec §4.2).
func (b *Broker) Unsubscribe(token string) {
	b.mu.Lock()
	if _, ok := b.subscribers[token]; ok {
		delete(b.subscribers, token)
		telemetry.EventSubscribersGauge.Dec()
	}
	b.mu.Unlock()
}

// Publish fans ev out to every matching subscriber, applying each
// subscriber's backpressure policy when its queue is full.
func (b *Broker) Publish(ev Event) {
	b.mu.RLock()
	subs := make([]*Subscriber, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub.isDisconnected() || !sub.Filter.Matches(ev) {
			continue
		}
		b.deliver(sub, ev)
	}
}

func (b *Broker) deliver(sub *Subscriber, ev Event) {
	select {
	case sub.queue <- ev:
		return
	default:
	}

	switch sub.Policy {
	case PolicyBlock:
		telemetry.EventBackpressureTotal.WithLabelValues(string(PolicyBlock), "block").Inc()
		sub.queue <- ev // caller accepted the cost of blocking
	case PolicyDisconnect:
		telemetry.EventBackpressureTotal.WithLabelValues(string(PolicyDisconnect), "disconnect").Inc()
		b.Unsubscribe(sub.Token)
		sub.markDisconnected()
	default: // PolicyDropOldest
		telemetry.EventBackpressureTotal.WithLabelValues(string(PolicyDropOldest), "drop_oldest").Inc()
		select {
		case <-sub.queue:
		default:
		}
		select {
		case sub.queue <- ev:
		default:
		}
	}
}

// Shutdown disconnects every subscriber cleanly (spec §4.2, §5 graceful
// shutdown).
func (b *Broker) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for token, sub := range b.subscribers {
		sub.markDisconnected()
		delete(b.subscribers, token)
		telemetry.EventSubscribersGauge.Dec()
	}
}
