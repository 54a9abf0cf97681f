package store

import (
	"log/slog"
	"sync"
)

// EventType tags a change-feed event.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event is one change notification for a record kind. New carries the record
// after an insert or update, Old the record before an update or delete.
type Event[R any] struct {
	Type EventType
	New  *R
	Old  *R
}

// Subscription is one receiver of a Broker's event stream. Close releases it;
// after Close returns no further events are delivered on C.
type Subscription[R any] struct {
	C <-chan Event[R]

	ch     chan Event[R]
	broker *Broker[R]
	once   sync.Once
}

// Close detaches the subscription from its broker and drains the channel.
func (s *Subscription[R]) Close() {
	s.once.Do(func() {
		s.broker.unsubscribe(s)
	})
}

// Broker fans change events out to subscribers. Subscriptions cover the whole
// record kind; they are not scoped by owner.
//
// TODO: offer owner-scoped subscriptions so multi-tenant deployments do not
// fan events across owners.
type Broker[R any] struct {
	mu     sync.Mutex
	subs   map[*Subscription[R]]struct{}
	buffer int
	closed bool
}

// NewBroker creates a broker whose subscriptions buffer up to buffer events.
func NewBroker[R any](buffer int) *Broker[R] {
	if buffer <= 0 {
		buffer = 64
	}
	return &Broker[R]{
		subs:   make(map[*Subscription[R]]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new receiver. Events published before Subscribe
// returns are not delivered.
func (b *Broker[R]) Subscribe() *Subscription[R] {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event[R], b.buffer)
	sub := &Subscription[R]{C: ch, ch: ch, broker: b}
	if b.closed {
		close(ch)
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Publish delivers ev to every live subscription. A subscriber that has
// fallen more than a full buffer behind loses the event rather than blocking
// the writer.
func (b *Broker[R]) Publish(ev Event[R]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			slog.Warn("Change feed subscriber too slow, dropping event", "event_type", ev.Type)
		}
	}
}

func (b *Broker[R]) unsubscribe(sub *Subscription[R]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// Close detaches and closes every subscription. Further Publish calls are
// no-ops and further Subscribe calls return already-closed subscriptions.
func (b *Broker[R]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		delete(b.subs, sub)
		close(sub.ch)
	}
}
