// Package eventbus distributes kernel events to in-process subscribers.
package eventbus

import (
	"sync"

	"github.com/kilianp07/agvkernel/core/logger"
)

// Event represents an arbitrary event passed on the bus.
type Event interface{}

// Handler is invoked for each published event.
type Handler func(Event)

// SubscriberID identifies a registered handler.
type SubscriberID uint64

// EventBus is a publish/subscribe bus for kernel events.
type EventBus interface {
	Publish(Event)
	Subscribe(Handler) SubscriberID
	Unsubscribe(SubscriberID)
	Close()
}

type subscriber struct {
	id SubscriberID
	fn Handler
}

// Bus delivers events synchronously on the publishing goroutine, in
// registration order, to the handlers registered when Publish was called.
// A panicking handler is logged and does not prevent delivery to the others.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscriber
	nextID SubscriberID
	closed bool
	log    logger.Logger
}

// New creates a new Bus. A nil logger discards handler failures.
func New(log logger.Logger) *Bus {
	return &Bus{log: log}
}

// Publish sends the event to a snapshot of the current subscribers.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(s, e)
	}
}

func (b *Bus) deliver(s subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil && b.log != nil {
			b.log.Errorf("event handler %d failed on %T: %v", s.id, e, r)
		}
	}()
	s.fn(e)
}

// Subscribe registers a handler and returns its id. Subscribing to a closed
// bus returns 0 and the handler is never called.
func (b *Bus) Subscribe(fn Handler) SubscriberID {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0
	}
	b.nextID++
	b.subs = append(b.subs, subscriber{id: b.nextID, fn: fn})
	return b.nextID
}

// Unsubscribe removes a handler. Unknown ids are ignored.
func (b *Bus) Unsubscribe(id SubscriberID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Close drops all subscribers; later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.subs = nil
	b.mu.Unlock()
}

// SubscribeChan bridges the bus to a buffered channel for consumers that
// process events on their own goroutine. Events are dropped when the buffer is
// full. The returned cancel func unsubscribes and closes the channel.
func SubscribeChan[T any](b EventBus, size int) (<-chan T, func()) {
	ch := make(chan T, size)
	var mu sync.Mutex
	done := false
	id := b.Subscribe(func(e Event) {
		ev, ok := e.(T)
		if !ok {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if done {
			return
		}
		select {
		case ch <- ev:
		default:
		}
	})
	cancel := func() {
		b.Unsubscribe(id)
		mu.Lock()
		if !done {
			done = true
			close(ch)
		}
		mu.Unlock()
	}
	return ch, cancel
}
