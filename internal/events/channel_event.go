// Package events holds the inter-task event plumbing: a generic channel-based
// pub/sub used to fan out state changes (transport connection, sensor samples,
// UI status), and a bounded drop-on-full queue used on the hot paths between
// input producers, the coordinator and the transmit stage.
package events

import (
	"sync"
)

// ChannelEvent fans a value out to any number of listener channels.
// T is the value type delivered to listeners.
type ChannelEvent[T any] struct {
	mu         sync.RWMutex
	channels   map[uint64]chan<- T
	nextID     uint64
	replayLast bool
	last       *T
	notified   bool
}

// NewChannelEvent creates a ChannelEvent. When replayLast is true, a listener
// that registers after at least one Notify immediately receives the most
// recent value, so late subscribers still learn the current state.
func NewChannelEvent[T any](replayLast bool) *ChannelEvent[T] {
	return &ChannelEvent[T]{
		channels:   make(map[uint64]chan<- T),
		replayLast: replayLast,
	}
}

// Listen registers ch to receive future Notify values and returns a
// deregistration function. Delivery is non-blocking; a full channel misses
// the value.
func (e *ChannelEvent[T]) Listen(ch chan<- T) func() {
	if ch == nil {
		panic("ChannelEvent: listener channel cannot be nil")
	}

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.channels[id] = ch
	var replay *T
	if e.replayLast && e.notified && e.last != nil {
		v := *e.last
		replay = &v
	}
	e.mu.Unlock()

	// Replay outside the lock so a full channel cannot stall registration.
	if replay != nil {
		select {
		case ch <- *replay:
		default:
		}
	}

	return func() {
		e.mu.Lock()
		delete(e.channels, id)
		e.mu.Unlock()
	}
}

// Notify delivers value to every registered listener without blocking.
// Listeners whose channels are full are skipped.
func (e *ChannelEvent[T]) Notify(value T) {
	e.mu.Lock()
	if e.replayLast {
		if e.last == nil {
			e.last = new(T)
		}
		*e.last = value
		e.notified = true
	}
	targets := make([]chan<- T, 0, len(e.channels))
	for _, ch := range e.channels {
		targets = append(targets, ch)
	}
	e.mu.Unlock()

	for _, ch := range targets {
		select {
		case ch <- value:
		default:
		}
	}
}

// ListenerCount returns the number of registered listeners.
func (e *ChannelEvent[T]) ListenerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.channels)
}
