package events

import (
	"log"
	"sync/atomic"
)

// Queue is a bounded single-producer/single-consumer event queue. Sends never
// block: when the queue is full the newest event is dropped and a warning is
// logged, so a slow consumer can degrade fidelity but can never stall a
// producer. Capacity is fixed at construction.
type Queue[T any] struct {
	name    string
	ch      chan T
	logger  *log.Logger
	dropped atomic.Uint64
}

// NewQueue creates a queue with the given capacity. The name is only used in
// diagnostics.
func NewQueue[T any](name string, capacity int, logger *log.Logger) *Queue[T] {
	if capacity <= 0 {
		panic("Queue: capacity must be positive")
	}
	if logger == nil {
		panic("Queue: logger cannot be nil")
	}
	return &Queue[T]{
		name:   name,
		ch:     make(chan T, capacity),
		logger: logger,
	}
}

// TrySend enqueues v without blocking. Returns false if the queue was full
// and the event was dropped.
func (q *Queue[T]) TrySend(v T) bool {
	select {
	case q.ch <- v:
		return true
	default:
		q.dropped.Add(1)
		q.logger.Printf("Queue %s: full, event dropped (%d total)", q.name, q.dropped.Load())
		return false
	}
}

// TryRecv dequeues without blocking. The second result is false if the queue
// was empty.
func (q *Queue[T]) TryRecv() (T, bool) {
	select {
	case v := <-q.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Chan exposes the receive side for use in a consumer select loop.
func (q *Queue[T]) Chan() <-chan T {
	return q.ch
}

// Len returns the number of events currently queued.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Dropped returns how many events have been discarded on a full queue.
func (q *Queue[T]) Dropped() uint64 {
	return q.dropped.Load()
}
