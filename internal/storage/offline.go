// Package storage holds the offline event buffer: a fixed-capacity ring that
// keeps workout events while the transport link is down so they can be
// replayed, in order, on reconnect.
package storage

import (
	"log"

	"github.com/Tolabmc/RunTracker/internal/workout"
)

// Capacity is the number of events the buffer retains. Under a sustained
// disconnect the oldest events are sacrificed; bounded memory wins over
// completeness.
const Capacity = 16

// OfflineBuffer is a fixed ring of workout events. It is intentionally
// unsynchronized: the transmit task is its only user (push on send failure,
// pop on flush). A second producer would need a mutex or a funnel queue in
// front of it.
type OfflineBuffer struct {
	logger *log.Logger
	events [Capacity]workout.Event
	head   int // next write position
	tail   int // next read position
	count  int
}

func NewOfflineBuffer(logger *log.Logger) *OfflineBuffer {
	if logger == nil {
		panic("OfflineBuffer: logger cannot be nil")
	}
	logger.Printf("OfflineBuffer: initialized (%d event capacity)", Capacity)
	return &OfflineBuffer{logger: logger}
}

// Push stores evt. When full, the oldest unread event is overwritten and
// Push returns false; the new event is stored either way.
func (b *OfflineBuffer) Push(evt workout.Event) bool {
	overflow := false
	if b.count >= Capacity {
		b.tail = (b.tail + 1) % Capacity
		overflow = true
		b.logger.Printf("OfflineBuffer: full, oldest event overwritten")
	} else {
		b.count++
	}

	b.events[b.head] = evt
	b.head = (b.head + 1) % Capacity
	return !overflow
}

// Pop removes and returns the oldest stored event, FIFO order.
func (b *OfflineBuffer) Pop() (workout.Event, bool) {
	if b.count == 0 {
		return workout.Event{}, false
	}
	evt := b.events[b.tail]
	b.tail = (b.tail + 1) % Capacity
	b.count--
	return evt, true
}

// Count returns the number of buffered events.
func (b *OfflineBuffer) Count() int {
	return b.count
}

// IsEmpty reports whether the buffer holds no events.
func (b *OfflineBuffer) IsEmpty() bool {
	return b.count == 0
}

// Clear discards all buffered events.
func (b *OfflineBuffer) Clear() {
	b.head = 0
	b.tail = 0
	b.count = 0
	b.logger.Printf("OfflineBuffer: cleared")
}
