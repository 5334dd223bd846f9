package storage

import (
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tolabmc/RunTracker/internal/workout"
)

func newTestBuffer() *OfflineBuffer {
	return NewOfflineBuffer(log.New(io.Discard, "", 0))
}

func eventN(n uint32) workout.Event {
	return workout.Event{Kind: workout.EventLapComplete, TimestampMs: n}
}

func TestOfflineBuffer_EmptyBehavior(t *testing.T) {
	b := newTestBuffer()
	assert.True(t, b.IsEmpty())
	assert.Equal(t, 0, b.Count())

	_, ok := b.Pop()
	assert.False(t, ok)
}

func TestOfflineBuffer_FIFOOrder(t *testing.T) {
	b := newTestBuffer()
	for i := uint32(1); i <= 5; i++ {
		assert.True(t, b.Push(eventN(i)))
	}
	assert.Equal(t, 5, b.Count())

	for i := uint32(1); i <= 5; i++ {
		evt, ok := b.Pop()
		require.True(t, ok)
		assert.Equal(t, i, evt.TimestampMs)
	}
	assert.True(t, b.IsEmpty())
}

func TestOfflineBuffer_OverflowDropsOldest(t *testing.T) {
	// Push 17 events into the 16-slot ring: event 1 is unrecoverable,
	// events 2..17 come back in order.
	b := newTestBuffer()
	for i := uint32(1); i <= Capacity; i++ {
		assert.True(t, b.Push(eventN(i)))
	}
	assert.False(t, b.Push(eventN(Capacity+1)))
	assert.Equal(t, Capacity, b.Count())

	for i := uint32(2); i <= Capacity+1; i++ {
		evt, ok := b.Pop()
		require.True(t, ok)
		assert.Equal(t, i, evt.TimestampMs)
	}
	assert.True(t, b.IsEmpty())
}

func TestOfflineBuffer_SustainedOverflowKeepsMostRecent(t *testing.T) {
	b := newTestBuffer()
	const total = Capacity + 7
	for i := uint32(1); i <= total; i++ {
		b.Push(eventN(i))
	}
	assert.Equal(t, Capacity, b.Count())

	// Exactly the most recent Capacity events survive, in relative order.
	for i := uint32(total - Capacity + 1); i <= total; i++ {
		evt, ok := b.Pop()
		require.True(t, ok)
		assert.Equal(t, i, evt.TimestampMs)
	}
}

func TestOfflineBuffer_Clear(t *testing.T) {
	b := newTestBuffer()
	b.Push(eventN(1))
	b.Push(eventN(2))

	b.Clear()
	assert.True(t, b.IsEmpty())
	_, ok := b.Pop()
	assert.False(t, ok)

	// Usable again after a clear.
	b.Push(eventN(3))
	evt, ok := b.Pop()
	require.True(t, ok)
	assert.Equal(t, uint32(3), evt.TimestampMs)
}
