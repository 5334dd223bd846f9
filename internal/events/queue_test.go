package events

import (
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestQueue_SendRecvFIFO(t *testing.T) {
	q := NewQueue[int]("test", 4, testLogger())

	require.True(t, q.TrySend(1))
	require.True(t, q.TrySend(2))
	require.True(t, q.TrySend(3))
	assert.Equal(t, 3, q.Len())

	for want := 1; want <= 3; want++ {
		v, ok := q.TryRecv()
		require.True(t, ok)
		assert.Equal(t, want, v)
	}

	_, ok := q.TryRecv()
	assert.False(t, ok)
}

func TestQueue_DropsNewestWhenFull(t *testing.T) {
	q := NewQueue[int]("test", 2, testLogger())

	require.True(t, q.TrySend(1))
	require.True(t, q.TrySend(2))
	assert.False(t, q.TrySend(3))
	assert.Equal(t, uint64(1), q.Dropped())

	// The queued events are untouched; only the newest was lost.
	v, ok := q.TryRecv()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	v, ok = q.TryRecv()
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestQueue_ChanSelectable(t *testing.T) {
	q := NewQueue[string]("test", 1, testLogger())
	q.TrySend("hello")

	select {
	case v := <-q.Chan():
		assert.Equal(t, "hello", v)
	default:
		t.Fatal("expected a queued value")
	}
}

func TestQueue_InvalidConstruction(t *testing.T) {
	assert.Panics(t, func() { NewQueue[int]("bad", 0, testLogger()) })
	assert.Panics(t, func() { NewQueue[int]("bad", 1, nil) })
}
