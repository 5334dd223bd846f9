package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemClock_Monotonic(t *testing.T) {
	c := NewSystemClock()
	first := c.NowMs()
	second := c.NowMs()
	assert.GreaterOrEqual(t, second, first)
}

func TestFakeClock_AdvanceAndSet(t *testing.T) {
	c := NewFakeClock(1000)
	require.Equal(t, uint32(1000), c.NowMs())

	c.Advance(250)
	assert.Equal(t, uint32(1250), c.NowMs())

	c.Set(42)
	assert.Equal(t, uint32(42), c.NowMs())
}

func TestElapsedMs(t *testing.T) {
	c := NewFakeClock(5000)
	assert.Equal(t, uint32(0), ElapsedMs(c, 5000))

	c.Advance(1234)
	assert.Equal(t, uint32(1234), ElapsedMs(c, 5000))
}

func TestElapsedMs_Wraparound(t *testing.T) {
	// Start 100 ms before the 32-bit counter wraps.
	start := uint32(0xFFFFFFFF - 99)
	c := NewFakeClock(start)

	c.Advance(100) // lands exactly on 0
	assert.Equal(t, uint32(100), ElapsedMs(c, start))

	c.Advance(400)
	assert.Equal(t, uint32(500), ElapsedMs(c, start))
}

func TestFormatMmSsMsss(t *testing.T) {
	assert.Equal(t, "00:00.000", FormatMmSsMsss(0))
	assert.Equal(t, "00:01.500", FormatMmSsMsss(1500))
	assert.Equal(t, "01:05.042", FormatMmSsMsss(65042))
	assert.Equal(t, "12:34.567", FormatMmSsMsss(754567))
}
