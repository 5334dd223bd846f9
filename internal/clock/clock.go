// Package clock provides the device-uptime millisecond time base used by the
// workout state machine and the control coordinator. All timestamps are 32-bit
// millisecond counters that wrap at 2^32 ms (~49 days); elapsed-time math is
// done with unsigned modular subtraction so a wrap is handled transparently.
package clock

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Clock is the monotonic millisecond time source.
type Clock interface {
	NowMs() uint32
}

// SystemClock reports milliseconds since process start.
type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) NowMs() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// ElapsedMs returns the milliseconds elapsed since startMs. Unsigned
// subtraction yields the correct result across a counter wrap.
func ElapsedMs(c Clock, startMs uint32) uint32 {
	return c.NowMs() - startMs
}

// FakeClock is a manually advanced Clock for tests. Safe for concurrent use.
type FakeClock struct {
	now atomic.Uint32
}

func NewFakeClock(startMs uint32) *FakeClock {
	c := &FakeClock{}
	c.now.Store(startMs)
	return c
}

func (c *FakeClock) NowMs() uint32 {
	return c.now.Load()
}

// Advance moves the clock forward by ms.
func (c *FakeClock) Advance(ms uint32) {
	c.now.Add(ms)
}

// Set jumps the clock to an absolute value.
func (c *FakeClock) Set(ms uint32) {
	c.now.Store(ms)
}

// FormatMmSsMsss renders a millisecond duration as MM:SS.mmm.
func FormatMmSsMsss(ms uint32) string {
	totalSeconds := ms / 1000
	return fmt.Sprintf("%02d:%02d.%03d", totalSeconds/60, totalSeconds%60, ms%1000)
}
