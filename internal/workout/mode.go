// Package workout owns the workout session: interval modes, lap records and
// the lifecycle state machine. The session has exactly one writer (the
// control coordinator); other tasks read through snapshot copies.
package workout

// Mode identifies an interval plan.
type Mode int

const (
	Mode4x500m Mode = iota
	Mode5x1000m
	Mode2x2000m
	Mode1x4000m

	modeCount = 4
)

// Config holds the constants derived from a Mode. Immutable once derived.
type Config struct {
	Mode         Mode
	TotalLaps    uint8
	LapDistanceM uint16
	RestTimeSec  uint16
}

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case Mode4x500m:
		return "4x500m"
	case Mode5x1000m:
		return "5x1000m"
	case Mode2x2000m:
		return "2x2000m"
	case Mode1x4000m:
		return "1x4000m"
	default:
		return "UNKNOWN"
	}
}

// Next returns the mode following m in cycle order.
func (m Mode) Next() Mode {
	return (m + 1) % modeCount
}

// Config returns the interval constants for the mode.
func (m Mode) Config() Config {
	switch m {
	case Mode5x1000m:
		return Config{Mode: m, TotalLaps: 5, LapDistanceM: 1000, RestTimeSec: 90}
	case Mode2x2000m:
		return Config{Mode: m, TotalLaps: 2, LapDistanceM: 2000, RestTimeSec: 120}
	case Mode1x4000m:
		return Config{Mode: m, TotalLaps: 1, LapDistanceM: 4000, RestTimeSec: 0}
	default:
		return Config{Mode: Mode4x500m, TotalLaps: 4, LapDistanceM: 500, RestTimeSec: 60}
	}
}

// ParseMode resolves a wire name back to a Mode.
func ParseMode(s string) (Mode, bool) {
	for m := Mode(0); m < modeCount; m++ {
		if m.String() == s {
			return m, true
		}
	}
	return Mode4x500m, false
}
