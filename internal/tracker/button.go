// Package tracker hosts the control plane: the coordinator that turns button
// presses into workout transitions and the transmitter that moves the
// resulting events to the companion, buffering them while offline.
package tracker

// ButtonKind identifies a physical (or simulated) button press.
type ButtonKind int

const (
	ButtonStart ButtonKind = iota
	ButtonLap
	ButtonStop
	ButtonModeNext
	ButtonStatus
)

func (k ButtonKind) String() string {
	switch k {
	case ButtonStart:
		return "start"
	case ButtonLap:
		return "lap"
	case ButtonStop:
		return "stop"
	case ButtonModeNext:
		return "mode_next"
	case ButtonStatus:
		return "status"
	default:
		return "unknown"
	}
}

// ButtonEvent is a single debounced press with its capture time.
type ButtonEvent struct {
	Kind        ButtonKind
	TimestampMs uint32
}
