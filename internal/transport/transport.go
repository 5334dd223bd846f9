// Package transport abstracts the link to the companion device. Two real
// implementations exist (a BLE peripheral and a websocket bridge) plus a mock
// for tests; all deliver inbound protocol occurrences to the coordinator as
// control events through a non-blocking pub/sub.
package transport

import (
	"github.com/Tolabmc/RunTracker/internal/clock"
	"github.com/Tolabmc/RunTracker/internal/events"
)

// ControlKind identifies an inbound transport occurrence.
type ControlKind int

const (
	ControlHrDone ControlKind = iota
	ControlConnected
	ControlDisconnected
)

func (k ControlKind) String() string {
	switch k {
	case ControlHrDone:
		return "hr_done"
	case ControlConnected:
		return "connected"
	case ControlDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ControlEvent is delivered to the coordinator when the link state changes or
// a protocol confirmation arrives.
type ControlEvent struct {
	Kind        ControlKind
	TimestampMs uint32
}

// Transport is the companion link seen by the rest of the system.
type Transport interface {
	// IsConnected reports whether a peer is currently attached.
	IsConnected() bool
	// Send transmits one wire record. Non-blocking best effort: false means
	// the payload was not delivered and the caller decides what to do with it.
	Send(payload []byte) bool
	// ListenControl registers ch for control events and returns a
	// deregistration function. Delivery is non-blocking.
	ListenControl(ch chan<- ControlEvent) func()
	// Shutdown releases the link.
	Shutdown()
}

// controlNotifier is the shared control-event fan-out embedded by every
// transport implementation.
type controlNotifier struct {
	clk     clock.Clock
	control *events.ChannelEvent[ControlEvent]
}

func newControlNotifier(clk clock.Clock) controlNotifier {
	return controlNotifier{
		clk:     clk,
		control: events.NewChannelEvent[ControlEvent](false),
	}
}

func (n *controlNotifier) ListenControl(ch chan<- ControlEvent) func() {
	return n.control.Listen(ch)
}

func (n *controlNotifier) notify(kind ControlKind) {
	n.control.Notify(ControlEvent{Kind: kind, TimestampMs: n.clk.NowMs()})
}
