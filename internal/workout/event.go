package workout

// EventKind discriminates the workout events sent to the companion app.
type EventKind int

const (
	EventStart EventKind = iota
	EventStop
	EventLapComplete
	EventDone
	EventStatusUpdate
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventStop:
		return "stop"
	case EventLapComplete:
		return "lap"
	case EventDone:
		return "done"
	case EventStatusUpdate:
		return "status"
	default:
		return "unknown"
	}
}

// Event is a self-contained value describing one workout occurrence. It
// carries everything the wire codec needs so serialization is a pure function
// of the event. Events are copied by value between tasks and never referenced
// again once handed to the transport boundary.
type Event struct {
	Kind        EventKind
	TimestampMs uint32
	CurrentLap  uint8
	Lap         LapRecord // valid for EventLapComplete and EventDone
	Mode        Mode
	TotalLaps   uint8
	State       State
	ElapsedMs   uint32
	TotalMs     uint32
}
