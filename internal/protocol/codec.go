// Package protocol converts workout events into the wire records understood
// by the companion app. The format is a fixed-field JSON text contract, so
// records are rendered directly rather than reflected through a marshaller;
// encoding is a pure function of the event.
package protocol

import (
	"bytes"
	"fmt"

	"github.com/Tolabmc/RunTracker/internal/workout"
)

// MaxMessageLen bounds every serialized record.
const MaxMessageLen = 128

var (
	hrRequest  = []byte(`{"cmd":"hr_req"}`)
	hrDoneMark = []byte(`"cmd":"hr_done"`)
)

// MarshalEvent serializes evt into its wire record. Returns nil for an
// unknown kind or a record exceeding MaxMessageLen.
func MarshalEvent(evt workout.Event) []byte {
	var msg string
	switch evt.Kind {
	case workout.EventStart:
		msg = fmt.Sprintf(`{"event":"start","mode":"%s","laps":%d,"ts":%d}`,
			evt.Mode, evt.TotalLaps, evt.TimestampMs)

	case workout.EventLapComplete:
		msg = fmt.Sprintf(`{"event":"lap","lap":%d,"lap_ms":%d,"split_ms":%d,"ts":%d}`,
			evt.Lap.LapNumber, evt.Lap.LapTimeMs, evt.Lap.SplitTimeMs, evt.TimestampMs)

	case workout.EventStop:
		msg = fmt.Sprintf(`{"event":"stop","laps":%d,"total_ms":%d,"ts":%d}`,
			evt.CurrentLap, evt.TotalMs, evt.TimestampMs)

	case workout.EventDone:
		msg = fmt.Sprintf(`{"event":"done","laps":%d,"total_ms":%d,"ts":%d}`,
			evt.TotalLaps, evt.Lap.SplitTimeMs, evt.TimestampMs)

	case workout.EventStatusUpdate:
		msg = fmt.Sprintf(`{"event":"status","state":"%s","lap":%d,"elapsed_ms":%d}`,
			evt.State, evt.CurrentLap, evt.ElapsedMs)

	default:
		return nil
	}

	if len(msg) > MaxMessageLen {
		return nil
	}
	return []byte(msg)
}

// HrRequest returns the fire-and-forget heart-rate request command.
func HrRequest() []byte {
	return hrRequest
}

// IsHrDone reports whether an inbound payload carries the heart-rate
// confirmation. Substring match: the companion may wrap the command in a
// larger object.
func IsHrDone(payload []byte) bool {
	return bytes.Contains(payload, hrDoneMark)
}
