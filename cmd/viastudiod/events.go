package main

import (
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================================
// Events - inputs to the daemon loop
// ============================================================================
// Events come from the IPC socket, the teach-pendant input device and the
// state WebSocket. The daemon goroutine is the only consumer; it owns the
// Studio and applies every event against it in arrival order.
// ============================================================================

// Event is a marker interface for everything the daemon loop consumes.
type Event interface {
	eventMarker()
}

// Tick is emitted by the daemon loop at the physics cadence.
// Dt is the step handed to the scheduler, in seconds.
type Tick struct {
	Now time.Time
	Dt  float64
}

func (Tick) eventMarker() {}

// Play requests playback of a stored trajectory.
type Play struct {
	Name string `json:"name"`
}

func (Play) eventMarker() {}

// Cancel stops a running playback.
type Cancel struct{}

func (Cancel) eventMarker() {}

// CaptureViaPoint records the current joint positions as a via-point.
type CaptureViaPoint struct{}

func (CaptureViaPoint) eventMarker() {}

// RemoveViaPoint drops the last captured via-point.
type RemoveViaPoint struct{}

func (RemoveViaPoint) eventMarker() {}

// ClearViaPoints drops all captured via-points.
type ClearViaPoints struct{}

func (ClearViaPoints) eventMarker() {}

// SaveViaPoints exports captured via-points as a stored trajectory.
// DurationS <= 0 uses the configured default segment duration.
type SaveViaPoints struct {
	Name      string  `json:"name"`
	DurationS float64 `json:"duration_s,omitempty"`
}

func (SaveViaPoints) eventMarker() {}

// RequestStateSnapshot asks the daemon loop for a StateSnapshot.
// Reply should be buffered (size 1); the daemon never blocks on it.
type RequestStateSnapshot struct {
	Reply chan<- StateSnapshot
}

func (RequestStateSnapshot) eventMarker() {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================

// EventEnvelope wraps events with a type discriminator for JSON marshaling.
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event.
// Only externally-sendable events are accepted.
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "play":
		var a Play
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal Play: %w", err)
		}
		if a.Name == "" {
			return nil, fmt.Errorf("play: name is required")
		}
		return a, nil

	case "cancel":
		return Cancel{}, nil

	case "capture_via_point":
		return CaptureViaPoint{}, nil

	case "remove_via_point":
		return RemoveViaPoint{}, nil

	case "clear_via_points":
		return ClearViaPoints{}, nil

	case "save_via_points":
		var a SaveViaPoints
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal SaveViaPoints: %w", err)
		}
		if a.Name == "" {
			return nil, fmt.Errorf("save_via_points: name is required")
		}
		return a, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// MarshalEvent serializes an Event into a JSON envelope with type discriminator.
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope

	switch e := e.(type) {
	case Play:
		env.Type = "play"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal Play: %w", err)
		}
		env.Data = data

	case Cancel:
		env.Type = "cancel"
	case CaptureViaPoint:
		env.Type = "capture_via_point"
	case RemoveViaPoint:
		env.Type = "remove_via_point"
	case ClearViaPoints:
		env.Type = "clear_via_points"

	case SaveViaPoints:
		env.Type = "save_via_points"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal SaveViaPoints: %w", err)
		}
		env.Data = data

	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	return json.Marshal(env)
}
