package main

import (
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================================
// Events - inputs to the reducer
// ============================================================================
// Input events come from page clients (websocket), the IPC socket and local
// input devices. The daemon loop wraps them in TimedEvent and reduces them.
// Internal events (Tick, PermissionResolved, ...) never travel over the wire.
// ============================================================================

// Event is the input to the reducer.
type Event interface {
	eventMarker()
}

// PointerMove is a pointer position inside the viewport.
type PointerMove struct {
	X             float64 `json:"x"`
	ViewportWidth float64 `json:"viewport_width"`
}

func (PointerMove) eventMarker() {}

// PointerLeave indicates the pointer left the viewport.
type PointerLeave struct{}

func (PointerLeave) eventMarker() {}

// TouchPoint is one active touch.
type TouchPoint struct {
	X float64 `json:"x"`
}

// TouchMove carries the active touches. Only the first one is used.
type TouchMove struct {
	Touches       []TouchPoint `json:"touches"`
	ViewportWidth float64      `json:"viewport_width"`
}

func (TouchMove) eventMarker() {}

// TouchEnd indicates all touches were lifted.
type TouchEnd struct{}

func (TouchEnd) eventMarker() {}

// DeviceOrientation is a tilt reading. Gamma is the left/right tilt in
// degrees; nil when the device did not report it.
type DeviceOrientation struct {
	Gamma *float64 `json:"gamma"`
}

func (DeviceOrientation) eventMarker() {}

// EnableGyro is the user gesture that starts the orientation permission flow.
type EnableGyro struct{}

func (EnableGyro) eventMarker() {}

// PermissionAnswer is a page client's reply to a permission_request frame.
// It is routed to the client permission gate, not to the reducer.
type PermissionAnswer struct {
	RequestID string           `json:"request_id"`
	Result    PermissionResult `json:"result"`
}

func (PermissionAnswer) eventMarker() {}

// Tick is emitted by the daemon loop once per repaint frame.
// Dt is wall-clock delta in seconds between ticks.
type Tick struct {
	Now time.Time
	Dt  float64
}

func (Tick) eventMarker() {}

// TimedEvent wraps an input event with its arrival time.
type TimedEvent struct {
	Event Event
	At    time.Time
}

func (TimedEvent) eventMarker() {}

// PermissionRequested is emitted once a permission request has been handed
// to the gate under RequestID.
type PermissionRequested struct {
	RequestID string
	At        time.Time
}

func (PermissionRequested) eventMarker() {}

// PermissionResolved is emitted when a permission gate answered.
type PermissionResolved struct {
	RequestID string
	Result    PermissionResult
	Err       error
	At        time.Time
}

func (PermissionResolved) eventMarker() {}

// CommandFailed is emitted when executing a Command fails.
type CommandFailed struct {
	Command Command
	Err     error
	At      time.Time
}

func (CommandFailed) eventMarker() {}

// RequestStateSnapshot asks the daemon for an immutable copy of its state.
type RequestStateSnapshot struct {
	Reply chan StateSnapshot
}

func (RequestStateSnapshot) eventMarker() {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================

// EventEnvelope wraps an input event with a type discriminator for JSON.
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Wire names of input events.
const (
	evTypePointerMove       = "pointer_move"
	evTypePointerLeave      = "pointer_leave"
	evTypeTouchMove         = "touch_move"
	evTypeTouchEnd          = "touch_end"
	evTypeDeviceOrientation = "device_orientation"
	evTypeEnableGyro        = "enable_gyro"
	evTypePermissionResult  = "permission_result"
)

// UnmarshalEvent deserializes a JSON event envelope into a concrete input Event.
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case evTypePointerMove:
		var e PointerMove
		if err := unmarshalData(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal PointerMove: %w", err)
		}
		return e, nil

	case evTypePointerLeave:
		return PointerLeave{}, nil

	case evTypeTouchMove:
		var e TouchMove
		if err := unmarshalData(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal TouchMove: %w", err)
		}
		return e, nil

	case evTypeTouchEnd:
		return TouchEnd{}, nil

	case evTypeDeviceOrientation:
		var e DeviceOrientation
		if err := unmarshalData(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal DeviceOrientation: %w", err)
		}
		return e, nil

	case evTypeEnableGyro:
		return EnableGyro{}, nil

	case evTypePermissionResult:
		var e PermissionAnswer
		if err := unmarshalData(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal PermissionAnswer: %w", err)
		}
		if e.RequestID == "" {
			return nil, fmt.Errorf("permission_result: missing request_id")
		}
		return e, nil

	default:
		return nil, fmt.Errorf("unknown event type: %s", env.Type)
	}
}

// unmarshalData treats an absent payload as the zero value.
func unmarshalData(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// MarshalEvent serializes an input Event into a JSON event envelope.
func MarshalEvent(ev Event) ([]byte, error) {
	var env EventEnvelope

	var payload any
	switch e := ev.(type) {
	case PointerMove:
		env.Type = evTypePointerMove
		payload = e
	case PointerLeave:
		env.Type = evTypePointerLeave
	case TouchMove:
		env.Type = evTypeTouchMove
		payload = e
	case TouchEnd:
		env.Type = evTypeTouchEnd
	case DeviceOrientation:
		env.Type = evTypeDeviceOrientation
		payload = e
	case EnableGyro:
		env.Type = evTypeEnableGyro
	case PermissionAnswer:
		env.Type = evTypePermissionResult
		payload = e
	default:
		return nil, fmt.Errorf("unknown event type: %T", ev)
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", env.Type, err)
		}
		env.Data = data
	}

	return json.Marshal(env)
}
