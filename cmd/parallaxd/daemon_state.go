package main

import "time"

// InputMode is the active input source of the controller.
type InputMode string

const (
	// ModePointerTouch is the initial mode: pointer and touch events drive the target.
	ModePointerTouch InputMode = "pointer_touch"
	// ModeDeviceOrientation is terminal: once entered, only tilt drives the target.
	ModeDeviceOrientation InputMode = "device_orientation"
)

// DaemonState is the top-level, daemon-owned state container.
//
// It is only ever touched by the daemon goroutine (single-owner); every other
// goroutine talks to it through Events and learns about it through
// StateBroadcasts or a StateSnapshot.
type DaemonState struct {
	// Ctrl is the parallax controller (target, smoothed current, mode).
	Ctrl ControllerState

	// Permission tracks the one-shot gyro enable flow.
	Permission PermissionState

	// Affordance tracks the on-page gyro button.
	Affordance AffordanceState

	// Published is the last value handed to the publisher.
	Published PublishedState
}

// ControllerState is the reducer-owned smoothing state.
type ControllerState struct {
	// Current is the smoothed signal in [-1, 1]. It only changes on Tick.
	Current float64

	// Target is the latest quantized direction in {-1, 0, +1}.
	Target float64

	// Mode is the active input source. Zero value means ModePointerTouch.
	Mode InputMode

	// TargetAt is when Target was last written by an input event.
	TargetAt time.Time
}

// PermissionState tracks the orientation permission request.
type PermissionState struct {
	// Pending is true while a request is in flight. At most one at a time.
	Pending bool

	// RequestID identifies the pending request once the gate has it.
	RequestID string

	// LastResult is the result of the most recent request, if any.
	LastResult PermissionResult
	ResolvedAt time.Time
}

// AffordanceState tracks the gyro enable button on the page.
type AffordanceState struct {
	// Visible is the startup capability verdict (touch && orientation).
	Visible bool

	// Removed is set once gyro mode has been entered.
	Removed bool
}

// Present reports whether the button is currently on the page.
func (a AffordanceState) Present() bool {
	return a.Visible && !a.Removed
}

// PublishedState is the last published direction.
type PublishedState struct {
	Value string
	At    time.Time
	Ticks uint64
}

// NewDaemonState builds the initial state for a controller whose gyro button
// visibility was decided at startup.
func NewDaemonState(caps Capabilities) *DaemonState {
	return &DaemonState{
		Ctrl: ControllerState{
			Mode: ModePointerTouch,
		},
		Affordance: AffordanceState{
			Visible: ShouldShowGyroButton(caps),
		},
		Published: PublishedState{
			Value: FormatDirection(0),
		},
	}
}

// mode returns the active input mode, treating the zero value as pointer/touch.
func (s *DaemonState) mode() InputMode {
	if s.Ctrl.Mode == "" {
		return ModePointerTouch
	}
	return s.Ctrl.Mode
}

// setTarget records a new quantized target.
// This is intended to be called only by the daemon goroutine (single-owner).
func (s *DaemonState) setTarget(v float64, now time.Time) {
	s.Ctrl.Target = v
	s.Ctrl.TargetAt = now
}

// Snapshot returns an immutable copy suitable for other goroutines.
func (s *DaemonState) Snapshot() StateSnapshot {
	return StateSnapshot{
		Direction:         s.Published.Value,
		Current:           s.Ctrl.Current,
		Target:            s.Ctrl.Target,
		Mode:              s.mode(),
		GyroButtonVisible: s.Affordance.Visible,
		AffordancePresent: s.Affordance.Present(),
		PermissionPending: s.Permission.Pending,
		RequestID:         s.Permission.RequestID,
		Ticks:             s.Published.Ticks,
	}
}

// StateSnapshot is a point-in-time copy of the daemon state, safe to hand to
// other goroutines.
type StateSnapshot struct {
	Direction         string    `json:"direction"`
	Current           float64   `json:"current"`
	Target            float64   `json:"target"`
	Mode              InputMode `json:"mode"`
	GyroButtonVisible bool      `json:"gyro_button_visible"`
	AffordancePresent bool      `json:"affordance_present"`
	PermissionPending bool      `json:"permission_pending"`
	RequestID         string    `json:"permission_request_id,omitempty"`
	Ticks             uint64    `json:"ticks"`
}
