package main

import "time"

// This file implements the reducer-style architecture building blocks:
//
//   - Events: inputs to the reducer (pointer/touch/tilt input, repaint ticks, permission answers)
//   - Commands: side effects requested by the reducer (permission request, orientation subscription)
//   - Broadcasts: state notifications for page clients (direction, mode changes)
//   - Reduce(): computes next state + commands + broadcasts, without performing I/O
//
// The reducer must be pure. All controller state is embedded in DaemonState and
// the easing is performed via the pure StepSmoother function.
//
// The daemon loop is responsible for executing Commands and feeding results back as Events.

// ReducerConfig is the static configuration the reducer needs.
type ReducerConfig struct {
	Controller ControllerConfig

	// StyleProperty is the name the direction is published under.
	StyleProperty string

	// AffordanceID is the element id of the gyro button.
	AffordanceID string
}

func (c ReducerConfig) withDefaults() ReducerConfig {
	c.Controller = c.Controller.withDefaults()
	if c.StyleProperty == "" {
		c.StyleProperty = defaultStyleProperty
	}
	if c.AffordanceID == "" {
		c.AffordanceID = defaultAffordanceID
	}
	return c
}

// ReduceResult is the output of Reduce(): next state plus Commands to execute
// and Broadcasts to fan out.
type ReduceResult struct {
	State      *DaemonState
	Commands   []Command
	Broadcasts []StateBroadcast
}

// Reduce is the pure reducer:
//
// Rules:
// - Must not perform I/O
// - Must not block
// - Must not mutate anything outside the returned state
func Reduce(s *DaemonState, e Event, cfg ReducerConfig) ReduceResult {
	if s == nil {
		s = NewDaemonState(Capabilities{})
	}
	cfg = cfg.withDefaults()

	rr := ReduceResult{State: s}

	at := time.Time{}
	if te, ok := e.(TimedEvent); ok {
		at = te.At
		e = te.Event
	}

	switch ev := e.(type) {
	case Tick:
		reduceTick(s, ev, cfg, &rr)

	case PointerMove:
		if s.mode() == ModePointerTouch {
			s.setTarget(cfg.Controller.NormalizePointer(ev.X, ev.ViewportWidth), at)
		}

	case PointerLeave:
		if s.mode() == ModePointerTouch {
			s.setTarget(0, at)
		}

	case TouchMove:
		if s.mode() == ModePointerTouch && len(ev.Touches) > 0 {
			s.setTarget(cfg.Controller.NormalizePointer(ev.Touches[0].X, ev.ViewportWidth), at)
		}

	case TouchEnd:
		if s.mode() == ModePointerTouch {
			s.setTarget(0, at)
		}

	case DeviceOrientation:
		// No orientation listener exists before the switch.
		if s.mode() == ModeDeviceOrientation && ev.Gamma != nil {
			s.setTarget(cfg.Controller.NormalizeTilt(*ev.Gamma), at)
		}

	case EnableGyro:
		if s.Permission.Pending || s.mode() == ModeDeviceOrientation {
			break
		}
		s.Permission.Pending = true
		rr.Commands = append(rr.Commands, CmdRequestPermission{})

	case PermissionRequested:
		if s.Permission.Pending {
			s.Permission.RequestID = ev.RequestID
		}

	case PermissionResolved:
		reducePermission(s, ev, cfg, &rr)

	case RequestStateSnapshot:
		rr.Commands = append(rr.Commands, CmdPublishStateSnapshot{
			Reply:    ev.Reply,
			Snapshot: s.Snapshot(),
		})

	case CommandFailed:
		// Keep state as-is. A failed orientation subscription leaves the
		// controller in orientation mode with no tilt source; the target holds.

	default:
		// Unknown event type (including PermissionAnswer, which belongs to the gate): no-op.
	}

	return rr
}

// reduceTick advances the smoother by one repaint frame and publishes.
func reduceTick(s *DaemonState, ev Tick, cfg ReducerConfig, rr *ReduceResult) {
	c := cfg.Controller
	s.Ctrl.Current = StepSmoother(s.Ctrl.Current, s.Ctrl.Target, c.EaseRate, c.SnapEpsilon)

	value := FormatDirection(s.Ctrl.Current)
	changed := value != s.Published.Value || s.Published.Ticks == 0

	s.Published.Value = value
	s.Published.At = ev.Now
	s.Published.Ticks++

	rr.Broadcasts = append(rr.Broadcasts, BroadcastDirection{
		Property: cfg.StyleProperty,
		Value:    value,
		Changed:  changed,
	})
}

// reducePermission applies a permission gate answer.
//
// Granted and Unsupported switch to orientation input for good. Denied and
// Error only clear the pending flag so the user can retry.
func reducePermission(s *DaemonState, ev PermissionResolved, cfg ReducerConfig, rr *ReduceResult) {
	if !s.Permission.Pending {
		// Stale answer.
		return
	}
	if ev.RequestID != "" && s.Permission.RequestID != "" && ev.RequestID != s.Permission.RequestID {
		return
	}
	s.Permission.Pending = false
	s.Permission.RequestID = ""
	s.Permission.LastResult = ev.Result
	s.Permission.ResolvedAt = ev.At

	if !ev.Result.Enables() || s.mode() == ModeDeviceOrientation {
		return
	}

	s.Ctrl.Mode = ModeDeviceOrientation
	rr.Commands = append(rr.Commands, CmdSubscribeOrientation{})
	rr.Broadcasts = append(rr.Broadcasts, BroadcastModeChanged{Mode: ModeDeviceOrientation})

	if s.Affordance.Present() {
		s.Affordance.Removed = true
		rr.Commands = append(rr.Commands, CmdRemoveAffordance{ElementID: cfg.AffordanceID})
	}
}
