package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// OrientationSource starts a local tilt input device. Readings are delivered
// as DeviceOrientation events by the source itself.
type OrientationSource interface {
	Start(ctx context.Context) error
}

// effectEnv is everything runEffect may touch.
type effectEnv struct {
	ctx    context.Context
	gate   PermissionGate
	source OrientationSource

	// publish hands a broadcast to the websocket fan-out.
	publish func(StateBroadcast)

	// goAsync runs fn off the daemon goroutine. post delivers fn's result
	// back to the daemon loop.
	goAsync func(fn func(post func(Event)))

	newRequestID func() string
}

// runEffect executes a single reducer-emitted Command and emits result Events
// via onEvent.
//
// Design rules:
// - This function is allowed to perform I/O, but must not block on the user.
// - It must never call Reduce() directly; it only emits Events to be reduced by the daemon loop.
func runEffect(
	env effectEnv,
	cmd Command,
	logger *slog.Logger,
	onEvent func(Event),
) {
	if onEvent == nil {
		// No place to report results; nothing sensible to do.
		return
	}

	now := time.Now()

	switch c := cmd.(type) {
	case CmdRequestPermission:
		if env.gate == nil {
			onEvent(CommandFailed{Command: cmd, Err: errNoGate{}, At: now})
			onEvent(PermissionResolved{Result: PermissionError, Err: errNoGate{}, At: now})
			return
		}

		newID := env.newRequestID
		if newID == nil {
			newID = uuid.NewString
		}
		id := newID()
		logger.Info("orientation permission requested", "request_id", id)
		onEvent(PermissionRequested{RequestID: id, At: now})

		gate := env.gate
		ctx := env.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		request := func(post func(Event)) {
			res, err := gate.RequestOrientationPermission(ctx, id)
			post(PermissionResolved{RequestID: id, Result: res, Err: err, At: time.Now()})
		}
		if env.goAsync == nil {
			request(onEvent)
			return
		}
		env.goAsync(request)

	case CmdSubscribeOrientation:
		if env.source == nil {
			logger.Info("orientation mode active; tilt expected from page clients")
			return
		}
		ctx := env.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		if err := env.source.Start(ctx); err != nil {
			logger.Error("orientation source start failed", "error", err)
			onEvent(CommandFailed{Command: cmd, Err: err, At: now})
			return
		}
		logger.Info("orientation source started")

	case CmdRemoveAffordance:
		logger.Info("removing gyro affordance", "element_id", c.ElementID)
		if env.publish != nil {
			env.publish(BroadcastAffordanceRemoved{ElementID: c.ElementID})
		}

	case CmdPublishStateSnapshot:
		// Deliver reducer-produced snapshot to the requester.
		// This keeps the reducer pure by moving the channel send into the effects layer.
		if c.Reply == nil {
			logger.Warn("state snapshot requested with nil reply channel")
			return
		}

		// Never block the daemon loop.
		select {
		case c.Reply <- c.Snapshot:
		default:
			logger.Warn("state snapshot reply channel not ready; dropping snapshot")
		}

	default:
		logger.Warn("unknown command type", "command", cmd.String())
		onEvent(CommandFailed{
			Command: cmd,
			Err:     errUnknownCommand{cmd: cmd},
			At:      now,
		})
	}
}

// errNoGate indicates a permission request with no permission gate configured.
type errNoGate struct{}

func (errNoGate) Error() string { return "no permission gate" }

type errUnknownCommand struct {
	cmd Command
}

func (e errUnknownCommand) Error() string { return "unknown command: " + e.cmd.String() }
