package main

import (
	"errors"
	"log/slog"
)

var (
	errEventQueueFull       = errors.New("event queue full")
	errNoPendingPermission  = errors.New("no pending permission request with that id")
	errClientGateNotEnabled = errors.New("client permission gate not enabled")
)

// inboundRouter delivers events decoded from external transports (IPC,
// websocket) to their owner: permission answers go to the client gate,
// everything else to the daemon.
type inboundRouter struct {
	events chan<- Event
	gate   *ClientPermissionGate
	logger *slog.Logger
}

// Dispatch never blocks. A full daemon queue drops the event.
func (r inboundRouter) Dispatch(ev Event) error {
	if a, ok := ev.(PermissionAnswer); ok {
		if r.gate == nil {
			return errClientGateNotEnabled
		}
		if !r.gate.Answer(a) {
			return errNoPendingPermission
		}
		r.logger.Debug("permission answer delivered", "request_id", a.RequestID, "result", a.Result.String())
		return nil
	}

	select {
	case r.events <- ev:
		return nil
	default:
		return errEventQueueFull
	}
}
