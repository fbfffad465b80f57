package main

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ============================================================================
// Central Daemon Loop - Reducer-driven "Daemon Brain"
// ============================================================================
//
// Design rules enforced here:
//   - The reducer performs no I/O and computes: next state + commands + broadcasts.
//   - The daemon loop is the only place that executes side effects.
//   - Effect results are turned into Events and fed back into the reducer.
//   - Long-running effects (the permission prompt) run on their own goroutine
//     and re-enter through the feedback channel.
//
// ============================================================================

// daemonDeps are the collaborators of the daemon loop.
type daemonDeps struct {
	Clock       FrameClock
	Gate        PermissionGate
	Orientation OrientationSource

	// Broadcasts receives reducer-emitted broadcasts. Sends never block;
	// a full channel drops the broadcast.
	Broadcasts chan<- StateBroadcast

	// NewRequestID overrides permission request id generation (tests).
	NewRequestID func() string
}

// runDaemon is the main daemon loop that:
//   - Receives Events from multiple sources
//   - Emits a Tick per repaint frame
//   - Reduces events into (state, commands, broadcasts)
//   - Executes commands and feeds results back into the reducer
//
// Shutdown semantics:
//   - Exits when ctx is canceled
//   - Exits cleanly when the events channel is closed
//   - Waits for in-flight permission requests, which are canceled on exit
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	state *DaemonState,
	cfg ReducerConfig,
	deps daemonDeps,
	logger *slog.Logger,
) {
	// Guard: reducer-driven daemon expects a state container.
	if state == nil {
		logger.Error("daemon state is nil")
		return
	}
	if deps.Clock == nil {
		deps.Clock = NewTickerClock(defaultRepaintHz)
	}
	defer deps.Clock.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feedback := make(chan Event, 8)

	var droppedBroadcasts uint64
	publish := func(b StateBroadcast) {
		if deps.Broadcasts == nil {
			return
		}
		select {
		case deps.Broadcasts <- b:
		default:
			droppedBroadcasts++
			if droppedBroadcasts%uint64(defaultRepaintHz) == 1 {
				logger.Debug("broadcast queue full, dropping", "dropped", droppedBroadcasts)
			}
		}
	}

	env := effectEnv{
		ctx:          ctx,
		gate:         deps.Gate,
		source:       deps.Orientation,
		publish:      publish,
		newRequestID: deps.NewRequestID,
		goAsync: func(fn func(post func(Event))) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				fn(func(ev Event) {
					select {
					case feedback <- ev:
					case <-ctx.Done():
					}
				})
			}()
		},
	}

	lastTick := time.Now()

	// Explicit queues:
	// - eventQueue holds events awaiting reduction
	// - cmdQueue holds commands awaiting execution
	var eventQueue []Event
	var cmdQueue []Command

	enqueueEvent := func(ev Event) {
		eventQueue = append(eventQueue, ev)
	}

	// Reduce all queued events, enqueuing any resulting commands.
	flushEvents := func() {
		for len(eventQueue) > 0 {
			ev := eventQueue[0]
			eventQueue = eventQueue[1:]

			rr := Reduce(state, ev, cfg)
			if rr.State != nil {
				state = rr.State
			}
			cmdQueue = append(cmdQueue, rr.Commands...)
			for _, b := range rr.Broadcasts {
				publish(b)
			}
		}
	}

	// Execute all queued commands, enqueuing result events.
	flushCommands := func() {
		for len(cmdQueue) > 0 {
			cmd := cmdQueue[0]
			cmdQueue = cmdQueue[1:]

			runEffect(env, cmd, logger, enqueueEvent)

			// Results are reduced promptly to keep state coherent.
			flushEvents()
		}
	}

	frames := deps.Clock.Frames()

	// Main loop
	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return
			}
			enqueueEvent(TimedEvent{Event: ev, At: time.Now()})
			flushEvents()
			flushCommands()

		case ev := <-feedback:
			if pr, ok := ev.(PermissionResolved); ok {
				logPermission(logger, pr)
			}
			enqueueEvent(ev)
			flushEvents()
			flushCommands()

		case now := <-frames:
			dt := now.Sub(lastTick).Seconds()
			lastTick = now
			enqueueEvent(Tick{Now: now, Dt: dt})
			flushEvents()
			flushCommands()
		}
	}
}

func logPermission(logger *slog.Logger, pr PermissionResolved) {
	switch pr.Result {
	case PermissionGranted, PermissionUnsupported:
		logger.Info("orientation permission resolved", "request_id", pr.RequestID, "result", pr.Result.String())
	case PermissionDenied:
		logger.Info("orientation permission denied", "request_id", pr.RequestID, "error", pr.Err)
	default:
		logger.Warn("orientation permission failed", "request_id", pr.RequestID, "result", pr.Result.String(), "error", pr.Err)
	}
}
