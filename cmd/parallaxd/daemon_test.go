package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type testDaemon struct {
	t          *testing.T
	ctx        context.Context
	cancel     context.CancelFunc
	events     chan Event
	broadcasts chan StateBroadcast
	clock      *ManualFrameClock
	done       chan struct{}
}

func startTestDaemon(t *testing.T, caps Capabilities, deps daemonDeps) *testDaemon {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	td := &testDaemon{
		t:          t,
		ctx:        ctx,
		cancel:     cancel,
		events:     make(chan Event, 16),
		broadcasts: make(chan StateBroadcast, 64),
		clock:      NewManualFrameClock(time.Unix(1700000000, 0), time.Second/60),
		done:       make(chan struct{}),
	}
	deps.Clock = td.clock
	deps.Broadcasts = td.broadcasts

	go func() {
		defer close(td.done)
		runDaemon(ctx, td.events, NewDaemonState(caps), testReducerConfig(), deps, slog.Default())
	}()

	t.Cleanup(td.stop)
	return td
}

func (td *testDaemon) stop() {
	td.cancel()
	select {
	case <-td.done:
	case <-time.After(2 * time.Second):
		td.t.Fatalf("timeout waiting for daemon to stop")
	}
}

func (td *testDaemon) send(ev Event) {
	td.t.Helper()
	select {
	case td.events <- ev:
	case <-time.After(500 * time.Millisecond):
		td.t.Fatalf("timeout sending %T", ev)
	}
}

func (td *testDaemon) step(n int) {
	td.t.Helper()
	for i := 0; i < n; i++ {
		ctx, cancel := context.WithTimeout(td.ctx, 500*time.Millisecond)
		ok := td.clock.Step(ctx)
		cancel()
		if !ok {
			td.t.Fatalf("timeout delivering frame %d", i)
		}
	}
}

// snapshot goes through the event queue, so it observes every event sent before it.
func (td *testDaemon) snapshot() StateSnapshot {
	td.t.Helper()
	reply := make(chan StateSnapshot, 1)
	td.send(RequestStateSnapshot{Reply: reply})
	select {
	case snap := <-reply:
		return snap
	case <-time.After(500 * time.Millisecond):
		td.t.Fatalf("timeout waiting for snapshot")
		return StateSnapshot{}
	}
}

func (td *testDaemon) nextBroadcast() StateBroadcast {
	td.t.Helper()
	select {
	case b := <-td.broadcasts:
		return b
	case <-time.After(500 * time.Millisecond):
		td.t.Fatalf("timeout waiting for broadcast")
		return nil
	}
}

type fakeOrientationSource struct {
	mu     sync.Mutex
	starts int
	err    error
}

func (f *fakeOrientationSource) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return f.err
}

func (f *fakeOrientationSource) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

type stubGate struct {
	result PermissionResult
	err    error
}

func (g stubGate) RequestOrientationPermission(context.Context, string) (PermissionResult, error) {
	return g.result, g.err
}

func TestDaemon_PublishesOncePerFrame(t *testing.T) {
	td := startTestDaemon(t, Capabilities{}, daemonDeps{})

	td.send(PointerMove{X: 1000, ViewportWidth: 1000})
	td.snapshot() // the move is reduced before the first frame
	td.step(2)

	for _, want := range []string{"0.0800", "0.1536"} {
		b := td.nextBroadcast()
		bd, ok := b.(BroadcastDirection)
		if !ok {
			t.Fatalf("expected BroadcastDirection, got %T", b)
		}
		if bd.Value != want {
			t.Fatalf("direction=%s, want %s", bd.Value, want)
		}
	}

	snap := td.snapshot()
	if snap.Direction != "0.1536" || snap.Target != 1 || snap.Ticks != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestDaemon_InputWithoutFramesDoesNotPublish(t *testing.T) {
	td := startTestDaemon(t, Capabilities{}, daemonDeps{})

	td.send(PointerMove{X: 0, ViewportWidth: 1000})
	snap := td.snapshot()
	if snap.Target != -1 || snap.Current != 0 || snap.Ticks != 0 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	select {
	case b := <-td.broadcasts:
		t.Fatalf("unexpected broadcast %+v", b)
	default:
	}
}

func TestDaemon_ClientGateGrantSwitchesToOrientation(t *testing.T) {
	announced := make(chan string, 1)
	gate := NewClientPermissionGate(func(ctx context.Context, id string) error {
		announced <- id
		return nil
	})
	src := &fakeOrientationSource{}

	td := startTestDaemon(t, Capabilities{Touch: true, Orientation: true}, daemonDeps{
		Gate:         gate,
		Orientation:  src,
		NewRequestID: func() string { return "req-1" },
	})

	td.send(EnableGyro{})

	var id string
	select {
	case id = <-announced:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("permission request was not announced")
	}
	if id != "req-1" {
		t.Fatalf("request id=%q, want req-1", id)
	}

	// The daemon keeps serving while the prompt is open.
	td.send(PointerMove{X: 0, ViewportWidth: 1000})
	snap := td.snapshot()
	if !snap.PermissionPending || snap.Mode != ModePointerTouch || snap.Target != -1 {
		t.Fatalf("unexpected snapshot while pending %+v", snap)
	}

	if !gate.Answer(PermissionAnswer{RequestID: id, Result: PermissionGranted}) {
		t.Fatalf("answer not accepted")
	}

	waitUntil(t, time.Second, func() bool {
		return td.snapshot().Mode == ModeDeviceOrientation
	}, "daemon did not switch to orientation mode")

	snap = td.snapshot()
	if snap.PermissionPending || snap.AffordancePresent {
		t.Fatalf("unexpected snapshot after grant %+v", snap)
	}
	if src.Starts() != 1 {
		t.Fatalf("orientation source started %d times, want 1", src.Starts())
	}

	var modeChanged, removed bool
	for !(modeChanged && removed) {
		switch b := td.nextBroadcast().(type) {
		case BroadcastModeChanged:
			modeChanged = b.Mode == ModeDeviceOrientation
		case BroadcastAffordanceRemoved:
			removed = b.ElementID == defaultAffordanceID
		}
	}

	td.send(DeviceOrientation{Gamma: f64(-40)})
	td.send(PointerMove{X: 1000, ViewportWidth: 1000})
	if got := td.snapshot().Target; got != -1 {
		t.Fatalf("target=%v, want -1", got)
	}
}

func TestDaemon_DeniedKeepsPointerMode(t *testing.T) {
	src := &fakeOrientationSource{}
	td := startTestDaemon(t, Capabilities{Touch: true, Orientation: true}, daemonDeps{
		Gate:        stubGate{result: PermissionDenied, err: errors.New("EACCES")},
		Orientation: src,
	})

	td.send(EnableGyro{})
	waitUntil(t, time.Second, func() bool {
		return !td.snapshot().PermissionPending
	}, "permission request never resolved")

	snap := td.snapshot()
	if snap.Mode != ModePointerTouch || !snap.AffordancePresent {
		t.Fatalf("unexpected snapshot after denial %+v", snap)
	}
	if src.Starts() != 0 {
		t.Fatalf("orientation source started after denial")
	}
}

func TestDaemon_NoGateResolvesAsError(t *testing.T) {
	td := startTestDaemon(t, Capabilities{}, daemonDeps{})

	td.send(EnableGyro{})
	snap := td.snapshot()
	if snap.PermissionPending || snap.Mode != ModePointerTouch {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestDaemon_SourceStartFailureKeepsMode(t *testing.T) {
	src := &fakeOrientationSource{err: errors.New("no such device")}
	td := startTestDaemon(t, Capabilities{}, daemonDeps{
		Gate:        NoPermissionGate{},
		Orientation: src,
	})

	td.send(EnableGyro{})
	waitUntil(t, time.Second, func() bool {
		return td.snapshot().Mode == ModeDeviceOrientation
	}, "daemon did not switch to orientation mode")

	if src.Starts() != 1 {
		t.Fatalf("orientation source started %d times, want 1", src.Starts())
	}
}

func TestDaemon_StopsWithPendingPrompt(t *testing.T) {
	gate := NewClientPermissionGate(nil)
	td := startTestDaemon(t, Capabilities{}, daemonDeps{Gate: gate})

	td.send(EnableGyro{})
	waitUntil(t, time.Second, func() bool { return gate.Pending() == 1 }, "prompt not registered")

	// stop fails the test if runDaemon does not return.
	td.stop()

	if gate.Pending() != 0 {
		t.Fatalf("prompt still pending after shutdown")
	}
}

func TestDaemon_StopsWhenEventsClosed(t *testing.T) {
	events := make(chan Event)
	done := make(chan struct{})
	go func() {
		defer close(done)
		runDaemon(context.Background(), events, NewDaemonState(Capabilities{}), testReducerConfig(),
			daemonDeps{Clock: NewManualFrameClock(time.Time{}, time.Millisecond)}, slog.Default())
	}()

	close(events)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("daemon did not stop after events channel closed")
	}
}
