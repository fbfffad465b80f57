package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// PermissionResult is the outcome of an orientation permission request.
type PermissionResult int

const (
	PermissionUnknown PermissionResult = iota
	PermissionGranted
	PermissionDenied
	PermissionUnsupported // the platform has no gate; treated like granted
	PermissionError
)

func (r PermissionResult) String() string {
	switch r {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	case PermissionUnsupported:
		return "unsupported"
	case PermissionError:
		return "error"
	default:
		return "unknown"
	}
}

// Enables reports whether this result allows switching to tilt input.
func (r PermissionResult) Enables() bool {
	return r == PermissionGranted || r == PermissionUnsupported
}

func (r PermissionResult) MarshalText() ([]byte, error) {
	if r == PermissionUnknown {
		return nil, fmt.Errorf("cannot marshal unknown permission result")
	}
	return []byte(r.String()), nil
}

func (r *PermissionResult) UnmarshalText(b []byte) error {
	switch string(b) {
	case "granted":
		*r = PermissionGranted
	case "denied":
		*r = PermissionDenied
	case "unsupported":
		*r = PermissionUnsupported
	case "error":
		*r = PermissionError
	default:
		return fmt.Errorf("invalid permission result %q", string(b))
	}
	return nil
}

// PermissionGate answers orientation permission requests. Implementations may
// block for as long as the user takes to decide; cancel ctx to give up.
type PermissionGate interface {
	RequestOrientationPermission(ctx context.Context, requestID string) (PermissionResult, error)
}

// Permission gate kinds (config: orientation.permission).
const (
	permissionGateNone   = "none"
	permissionGateDevice = "device"
	permissionGateClient = "client"
)

// NoPermissionGate is used on platforms without a permission concept.
type NoPermissionGate struct{}

func (NoPermissionGate) RequestOrientationPermission(context.Context, string) (PermissionResult, error) {
	return PermissionUnsupported, nil
}

// DevicePermissionGate grants access when the accelerometer node can be opened
// by this process.
type DevicePermissionGate struct {
	Path string
}

func (g DevicePermissionGate) RequestOrientationPermission(ctx context.Context, _ string) (PermissionResult, error) {
	if g.Path == "" {
		return PermissionUnsupported, nil
	}
	if err := ctx.Err(); err != nil {
		return PermissionError, err
	}

	f, err := os.OpenFile(g.Path, os.O_RDONLY, 0)
	if err != nil {
		if errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) {
			return PermissionDenied, err
		}
		return PermissionError, fmt.Errorf("open accelerometer: %w", err)
	}
	_ = f.Close()
	return PermissionGranted, nil
}

// ClientPermissionGate forwards the request to page clients and waits for the
// first matching permission_result answer.
type ClientPermissionGate struct {
	announce func(ctx context.Context, requestID string) error

	mu      sync.Mutex
	pending map[string]chan PermissionResult
}

// NewClientPermissionGate builds a gate that publishes requests via announce.
func NewClientPermissionGate(announce func(ctx context.Context, requestID string) error) *ClientPermissionGate {
	return &ClientPermissionGate{
		announce: announce,
		pending:  make(map[string]chan PermissionResult),
	}
}

// RequestOrientationPermission blocks until a client answers or ctx ends.
// There is no timeout: an unanswered prompt stays pending.
func (g *ClientPermissionGate) RequestOrientationPermission(ctx context.Context, requestID string) (PermissionResult, error) {
	if requestID == "" {
		return PermissionError, errors.New("empty request id")
	}

	ch := make(chan PermissionResult, 1)
	g.mu.Lock()
	g.pending[requestID] = ch
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.pending, requestID)
		g.mu.Unlock()
	}()

	if g.announce != nil {
		if err := g.announce(ctx, requestID); err != nil {
			return PermissionError, fmt.Errorf("announce permission request: %w", err)
		}
	}

	select {
	case <-ctx.Done():
		return PermissionError, ctx.Err()
	case res := <-ch:
		return res, nil
	}
}

// Answer delivers a client's reply. It reports false for unknown or already
// answered request ids.
func (g *ClientPermissionGate) Answer(a PermissionAnswer) bool {
	g.mu.Lock()
	ch, ok := g.pending[a.RequestID]
	if ok {
		delete(g.pending, a.RequestID)
	}
	g.mu.Unlock()

	if !ok {
		return false
	}
	ch <- a.Result
	return true
}

// Pending returns the number of unanswered requests.
func (g *ClientPermissionGate) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}
