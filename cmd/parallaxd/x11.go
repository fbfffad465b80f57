package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// pointerSample is one root-window pointer reading.
type pointerSample struct {
	X        int
	OnScreen bool
	ScreenW  int
}

// pointerQuerier reads the desktop pointer position.
type pointerQuerier interface {
	QueryPointer() (pointerSample, error)
	Close()
}

// xgbPointer queries the X11 root window of the default screen.
type xgbPointer struct {
	conn  *xgb.Conn
	root  xproto.Window
	width int
}

func newXgbPointer() (*xgbPointer, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect to X server: %w", err)
	}

	screen := xproto.Setup(conn).DefaultScreen(conn)
	return &xgbPointer{
		conn:  conn,
		root:  screen.Root,
		width: int(screen.WidthInPixels),
	}, nil
}

func (p *xgbPointer) QueryPointer() (pointerSample, error) {
	reply, err := xproto.QueryPointer(p.conn, p.root).Reply()
	if err != nil {
		return pointerSample{}, err
	}
	return pointerSample{
		X:        int(reply.RootX),
		OnScreen: reply.SameScreen,
		ScreenW:  p.width,
	}, nil
}

func (p *xgbPointer) Close() { p.conn.Close() }

// pointerTracker turns successive samples into PointerMove/PointerLeave,
// emitting only on change.
type pointerTracker struct {
	lastX   int
	inside  bool
	started bool
}

func (t *pointerTracker) feed(s pointerSample) (Event, bool) {
	if !s.OnScreen {
		if t.inside {
			t.inside = false
			return PointerLeave{}, true
		}
		return nil, false
	}

	if t.started && t.inside && s.X == t.lastX {
		return nil, false
	}
	t.started = true
	t.inside = true
	t.lastX = s.X
	return PointerMove{X: float64(s.X), ViewportWidth: float64(s.ScreenW)}, true
}

// runX11Pointer polls q at hz until ctx ends. Query failures are logged and
// polling continues.
func runX11Pointer(ctx context.Context, q pointerQuerier, hz int, sink chan<- Event, logger *slog.Logger) error {
	defer q.Close()

	if hz <= 0 {
		hz = defaultX11PollHz
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	logger.Info("X11 pointer polling started", "hz", hz)

	var tracker pointerTracker
	var failures int

	for {
		select {
		case <-ctx.Done():
			logger.Debug("X11 pointer polling stopped")
			return nil

		case <-ticker.C:
			s, err := q.QueryPointer()
			if err != nil {
				failures++
				if failures == 1 || failures%100 == 0 {
					logger.Warn("X11 pointer query failed", "error", err, "failures", failures)
				}
				continue
			}
			failures = 0

			ev, ok := tracker.feed(s)
			if !ok {
				continue
			}
			select {
			case sink <- ev:
			default:
				logger.Debug("event queue full, dropping pointer sample")
			}
		}
	}
}
