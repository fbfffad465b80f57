package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
)

// evdevTranslator turns a device's raw input events into controller events.
// Implementations keep per-device frame state and are not safe for
// concurrent use.
type evdevTranslator interface {
	feed(ev inputEvent) (Event, bool)
}

// touchTranslator maps a touchscreen's horizontal axis to TouchMove/TouchEnd.
// The axis maximum plays the role of the viewport width. The frame carrying
// the touch-down is a touch start, not a move, and emits nothing.
type touchTranslator struct {
	axisMax float64

	x        float64
	dirty    bool
	touching bool
	starting bool
}

func newTouchTranslator(axisMax int) *touchTranslator {
	if axisMax <= 0 {
		axisMax = defaultTouchAxisMax
	}
	return &touchTranslator{axisMax: float64(axisMax)}
}

func (t *touchTranslator) feed(ev inputEvent) (Event, bool) {
	switch ev.Type {
	case EV_ABS:
		if ev.Code == ABS_MT_POSITION_X || ev.Code == ABS_X {
			t.x = float64(ev.Value)
			t.dirty = true
		}

	case EV_KEY:
		if ev.Code != BTN_TOUCH {
			return nil, false
		}
		switch ev.Value {
		case evValuePress:
			t.touching = true
			t.starting = true
		case evValueRelease:
			t.touching = false
			t.starting = false
			t.dirty = false
			return TouchEnd{}, true
		}

	case EV_SYN:
		if ev.Code != SYN_REPORT {
			return nil, false
		}
		if t.starting {
			t.starting = false
			t.dirty = false
			return nil, false
		}
		if !t.dirty || !t.touching {
			return nil, false
		}
		t.dirty = false
		return TouchMove{
			Touches:       []TouchPoint{{X: t.x}},
			ViewportWidth: t.axisMax,
		}, true
	}
	return nil, false
}

// accelTranslator derives the left/right tilt angle from a 3-axis
// accelerometer. One reading is emitted per SYN_REPORT frame.
type accelTranslator struct {
	invert bool

	ax, ay, az float64
	seen       bool
}

func (a *accelTranslator) feed(ev inputEvent) (Event, bool) {
	switch ev.Type {
	case EV_ABS:
		switch ev.Code {
		case ABS_X:
			a.ax = float64(ev.Value)
		case ABS_Y:
			a.ay = float64(ev.Value)
		case ABS_Z:
			a.az = float64(ev.Value)
		default:
			return nil, false
		}
		a.seen = true

	case EV_SYN:
		if ev.Code != SYN_REPORT || !a.seen {
			return nil, false
		}
		gamma := tiltGamma(a.ax, a.ay, a.az)
		if a.invert {
			gamma = -gamma
		}
		return DeviceOrientation{Gamma: &gamma}, true
	}
	return nil, false
}

// tiltGamma is the roll angle in degrees for a gravity vector (x, y, z).
func tiltGamma(x, y, z float64) float64 {
	return math.Atan2(x, math.Sqrt(y*y+z*z)) * 180 / math.Pi
}

// evdevDevice is one configured input node.
type evdevDevice struct {
	Path       string
	Translator evdevTranslator
}

// startEvdevReader opens every device and serves them from one epoll
// goroutine until ctx ends or a device fails. Translated events are sent
// to sink without blocking; a full queue drops them.
func startEvdevReader(ctx context.Context, devices []evdevDevice, sink chan<- Event, logger *slog.Logger) error {
	if len(devices) == 0 {
		return fmt.Errorf("no input devices provided")
	}

	files := make([]*os.File, 0, len(devices))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	for _, d := range devices {
		f, err := os.OpenFile(d.Path, os.O_RDONLY, 0)
		if err != nil {
			closeAll()
			return fmt.Errorf("open input device %s: %w", d.Path, err)
		}
		files = append(files, f)
		logger.Info("input device opened", "path", d.Path)
	}

	raw := make(chan deviceEvent, 64)
	readErr := make(chan error, 1)
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		readInputEventsEpoll(done, files, raw, readErr)
	}()

	go func() {
		defer func() {
			close(done)
			wg.Wait()
			closeAll()
		}()

		for {
			select {
			case <-ctx.Done():
				return

			case err := <-readErr:
				logger.Error("input device reader stopped", "error", err)
				return

			case de := <-raw:
				ev, ok := devices[de.Dev].Translator.feed(de.Ev)
				if !ok {
					continue
				}
				select {
				case sink <- ev:
				default:
					logger.Debug("event queue full, dropping device input", "path", devices[de.Dev].Path)
				}
			}
		}
	}()

	return nil
}

// AccelerometerSource is the local tilt source, started on the switch to
// orientation mode.
type AccelerometerSource struct {
	Path   string
	Invert bool
	Sink   chan<- Event
	Logger *slog.Logger

	once sync.Once
	err  error
}

// Start opens the accelerometer and begins streaming DeviceOrientation
// events. Only the first call has an effect.
func (a *AccelerometerSource) Start(ctx context.Context) error {
	a.once.Do(func() {
		a.err = startEvdevReader(ctx, []evdevDevice{{
			Path:       a.Path,
			Translator: &accelTranslator{invert: a.Invert},
		}}, a.Sink, a.Logger)
	})
	return a.err
}
