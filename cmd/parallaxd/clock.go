package main

import (
	"context"
	"time"
)

// FrameClock delivers one value per repaint frame.
type FrameClock interface {
	Frames() <-chan time.Time
	Stop()
}

// tickerClock is the production FrameClock backed by time.Ticker.
type tickerClock struct {
	t *time.Ticker
}

// NewTickerClock returns a FrameClock firing hz times per second.
func NewTickerClock(hz int) FrameClock {
	if hz <= 0 {
		hz = defaultRepaintHz
	}
	return &tickerClock{t: time.NewTicker(time.Second / time.Duration(hz))}
}

func (c *tickerClock) Frames() <-chan time.Time { return c.t.C }
func (c *tickerClock) Stop()                    { c.t.Stop() }

// ManualFrameClock is a FrameClock advanced explicitly with Step.
type ManualFrameClock struct {
	ch       chan time.Time
	now      time.Time
	interval time.Duration
}

// NewManualFrameClock starts at start; each Step advances by interval.
func NewManualFrameClock(start time.Time, interval time.Duration) *ManualFrameClock {
	return &ManualFrameClock{
		ch:       make(chan time.Time),
		now:      start,
		interval: interval,
	}
}

func (c *ManualFrameClock) Frames() <-chan time.Time { return c.ch }
func (c *ManualFrameClock) Stop()                    {}

// Step delivers one frame. It blocks until the consumer receives it or ctx ends.
func (c *ManualFrameClock) Step(ctx context.Context) bool {
	c.now = c.now.Add(c.interval)
	select {
	case c.ch <- c.now:
		return true
	case <-ctx.Done():
		return false
	}
}

// Now returns the time of the last delivered frame.
func (c *ManualFrameClock) Now() time.Time { return c.now }
