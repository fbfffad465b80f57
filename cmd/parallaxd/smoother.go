package main

import (
	"math"
	"strconv"
)

// StepSmoother advances the smoothed signal by one repaint tick.
//
// It is a single-pole low-pass filter: each tick closes easeRate of the gap
// between current and target. Results within snapEpsilon of zero are snapped
// to exactly 0 so a released input settles on a clean "centered" value instead
// of decaying forever.
//
// Pure function: callers own the state.
func StepSmoother(current, target, easeRate, snapEpsilon float64) float64 {
	next := current + (target-current)*easeRate
	if math.Abs(next) < snapEpsilon {
		next = 0
	}
	return next
}

// FormatDirection renders the smoothed signal the way it is published: a
// fixed 4-decimal string.
func FormatDirection(current float64) string {
	s := strconv.FormatFloat(current, 'f', directionDecimals, 64)
	// Only reachable with a snap epsilon below display precision.
	if s == "-0.0000" {
		return "0.0000"
	}
	return s
}
