package main

import "math"

// ControllerConfig contains the tunables of the parallax controller.
//
// All fields are constants for the lifetime of a controller. Out-of-range
// values are replaced with defaults by withDefaults so tests can pass partial
// configs. A zero CenterThreshold is kept: it disables the dead zone.
type ControllerConfig struct {
	EaseRate        float64 // 0 < rate <= 1
	CenterThreshold float64 // dead zone, in normalized units [0, 1)
	MaxTilt         float64 // degrees, > 0
	SnapEpsilon     float64 // |current| below this is forced to 0
}

// DefaultControllerConfig returns the stock tuning.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		EaseRate:        defaultEaseRate,
		CenterThreshold: defaultCenterThreshold,
		MaxTilt:         defaultMaxTilt,
		SnapEpsilon:     defaultSnapEpsilon,
	}
}

func (c ControllerConfig) withDefaults() ControllerConfig {
	if c.EaseRate <= 0 || c.EaseRate > 1 {
		c.EaseRate = defaultEaseRate
	}
	if !(c.CenterThreshold >= 0 && c.CenterThreshold < 1) {
		c.CenterThreshold = defaultCenterThreshold
	}
	if c.MaxTilt <= 0 {
		c.MaxTilt = defaultMaxTilt
	}
	if c.SnapEpsilon <= 0 {
		c.SnapEpsilon = defaultSnapEpsilon
	}
	return c
}

// NormalizePointer maps a horizontal coordinate inside a viewport to a
// quantized direction in {-1, 0, +1}.
//
// The viewport edges map to -1 and +1; anything within CenterThreshold of the
// center maps to 0. A degenerate viewport (zero, negative or non-finite width)
// is treated as centered.
func (c ControllerConfig) NormalizePointer(x, viewportWidth float64) float64 {
	if !(viewportWidth > 0) || math.IsInf(viewportWidth, 0) {
		return 0
	}
	return c.quantize((x/viewportWidth)*2 - 1)
}

// NormalizeTilt maps a left/right tilt angle (degrees) to a quantized
// direction in {-1, 0, +1}. The angle is clamped to [-MaxTilt, MaxTilt] first.
func (c ControllerConfig) NormalizeTilt(gamma float64) float64 {
	clamped := math.Max(-c.MaxTilt, math.Min(c.MaxTilt, gamma))
	return c.quantize(clamped / c.MaxTilt)
}

// quantize applies the dead zone and returns the sign of n.
// NaN falls into the dead zone.
func (c ControllerConfig) quantize(n float64) float64 {
	if math.IsNaN(n) || n == 0 || math.Abs(n) < c.CenterThreshold {
		return 0
	}
	if n < 0 {
		return -1
	}
	return 1
}
