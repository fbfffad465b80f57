package main

import (
	"fmt"
	"os"
)

// Capabilities are the host features relevant to the gyro button.
type Capabilities struct {
	Touch       bool
	Orientation bool
}

// ShouldShowGyroButton reports whether the orientation affordance is offered.
// Both touch input and an orientation source are required.
func ShouldShowGyroButton(c Capabilities) bool {
	return c.Touch && c.Orientation
}

// Capability setting values (config: capabilities.touch / capabilities.orientation).
const (
	capabilityAuto  = "auto"
	capabilityTrue  = "true"
	capabilityFalse = "false"
)

// resolveCapability evaluates one capability setting. "auto" checks that
// devicePath is configured and exists.
func resolveCapability(setting, devicePath string) (bool, error) {
	switch setting {
	case capabilityTrue:
		return true, nil
	case capabilityFalse:
		return false, nil
	case "", capabilityAuto:
		if devicePath == "" {
			return false, nil
		}
		_, err := os.Stat(devicePath)
		return err == nil, nil
	default:
		return false, fmt.Errorf("invalid capability setting %q (want auto|true|false)", setting)
	}
}

// DetectCapabilities evaluates the capability settings once, at startup.
func DetectCapabilities(cfg CapabilitiesConfig, inputs InputsConfig) (Capabilities, error) {
	touch, err := resolveCapability(cfg.Touch, inputs.Touch.Device)
	if err != nil {
		return Capabilities{}, fmt.Errorf("capabilities.touch: %w", err)
	}
	orientation, err := resolveCapability(cfg.Orientation, inputs.Accelerometer.Device)
	if err != nil {
		return Capabilities{}, fmt.Errorf("capabilities.orientation: %w", err)
	}
	return Capabilities{Touch: touch, Orientation: orientation}, nil
}
