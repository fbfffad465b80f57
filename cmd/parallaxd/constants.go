package main

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_SYN = 0x00
	EV_KEY = 0x01
	EV_ABS = 0x03

	SYN_REPORT = 0x00

	BTN_TOUCH = 0x14a

	ABS_X             = 0x00
	ABS_Y             = 0x01
	ABS_Z             = 0x02
	ABS_MT_POSITION_X = 0x35
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
)

// Controller defaults
const (
	defaultEaseRate        = 0.08  // Fraction of the gap closed per repaint tick
	defaultCenterThreshold = 0.15  // Dead zone half-width in normalized units
	defaultMaxTilt         = 20.0  // Tilt clamp in degrees
	defaultSnapEpsilon     = 0.001 // |current| below this snaps to exactly 0

	defaultRepaintHz = 60 // Repaint (tick) frequency

	// Published value formatting
	directionDecimals       = 4
	defaultStyleProperty    = "--parallax-direction"
	defaultAffordanceID     = "gyro-btn"
	defaultX11PollHz        = 30
	defaultTouchAxisMax     = 4096
	defaultHTTPListenAddr   = "127.0.0.1:8088"
	defaultWSPath           = "/ws"
	defaultIPCSocketPath    = "/tmp/parallaxd.sock"
	defaultEventsBuffer     = 256
	defaultBroadcastsBuffer = 256
)
