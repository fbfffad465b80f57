package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the parallaxd daemon.
//
// Keep defaults and validation centralized so the rest of the code can assume
// a well-formed config.
//
// Design goals:
// - Make config file the primary configuration surface.
// - Keep flags for small overrides and for environments where a file is awkward.
type Config struct {
	// Controller tuning (easing, dead zone, tilt range)
	Controller ControllerFileConfig `yaml:"controller"`

	// Repaint cadence
	Repaint RepaintConfig `yaml:"repaint"`

	// Published value
	Publish PublishConfig `yaml:"publish"`

	// HTTP / websocket server for page clients
	HTTP HTTPConfig `yaml:"http"`

	// IPC configuration (used by parallax-ctl)
	IPC IPCConfig `yaml:"ipc"`

	// Local input devices
	Inputs InputsConfig `yaml:"inputs"`

	// Orientation permission flow
	Orientation OrientationConfig `yaml:"orientation"`

	// Gyro button capability overrides
	Capabilities CapabilitiesConfig `yaml:"capabilities"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ControllerFileConfig maps 1:1 to ControllerConfig.
type ControllerFileConfig struct {
	EaseRate        float64 `yaml:"ease_rate"`
	CenterThreshold float64 `yaml:"center_threshold"`
	MaxTiltDeg      float64 `yaml:"max_tilt_deg"`
	SnapEpsilon     float64 `yaml:"snap_epsilon"`
}

type RepaintConfig struct {
	Hz int `yaml:"hz"`
}

type PublishConfig struct {
	Property      string `yaml:"property"`
	SkipUnchanged bool   `yaml:"skip_unchanged"`
}

type HTTPConfig struct {
	Listen         string   `yaml:"listen"`
	WSPath         string   `yaml:"ws_path"`
	StaticDir      string   `yaml:"static_dir,omitempty"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type InputsConfig struct {
	X11Pointer    X11PointerConfig    `yaml:"x11_pointer"`
	Touch         TouchConfig         `yaml:"touch"`
	Accelerometer AccelerometerConfig `yaml:"accelerometer"`
}

type X11PointerConfig struct {
	Enabled bool `yaml:"enabled"`
	PollHz  int  `yaml:"poll_hz"`
}

type TouchConfig struct {
	Device  string `yaml:"device,omitempty"`
	AxisMax int    `yaml:"axis_max"`
}

type AccelerometerConfig struct {
	Device string `yaml:"device,omitempty"`
	Invert bool   `yaml:"invert"`
}

type OrientationConfig struct {
	// Permission selects the gate: none|device|client.
	Permission   string `yaml:"permission"`
	AffordanceID string `yaml:"affordance_id"`
}

type CapabilitiesConfig struct {
	Touch       string `yaml:"touch"`       // auto|true|false
	Orientation string `yaml:"orientation"` // auto|true|false
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go defaults and current CLI defaults.
func DefaultConfig() Config {
	return Config{
		Controller: ControllerFileConfig{
			EaseRate:        defaultEaseRate,
			CenterThreshold: defaultCenterThreshold,
			MaxTiltDeg:      defaultMaxTilt,
			SnapEpsilon:     defaultSnapEpsilon,
		},
		Repaint: RepaintConfig{
			Hz: defaultRepaintHz,
		},
		Publish: PublishConfig{
			Property: defaultStyleProperty,
		},
		HTTP: HTTPConfig{
			Listen: defaultHTTPListenAddr,
			WSPath: defaultWSPath,
		},
		IPC: IPCConfig{
			SocketPath: defaultIPCSocketPath,
		},
		Inputs: InputsConfig{
			X11Pointer: X11PointerConfig{
				Enabled: false,
				PollHz:  defaultX11PollHz,
			},
			Touch: TouchConfig{
				AxisMax: defaultTouchAxisMax,
			},
		},
		Orientation: OrientationConfig{
			Permission:   permissionGateClient,
			AffordanceID: defaultAffordanceID,
		},
		Capabilities: CapabilitiesConfig{
			Touch:       capabilityAuto,
			Orientation: capabilityAuto,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file.
//
// Notes:
//   - The file must be valid YAML.
//   - Unknown fields are rejected (helps catch typos) via KnownFields(true).
//   - Fields absent from the file keep their defaults.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return parseConfig(b)
}

func parseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides applies overrides from flags on top of a loaded config.
//
// Flags should pass pointers; each override is only applied if non-nil.
// main.go decides which flags exist.
type FlagOverrides struct {
	EaseRate        *float64
	CenterThreshold *float64
	MaxTiltDeg      *float64
	SnapEpsilon     *float64

	RepaintHz     *int
	SkipUnchanged *bool

	HTTPListen    *string
	HTTPStaticDir *string
	IPCSocketPath *string

	X11Pointer          *bool
	TouchDevice         *string
	AccelerometerDevice *string

	Permission *string

	LogLevel *string
}

// Apply merges the overrides into cfg. If an override pointer is nil, it is ignored.
// If the pointer is non-nil, the value is applied (even if it is a “zero value”).
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}

	if o.EaseRate != nil {
		cfg.Controller.EaseRate = *o.EaseRate
	}
	if o.CenterThreshold != nil {
		cfg.Controller.CenterThreshold = *o.CenterThreshold
	}
	if o.MaxTiltDeg != nil {
		cfg.Controller.MaxTiltDeg = *o.MaxTiltDeg
	}
	if o.SnapEpsilon != nil {
		cfg.Controller.SnapEpsilon = *o.SnapEpsilon
	}

	if o.RepaintHz != nil {
		cfg.Repaint.Hz = *o.RepaintHz
	}
	if o.SkipUnchanged != nil {
		cfg.Publish.SkipUnchanged = *o.SkipUnchanged
	}

	if o.HTTPListen != nil {
		cfg.HTTP.Listen = *o.HTTPListen
	}
	if o.HTTPStaticDir != nil {
		cfg.HTTP.StaticDir = *o.HTTPStaticDir
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}

	if o.X11Pointer != nil {
		cfg.Inputs.X11Pointer.Enabled = *o.X11Pointer
	}
	if o.TouchDevice != nil {
		cfg.Inputs.Touch.Device = *o.TouchDevice
	}
	if o.AccelerometerDevice != nil {
		cfg.Inputs.Accelerometer.Device = *o.AccelerometerDevice
	}

	if o.Permission != nil {
		cfg.Orientation.Permission = *o.Permission
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// This is intended to be called after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// Controller
	if c.Controller.EaseRate <= 0 || c.Controller.EaseRate > 1 {
		return errors.New("controller.ease_rate must be in (0, 1]")
	}
	if !(c.Controller.CenterThreshold >= 0 && c.Controller.CenterThreshold < 1) {
		return errors.New("controller.center_threshold must be in [0, 1)")
	}
	if c.Controller.MaxTiltDeg <= 0 || c.Controller.MaxTiltDeg > 90 {
		return errors.New("controller.max_tilt_deg must be in (0, 90]")
	}
	if c.Controller.SnapEpsilon <= 0 || c.Controller.SnapEpsilon >= 1 {
		return errors.New("controller.snap_epsilon must be in (0, 1)")
	}

	// Repaint
	if c.Repaint.Hz <= 0 || c.Repaint.Hz > 1000 {
		return errors.New("repaint.hz must be between 1 and 1000")
	}

	// Publish
	if c.Publish.Property == "" {
		return errors.New("publish.property must not be empty")
	}

	// HTTP
	if c.HTTP.Listen == "" {
		return errors.New("http.listen must not be empty")
	}
	if c.HTTP.WSPath == "" || c.HTTP.WSPath[0] != '/' {
		return errors.New("http.ws_path must start with '/'")
	}
	if c.HTTP.StaticDir != "" {
		c.HTTP.StaticDir = ExpandPath(c.HTTP.StaticDir)
		st, err := os.Stat(c.HTTP.StaticDir)
		if err != nil {
			return fmt.Errorf("http.static_dir: %w", err)
		}
		if !st.IsDir() {
			return fmt.Errorf("http.static_dir %q is not a directory", c.HTTP.StaticDir)
		}
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// Inputs
	if c.Inputs.X11Pointer.PollHz <= 0 || c.Inputs.X11Pointer.PollHz > 1000 {
		return errors.New("inputs.x11_pointer.poll_hz must be between 1 and 1000")
	}
	if c.Inputs.Touch.AxisMax <= 0 {
		return errors.New("inputs.touch.axis_max must be > 0")
	}

	// Orientation
	switch c.Orientation.Permission {
	case permissionGateNone, permissionGateClient:
	case permissionGateDevice:
		if c.Inputs.Accelerometer.Device == "" {
			return errors.New("orientation.permission is \"device\" but inputs.accelerometer.device is empty")
		}
	default:
		return fmt.Errorf("orientation.permission must be one of %q, %q, %q",
			permissionGateNone, permissionGateDevice, permissionGateClient)
	}
	if c.Orientation.AffordanceID == "" {
		return errors.New("orientation.affordance_id must not be empty")
	}

	// Capabilities
	for name, v := range map[string]string{
		"capabilities.touch":       c.Capabilities.Touch,
		"capabilities.orientation": c.Capabilities.Orientation,
	} {
		if v != capabilityAuto && v != capabilityTrue && v != capabilityFalse {
			return fmt.Errorf("%s must be auto, true or false", name)
		}
	}

	// Logging
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// ToReducerConfig converts the file config into the reducer's config.
func (c *Config) ToReducerConfig() ReducerConfig {
	return ReducerConfig{
		Controller: ControllerConfig{
			EaseRate:        c.Controller.EaseRate,
			CenterThreshold: c.Controller.CenterThreshold,
			MaxTilt:         c.Controller.MaxTiltDeg,
			SnapEpsilon:     c.Controller.SnapEpsilon,
		},
		StyleProperty: c.Publish.Property,
		AffordanceID:  c.Orientation.AffordanceID,
	}
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
