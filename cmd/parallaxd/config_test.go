package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig([]byte("# empty\nlogging:\n  level: info\n"))
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	rc := cfg.ToReducerConfig()
	if rc.Controller != DefaultControllerConfig() {
		t.Fatalf("controller=%+v, want defaults", rc.Controller)
	}
	if rc.StyleProperty != "--parallax-direction" || rc.AffordanceID != "gyro-btn" {
		t.Fatalf("unexpected reducer config %+v", rc)
	}
}

func TestParseConfig_Overrides(t *testing.T) {
	yml := `
controller:
  ease_rate: 0.2
  center_threshold: 0.3
repaint:
  hz: 30
publish:
  property: "--tilt"
  skip_unchanged: true
http:
  listen: 0.0.0.0:9000
  allowed_origins: ["https://example.org"]
inputs:
  accelerometer:
    device: /dev/input/event7
    invert: true
orientation:
  permission: device
`
	cfg, err := parseConfig([]byte(yml))
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Controller.EaseRate != 0.2 || cfg.Controller.CenterThreshold != 0.3 {
		t.Fatalf("controller=%+v", cfg.Controller)
	}
	// Unset fields keep defaults.
	if cfg.Controller.MaxTiltDeg != defaultMaxTilt || cfg.HTTP.WSPath != defaultWSPath {
		t.Fatalf("defaults lost: %+v %+v", cfg.Controller, cfg.HTTP)
	}
	if cfg.Repaint.Hz != 30 || !cfg.Publish.SkipUnchanged || cfg.Publish.Property != "--tilt" {
		t.Fatalf("unexpected repaint/publish %+v %+v", cfg.Repaint, cfg.Publish)
	}
	if len(cfg.HTTP.AllowedOrigins) != 1 || !cfg.Inputs.Accelerometer.Invert {
		t.Fatalf("unexpected http/inputs %+v %+v", cfg.HTTP, cfg.Inputs)
	}
}

func TestParseConfig_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		yml     string
		errPart string
	}{
		{"unknown field", "controller:\n  ease: 0.1\n", "field ease not found"},
		{"trailing document", "repaint:\n  hz: 30\n---\nrepaint:\n  hz: 60\n", "trailing document"},
		{"bad type", "repaint:\n  hz: fast\n", "decode config yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConfig([]byte(tt.yml))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Fatalf("error %q does not mention %q", err, tt.errPart)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parallaxd.yaml")
	if err := os.WriteFile(path, []byte("repaint:\n  hz: 120\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.Repaint.Hz != 120 {
		t.Fatalf("hz=%d, want 120", cfg.Repaint.Hz)
	}

	if _, err := LoadConfigFile(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestConfigValidate(t *testing.T) {
	notDir := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(notDir, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		errPart string
	}{
		{"ease rate zero", func(c *Config) { c.Controller.EaseRate = 0 }, "ease_rate"},
		{"ease rate above one", func(c *Config) { c.Controller.EaseRate = 1.5 }, "ease_rate"},
		{"threshold one", func(c *Config) { c.Controller.CenterThreshold = 1 }, "center_threshold"},
		{"threshold negative", func(c *Config) { c.Controller.CenterThreshold = -0.1 }, "center_threshold"},
		{"tilt too large", func(c *Config) { c.Controller.MaxTiltDeg = 120 }, "max_tilt_deg"},
		{"snap zero", func(c *Config) { c.Controller.SnapEpsilon = 0 }, "snap_epsilon"},
		{"hz zero", func(c *Config) { c.Repaint.Hz = 0 }, "repaint.hz"},
		{"empty property", func(c *Config) { c.Publish.Property = "" }, "publish.property"},
		{"ws path", func(c *Config) { c.HTTP.WSPath = "ws" }, "ws_path"},
		{"static dir missing", func(c *Config) { c.HTTP.StaticDir = "/definitely/not/here" }, "static_dir"},
		{"static dir is file", func(c *Config) { c.HTTP.StaticDir = notDir }, "not a directory"},
		{"socket path", func(c *Config) { c.IPC.SocketPath = "" }, "socket_path"},
		{"poll hz", func(c *Config) { c.Inputs.X11Pointer.PollHz = 0 }, "poll_hz"},
		{"axis max", func(c *Config) { c.Inputs.Touch.AxisMax = -1 }, "axis_max"},
		{"permission kind", func(c *Config) { c.Orientation.Permission = "ask" }, "orientation.permission"},
		{"device gate without device", func(c *Config) { c.Orientation.Permission = "device" }, "accelerometer.device"},
		{"affordance id", func(c *Config) { c.Orientation.AffordanceID = "" }, "affordance_id"},
		{"capability value", func(c *Config) { c.Capabilities.Orientation = "maybe" }, "capabilities.orientation"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Fatalf("error %q does not mention %q", err, tt.errPart)
			}
		})
	}
}

func TestConfigValidate_ZeroDeadZone(t *testing.T) {
	cfg, err := parseConfig([]byte("controller:\n  center_threshold: 0\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Controller.CenterThreshold != 0 {
		t.Fatalf("center_threshold=%v, want 0", cfg.Controller.CenterThreshold)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero dead zone rejected: %v", err)
	}
	if got := cfg.ToReducerConfig().withDefaults().Controller.CenterThreshold; got != 0 {
		t.Fatalf("reducer threshold=%v, want 0", got)
	}
}

func TestFlagOverrides_Apply(t *testing.T) {
	cfg := DefaultConfig()

	ease := 0.5
	hz := 144
	skip := true
	x11 := true
	perm := "none"
	level := "debug"
	empty := ""

	FlagOverrides{
		EaseRate:      &ease,
		RepaintHz:     &hz,
		SkipUnchanged: &skip,
		X11Pointer:    &x11,
		Permission:    &perm,
		LogLevel:      &level,
		TouchDevice:   &empty,
	}.Apply(&cfg)

	if cfg.Controller.EaseRate != 0.5 || cfg.Repaint.Hz != 144 || !cfg.Publish.SkipUnchanged {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if !cfg.Inputs.X11Pointer.Enabled || cfg.Orientation.Permission != "none" || cfg.Logging.Level != "debug" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	// Untouched fields keep their values.
	if cfg.Controller.CenterThreshold != defaultCenterThreshold || cfg.HTTP.Listen != defaultHTTPListenAddr {
		t.Fatalf("unrelated fields changed: %+v", cfg)
	}

	FlagOverrides{}.Apply(nil)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct{ in, want string }{
		{"", ""},
		{"/tmp/x", "/tmp/x"},
		{"~", home},
		{"~/web", filepath.Join(home, "web")},
		{"~user/web", "~user/web"},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
