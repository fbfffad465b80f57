package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestShouldShowGyroButton(t *testing.T) {
	tests := []struct {
		caps Capabilities
		want bool
	}{
		{Capabilities{Touch: true, Orientation: true}, true},
		{Capabilities{Touch: true, Orientation: false}, false},
		{Capabilities{Touch: false, Orientation: true}, false},
		{Capabilities{}, false},
	}
	for _, tt := range tests {
		if got := ShouldShowGyroButton(tt.caps); got != tt.want {
			t.Errorf("ShouldShowGyroButton(%+v) = %v, want %v", tt.caps, got, tt.want)
		}
	}
}

func TestDetectCapabilities(t *testing.T) {
	dir := t.TempDir()
	dev := filepath.Join(dir, "event0")
	if err := os.WriteFile(dev, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "event9")

	tests := []struct {
		name    string
		caps    CapabilitiesConfig
		touch   string
		accel   string
		want    Capabilities
		wantErr bool
	}{
		{"auto with devices", CapabilitiesConfig{Touch: "auto", Orientation: "auto"}, dev, dev, Capabilities{true, true}, false},
		{"auto without devices", CapabilitiesConfig{Touch: "auto", Orientation: "auto"}, "", "", Capabilities{}, false},
		{"auto with missing device", CapabilitiesConfig{Touch: "auto", Orientation: "auto"}, dev, missing, Capabilities{Touch: true}, false},
		{"forced", CapabilitiesConfig{Touch: "true", Orientation: "true"}, "", "", Capabilities{true, true}, false},
		{"disabled", CapabilitiesConfig{Touch: "false", Orientation: "auto"}, dev, dev, Capabilities{Orientation: true}, false},
		{"empty means auto", CapabilitiesConfig{}, dev, "", Capabilities{Touch: true}, false},
		{"invalid", CapabilitiesConfig{Touch: "yes"}, "", "", Capabilities{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inputs := InputsConfig{
				Touch:         TouchConfig{Device: tt.touch},
				Accelerometer: AccelerometerConfig{Device: tt.accel},
			}
			got, err := DetectCapabilities(tt.caps, inputs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v, wantErr=%v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
