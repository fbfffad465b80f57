package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"error", LogLevelError, false},
		{"WARN", LogLevelWarn, false},
		{"warning", LogLevelWarn, false},
		{" info ", LogLevelInfo, false},
		{"debug", LogLevelDebug, false},
		{"trace", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := parseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseLogLevel(%q) err=%v, wantErr=%v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("parseLogLevel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSetupLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(LogLevelWarn, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "direction", "0.0800")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info message logged at warn level: %s", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "direction=0.0800") {
		t.Fatalf("unexpected output: %s", out)
	}

	if !setupLogger(LogLevelDebug, &buf).Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("debug logger does not enable debug")
	}
}
