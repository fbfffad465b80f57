package main

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Event payloads (duplicated from parallaxd for a standalone binary).

type pointerMove struct {
	X             float64 `json:"x"`
	ViewportWidth float64 `json:"viewport_width"`
}

type touchPoint struct {
	X float64 `json:"x"`
}

type touchMove struct {
	Touches       []touchPoint `json:"touches"`
	ViewportWidth float64      `json:"viewport_width"`
}

type deviceOrientation struct {
	Gamma *float64 `json:"gamma"`
}

type permissionResult struct {
	RequestID string `json:"request_id"`
	Result    string `json:"result"`
}

// envelope is the IPC wire format: {type, data}.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ipcResponse represents the daemon's response
type ipcResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const ipcTimeout = 2 * time.Second

func sendEvent(socketPath string, env envelope) error {
	conn, err := net.DialTimeout("unix", socketPath, ipcTimeout)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(ipcTimeout))

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", env.Type, err)
	}

	// Line-delimited JSON
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return fmt.Errorf("send event: %w", err)
	}

	var resp ipcResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "ok" {
		return fmt.Errorf("daemon error: %s", resp.Error)
	}
	return nil
}
