package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	rl "github.com/gen2brain/raylib-go/raylib"

	"parallaxd/internal/pageclient"
)

// previewState is written by the websocket goroutine and read by the render loop.
type previewState struct {
	direction atomic.Uint64 // math.Float64bits

	mu            sync.Mutex
	mode          string
	gyroButton    bool
	pendingPrompt string
}

func (s *previewState) setDirection(v float64) { s.direction.Store(math.Float64bits(v)) }
func (s *previewState) Direction() float64     { return math.Float64frombits(s.direction.Load()) }

func (s *previewState) handle(f pageclient.Frame, logger *slog.Logger) {
	switch f.Type {
	case "state_init":
		var init pageclient.StateInit
		if err := f.Decode(&init); err != nil {
			logger.Debug("bad state_init", "error", err)
			return
		}
		if v, err := (pageclient.Direction{Value: init.Direction}).Float(); err == nil {
			s.setDirection(v)
		}
		s.mu.Lock()
		s.mode = init.Mode
		s.gyroButton = init.AffordancePresent
		if init.PermissionPending && init.RequestID != "" {
			s.pendingPrompt = init.RequestID
		}
		s.mu.Unlock()

	case "direction":
		var d pageclient.Direction
		if err := f.Decode(&d); err != nil {
			return
		}
		if v, err := d.Float(); err == nil {
			s.setDirection(v)
		}

	case "mode_changed":
		var m struct {
			Mode string `json:"mode"`
		}
		if err := f.Decode(&m); err == nil {
			s.mu.Lock()
			s.mode = m.Mode
			s.mu.Unlock()
		}

	case "affordance_removed":
		s.mu.Lock()
		s.gyroButton = false
		s.mu.Unlock()

	case "permission_request":
		var req pageclient.PermissionRequest
		if err := f.Decode(&req); err != nil {
			return
		}
		s.mu.Lock()
		s.pendingPrompt = req.RequestID
		s.mu.Unlock()
		logger.Info("orientation permission requested; press Y to grant or N to deny", "request_id", req.RequestID)
	}
}

// takePrompt returns and clears the pending permission request id.
func (s *previewState) takePrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.pendingPrompt
	s.pendingPrompt = ""
	return id
}

func (s *previewState) status() (mode string, gyroButton bool, prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode, s.gyroButton, s.pendingPrompt
}

func main() {
	var (
		wsURL  = flag.String("ws", "ws://127.0.0.1:8088/ws", "parallaxd page websocket URL")
		width  = flag.Int("width", 960, "window width")
		height = flag.Int("height", 540, "window height")
		amount = flag.Float64("amount", 0.6, "parallax amount")
		fps    = flag.Int("fps", 60, "target frame rate")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	client, err := pageclient.New(*wsURL, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state := &previewState{mode: "unknown"}
	go func() {
		if err := client.Run(ctx, func(f pageclient.Frame) { state.handle(f, logger) }); err != nil {
			logger.Error("websocket stopped", "error", err)
			stop()
		}
	}()

	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(*width), int32(*height), "parallax-preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(*fps))

	var pointer pointerState
	send := func(typ string, data any) {
		if err := client.SendEvent(typ, data); err != nil {
			logger.Warn("send failed", "type", typ, "error", err)
		}
	}

	for !rl.WindowShouldClose() && ctx.Err() == nil {
		// Input
		mPos := rl.GetMousePosition()
		if u, ok := pointer.sample(float64(mPos.X), rl.GetScreenWidth(), rl.IsCursorOnScreen()); ok {
			send(u.Type, u.Data)
		}
		if rl.IsKeyPressed(rl.KeyG) {
			send("enable_gyro", nil)
		}
		if rl.IsKeyPressed(rl.KeyY) || rl.IsKeyPressed(rl.KeyN) {
			if id := state.takePrompt(); id != "" {
				result := "denied"
				if rl.IsKeyPressed(rl.KeyY) {
					result = "granted"
				}
				send("permission_result", map[string]string{"request_id": id, "result": result})
			}
		}

		// Draw
		dir := state.Direction()
		sw, sh := rl.GetScreenWidth(), rl.GetScreenHeight()

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)
		for _, l := range defaultLayers {
			x, y, w, h := layerRect(l, dir, *amount, sw, sh)
			rl.DrawRectangle(x, y, w, h, rl.NewColor(l.Color.R, l.Color.G, l.Color.B, l.Color.A))
		}

		mode, gyroButton, prompt := state.status()
		rl.DrawText(fmt.Sprintf("direction %.4f  mode %s", dir, mode), 10, 10, 20, rl.RayWhite)
		if gyroButton {
			rl.DrawText("[G] enable gyro", 10, 36, 18, rl.LightGray)
		}
		if prompt != "" {
			rl.DrawText("allow orientation access? [Y]/[N]", 10, 60, 18, rl.Yellow)
		}
		rl.EndDrawing()
	}
}
