package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// testStack wires daemon, hub, broadcaster and router the way run() does,
// with a manual frame clock.
type testStack struct {
	td     *testDaemon
	server *httptest.Server
	ws     *Server
}

func startTestStack(t *testing.T, cfg HTTPConfig, caps Capabilities) *testStack {
	t.Helper()

	announce := make(chan StateBroadcast, 1)
	gate := NewClientPermissionGate(func(ctx context.Context, id string) error {
		announce <- BroadcastPermissionRequest{RequestID: id}
		return nil
	})

	td := startTestDaemon(t, caps, daemonDeps{Gate: gate})

	router := inboundRouter{events: td.events, gate: gate, logger: slog.Default()}
	ws := NewServer(slog.Default(), td.events, router, ServerConfig{Hub: HubConfig{SendBuf: 16, BroadcastBuf: 16}})

	go ws.Hub().Run(td.ctx)

	// Merge daemon broadcasts and permission announcements like the shared channel in run().
	merged := make(chan StateBroadcast, 16)
	go func() {
		for {
			select {
			case <-td.ctx.Done():
				return
			case b := <-td.broadcasts:
				merged <- b
			case b := <-announce:
				merged <- b
			}
		}
	}()
	go RunBroadcaster(td.ctx, ws.Hub(), merged, BroadcasterConfig{}, slog.Default())

	if cfg.WSPath == "" {
		cfg.WSPath = defaultWSPath
	}
	srv := httptest.NewServer(buildRouter(cfg, httpDeps{WS: ws, Events: td.events, Logger: slog.Default()}))
	t.Cleanup(srv.Close)

	return &testStack{td: td, server: srv, ws: ws}
}

func (s *testStack) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + defaultWSPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type wsFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readWSFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f wsFrame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

// readUntil skips frames until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) wsFrame {
	t.Helper()
	for i := 0; i < 50; i++ {
		if f := readWSFrame(t, conn); f.Type == typ {
			return f
		}
	}
	t.Fatalf("no %s frame received", typ)
	return wsFrame{}
}

func TestHTTP_Healthz(t *testing.T) {
	st := startTestStack(t, HTTPConfig{}, Capabilities{})

	resp, err := http.Get(st.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var body struct {
		Status  string `json:"status"`
		Clients int    `json:"clients"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Clients != 0 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestHTTP_State(t *testing.T) {
	st := startTestStack(t, HTTPConfig{}, Capabilities{Touch: true, Orientation: true})
	st.td.send(PointerMove{X: 0, ViewportWidth: 1000})
	st.td.snapshot()
	st.td.step(1)

	resp, err := http.Get(st.server.URL + "/state")
	if err != nil {
		t.Fatalf("GET /state: %v", err)
	}
	defer resp.Body.Close()

	var snap StateSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Direction != "-0.0800" || snap.Mode != ModePointerTouch || !snap.GyroButtonVisible {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestHTTP_StateWithoutDaemon(t *testing.T) {
	srv := httptest.NewServer(buildRouter(HTTPConfig{WSPath: "/ws"}, httpDeps{Logger: slog.Default()}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/state")
	if err != nil {
		t.Fatalf("GET /state: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status=%d, want 503", resp.StatusCode)
	}
}

func TestHTTP_StaticAndCORS(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<div id=\"gyro-btn\"></div>"), 0o600); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(buildRouter(HTTPConfig{
		WSPath:         "/ws",
		StaticDir:      dir,
		AllowedOrigins: []string{"https://page.example"},
	}, httpDeps{Logger: slog.Default()}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/index.html", nil)
	req.Header.Set("Origin", "https://page.example")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://page.example" {
		t.Fatalf("Access-Control-Allow-Origin=%q", got)
	}
}

func TestWS_StateInitAndDirection(t *testing.T) {
	st := startTestStack(t, HTTPConfig{}, Capabilities{Touch: true, Orientation: true})
	conn := st.dial(t)

	f := readWSFrame(t, conn)
	if f.Type != "state_init" {
		t.Fatalf("first frame %s, want state_init", f.Type)
	}
	var init wsMessageSnapshot
	if err := json.Unmarshal(f.Data, &init); err != nil {
		t.Fatalf("decode state_init: %v", err)
	}
	if init.Direction != "0.0000" || init.Property != defaultStyleProperty || !init.AffordancePresent {
		t.Fatalf("unexpected state_init %+v", init)
	}

	// Page input travels over the same socket.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pointer_move","data":{"x":1000,"viewport_width":1000}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitUntil(t, time.Second, func() bool { return st.td.snapshot().Target == 1 }, "pointer frame not applied")

	st.td.step(1)
	f = readUntil(t, conn, "direction")
	var dir wsDirectionData
	if err := json.Unmarshal(f.Data, &dir); err != nil {
		t.Fatalf("decode direction: %v", err)
	}
	if dir.Value != "0.0800" || dir.Property != defaultStyleProperty {
		t.Fatalf("unexpected direction %+v", dir)
	}
}

func TestWS_PermissionRoundTrip(t *testing.T) {
	st := startTestStack(t, HTTPConfig{}, Capabilities{Touch: true, Orientation: true})
	conn := st.dial(t)
	readUntil(t, conn, "state_init")

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"enable_gyro"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	f := readUntil(t, conn, "permission_request")
	var req wsPermissionRequestData
	if err := json.Unmarshal(f.Data, &req); err != nil || req.RequestID == "" {
		t.Fatalf("bad permission_request %s: %v", f.Data, err)
	}

	answer := `{"type":"permission_result","data":{"request_id":"` + req.RequestID + `","result":"granted"}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(answer)); err != nil {
		t.Fatalf("write: %v", err)
	}

	readUntil(t, conn, "mode_changed")
	f = readUntil(t, conn, "affordance_removed")
	var rm wsAffordanceRemovedData
	if err := json.Unmarshal(f.Data, &rm); err != nil || rm.ElementID != defaultAffordanceID {
		t.Fatalf("bad affordance_removed %s: %v", f.Data, err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"device_orientation","data":{"gamma":-35}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitUntil(t, time.Second, func() bool { return st.td.snapshot().Target == -1 }, "tilt frame not applied")
}

func TestWS_LateClientAnswersPendingPrompt(t *testing.T) {
	st := startTestStack(t, HTTPConfig{}, Capabilities{Touch: true, Orientation: true})
	first := st.dial(t)
	readUntil(t, first, "state_init")

	if err := first.WriteMessage(websocket.TextMessage, []byte(`{"type":"enable_gyro"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	f := readUntil(t, first, "permission_request")
	var req wsPermissionRequestData
	if err := json.Unmarshal(f.Data, &req); err != nil || req.RequestID == "" {
		t.Fatalf("bad permission_request %s: %v", f.Data, err)
	}

	// A page that connects mid-prompt learns the id from state_init.
	late := st.dial(t)
	f = readUntil(t, late, "state_init")
	var init wsMessageSnapshot
	if err := json.Unmarshal(f.Data, &init); err != nil {
		t.Fatalf("decode state_init: %v", err)
	}
	if !init.PermissionPending || init.RequestID != req.RequestID {
		t.Fatalf("state_init=%+v, want pending %s", init, req.RequestID)
	}

	answer := `{"type":"permission_result","data":{"request_id":"` + init.RequestID + `","result":"granted"}}`
	if err := late.WriteMessage(websocket.TextMessage, []byte(answer)); err != nil {
		t.Fatalf("write: %v", err)
	}
	readUntil(t, late, "mode_changed")
	waitUntil(t, time.Second, func() bool {
		snap := st.td.snapshot()
		return snap.Mode == ModeDeviceOrientation && !snap.PermissionPending && snap.RequestID == ""
	}, "late answer not applied")
}

func TestServeHTTP_Shutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- serveHTTP(ctx, ln, http.NotFoundHandler(), slog.Default()) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serveHTTP: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not shut down")
	}
}
