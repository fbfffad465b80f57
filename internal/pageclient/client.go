// Package pageclient is a websocket client for the parallaxd page endpoint.
// It receives state frames and can send page input events, the same way a
// browser page does.
package pageclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Frame is one server-to-page message: {type, ts, data}.
type Frame struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// StateInit is the data of a "state_init" frame.
type StateInit struct {
	Direction         string  `json:"direction"`
	Property          string  `json:"property"`
	Mode              string  `json:"mode"`
	Target            float64 `json:"target"`
	GyroButtonVisible bool    `json:"gyro_button_visible"`
	AffordancePresent bool    `json:"affordance_present"`
	PermissionPending bool    `json:"permission_pending"`
	RequestID         string  `json:"permission_request_id,omitempty"`
}

// Direction is the data of a "direction" frame.
type Direction struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

// Float parses the published value.
func (d Direction) Float() (float64, error) {
	return strconv.ParseFloat(d.Value, 64)
}

// PermissionRequest is the data of a "permission_request" frame.
type PermissionRequest struct {
	RequestID string `json:"request_id"`
}

// Decode unmarshals the frame data into v.
func (f Frame) Decode(v any) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("%s frame has no data", f.Type)
	}
	return json.Unmarshal(f.Data, v)
}

// Client manages one websocket connection to parallaxd.
type Client struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	url    string
	logger *slog.Logger

	// Retries is the number of dial attempts per (re)connect.
	Retries int
}

// New validates wsURL and connects.
func New(wsURL string, logger *slog.Logger) (*Client, error) {
	if _, err := url.Parse(wsURL); err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}

	c := &Client{
		url:     wsURL,
		logger:  logger,
		Retries: 10,
	}

	if err := c.connectWithRetry(); err != nil {
		return nil, err
	}
	return c, nil
}

// ErrClosed is returned once Close has been called.
var ErrClosed = errors.New("pageclient: closed")

// connect establishes a websocket connection to parallaxd
func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	d := websocket.Dialer{
		HandshakeTimeout: 2 * time.Second,
	}

	conn, _, err := d.Dial(c.url, nil)
	if err != nil {
		return err
	}

	c.conn = conn
	return nil
}

// connectWithRetry attempts to connect, pausing between attempts
func (c *Client) connectWithRetry() error {
	attempts := c.Retries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := c.connect()
		if err == nil {
			c.logger.Info("connected to parallaxd", "url", c.url)
			return nil
		}
		if errors.Is(err, ErrClosed) {
			return err
		}
		lastErr = err
		c.logger.Warn("connection failed; retrying...", "error", err, "attempt", attempt+1)
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("failed to connect after %d attempts: %w", attempts, lastErr)
}

// ensureConnected checks connection and reconnects if necessary
func (c *Client) ensureConnected() error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.logger.Warn("connection lost; reconnecting...")
	return c.connectWithRetry()
}

// SendEvent sends a page input event envelope {type, data}.
func (c *Client) SendEvent(typ string, data any) error {
	if err := c.ensureConnected(); err != nil {
		return err
	}

	env := struct {
		Type string `json:"type"`
		Data any    `json:"data,omitempty"`
	}{Type: typ, Data: data}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("no websocket connection")
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.conn = nil // Mark connection as broken
		return err
	}
	return nil
}

// Run reads frames and hands them to onFrame until ctx is canceled.
// A broken connection is re-established.
func (c *Client) Run(ctx context.Context, onFrame func(Frame)) error {
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := c.ensureConnected(); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			continue
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				c.logger.Info("server closed connection", "code", ce.Code, "reason", ce.Text)
			} else {
				c.logger.Warn("read failed", "error", err)
			}
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil // Mark connection as broken
			}
			c.mu.Unlock()
			continue
		}

		var f Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			c.logger.Debug("malformed frame", "error", err)
			continue
		}
		onFrame(f)
	}
}

// Close closes the websocket connection. The client cannot be reused.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return nil
}
