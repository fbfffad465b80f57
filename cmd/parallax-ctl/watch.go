package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"parallaxd/internal/pageclient"
)

func newWatchCmd() *cobra.Command {
	var (
		wsURL   string
		history int
		height  int
		refresh time.Duration
		raw     bool
		retries int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "plot the published direction live",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			client, err := pageclient.New(wsURL, logger)
			if err != nil {
				return err
			}
			defer client.Close()
			client.Retries = retries

			w := newDirectionWatcher(cmd.OutOrStdout(), history, height, raw)
			frames := make(chan pageclient.Frame, 64)
			runErr := make(chan error, 1)
			go func() {
				runErr <- client.Run(ctx, func(f pageclient.Frame) {
					select {
					case frames <- f:
					default:
					}
				})
			}()

			ticker := time.NewTicker(refresh)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return nil
				case err := <-runErr:
					if err != nil {
						return fmt.Errorf("watch %s: %w", wsURL, err)
					}
					return nil
				case f := <-frames:
					w.handle(f)
				case <-ticker.C:
					w.render()
				}
			}
		},
	}

	cmd.Flags().StringVar(&wsURL, "ws", "ws://127.0.0.1:8088/ws", "parallaxd page websocket URL")
	cmd.Flags().IntVar(&history, "history", 120, "number of samples plotted")
	cmd.Flags().IntVar(&height, "height", 10, "graph height in rows")
	cmd.Flags().DurationVar(&refresh, "refresh", 200*time.Millisecond, "redraw interval")
	cmd.Flags().BoolVar(&raw, "raw", false, "print one line per frame instead of a graph")
	cmd.Flags().IntVar(&retries, "retries", 10, "dial attempts per reconnect before giving up")
	return cmd
}

// directionWatcher keeps the recent direction history and draws it.
type directionWatcher struct {
	out     io.Writer
	history int
	height  int
	raw     bool

	samples []float64
	mode    string
	dirty   bool
}

func newDirectionWatcher(out io.Writer, history, height int, raw bool) *directionWatcher {
	if history <= 0 {
		history = 120
	}
	if height <= 0 {
		height = 10
	}
	return &directionWatcher{out: out, history: history, height: height, raw: raw, mode: "unknown"}
}

func (w *directionWatcher) handle(f pageclient.Frame) {
	switch f.Type {
	case "state_init":
		var s pageclient.StateInit
		if err := f.Decode(&s); err != nil {
			return
		}
		w.mode = s.Mode
		w.push(s.Direction)
		if w.raw {
			fmt.Fprintf(w.out, "state_init direction=%s mode=%s gyro_button=%v\n", s.Direction, s.Mode, s.AffordancePresent)
		}

	case "direction":
		var d pageclient.Direction
		if err := f.Decode(&d); err != nil {
			return
		}
		w.push(d.Value)
		if w.raw {
			fmt.Fprintf(w.out, "%s: %s\n", d.Property, d.Value)
		}

	case "mode_changed":
		var m struct {
			Mode string `json:"mode"`
		}
		if err := f.Decode(&m); err == nil {
			w.mode = m.Mode
		}
		if w.raw {
			fmt.Fprintf(w.out, "mode_changed mode=%s\n", w.mode)
		}

	default:
		if w.raw {
			fmt.Fprintf(w.out, "%s %s\n", f.Type, f.Data)
		}
	}
}

func (w *directionWatcher) push(value string) {
	d := pageclient.Direction{Value: value}
	v, err := d.Float()
	if err != nil {
		return
	}
	w.samples = append(w.samples, v)
	if len(w.samples) > w.history {
		w.samples = w.samples[len(w.samples)-w.history:]
	}
	w.dirty = true
}

func (w *directionWatcher) render() {
	if w.raw || !w.dirty || len(w.samples) == 0 {
		return
	}
	w.dirty = false

	last := w.samples[len(w.samples)-1]
	graph := asciigraph.Plot(w.samples,
		asciigraph.Height(w.height),
		asciigraph.Width(w.history),
		asciigraph.LowerBound(-1),
		asciigraph.UpperBound(1),
		asciigraph.Precision(2),
		asciigraph.Caption(fmt.Sprintf("direction %.4f  mode %s", last, w.mode)),
	)
	// Clear screen and redraw from the top-left corner.
	fmt.Fprint(w.out, "\033[H\033[2J")
	fmt.Fprintln(w.out, graph)
}
