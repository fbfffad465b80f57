package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// ============================================================================
// parallax-ctl - Command-line client for parallaxd
// ============================================================================
// Sends input events to the daemon over its IPC socket and watches the
// published direction over the page websocket.
//
// Usage:
//   parallax-ctl pointer-move 120 1920
//   parallax-ctl orientation -12.5
//   parallax-ctl enable-gyro
//   parallax-ctl watch
// ============================================================================

const defaultSocketPath = "/tmp/parallaxd.sock"

var socketPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "parallax-ctl",
		Short:         "control and observe the parallaxd daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", defaultSocketPath, "parallaxd IPC socket path")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:                "pointer-move <x> <viewport-width>",
			Short:              "send a pointer position",
			DisableFlagParsing: true,
			RunE: signedArgs(2, func(cmd *cobra.Command, args []string) error {
				x, w, err := parsePosition(args)
				if err != nil {
					return err
				}
				return send(cmd, envelope{Type: "pointer_move", Data: pointerMove{X: x, ViewportWidth: w}})
			}),
		},
		&cobra.Command{
			Use:   "pointer-leave",
			Short: "send pointer leave (recenters the target)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return send(cmd, envelope{Type: "pointer_leave"})
			},
		},
		&cobra.Command{
			Use:                "touch-move <x> <viewport-width>",
			Short:              "send a single-finger touch position",
			DisableFlagParsing: true,
			RunE: signedArgs(2, func(cmd *cobra.Command, args []string) error {
				x, w, err := parsePosition(args)
				if err != nil {
					return err
				}
				return send(cmd, envelope{Type: "touch_move", Data: touchMove{
					Touches:       []touchPoint{{X: x}},
					ViewportWidth: w,
				}})
			}),
		},
		&cobra.Command{
			Use:   "touch-end",
			Short: "send touch end (recenters the target)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return send(cmd, envelope{Type: "touch_end"})
			},
		},
		&cobra.Command{
			Use:                "orientation <gamma|null>",
			Short:              "send a tilt reading in degrees; null means no reading",
			DisableFlagParsing: true,
			RunE: signedArgs(1, func(cmd *cobra.Command, args []string) error {
				var o deviceOrientation
				if args[0] != "null" {
					g, err := strconv.ParseFloat(args[0], 64)
					if err != nil {
						return fmt.Errorf("invalid gamma %q: %w", args[0], err)
					}
					o.Gamma = &g
				}
				return send(cmd, envelope{Type: "device_orientation", Data: o})
			}),
		},
		&cobra.Command{
			Use:   "enable-gyro",
			Short: "start the orientation permission flow",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return send(cmd, envelope{Type: "enable_gyro"})
			},
		},
		&cobra.Command{
			Use:   "permission <request-id> <granted|denied|unsupported|error>",
			Short: "answer a pending permission request",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				switch args[1] {
				case "granted", "denied", "unsupported", "error":
				default:
					return fmt.Errorf("invalid result %q", args[1])
				}
				return send(cmd, envelope{Type: "permission_result", Data: permissionResult{
					RequestID: args[0],
					Result:    args[1],
				}})
			},
		},
		newWatchCmd(),
	)

	return rootCmd
}

// signedArgs wraps commands whose positional arguments may be negative
// numbers. Flag parsing is disabled on them, so --socket and --help are read
// here and every other argument is positional.
func signedArgs(n int, run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		var pos []string
		for i := 0; i < len(args); i++ {
			a := args[i]
			switch {
			case a == "--":
				pos = append(pos, args[i+1:]...)
				i = len(args)
			case a == "--socket":
				if i+1 >= len(args) {
					return fmt.Errorf("flag needs an argument: --socket")
				}
				i++
				socketPath = args[i]
			case strings.HasPrefix(a, "--socket="):
				socketPath = strings.TrimPrefix(a, "--socket=")
			case a == "-h" || a == "--help":
				return cmd.Help()
			default:
				pos = append(pos, a)
			}
		}
		if len(pos) != n {
			return fmt.Errorf("accepts %d arg(s), received %d", n, len(pos))
		}
		return run(cmd, pos)
	}
}

func parsePosition(args []string) (x, width float64, err error) {
	x, err = strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x %q: %w", args[0], err)
	}
	width, err = strconv.ParseFloat(args[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid viewport width %q: %w", args[1], err)
	}
	return x, width, nil
}

func send(cmd *cobra.Command, env envelope) error {
	if err := sendEvent(socketPath, env); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}
