package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("parallaxd v%s\n", version)
	fmt.Println("Parallax direction controller for pointer, touch and tilt input")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  parallaxd [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Daemon that turns pointer, touch or device tilt input into a single")
	fmt.Println("  smoothed direction signal in [-1, 1] and publishes it to page clients")
	fmt.Println("  over WebSocket once per repaint frame. A one-time, user-initiated")
	fmt.Println("  permission flow switches input from pointer/touch to device tilt.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (flags override file values)")
	fmt.Println()
	fmt.Println("  -ease-rate float")
	fmt.Printf("        Fraction of the gap to the target closed per frame (default %.2f)\n", defaultEaseRate)
	fmt.Println()
	fmt.Println("  -center-threshold float")
	fmt.Printf("        Dead zone half-width in normalized units (default %.2f)\n", defaultCenterThreshold)
	fmt.Println()
	fmt.Println("  -max-tilt float")
	fmt.Printf("        Tilt angle in degrees mapped to full deflection (default %.0f)\n", defaultMaxTilt)
	fmt.Println()
	fmt.Println("  -snap-epsilon float")
	fmt.Printf("        Smoothed values closer to zero than this snap to 0 (default %g)\n", defaultSnapEpsilon)
	fmt.Println()
	fmt.Println("  -repaint-hz int")
	fmt.Printf("        Repaint frequency in Hz (default %d)\n", defaultRepaintHz)
	fmt.Println()
	fmt.Println("  -skip-unchanged")
	fmt.Println("        Do not send direction frames whose value did not change")
	fmt.Println()
	fmt.Println("  -http-listen string")
	fmt.Printf("        HTTP/WebSocket listen address (default %q)\n", defaultHTTPListenAddr)
	fmt.Println()
	fmt.Println("  -static-dir string")
	fmt.Println("        Directory served at / (optional)")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default %q)\n", defaultIPCSocketPath)
	fmt.Println()
	fmt.Println("  -x11-pointer")
	fmt.Println("        Track the X11 desktop pointer as pointer input")
	fmt.Println()
	fmt.Println("  -touch-device string")
	fmt.Println("        Linux input event device of a touchscreen (optional)")
	fmt.Println()
	fmt.Println("  -accel-device string")
	fmt.Println("        Linux input event device of an accelerometer (optional)")
	fmt.Println()
	fmt.Println("  -permission string")
	fmt.Println("        Orientation permission gate: none|device|client (default \"client\")")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start daemon with default settings")
	fmt.Println("  parallaxd")
	fmt.Println()
	fmt.Println("  # Serve a page and follow the desktop pointer")
	fmt.Println("  parallaxd -static-dir ./web -x11-pointer")
	fmt.Println()
	fmt.Println("  # Tablet with a local accelerometer")
	fmt.Println("  parallaxd -touch-device /dev/input/event3 -accel-device /dev/input/event5 -permission device")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Reading input devices requires access to /dev/input (root or the 'input' group)")
	fmt.Println("  - Once tilt input is enabled it stays enabled until the daemon exits")
	fmt.Println()
}

func main() {
	// Check for version/help flags early
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	// Parse command-line flags
	var (
		configPath      = flag.String("config", "", "Path to YAML config file")
		easeRate        = flag.Float64("ease-rate", defaultEaseRate, "Fraction of the gap closed per frame")
		centerThreshold = flag.Float64("center-threshold", defaultCenterThreshold, "Dead zone half-width")
		maxTilt         = flag.Float64("max-tilt", defaultMaxTilt, "Tilt angle in degrees mapped to full deflection")
		snapEpsilon     = flag.Float64("snap-epsilon", defaultSnapEpsilon, "Snap-to-zero threshold")
		repaintHz       = flag.Int("repaint-hz", defaultRepaintHz, "Repaint frequency in Hz")
		skipUnchanged   = flag.Bool("skip-unchanged", false, "Suppress unchanged direction frames")
		httpListen      = flag.String("http-listen", defaultHTTPListenAddr, "HTTP/WebSocket listen address")
		staticDir       = flag.String("static-dir", "", "Directory served at /")
		ipcSocketPath   = flag.String("ipc-socket", defaultIPCSocketPath, "Unix domain socket path for IPC")
		x11Pointer      = flag.Bool("x11-pointer", false, "Track the X11 desktop pointer")
		touchDevice     = flag.String("touch-device", "", "Touchscreen input event device")
		accelDevice     = flag.String("accel-device", "", "Accelerometer input event device")
		permission      = flag.String("permission", permissionGateClient, "Orientation permission gate: none|device|client")
		logLevelStr     = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		showVersion     = flag.Bool("version", false, "Print version and exit")
		showHelp        = flag.Bool("help", false, "Print help message")
	)

	// Custom usage function
	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	// Defaults, then file, then explicitly set flags.
	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	var ov FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "ease-rate":
			ov.EaseRate = easeRate
		case "center-threshold":
			ov.CenterThreshold = centerThreshold
		case "max-tilt":
			ov.MaxTiltDeg = maxTilt
		case "snap-epsilon":
			ov.SnapEpsilon = snapEpsilon
		case "repaint-hz":
			ov.RepaintHz = repaintHz
		case "skip-unchanged":
			ov.SkipUnchanged = skipUnchanged
		case "http-listen":
			ov.HTTPListen = httpListen
		case "static-dir":
			ov.HTTPStaticDir = staticDir
		case "ipc-socket":
			ov.IPCSocketPath = ipcSocketPath
		case "x11-pointer":
			ov.X11Pointer = x11Pointer
		case "touch-device":
			ov.TouchDevice = touchDevice
		case "accel-device":
			ov.AccelerometerDevice = accelDevice
		case "permission":
			ov.Permission = permission
		case "log-level":
			ov.LogLevel = logLevelStr
		}
	})
	ov.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	// Parse and validate log level
	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(logLevel, os.Stdout)

	// Handle shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("parallaxd stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

// run wires every component and blocks until ctx is canceled or a component
// fails fatally.
func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	caps, err := DetectCapabilities(cfg.Capabilities, cfg.Inputs)
	if err != nil {
		return err
	}

	events := make(chan Event, defaultEventsBuffer)
	broadcasts := make(chan StateBroadcast, defaultBroadcastsBuffer)

	// Permission gate
	var gate PermissionGate
	var clientGate *ClientPermissionGate
	switch cfg.Orientation.Permission {
	case permissionGateNone:
		gate = NoPermissionGate{}
	case permissionGateDevice:
		gate = DevicePermissionGate{Path: cfg.Inputs.Accelerometer.Device}
	default:
		clientGate = NewClientPermissionGate(func(ctx context.Context, requestID string) error {
			select {
			case broadcasts <- BroadcastPermissionRequest{RequestID: requestID}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		gate = clientGate
	}

	// Local tilt source, started on the switch to orientation mode
	var orientation OrientationSource
	if cfg.Inputs.Accelerometer.Device != "" {
		orientation = &AccelerometerSource{
			Path:   cfg.Inputs.Accelerometer.Device,
			Invert: cfg.Inputs.Accelerometer.Invert,
			Sink:   events,
			Logger: logger,
		}
	}

	router := inboundRouter{events: events, gate: clientGate, logger: logger}

	wsServer := NewServer(logger, events, router, ServerConfig{Property: cfg.Publish.Property})
	httpHandler := buildRouter(cfg.HTTP, httpDeps{WS: wsServer, Events: events, Logger: logger})

	logger.Debug("starting parallaxd", "version", version)
	logger.Debug("configuration",
		"ease_rate", cfg.Controller.EaseRate,
		"center_threshold", cfg.Controller.CenterThreshold,
		"max_tilt_deg", cfg.Controller.MaxTiltDeg,
		"snap_epsilon", cfg.Controller.SnapEpsilon,
		"repaint_hz", cfg.Repaint.Hz,
		"skip_unchanged", cfg.Publish.SkipUnchanged,
		"permission", cfg.Orientation.Permission,
		"touch_capable", caps.Touch,
		"orientation_capable", caps.Orientation)

	g, ctx := errgroup.WithContext(ctx)

	// Daemon brain
	g.Go(func() error {
		runDaemon(ctx, events, NewDaemonState(caps), cfg.ToReducerConfig(), daemonDeps{
			Clock:       NewTickerClock(cfg.Repaint.Hz),
			Gate:        gate,
			Orientation: orientation,
			Broadcasts:  broadcasts,
		}, logger)
		return nil
	})

	// WebSocket fan-out
	g.Go(func() error {
		wsServer.Hub().Run(ctx)
		return nil
	})
	g.Go(func() error {
		RunBroadcaster(ctx, wsServer.Hub(), broadcasts, BroadcasterConfig{SkipUnchanged: cfg.Publish.SkipUnchanged}, logger)
		return nil
	})

	// HTTP server
	g.Go(func() error {
		return runHTTPServer(ctx, cfg.HTTP.Listen, httpHandler, logger)
	})

	// IPC server
	g.Go(func() error {
		return runIPCServer(ctx, cfg.IPC.SocketPath, router, logger)
	})

	// Local pointer / touch inputs. Failures here are logged, never fatal.
	if cfg.Inputs.X11Pointer.Enabled {
		q, err := newXgbPointer()
		if err != nil {
			logger.Warn("X11 pointer input disabled", "error", err)
		} else {
			g.Go(func() error {
				return runX11Pointer(ctx, q, cfg.Inputs.X11Pointer.PollHz, events, logger)
			})
		}
	}
	if cfg.Inputs.Touch.Device != "" {
		err := startEvdevReader(ctx, []evdevDevice{{
			Path:       cfg.Inputs.Touch.Device,
			Translator: newTouchTranslator(cfg.Inputs.Touch.AxisMax),
		}}, events, logger)
		if err != nil {
			logger.Warn("touch input disabled", "error", err, "tip", "run as root or add user to 'input' group")
		}
	}

	logger.Info("listening",
		"http", cfg.HTTP.Listen,
		"ws_path", cfg.HTTP.WSPath,
		"ipc", cfg.IPC.SocketPath,
		"repaint_hz", cfg.Repaint.Hz,
		"gyro_button", ShouldShowGyroButton(caps))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
