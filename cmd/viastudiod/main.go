package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const version = "0.3.0"

func printVersion() {
	fmt.Printf("viastudiod v%s\n", version)
	fmt.Println("Point-to-point via-point playback daemon for joint articulations")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  viastudiod [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Plays stored via-point trajectories through a cubic Hermite window,")
	fmt.Println("  one segment at a time, and captures new via-points from the live")
	fmt.Println("  articulation. Controlled over a Unix socket (viactl), a teach pendant")
	fmt.Println("  input device, and observed over a state WebSocket.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (optional)")
	fmt.Println()
	fmt.Println("  -physics-hz int")
	fmt.Printf("        Physics/scheduler rate in Hz (default %d)\n", defaultPhysicsHz)
	fmt.Println()
	fmt.Println("  -fixed-step")
	fmt.Println("        Feed exactly 1/physics-hz to the scheduler (default true)")
	fmt.Println()
	fmt.Println("  -actuator string")
	fmt.Println("        Actuator backend: sim|plc (default \"sim\")")
	fmt.Println()
	fmt.Println("  -plc-host string")
	fmt.Println("        S7 PLC address (plc backend)")
	fmt.Println()
	fmt.Println("  -store string")
	fmt.Println("        Trajectory store backend: file|redis (default \"file\")")
	fmt.Println()
	fmt.Println("  -store-dir string")
	fmt.Println("        Trajectory directory (file store)")
	fmt.Println()
	fmt.Println("  -redis-addr string")
	fmt.Println("        Redis address (redis store)")
	fmt.Println()
	fmt.Println("  -input-device string")
	fmt.Println("        Teach pendant input device; enables input")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Println("        Unix domain socket path for IPC (default \"/tmp/viastudio.sock\")")
	fmt.Println()
	fmt.Println("  -state-ws-listen string")
	fmt.Println("        State WebSocket listen address (default \":3002\")")
	fmt.Println()
	fmt.Println("  -discovery")
	fmt.Println("        Advertise the state WebSocket over mDNS")
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
	fmt.Println("  # Simulated articulation, trajectories under ~/.local/share/viastudio")
	fmt.Println("  viastudiod")
	fmt.Println()
	fmt.Println("  # Drive a PLC, keep trajectories in redis")
	fmt.Println("  viastudiod -actuator plc -plc-host 192.168.0.10 -store redis")
	fmt.Println()
	fmt.Println("  # Play a trajectory")
	fmt.Println("  viactl play demo")
	fmt.Println()
}

func main() {
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

	var (
		configPath = flag.String("config", "", "Path to YAML config file")

		physicsHz = flag.Int("physics-hz", defaultPhysicsHz, "Physics/scheduler rate in Hz")
		fixedStep = flag.Bool("fixed-step", true, "Feed exactly 1/physics-hz to the scheduler")

		actuatorBackend = flag.String("actuator", actuatorBackendSim, "Actuator backend: sim|plc")
		plcHost         = flag.String("plc-host", "", "S7 PLC address")

		storeBackend = flag.String("store", storeBackendFile, "Trajectory store backend: file|redis")
		storeDir     = flag.String("store-dir", "", "Trajectory directory (file store)")
		redisAddr    = flag.String("redis-addr", "", "Redis address (redis store)")

		inputDevice = flag.String("input-device", "", "Teach pendant input device; enables input")

		ipcSocketPath = flag.String("ipc-socket", "/tmp/viastudio.sock", "Unix domain socket path for IPC")
		stateWSListen = flag.String("state-ws-listen", ":3002", "State WebSocket listen address")
		discovery     = flag.Bool("discovery", false, "Advertise the state WebSocket over mDNS")

		logLevelStr = flag.String("log-level", "info", "Log level: error, warn, info, debug")
	)

	flag.Usage = printUsage
	flag.Parse()

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Only flags given on the command line override the config file.
	var o FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "physics-hz":
			o.PhysicsHz = physicsHz
		case "fixed-step":
			o.FixedStep = fixedStep
		case "actuator":
			o.ActuatorBackend = actuatorBackend
		case "plc-host":
			o.PLCHost = plcHost
		case "store":
			o.StoreBackend = storeBackend
		case "store-dir":
			o.StoreDir = storeDir
		case "redis-addr":
			o.RedisAddr = redisAddr
		case "input-device":
			o.InputDevice = inputDevice
		case "ipc-socket":
			o.IPCSocketPath = ipcSocketPath
		case "state-ws-listen":
			o.StateWSListen = stateWSListen
		case "discovery":
			o.Discovery = discovery
		case "log-level":
			o.LogLevel = logLevelStr
		}
	})
	o.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error: invalid config:", err)
		os.Exit(1)
	}

	logLevel, _ := parseLogLevel(cfg.Logging.Level)
	logger := setupLogger(os.Stdout, logLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("viastudiod exited with error", "error", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until a signal arrives or one of them
// fails.
func run(cfg Config, logger *slog.Logger) (err error) {
	logger.Debug("starting viastudiod", "version", version)

	actuator, err := newActuator(cfg, logger.With("component", "actuator"))
	if err != nil {
		return fmt.Errorf("actuator: %w", err)
	}
	defer func() { err = multierr.Append(err, actuator.Close()) }()

	store, err := newTrajectoryStore(cfg.Store, logger.With("component", "store"))
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	if names, lerr := store.List(); lerr != nil {
		logger.Warn("could not list trajectories", "error", lerr)
	} else {
		logger.Info("trajectories available", "count", len(names), "names", names)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events := make(chan Event, 64)
	// Broadcasts only have a consumer when the state WebSocket runs.
	var broadcasts chan StateBroadcast
	if cfg.StateWS.Enabled {
		broadcasts = make(chan StateBroadcast, 256)
	}

	sched := NewScheduler()
	studio := NewStudio(StudioConfig{
		JointNames:       cfg.Robot.JointNames,
		CaptureDurationS: cfg.Capture.DefaultDurationS,
	}, sched, actuator, store, broadcasts, logger.With("component", "studio"))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		runDaemon(gctx, events, studio, sched, cfg.Scheduler, logger.With("component", "daemon"))
		return nil
	})

	g.Go(func() error {
		return runIPCServer(gctx, cfg.IPC.SocketPath, events, logger.With("component", "ipc"))
	})

	if cfg.StateWS.Enabled {
		wsLogger := logger.With("component", "state_ws")
		srv := NewServer(wsLogger, events, ServerConfig{})
		mux := http.NewServeMux()
		srv.Register(mux, cfg.StateWS.Path)

		httpSrv := &http.Server{
			Addr:              cfg.StateWS.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			srv.Hub().Run(gctx)
			return nil
		})
		g.Go(func() error {
			RunBroadcaster(gctx, srv.Hub(), broadcasts, wsLogger)
			return nil
		})
		g.Go(func() error {
			wsLogger.Info("state websocket listening", "addr", cfg.StateWS.Listen, "path", cfg.StateWS.Path)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("state websocket: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})
	} else {
		logger.Info("state websocket disabled")
	}

	if cfg.Input.Enabled {
		g.Go(func() error {
			return runInput(gctx, cfg.Input, events, logger.With("component", "input"))
		})
	}

	if cfg.Discovery.Enabled {
		g.Go(func() error {
			return runDiscovery(gctx, cfg, logger.With("component", "discovery"))
		})
	}

	logger.Info("listening",
		"ipc", cfg.IPC.SocketPath,
		"actuator", cfg.Actuator.Backend,
		"store", cfg.Store.Backend,
		"physics_hz", cfg.Scheduler.PhysicsHz,
		"joints", len(cfg.Robot.JointNames),
		"input", cfg.Input.Enabled,
		"discovery", cfg.Discovery.Enabled)

	err = g.Wait()
	logger.Info("shutting down")
	return err
}
