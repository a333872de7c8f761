package run

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // by design
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/mpapenbr/ovalrace/log"
	"github.com/mpapenbr/ovalrace/pkg/config"
	"github.com/mpapenbr/ovalrace/pkg/input"
	"github.com/mpapenbr/ovalrace/pkg/publish"
	"github.com/mpapenbr/ovalrace/pkg/publish/codec"
	natspub "github.com/mpapenbr/ovalrace/pkg/publish/nats"
	"github.com/mpapenbr/ovalrace/pkg/server"
	"github.com/mpapenbr/ovalrace/pkg/utils"
)

var appConfig = config.DefaultConfig() // holds processed config values

//nolint:funlen // by design
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "runs the simulation",
		Long: `Runs the simulation headless.
Without --script key events are read from stdin: "+w" presses w, "-w" releases it, "0" releases all keys.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&appConfig.FPS, "fps", appConfig.FPS,
		"frames per second")
	cmd.Flags().StringVar(&appConfig.FrameMode, "frame-mode", appConfig.FrameMode,
		"fixed: one step per frame, scaled: scale steps by measured frame time")
	cmd.Flags().BoolVar(&appConfig.Realtime, "realtime", appConfig.Realtime,
		"pace frames with the wall clock, false runs as fast as possible")
	cmd.Flags().Uint64Var(&appConfig.MaxTicks, "max-ticks", 0,
		"stop after this number of ticks (0 = unlimited)")
	cmd.Flags().StringVar(&appConfig.Script, "script", "",
		"drive script to replay instead of reading key events from stdin")
	cmd.Flags().StringVar(&appConfig.NatsURL, "nats-url", "",
		"publish to this NATS server (empty = disabled)")
	cmd.Flags().StringVar(&appConfig.StateBucket, "state-bucket", "",
		"keep the latest state in this jetstream key value bucket")
	cmd.Flags().StringVar(&appConfig.PublishFormat, "publish-format", appConfig.PublishFormat,
		"payload format (json, proto)")
	cmd.Flags().IntVar(&appConfig.StateEvery, "state-every", appConfig.StateEvery,
		"publish the state every n ticks")
	cmd.Flags().StringVar(&appConfig.HTTPAddr, "http-addr", "",
		"listen address of the state server (empty = disabled)")
	cmd.Flags().StringVar(&appConfig.Session, "session", "",
		"session id (default: generated)")

	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"json",
		"controls the log output format (json, text)")
	cmd.Flags().StringVar(&config.LogConfig,
		"log-config",
		"",
		"log filter rules, e.g. \"info:* debug:sim.*\"")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data (\"stdout\" for console)")
	cmd.Flags().StringVar(&config.WaitForServices,
		"wait-for-services",
		"15s",
		"Duration to wait for other services to be ready")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	return cmd
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

func setupLogger() error {
	var logger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		logger = log.DevLogger(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.DebugLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
	if config.LogConfig != "" {
		filtered, err := logger.WithFilter(config.LogConfig)
		if err != nil {
			return fmt.Errorf("log config: %w", err)
		}
		logger = filtered
	}
	log.ResetDefault(logger)
	return nil
}

//nolint:funlen,cyclop // by design
func runSimulation(ctx context.Context) error {
	if err := setupLogger(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if appConfig.Session == "" {
		appConfig.Session = uuid.NewString()
	}
	log.Debug("Config:",
		log.String("session", appConfig.Session),
		log.Any("config", appConfig))

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // by design
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		if telemetry, err := config.SetupTelemetry(ctx); err == nil {
			defer telemetry.Shutdown()
		} else {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err := otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	src, err := inputSource(ctx)
	if err != nil {
		return err
	}
	pub, err := publisher(ctx)
	if err != nil {
		return err
	}

	var opts []runnerOption
	if appConfig.HTTPAddr != "" {
		srv := server.NewStateServer(
			server.WithAddr(appConfig.HTTPAddr),
			server.WithSession(appConfig.Session))
		go func() {
			if err := srv.Start(ctx); err != nil {
				log.Error("state server stopped", log.ErrorField(err))
			}
		}()
		opts = append(opts, withStateServer(srv))
	}

	r, err := newRunner(appConfig, src, pub, opts...)
	if err != nil {
		return err
	}
	_, err = r.run(ctx)
	return err
}

func inputSource(ctx context.Context) (input.Source, error) {
	if appConfig.Script != "" {
		script, err := input.LoadScript(appConfig.Script)
		if err != nil {
			return nil, err
		}
		if ignored := script.Ignored(); len(ignored) > 0 {
			log.Warn("script contains unknown keys", log.Any("keys", ignored))
		}
		log.Info("replaying script",
			log.String("name", script.Name()),
			log.Int("ticks", script.Ticks()))
		return script, nil
	}
	ks := input.NewKeyState()
	go func() {
		if err := input.ReadKeyEvents(ctx, os.Stdin, ks); err != nil {
			log.Warn("reading key events", log.ErrorField(err))
		}
	}()
	return ks, nil
}

func publisher(ctx context.Context) (publish.Publisher, error) {
	pubs := publish.Multi{publish.NewLog(appConfig.Session, log.Default().Named("publish"))}
	if appConfig.NatsURL == "" {
		return pubs, nil
	}
	c, err := codec.New(appConfig.PublishFormat)
	if err != nil {
		return nil, err
	}
	if err := waitForRequiredServices(ctx); err != nil {
		return nil, err
	}
	conn, err := nats.Connect(appConfig.NatsURL, nats.Name("ovalrace"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	natsOpts := []natspub.Option{natspub.WithLogger(log.Default().Named("nats"))}
	if appConfig.StateBucket != "" {
		kv, err := natspub.StateBucket(ctx, conn, appConfig.StateBucket)
		if err != nil {
			conn.Close()
			return nil, err
		}
		natsOpts = append(natsOpts, natspub.WithStateBucket(kv))
	}
	log.Info("publishing to nats",
		log.String("url", appConfig.NatsURL),
		log.String("format", string(c.Format())))
	return append(pubs, &closingPublisher{
		Publisher: natspub.NewPublisher(conn, appConfig.Session, c, natsOpts...),
		conn:      conn,
	}), nil
}

func waitForRequiredServices(ctx context.Context) error {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	if addr := utils.ExtractFromNatsURL(appConfig.NatsURL); addr != "" {
		return utils.WaitForTCP(ctx, addr, timeout)
	}
	return nil
}

// closingPublisher closes the connection it owns after the publisher
type closingPublisher struct {
	publish.Publisher
	conn *nats.Conn
}

func (p *closingPublisher) Close() error {
	defer p.conn.Close()
	return p.Publisher.Close()
}
