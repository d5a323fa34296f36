// noip-updater keeps No-IP hostnames pointed at this host. It sends an
// update request to the provider on a fixed interval and stops on the first
// answer that says retrying would not help.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gitlab.bluewillows.net/root/noip-updater/internal/config"
	"gitlab.bluewillows.net/root/noip-updater/internal/health"
	"gitlab.bluewillows.net/root/noip-updater/internal/metrics"
	"gitlab.bluewillows.net/root/noip-updater/internal/updater"
	"gitlab.bluewillows.net/root/noip-updater/pkg/httputil"
	"gitlab.bluewillows.net/root/noip-updater/pkg/noip"
)

// Version and BuildDate are set via ldflags during build.
// Example: -ldflags="-X main.Version=v1.0.0 -X main.BuildDate=2026-01-03"
var (
	Version   = "dev"
	BuildDate = "unknown"
)

// shutdownGrace bounds how long in-flight work may run after a signal.
const shutdownGrace = 5 * time.Second

type options struct {
	configPath string
	once       bool
}

func main() {
	slog.SetDefault(setupLogger(config.DefaultLogLevel, config.DefaultLogFormat))
	os.Exit(execute(newRootCmd(), os.Args[1:]))
}

// execute runs cmd and logs the error it returns, including usage errors
// cobra reports before run starts. It returns the process exit code.
func execute(cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "noip-updater",
		Short:         "No-IP dynamic DNS update agent",
		Long:          `noip-updater periodically tells No-IP the current address of one or more hostnames.`,
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildDate),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file, YAML or TOML (default $"+config.EnvConfig+")")
	cmd.Flags().BoolVar(&opts.once, "once", false, "run a single update and exit")

	return cmd
}

func run(parent context.Context, opts *options) error {
	if parent == nil {
		parent = context.Background()
	}

	path := opts.configPath
	if path == "" {
		path = config.GetConfigFilePath()
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	metrics.SetBuildInfo(Version, runtime.Version())

	logger.Info("noip-updater starting",
		slog.String("version", Version),
		slog.String("build_date", BuildDate),
		slog.String("go_version", runtime.Version()),
		slog.Any("hostnames", cfg.HostnameList()),
		slog.Duration("interval", cfg.Interval),
		slog.Bool("once", opts.once),
	)

	sched, err := newScheduler(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.once {
		if err := sched.RunOnce(ctx); err != nil {
			return err
		}
		logger.Info("update complete")
		return nil
	}

	var healthServer *health.Server
	if cfg.HealthPort > 0 {
		healthServer = health.New(cfg.HealthPort,
			health.WithLogger(logger),
			health.WithStatus(func() any { return sched.Status() }),
		)
		healthServer.RegisterChecker("updater", sched.Ready)
		healthServer.RegisterDegradedChecker("updater", sched.Degraded)

		if err := healthServer.Start(); err != nil {
			return fmt.Errorf("starting health server: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx, cfg.Interval)
	})
	if healthServer != nil {
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := healthServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("health server shutdown error", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if err := wait(ctx, g, logger); err != nil {
		return err
	}

	logger.Info("noip-updater shutdown complete")
	return nil
}

// newScheduler wires the configured credential and query into a scheduler.
func newScheduler(cfg *config.Config, logger *slog.Logger) (*updater.Scheduler, error) {
	cred, err := noip.NewCredential(cfg.Endpoint(), cfg.Username, cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("creating credential: %w", err)
	}

	query, err := noip.BuildQuery(cfg.HostnamesValue(), cfg.MyIP, cfg.Offline)
	if err != nil {
		return nil, fmt.Errorf("building update query: %w", err)
	}

	httpClient := httputil.NewClient(&httputil.ClientConfig{
		Timeout: cfg.RequestTimeout,
		Logger:  logger,
	})

	client := noip.NewClient(cred, query,
		noip.WithHTTPClient(httpClient),
		noip.WithLogger(logger),
	)

	return updater.New(client,
		updater.WithLogger(logger),
		updater.WithRecorder(metrics.Recorder{KnownVerb: noip.Known}),
	), nil
}

// wait blocks until the group finishes. Once ctx is cancelled the group
// gets shutdownGrace to finish before wait gives up on it.
func wait(ctx context.Context, g *errgroup.Group, logger *slog.Logger) error {
	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal, shutting down...")
	}

	select {
	case err := <-done:
		return err
	case <-time.After(shutdownGrace):
		return errors.New("shutdown grace period exceeded")
	}
}

func setupLogger(level, format string) *slog.Logger {
	logLevel := parseLogLevel(level)

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}

	return slog.New(handler)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
