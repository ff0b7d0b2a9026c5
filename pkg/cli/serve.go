package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashgrove/mimic/pkg/config"
	"github.com/ashgrove/mimic/pkg/engine"
	"github.com/ashgrove/mimic/pkg/logging"
	"github.com/ashgrove/mimic/pkg/metrics"
	"github.com/ashgrove/mimic/pkg/validation"

	_ "github.com/ashgrove/mimic/pkg/plugin/openapi"
	_ "github.com/ashgrove/mimic/pkg/plugin/rest"
)

func newServeCommand() *cobra.Command {
	var (
		dirs       []string
		addr       string
		logLevel   string
		logFormat  string
		logFile    string
		watch      bool
		metricsOn  bool
		globalSpec string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mock server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(dirs) == 0 {
				dirs = []string{"."}
			}
			return runServe(cmd.Context(), serveOptions{
				dirs:       dirs,
				addr:       addr,
				logLevel:   logLevel,
				logFormat:  logFormat,
				logFile:    logFile,
				watch:      watch,
				metrics:    metricsOn,
				globalSpec: globalSpec,
			})
		},
	}

	features := config.RuntimeConfigFromEnv().Features

	cmd.Flags().StringSliceVarP(&dirs, "dir", "d", nil, "configuration directory to load (repeatable, default \".\")")
	cmd.Flags().StringVarP(&addr, "addr", "p", ":8080", "address to listen on")
	cmd.Flags().StringVar(&logLevel, "log-level", envOr("MOCKD_LOG_LEVEL", "info"), "log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&logFormat, "log-format", envOr("MOCKD_LOG_FORMAT", "text"), "log format (text|json)")
	cmd.Flags().StringVar(&logFile, "log-file", envOr("MOCKD_LOG_FILE", ""), "additionally mirror logs as JSON to this file")
	cmd.Flags().BoolVar(&watch, "watch", true, "reload when configuration files change")
	cmd.Flags().BoolVar(&metricsOn, "metrics", features.Enabled("metrics", true), "expose Prometheus metrics on /metrics (also toggled by IMPOSTER_FEATURES)")
	cmd.Flags().StringVar(&globalSpec, "global-spec", "", "OpenAPI document validating every request/response regardless of matched plugin")

	return cmd
}

type serveOptions struct {
	dirs       []string
	addr       string
	logLevel   string
	logFormat  string
	logFile    string
	watch      bool
	metrics    bool
	globalSpec string
}

func runServe(ctx context.Context, opts serveOptions) error {
	logCfg := logging.Config{
		Level:  logging.ParseLevel(opts.logLevel),
		Format: logging.ParseFormat(opts.logFormat),
		Output: os.Stderr,
	}
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logCfg.TeeTo = f
	}
	logger := logging.New(logCfg)

	runtimeCfg := config.RuntimeConfigFromEnv()

	manager := engine.NewManager()
	manager.Logger = logger
	manager.RuntimeConfig = runtimeCfg
	if !runtimeCfg.Features.Enabled("stores", true) {
		manager.Stores = nil
	}

	metricsEnabled := opts.metrics && runtimeCfg.Features.Enabled("metrics", true)

	var registry *metrics.Registry
	if metricsEnabled {
		registry = metrics.NewRegistry()
		uptime := registry.NewGauge("mockd_uptime_seconds", "Seconds since the server started")
		collector := metrics.NewRuntimeCollector(registry, uptime)
		stopCollector := collector.StartCollector(15 * time.Second)
		defer stopCollector()
		manager.Metrics = registry
	}

	loadErrors, err := manager.Load(opts.dirs)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	for _, le := range loadErrors {
		logger.Warn("configuration document skipped", "path", le.Path, "message", le.Message, "error", le.Err)
	}

	svc := engine.NewService(manager, registry)

	mux := http.NewServeMux()
	if registry != nil {
		mux.Handle("/metrics", registry.Handler())
	}

	var handler http.Handler = svc
	if opts.globalSpec != "" {
		handler, err = wrapWithGlobalValidation(handler, opts.globalSpec)
		if err != nil {
			return fmt.Errorf("global spec validation: %w", err)
		}
	}
	mux.Handle("/", handler)

	server := &http.Server{Addr: opts.addr, Handler: mux}

	var stopWatch func()
	if opts.watch {
		stopWatch = watchAndReload(manager, opts.dirs, logger)
		defer stopWatch()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mockd listening", "addr", opts.addr, "dirs", opts.dirs)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	select {
	case <-sigCtx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

// watchAndReload polls dirs for configuration changes and reloads the
// manager on every change, returning a function that stops the
// watchers.
func watchAndReload(manager *engine.Manager, dirs []string, logger *slog.Logger) func() {
	watchers := make([]*config.Watcher, 0, len(dirs))
	for _, dir := range dirs {
		loader := config.NewDirectoryLoader(dir)
		if _, err := loader.Load(); err != nil {
			logger.Warn("watch setup failed", "dir", dir, "error", err)
			continue
		}
		w := config.NewWatcher(loader)
		events := w.Start()
		watchers = append(watchers, w)
		go func(dir string, events <-chan config.WatchEvent) {
			for ev := range events {
				if ev.Error != nil {
					logger.Warn("watch poll failed", "dir", dir, "error", ev.Error)
					continue
				}
				logger.Info("configuration changed, reloading", "dir", dir, "path", ev.Path)
				if _, err := manager.Load(dirs); err != nil {
					logger.Warn("reload failed", "dir", dir, "error", err)
				}
			}
		}(dir, events)
	}
	return func() {
		for _, w := range watchers {
			w.Stop()
		}
	}
}

// wrapWithGlobalValidation wraps handler with a validation.Middleware
// that checks every request and response against specFile, independent
// of which plugin or resource matched. This is a coarser check than the
// per-resource openapi plugin's contract validation: it catches
// responses served by resources or plugins that never declared their
// own OpenAPI document.
func wrapWithGlobalValidation(handler http.Handler, specFile string) (http.Handler, error) {
	validator, err := validation.NewOpenAPIValidator(&validation.ValidationConfig{
		Enabled:          true,
		SpecFile:         specFile,
		ValidateRequest:  true,
		ValidateResponse: true,
		FailOnError:      true,
	})
	if err != nil {
		return nil, err
	}
	return validation.NewMiddleware(handler, validator, &validation.ValidationConfig{
		Enabled:          true,
		ValidateRequest:  true,
		ValidateResponse: true,
		FailOnError:      true,
	}), nil
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
