// Package main is the entry point for the egress gateway daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vyrodovalexey/avegress/internal/config"
	"github.com/vyrodovalexey/avegress/internal/gateway"
	"github.com/vyrodovalexey/avegress/internal/observability"
	"github.com/vyrodovalexey/avegress/internal/transport"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadConfig(flags.configPath, logger)
	app := initApplication(cfg, logger)

	run(app, flags.configPath, logger)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("EGRESS_CONFIG_PATH", ""),
		"Path to configuration file (built-in defaults when empty)")
	logLevel := flag.String("log-level", getEnvOrDefault("EGRESS_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("EGRESS_LOG_FORMAT", "json"),
		"Log format (json, console)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information and exits.
func printVersion() {
	fmt.Printf("avegress version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// loadConfig loads the configuration from file, environment, and defaults.
// An empty path skips the file layer.
func loadConfig(configPath string, logger observability.Logger) *config.Config {
	logger.Info("starting avegress",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	if configPath == "" {
		cfg := config.Default()
		cfg.ApplyEnv()
		if err := cfg.Validate(); err != nil {
			logger.Fatal("invalid configuration", observability.Error(err))
		}
		return cfg
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}

	logger.Info("configuration loaded",
		observability.String("request_timeout", cfg.Gateway.RequestTimeout.Duration().String()),
		observability.Bool("breaker_enabled",
			cfg.Gateway.Breaker.Enabled == nil || *cfg.Gateway.Breaker.Enabled),
		observability.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		observability.Bool("admin_enabled", cfg.Admin.Enabled),
	)

	return cfg
}

// application holds all application components.
type application struct {
	gateway   *gateway.Gateway
	transport *transport.HTTPTransport
	tracer    *observability.Tracer
	admin     *adminServer
	config    *config.Config
}

// initApplication initializes all application components.
func initApplication(cfg *config.Config, logger observability.Logger) *application {
	tracer := initTracer(cfg, logger)

	httpTransport := transport.NewHTTPTransport(transport.DefaultPoolConfig())

	gw := gateway.New(cfg, httpTransport,
		gateway.WithLogger(logger),
		gateway.WithTracer(tracer),
	)

	app := &application{
		gateway:   gw,
		transport: httpTransport,
		tracer:    tracer,
		config:    cfg,
	}

	if cfg.Admin.Enabled {
		app.admin = newAdminServer(cfg.Admin.Addr, gw, logger)
	}

	return app
}

// initTracer initializes the tracer.
func initTracer(cfg *config.Config, logger observability.Logger) *observability.Tracer {
	tracerCfg := observability.DefaultTracerConfig()
	tracerCfg.Enabled = cfg.Tracing.Enabled
	tracerCfg.OTLPEndpoint = cfg.Tracing.OTLPEndpoint
	if cfg.Tracing.ServiceName != "" {
		tracerCfg.ServiceName = cfg.Tracing.ServiceName
	}
	if cfg.Tracing.SamplingRate > 0 {
		tracerCfg.SamplingRate = cfg.Tracing.SamplingRate
	}

	tracer, err := observability.NewTracer(tracerCfg)
	if err != nil {
		logger.Fatal("failed to initialize tracer", observability.Error(err))
	}

	return tracer
}

// run starts the admin surface and the config watcher, then waits for
// shutdown.
func run(app *application, configPath string, logger observability.Logger) {
	if app.admin != nil {
		app.admin.start()
	}

	watcher := startConfigWatcher(app, configPath, logger)

	waitForShutdown(app, watcher, logger)
}

// startConfigWatcher starts the configuration watcher when a config file
// is in use.
func startConfigWatcher(
	app *application,
	configPath string,
	logger observability.Logger,
) *config.Watcher {
	if configPath == "" {
		return nil
	}

	watcher, err := config.NewWatcher(configPath, func(newCfg *config.Config) {
		logger.Info("configuration changed, reloading")
		app.gateway.UpdateConfig(newCfg)
	}, config.WithWatcherLogger(logger))

	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(context.Background()); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
	}

	return watcher
}

// waitForShutdown waits for a shutdown signal and performs graceful
// shutdown.
func waitForShutdown(app *application, watcher *config.Watcher, logger observability.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", observability.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if watcher != nil {
		_ = watcher.Stop()
	}

	if app.admin != nil {
		if err := app.admin.stop(shutdownCtx); err != nil {
			logger.Error("failed to stop admin server gracefully", observability.Error(err))
		}
	}

	app.transport.CloseIdleConnections()

	if err := app.tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	logger.Info("egress gateway stopped")
}
