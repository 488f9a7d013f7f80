package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oicur0t/hal/internal/alert"
	"github.com/oicur0t/hal/internal/config"
	"github.com/oicur0t/hal/internal/dispatch"
	"github.com/oicur0t/hal/internal/metrics"
	"github.com/oicur0t/hal/internal/monitor"
	"github.com/oicur0t/hal/internal/notify"
	"github.com/oicur0t/hal/internal/param"
	"github.com/oicur0t/hal/internal/reader"
	"github.com/oicur0t/hal/internal/server"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configPath := pflag.StringP("config", "c", "/etc/hal/hal.yaml", "Path to configuration file")
	once := pflag.Bool("once", false, "Run a single cycle and exit")
	check := pflag.Bool("check", false, "Validate the configuration, print the parameter catalog and exit")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, logSink, err := initLogger(logOptions{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		File:    cfg.LogFile,
		MaxSize: cfg.LogMaxSize,
		MaxAge:  cfg.LogMaxAge,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	if logSink != nil {
		defer logSink.Close()
	}

	reg, err := loadRegistry(cfg.ParametersFile)
	if err != nil {
		logger.Fatal("Failed to load parameters", zap.Error(err))
	}

	if *check {
		printCatalog(os.Stdout, cfg.LogFolder, reg, time.Now())
		return
	}

	logger.Info("Starting HAL",
		zap.String("log_folder", cfg.LogFolder),
		zap.String("dashboard", cfg.Dashboard.Backend),
		zap.Int("parameters", reg.Len()),
		zap.Duration("poll_interval", cfg.PollInterval))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received signal, stopping after the current cycle", zap.String("signal", sig.String()))
		cancel()

		sig = <-sigChan
		logger.Error("Forced shutdown", zap.String("signal", sig.String()))
		os.Exit(1)
	}()

	if logSink != nil && cfg.LogRotate > 0 {
		go rotateEvery(ctx, logSink, cfg.LogRotate, logger)
	}

	m := metrics.NewMetrics("hal")
	promRegistry := metrics.NewRegistry()
	if err := m.Register(promRegistry); err != nil {
		logger.Fatal("Failed to register metrics", zap.Error(err))
	}

	var metricsServer *server.Server
	if cfg.Metrics.Enabled {
		metricsServer = server.New(server.Config{
			ListenAddress: cfg.Metrics.ListenAddress,
			ReadTimeout:   cfg.Metrics.ReadTimeout,
			WriteTimeout:  cfg.Metrics.WriteTimeout,
		}, promRegistry, logger)
		go func() {
			if err := <-metricsServer.Start(); err != nil {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	backend, err := openDashboard(ctx, cfg, reg, logger)
	if err != nil {
		logger.Fatal("Failed to open dashboard", zap.Error(err))
	}

	opts := []monitor.Option{monitor.WithMetrics(m)}
	if cfg.Slack.Enabled {
		creds, err := notify.LoadCredentials(cfg.Slack.TokenFile)
		if err != nil {
			logger.Fatal("Failed to load Slack credentials", zap.Error(err))
		}
		gate := alert.NewGate(
			notify.NewSlack(creds, cfg.Slack.APIURL, logger),
			alert.Config{RemindInterval: cfg.Alert.RemindInterval, RetryDelay: cfg.Alert.RetryDelay},
			logger,
			alert.WithMetrics(m),
		)
		opts = append(opts, monitor.WithAlerter(gate))
	} else {
		logger.Warn("Slack alerts disabled")
	}

	r := reader.New(cfg.LogFolder, reg, logger, reader.WithMetrics(m))
	d := dispatch.New(reg, backend, dispatch.Config{
		RetryDelay:   cfg.RetryDelay,
		RequestDelay: cfg.RequestDelay,
	}, logger, dispatch.WithMetrics(m))
	mon := monitor.New(r, d, cfg.PollInterval, logger, opts...)

	if *once {
		err = mon.RunOnce(ctx)
	} else {
		err = mon.Run(ctx)
	}
	if err != nil {
		logger.Error("Main loop failed", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Metrics.ShutdownTimeout)
	defer shutdownCancel()

	if err := backend.Close(shutdownCtx); err != nil {
		logger.Error("Failed to close dashboard", zap.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	logger.Info("HAL stopped")
	if err != nil {
		os.Exit(1)
	}
}

// loadRegistry reads the catalog file, or uses the built-in catalog
func loadRegistry(path string) (*param.Registry, error) {
	if path != "" {
		return param.LoadFile(path)
	}
	return param.NewRegistry(param.Default()...)
}
