package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/riskibarqy/match-tracker/internal/app"
	"github.com/riskibarqy/match-tracker/internal/config"
	"github.com/riskibarqy/match-tracker/internal/observability"
	"github.com/riskibarqy/match-tracker/internal/platform/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	uptraceShutdown, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}

	pyroscopeStop, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}

	tracker, err := app.NewTracker(cfg, logger)
	if err != nil {
		logger.Error("build tracker", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracker.Countries.Ensure(ctx)

	logger.Info("tracker starting",
		"interval", cfg.CycleInterval,
		"workers", cfg.FetchWorkers,
	)

	if err := tracker.Service.Run(ctx, cfg.CycleInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("tracker stopped", "error", err)
	}

	tracker.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := uptraceShutdown(shutdownCtx); err != nil {
		logger.Error("uptrace shutdown failed", "error", err)
	}
	if err := pyroscopeStop(); err != nil {
		logger.Error("pyroscope stop failed", "error", err)
	}

	logger.Info("tracker stopped")
}
