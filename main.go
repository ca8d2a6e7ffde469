package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/coffeed/coffeed-admin/runner"
	"github.com/coffeed/coffeed-admin/runner/resolverunner"
	"github.com/coffeed/coffeed-admin/runner/webrunner"
	"github.com/coffeed/coffeed-admin/runner/workerrunner"
)

func main() {
	_ = godotenv.Load() // Load .env file if present

	cfg, err := runner.ParseConfig(os.Args[1:])
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	runner.Banner(cfg)

	logger, err := runner.NewLogger(cfg.Debug)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := run(ctx, cfg, logger)

	cancel()

	runner.Telemetry().Close()

	_ = logger.Sync()

	os.Exit(code)
}

func run(ctx context.Context, cfg *runner.Config, logger *zap.Logger) int {
	runnerInstance, err := runnerFactory(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", zap.Error(err))
		return 1
	}

	defer func() {
		if err := runnerInstance.Close(context.Background()); err != nil {
			logger.Warn("failed to close runner", zap.Error(err))
		}
	}()

	if err := runnerInstance.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("runner failed", zap.Error(err))
		return 1
	}

	logger.Info("shutting down")

	return 0
}

func runnerFactory(ctx context.Context, cfg *runner.Config, logger *zap.Logger) (runner.Runner, error) {
	switch cfg.RunMode {
	case runner.RunModeResolve:
		return resolverunner.New(ctx, cfg, logger)
	case runner.RunModeWeb:
		return webrunner.New(ctx, cfg, logger)
	case runner.RunModeWorker:
		return workerrunner.New(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %d", runner.ErrInvalidRunMode, cfg.RunMode)
	}
}
