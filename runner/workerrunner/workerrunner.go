// Package workerrunner processes queued imports from Redis.
package workerrunner

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/coffeed/coffeed-admin/redis"
	"github.com/coffeed/coffeed-admin/redis/config"
	"github.com/coffeed/coffeed-admin/redis/tasks"
	"github.com/coffeed/coffeed-admin/runner"
)

var ErrRedisNotConfigured = errors.New("worker mode requires REDIS_URL or REDIS_HOST")

type workerRunner struct {
	deps     *runner.Deps
	redisCfg *config.RedisConfig
	server   *redis.Server
	logger   *zap.Logger
}

func New(ctx context.Context, cfg *runner.Config, logger *zap.Logger) (runner.Runner, error) {
	if cfg.RunMode != runner.RunModeWorker {
		return nil, fmt.Errorf("%w: %d", runner.ErrInvalidRunMode, cfg.RunMode)
	}

	if !config.Enabled() {
		return nil, ErrRedisNotConfigured
	}

	redisCfg, err := config.NewRedisConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid redis configuration: %w", err)
	}

	deps, err := runner.BuildDeps(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &workerRunner{
		deps:     deps,
		redisCfg: redisCfg,
		server:   redis.NewServer(redisCfg, logger),
		logger:   logger,
	}, nil
}

func (w *workerRunner) Run(ctx context.Context) error {
	w.logger.Info("starting import worker",
		zap.String("redis", w.redisCfg.Addr()),
		zap.Int("workers", w.redisCfg.Workers),
		zap.Bool("persist", w.deps.Importer.CanPersist()),
	)

	handler := tasks.NewHandler(w.deps.Importer,
		tasks.WithTaskTimeout(w.redisCfg.TaskTimeout),
		tasks.WithLogger(w.logger),
	)

	return w.server.Run(ctx, handler)
}

func (w *workerRunner) Close(context.Context) error {
	return w.deps.Close()
}
