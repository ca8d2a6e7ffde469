// Package webrunner serves the import API and, when Redis is configured,
// processes queued imports in the same process.
package webrunner

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/coffeed/coffeed-admin/redis"
	redisconfig "github.com/coffeed/coffeed-admin/redis/config"
	"github.com/coffeed/coffeed-admin/redis/tasks"
	"github.com/coffeed/coffeed-admin/runner"
	"github.com/coffeed/coffeed-admin/web"
)

type webrunner struct {
	cfg      *runner.Config
	deps     *runner.Deps
	webCfg   web.Config
	redisCfg *redisconfig.RedisConfig
	client   *redis.Client
	logger   *zap.Logger
}

func New(ctx context.Context, cfg *runner.Config, logger *zap.Logger) (runner.Runner, error) {
	if cfg.RunMode != runner.RunModeWeb {
		return nil, fmt.Errorf("%w: %d", runner.ErrInvalidRunMode, cfg.RunMode)
	}

	deps, err := runner.BuildDeps(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	ans := &webrunner{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		webCfg: web.Config{
			Addr:     cfg.Addr,
			Debug:    cfg.Debug,
			Resolver: deps.Resolver,
			Importer: deps.Importer,
			Settings: deps.Settings,
			Checks:   map[string]web.HealthCheck{},
			Logger:   logger,
		},
	}

	if deps.DB != nil {
		ans.webCfg.Checks["database"] = deps.PingDB
	}

	if deps.Shops != nil {
		ans.webCfg.Shops = deps.Shops
	}

	if redisconfig.Enabled() {
		redisCfg, err := redisconfig.NewRedisConfig()
		if err != nil {
			_ = deps.Close()
			return nil, fmt.Errorf("invalid redis configuration: %w", err)
		}

		client, err := redis.NewClient(redisCfg)
		if err != nil {
			_ = deps.Close()
			return nil, err
		}

		ans.redisCfg = redisCfg
		ans.client = client
		ans.webCfg.Queue = client
		ans.webCfg.Checks["redis"] = func(context.Context) error {
			return client.Ping()
		}
	}

	return ans, nil
}

func (w *webrunner) Run(ctx context.Context) error {
	egroup, ctx := errgroup.WithContext(ctx)

	egroup.Go(func() error {
		return web.Start(ctx, w.webCfg)
	})

	if w.redisCfg != nil {
		egroup.Go(func() error {
			handler := tasks.NewHandler(w.deps.Importer,
				tasks.WithTaskTimeout(w.redisCfg.TaskTimeout),
				tasks.WithLogger(w.logger),
			)

			return redis.NewServer(w.redisCfg, w.logger).Run(ctx, handler)
		})
	}

	return egroup.Wait()
}

func (w *webrunner) Close(context.Context) error {
	var err error

	if w.client != nil {
		err = w.client.Close()
	}

	if cerr := w.deps.Close(); cerr != nil && err == nil {
		err = cerr
	}

	return err
}
