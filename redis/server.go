package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/coffeed/coffeed-admin/redis/config"
	"github.com/coffeed/coffeed-admin/redis/tasks"
)

// Server runs import tasks from the queue.
type Server struct {
	server *asynq.Server
	logger *zap.Logger
}

// NewServer creates a new queue server with the provided configuration
func NewServer(cfg *config.RedisConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := asynq.NewServer(
		cfg.ConnOpt(),
		asynq.Config{
			Concurrency:    cfg.Workers,
			RetryDelayFunc: retryDelay(cfg.RetryInterval),
			IsFailure: func(err error) bool {
				return !errors.Is(err, context.Canceled)
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				taskID, _ := asynq.GetTaskID(ctx)
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)

				logger.Error("task failed",
					zap.String("type", task.Type()),
					zap.String("task_id", taskID),
					zap.Int("retried", retried),
					zap.Int("max_retry", maxRetry),
					zap.Error(err),
				)
			}),
			Queues: map[string]int{
				tasks.QueueImports: 6,
				"default":          1,
			},
			Logger:   logger.Sugar(),
			LogLevel: asynq.WarnLevel,
		},
	)

	return &Server{
		server: srv,
		logger: logger,
	}
}

// Run processes tasks with handler until ctx is done, then shuts down.
func (s *Server) Run(ctx context.Context, handler tasks.TaskHandler) error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeImportPlace, handler.ProcessTask)
	mux.HandleFunc(tasks.TypeHealthCheck, handler.ProcessTask)

	if err := s.server.Start(mux); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	s.logger.Info("queue worker started")

	<-ctx.Done()

	s.server.Shutdown()
	s.logger.Info("queue worker stopped")

	return nil
}

// retryDelay backs off exponentially from one second, capped at maxDelay.
func retryDelay(maxDelay time.Duration) asynq.RetryDelayFunc {
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		if n > 30 {
			return maxDelay
		}

		delay := time.Duration(1<<uint(n)) * time.Second
		if delay > maxDelay {
			delay = maxDelay
		}

		return delay
	}
}
