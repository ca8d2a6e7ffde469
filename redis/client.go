package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/multierr"

	"github.com/coffeed/coffeed-admin/models"
	"github.com/coffeed/coffeed-admin/redis/config"
	"github.com/coffeed/coffeed-admin/redis/tasks"
)

var ErrTaskNotFound = errors.New("import task not found")

// TaskStatus is the state of a queued import as seen by the dashboard.
type TaskStatus struct {
	ID      string               `json:"id"`
	State   string               `json:"state"`
	Retried int                  `json:"retried"`
	LastErr string               `json:"lastError,omitempty"`
	Shop    *models.ImportedShop `json:"shop,omitempty"`
}

// Client enqueues import tasks and reports on their progress.
type Client struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	cfg       *config.RedisConfig
	mu        sync.RWMutex
}

// NewClient creates a new client and checks that Redis answers.
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	client := asynq.NewClient(cfg.ConnOpt())

	if err := client.Ping(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{
		client:    client,
		inspector: asynq.NewInspector(cfg.ConnOpt()),
		cfg:       cfg,
	}, nil
}

// EnqueueImport queues an import and returns the task id.
func (c *Client) EnqueueImport(ctx context.Context, p tasks.ImportPayload) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	task, err := tasks.NewImportTask(p,
		asynq.TaskID(uuid.NewString()),
		asynq.Queue(tasks.QueueImports),
		asynq.MaxRetry(c.cfg.MaxRetries),
		asynq.Timeout(c.cfg.TaskTimeout),
		asynq.Retention(c.cfg.Retention),
	)
	if err != nil {
		return "", err
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	return info.ID, nil
}

// TaskStatus looks up an import task, including the imported shop once the
// task completed.
func (c *Client) TaskStatus(_ context.Context, id string) (*TaskStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info, err := c.inspector.GetTaskInfo(tasks.QueueImports, id)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, ErrTaskNotFound
		}

		return nil, fmt.Errorf("failed to get task info: %w", err)
	}

	status := &TaskStatus{
		ID:      info.ID,
		State:   info.State.String(),
		Retried: info.Retried,
		LastErr: info.LastErr,
	}

	if len(info.Result) > 0 {
		var shop models.ImportedShop
		if err := json.Unmarshal(info.Result, &shop); err != nil {
			return nil, fmt.Errorf("failed to decode task result: %w", err)
		}

		status.Shop = &shop
	}

	return status, nil
}

// Ping checks the Redis connection.
func (c *Client) Ping() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.client.Ping()
}

// Close closes the Redis client connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := multierr.Combine(c.client.Close(), c.inspector.Close())
	if err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	return nil
}
