// Package tasks defines the asynq tasks of the import queue and their handler.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/coffeed/coffeed-admin/importer"
	"github.com/coffeed/coffeed-admin/models"
	"github.com/coffeed/coffeed-admin/postgres"
	"github.com/coffeed/coffeed-admin/resolver"
)

// TaskHandler handles processing of Redis tasks
type TaskHandler interface {
	ProcessTask(ctx context.Context, task *asynq.Task) error
}

type Importer interface {
	Import(ctx context.Context, rawURL string, opts importer.Options) (*models.ImportedShop, error)
}

// Handler runs queued imports.
type Handler struct {
	importer    Importer
	taskTimeout time.Duration
	logger      *zap.Logger
}

// HandlerOption is a function that configures a Handler
type HandlerOption func(*Handler)

// WithTaskTimeout sets the timeout for task processing
func WithTaskTimeout(timeout time.Duration) HandlerOption {
	return func(h *Handler) {
		h.taskTimeout = timeout
	}
}

func WithLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

func NewHandler(im Importer, opts ...HandlerOption) *Handler {
	h := &Handler{
		importer:    im,
		taskTimeout: 2 * time.Minute,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// ProcessTask processes a task based on its type
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	ctx, cancel := context.WithTimeout(ctx, h.taskTimeout)
	defer cancel()

	switch task.Type() {
	case TypeImportPlace:
		return h.processImportTask(ctx, task)
	case TypeHealthCheck:
		return nil
	default:
		return fmt.Errorf("unknown task type %q: %w", task.Type(), asynq.SkipRetry)
	}
}

func (h *Handler) processImportTask(ctx context.Context, task *asynq.Task) error {
	var payload ImportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal import payload: %w: %w", err, asynq.SkipRetry)
	}

	if err := payload.Validate(); err != nil {
		return fmt.Errorf("invalid import payload: %w: %w", err, asynq.SkipRetry)
	}

	taskID, _ := asynq.GetTaskID(ctx)
	retry, _ := asynq.GetRetryCount(ctx)

	log := h.logger.With(
		zap.String("task_id", taskID),
		zap.String("url", payload.URL),
		zap.Int("retry", retry),
	)

	shop, err := h.importer.Import(ctx, payload.URL, importer.Options{
		Persist:     payload.Persist,
		RequestedBy: payload.RequestedBy,
	})
	if err != nil {
		if Permanent(err) {
			log.Warn("import failed permanently", zap.Error(err))
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}

		log.Warn("import failed, will retry", zap.Error(err))

		return err
	}

	if w := task.ResultWriter(); w != nil {
		data, err := json.Marshal(shop)
		if err != nil {
			return fmt.Errorf("failed to marshal import result: %w", err)
		}

		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to write import result: %w", err)
		}
	}

	log.Info("import task done", zap.String("place_id", shop.PlaceID), zap.String("shop_id", shop.ID))

	return nil
}

// Permanent reports whether retrying the import cannot change the outcome.
// Only upstream failures and unclassified errors are retried.
func Permanent(err error) bool {
	switch {
	case errors.Is(err, resolver.ErrNoIdentifierFound),
		errors.Is(err, resolver.ErrExpansionFailed),
		errors.Is(err, resolver.ErrPlaceDetailsUnavailable),
		errors.Is(err, importer.ErrInvalidURL),
		errors.Is(err, importer.ErrPersistenceUnavailable),
		errors.Is(err, postgres.ErrDuplicatePlace):
		return true
	default:
		return false
	}
}
