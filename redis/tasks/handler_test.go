package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffeed/coffeed-admin/importer"
	"github.com/coffeed/coffeed-admin/models"
	"github.com/coffeed/coffeed-admin/postgres"
	"github.com/coffeed/coffeed-admin/resolver"
)

type fakeImporter struct {
	shop     *models.ImportedShop
	err      error
	gotURL   string
	gotOpts  importer.Options
	deadline bool
}

func (f *fakeImporter) Import(ctx context.Context, rawURL string, opts importer.Options) (*models.ImportedShop, error) {
	f.gotURL = rawURL
	f.gotOpts = opts
	_, f.deadline = ctx.Deadline()

	return f.shop, f.err
}

func importTask(t *testing.T, p ImportPayload) *asynq.Task {
	t.Helper()

	task, err := NewImportTask(p)
	require.NoError(t, err)

	return task
}

func TestNewHandler(t *testing.T) {
	h := NewHandler(&fakeImporter{})
	assert.Equal(t, 2*time.Minute, h.taskTimeout)

	h = NewHandler(&fakeImporter{}, WithTaskTimeout(time.Second))
	assert.Equal(t, time.Second, h.taskTimeout)
}

func TestNewImportTaskRequiresURL(t *testing.T) {
	_, err := NewImportTask(ImportPayload{URL: "  "})
	require.Error(t, err)
}

func TestProcessImportTask(t *testing.T) {
	im := &fakeImporter{shop: &models.ImportedShop{ID: "shop-1", PlaceID: "ChIJcafe"}}
	h := NewHandler(im)

	err := h.ProcessTask(context.Background(), importTask(t, ImportPayload{
		URL:         "https://maps.app.goo.gl/abc",
		Persist:     true,
		RequestedBy: "admin@coffeed.cl",
	}))
	require.NoError(t, err)

	assert.Equal(t, "https://maps.app.goo.gl/abc", im.gotURL)
	assert.Equal(t, importer.Options{Persist: true, RequestedBy: "admin@coffeed.cl"}, im.gotOpts)
	assert.True(t, im.deadline)
}

func TestProcessTaskErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		skipRetry bool
	}{
		{"no identifier", &resolver.ResolutionError{Kind: resolver.ErrNoIdentifierFound}, true},
		{"expansion failed", &resolver.ResolutionError{Kind: resolver.ErrExpansionFailed}, true},
		{"details unavailable", &resolver.ResolutionError{Kind: resolver.ErrPlaceDetailsUnavailable}, true},
		{"invalid url", importer.ErrInvalidURL, true},
		{"duplicate", postgres.ErrDuplicatePlace, true},
		{"upstream", &resolver.ResolutionError{Kind: resolver.ErrUpstream, Err: errors.New("quota")}, false},
		{"storage", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&fakeImporter{err: tt.err})

			err := h.ProcessTask(context.Background(), importTask(t, ImportPayload{URL: "https://maps.google.com/?cid=1"}))
			require.Error(t, err)
			require.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestProcessTaskBadPayload(t *testing.T) {
	h := NewHandler(&fakeImporter{})

	err := h.ProcessTask(context.Background(), asynq.NewTask(TypeImportPlace, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = h.ProcessTask(context.Background(), asynq.NewTask(TypeImportPlace, []byte(`{"url":""}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestProcessTaskTypes(t *testing.T) {
	h := NewHandler(&fakeImporter{})

	require.NoError(t, h.ProcessTask(context.Background(), asynq.NewTask(TypeHealthCheck, nil)))

	err := h.ProcessTask(context.Background(), asynq.NewTask("scrape:gmaps", nil))
	require.ErrorIs(t, err, asynq.SkipRetry)
	assert.Contains(t, err.Error(), "unknown task type")
}
