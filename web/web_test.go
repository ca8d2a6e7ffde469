package web_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/coffeed/coffeed-admin/importer"
	"github.com/coffeed/coffeed-admin/models"
	"github.com/coffeed/coffeed-admin/resolver"
	"github.com/coffeed/coffeed-admin/web"
)

type stubResolver struct{}

func (stubResolver) Resolve(context.Context, string) (*resolver.ResolvedPlace, error) {
	return &resolver.ResolvedPlace{PlaceID: "ChIJcafe"}, nil
}

type stubImporter struct{}

func (stubImporter) Import(context.Context, string, importer.Options) (*models.ImportedShop, error) {
	return &models.ImportedShop{Name: "Café Tres"}, nil
}

func (stubImporter) CanPersist() bool { return false }

func newTestEcho(t *testing.T) http.Handler {
	t.Helper()

	return web.New(web.Config{
		Resolver: stubResolver{},
		Importer: stubImporter{},
		Logger:   zaptest.NewLogger(t),
	})
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestEcho(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/places/resolve", strings.NewReader(`{"url":"https://maps.google.com/?cid=1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestBodyLimit(t *testing.T) {
	h := newTestEcho(t)

	body := `{"url":"` + strings.Repeat("a", 70*1024) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/shops/import", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
