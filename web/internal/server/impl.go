package server

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/coffeed/coffeed-admin/config"
	"github.com/coffeed/coffeed-admin/gmaps"
	"github.com/coffeed/coffeed-admin/importer"
	"github.com/coffeed/coffeed-admin/models"
	"github.com/coffeed/coffeed-admin/postgres"
	"github.com/coffeed/coffeed-admin/redis"
	"github.com/coffeed/coffeed-admin/redis/tasks"
	"github.com/coffeed/coffeed-admin/resolver"
)

const requestedByHeader = "X-Requested-By"

type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (*resolver.ResolvedPlace, error)
}

type Importer interface {
	Import(ctx context.Context, rawURL string, opts importer.Options) (*models.ImportedShop, error)
	CanPersist() bool
}

type Queue interface {
	EnqueueImport(ctx context.Context, p tasks.ImportPayload) (string, error)
	TaskStatus(ctx context.Context, id string) (*redis.TaskStatus, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// ShopReader loads persisted shops.
type ShopReader interface {
	GetShop(ctx context.Context, id string) (*models.ImportedShop, error)
}

// SettingsStore reads and writes the import tunables.
type SettingsStore interface {
	ImportSettings(ctx context.Context) (config.ImportSettings, error)
	Set(ctx context.Context, key, value string) error
}

type server struct {
	resolver Resolver
	importer Importer
	queue    Queue
	shops    ShopReader
	settings SettingsStore
	checks   map[string]HealthCheck
	logger   *zap.Logger
}

type Option func(*server)

// WithQueue enables the async import endpoints. Without it they answer 503.
func WithQueue(q Queue) Option {
	return func(s *server) {
		s.queue = q
	}
}

// WithShops enables reading persisted shops. Without it the endpoint answers 503.
func WithShops(shops ShopReader) Option {
	return func(s *server) {
		s.shops = shops
	}
}

func WithSettings(settings SettingsStore) Option {
	return func(s *server) {
		s.settings = settings
	}
}

func WithHealthChecks(checks map[string]HealthCheck) Option {
	return func(s *server) {
		s.checks = checks
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *server) {
		s.logger = logger
	}
}

// NewServer builds the API handlers.
func NewServer(res Resolver, im Importer, opts ...Option) Server {
	s := &server{
		resolver: res,
		importer: im,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type ResolveRequest struct {
	URL string `json:"url"`
}

type ImportRequest struct {
	URL     string `json:"url"`
	Persist bool   `json:"persist"`
}

type AsyncImportResponse struct {
	TaskID string `json:"taskId"`
}

type SettingRequest struct {
	Value string `json:"value"`
}

// SettingsResponse maps each config key to its current value.
type SettingsResponse map[string]any

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *server) Health(c echo.Context) error {
	resp := HealthResponse{Status: "ok"}
	code := http.StatusOK

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		if resp.Checks == nil {
			resp.Checks = make(map[string]string, len(names))
		}

		if err := s.checks[name](c.Request().Context()); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable

			continue
		}

		resp.Checks[name] = "ok"
	}

	return c.JSON(code, resp)
}

func (s *server) ResolvePlace(c echo.Context) error {
	var req ResolveRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "", "invalid request body")
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return fail(c, http.StatusBadRequest, "invalid_url", "url is required")
	}

	place, err := s.resolver.Resolve(c.Request().Context(), req.URL)
	if err != nil {
		return s.failWith(c, err)
	}

	return c.JSON(http.StatusOK, place)
}

func (s *server) ImportShop(c echo.Context) error {
	var req ImportRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "", "invalid request body")
	}

	shop, err := s.importer.Import(c.Request().Context(), req.URL, importer.Options{
		Persist:     req.Persist,
		RequestedBy: c.Request().Header.Get(requestedByHeader),
	})
	if err != nil {
		return s.failWith(c, err)
	}

	code := http.StatusOK
	if shop.ID != "" {
		code = http.StatusCreated
	}

	return c.JSON(code, shop)
}

func (s *server) ImportShopAsync(c echo.Context) error {
	if s.queue == nil {
		return fail(c, http.StatusServiceUnavailable, "queue_unavailable", "the import queue is not configured")
	}

	var req ImportRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "", "invalid request body")
	}

	rawURL := strings.TrimSpace(req.URL)
	if rawURL == "" || !gmaps.IsMapsURL(rawURL) {
		return s.failWith(c, importer.ErrInvalidURL)
	}

	if req.Persist && !s.importer.CanPersist() {
		return s.failWith(c, importer.ErrPersistenceUnavailable)
	}

	id, err := s.queue.EnqueueImport(c.Request().Context(), tasks.ImportPayload{
		URL:         rawURL,
		Persist:     req.Persist,
		RequestedBy: c.Request().Header.Get(requestedByHeader),
	})
	if err != nil {
		return s.failWith(c, err)
	}

	return c.JSON(http.StatusAccepted, AsyncImportResponse{TaskID: id})
}

func (s *server) ImportTaskStatus(c echo.Context) error {
	if s.queue == nil {
		return fail(c, http.StatusServiceUnavailable, "queue_unavailable", "the import queue is not configured")
	}

	status, err := s.queue.TaskStatus(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.failWith(c, err)
	}

	return c.JSON(http.StatusOK, status)
}

func (s *server) GetShop(c echo.Context) error {
	if s.shops == nil {
		return s.failWith(c, importer.ErrPersistenceUnavailable)
	}

	shop, err := s.shops.GetShop(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.failWith(c, err)
	}

	return c.JSON(http.StatusOK, shop)
}

func (s *server) GetSettings(c echo.Context) error {
	if s.settings == nil {
		return fail(c, http.StatusServiceUnavailable, "settings_unavailable", "Settings are not available on this server.")
	}

	current, err := s.settings.ImportSettings(c.Request().Context())
	if err != nil {
		return s.failWith(c, err)
	}

	return c.JSON(http.StatusOK, SettingsResponse{
		config.KeyPhoneCountryCode:    current.Phone.CountryCode,
		config.KeyPhoneMobilePrefix:   current.Phone.MobilePrefix,
		config.KeyPhoneMinLocalDigits: current.Phone.MinLocalDigits,
		config.KeyPhotoMaxWidth:       current.PhotoMaxWidth,
		config.KeyDescriptionModel:    current.DescriptionModel,
		config.KeyDescriptionEnabled:  current.DescriptionEnabled,
	})
}

// UpdateSetting stores a tunable. Running resolvers pick it up on the next start.
func (s *server) UpdateSetting(c echo.Context) error {
	if s.settings == nil {
		return fail(c, http.StatusServiceUnavailable, "settings_unavailable", "Settings are not available on this server.")
	}

	var req SettingRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "", "invalid request body")
	}

	if err := s.settings.Set(c.Request().Context(), c.Param("key"), req.Value); err != nil {
		return s.failWith(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func fail(c echo.Context, code int, kind, message string) error {
	return c.JSON(code, models.APIError{Code: code, Kind: kind, Message: message})
}

func (s *server) failWith(c echo.Context, err error) error {
	code, kind, message := classify(err)

	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)
	}

	return fail(c, code, kind, message)
}

// classify maps an error to its HTTP status, kind label and user facing message.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, importer.ErrInvalidURL):
		return http.StatusBadRequest, "invalid_url", "The link is not a Google Maps URL."
	case errors.Is(err, importer.ErrPersistenceUnavailable):
		return http.StatusServiceUnavailable, "persistence_unavailable", "Saving shops is not configured on this server."
	case errors.Is(err, postgres.ErrDuplicatePlace):
		return http.StatusConflict, "duplicate_place", "This coffee shop was already imported."
	case errors.Is(err, redis.ErrTaskNotFound):
		return http.StatusNotFound, "task_not_found", "Import task not found."
	case errors.Is(err, postgres.ErrShopNotFound):
		return http.StatusNotFound, "shop_not_found", "Coffee shop not found."
	case errors.Is(err, config.ErrUnknownKey):
		return http.StatusNotFound, "unknown_setting", "Unknown setting."
	case errors.Is(err, config.ErrInvalidValue):
		return http.StatusBadRequest, "invalid_setting", err.Error()
	case errors.Is(err, config.ErrNoDatabase):
		return http.StatusServiceUnavailable, "persistence_unavailable", "Saving settings is not configured on this server."
	}

	var resErr *resolver.ResolutionError
	if !errors.As(err, &resErr) {
		return http.StatusInternalServerError, "internal", "Something went wrong."
	}

	code := http.StatusInternalServerError

	switch {
	case errors.Is(err, resolver.ErrNoIdentifierFound), errors.Is(err, resolver.ErrExpansionFailed):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, resolver.ErrPlaceDetailsUnavailable):
		code = http.StatusNotFound
	case errors.Is(err, resolver.ErrUpstream):
		code = http.StatusBadGateway
	}

	return code, resolver.KindName(err), resolver.Message(err)
}
