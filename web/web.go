package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/coffeed/coffeed-admin/web/internal/server"
)

type (
	Resolver      = server.Resolver
	Importer      = server.Importer
	Queue         = server.Queue
	ShopReader    = server.ShopReader
	SettingsStore = server.SettingsStore
	HealthCheck   = server.HealthCheck
)

type Config struct {
	Addr     string
	Debug    bool
	Resolver Resolver
	Importer Importer
	// Queue, Shops and Settings are optional; the endpoints that need them
	// answer 503 when they are nil.
	Queue    Queue
	Shops    ShopReader
	Settings SettingsStore
	Checks   map[string]HealthCheck
	Logger   *zap.Logger
}

// New builds the echo instance serving the import API.
func New(cfg Config) *echo.Echo {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.Debug = cfg.Debug
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("path", v.URIPath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}

			if v.Error != nil {
				logger.Error("request", append(fields, zap.Error(v.Error))...)
				return nil
			}

			logger.Info("request", fields...)

			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("64K"))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	srv := server.NewServer(cfg.Resolver, cfg.Importer,
		server.WithQueue(cfg.Queue),
		server.WithShops(cfg.Shops),
		server.WithSettings(cfg.Settings),
		server.WithHealthChecks(cfg.Checks),
		server.WithLogger(logger),
	)

	server.RegisterHandlers(e, srv)

	return e
}

// Start serves the API on cfg.Addr until ctx is done.
func Start(ctx context.Context, cfg Config) error {
	e := New(cfg)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_ = e.Shutdown(shutdownCtx)
	}()

	if cfg.Logger != nil {
		cfg.Logger.Info("web server listening", zap.String("addr", cfg.Addr))
	}

	if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
