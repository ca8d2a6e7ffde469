package runner

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/coffeed/coffeed-admin/config"
	"github.com/coffeed/coffeed-admin/description"
	"github.com/coffeed/coffeed-admin/importer"
	"github.com/coffeed/coffeed-admin/linkexpander"
	"github.com/coffeed/coffeed-admin/places"
	"github.com/coffeed/coffeed-admin/postgres"
	"github.com/coffeed/coffeed-admin/resolver"
	"github.com/coffeed/coffeed-admin/s3uploader"
)

const upstreamTimeout = 20 * time.Second

// Deps are the collaborators shared by every run mode.
type Deps struct {
	DB       *sql.DB
	Settings *config.Service
	// Shops is nil without a database.
	Shops    *postgres.ShopRepository
	Resolver *resolver.Resolver
	Importer *importer.Importer
	Logger   *zap.Logger
}

// BuildDeps opens the database (when configured), runs migrations and wires
// the resolve and import pipeline.
func BuildDeps(ctx context.Context, cfg *Config, logger *zap.Logger) (*Deps, error) {
	deps := &Deps{Logger: logger}

	if cfg.Dsn != "" {
		db, err := openDB(ctx, cfg.Dsn)
		if err != nil {
			return nil, err
		}

		deps.DB = db

		if err := postgres.NewMigrationRunner(db, logger).RunMigrations(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	deps.Settings = config.New(deps.DB)

	settings, err := deps.Settings.ImportSettings(ctx)
	if err != nil {
		logger.Warn("using default import settings", zap.Error(err))
	}

	httpClient := &http.Client{Timeout: upstreamTimeout}

	placesClient, err := places.NewClient(cfg.GoogleAPIKey,
		places.WithHTTPClient(httpClient),
		places.WithLanguage(cfg.Language),
		places.WithLogger(logger),
	)
	if err != nil {
		return nil, multierr.Append(err, deps.Close())
	}

	res, err := resolver.New(resolver.Services{
		Expander: linkexpander.New(linkexpander.WithLogger(logger)),
		Search:   placesClient,
		Details:  placesClient,
		Photos:   placesClient,
	},
		resolver.WithLogger(logger),
		resolver.WithPhoneFormat(settings.Phone),
		resolver.WithPhotoMaxWidth(settings.PhotoMaxWidth),
	)
	if err != nil {
		return nil, multierr.Append(err, deps.Close())
	}

	deps.Resolver = res

	var model description.Model

	if cfg.GeminiAPIKey != "" && settings.DescriptionEnabled {
		gemini, err := description.NewGeminiModel(ctx, cfg.GeminiAPIKey, settings.DescriptionModel)
		if err != nil {
			return nil, multierr.Append(err, deps.Close())
		}

		model = gemini
	}

	opts := []importer.Option{
		importer.WithHTTPClient(httpClient),
		importer.WithTelemetry(Telemetry()),
		importer.WithLogger(logger),
	}

	if cfg.S3Bucket != "" {
		uploader, err := s3uploader.New(ctx, s3uploader.Config{
			AccessKey:     cfg.AwsAccessKey,
			SecretKey:     cfg.AwsSecretKey,
			Region:        cfg.AwsRegion,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicURL,
			Endpoint:      cfg.S3Endpoint,
		})
		if err != nil {
			return nil, multierr.Append(err, deps.Close())
		}

		opts = append(opts, importer.WithObjectStore(uploader))
	}

	if deps.DB != nil {
		deps.Shops = postgres.NewShopRepository(deps.DB)
		opts = append(opts, importer.WithShopStore(deps.Shops))
	}

	deps.Importer = importer.New(res, description.NewGenerator(model, logger), opts...)

	return deps, nil
}

// PingDB reports whether the database answers. It is used as a health check.
func (d *Deps) PingDB(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

func (d *Deps) Close() error {
	if d.DB == nil {
		return nil
	}

	return d.DB.Close()
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}
