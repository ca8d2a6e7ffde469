package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

/*
MigrationRunner applies the schema migrations embedded in the binary using
golang-migrate. Files follow the {version}_{description}.up.sql /
{version}_{description}.down.sql convention and applied versions are tracked
in the schema_migrations table.
*/
type MigrationRunner struct {
	db      *sql.DB
	logger  *zap.Logger
	timeout time.Duration
}

func NewMigrationRunner(db *sql.DB, logger *zap.Logger) *MigrationRunner {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MigrationRunner{
		db:      db,
		logger:  logger,
		timeout: 30 * time.Second,
	}
}

func (m *MigrationRunner) SetTimeout(timeout time.Duration) {
	m.timeout = timeout
}

func (m *MigrationRunner) RunMigrations(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	migrator, err := m.createMigrator()
	if err != nil {
		return err
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("no migrations to apply")
			return nil
		}

		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	m.logger.Info("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))

	return nil
}

func (m *MigrationRunner) createMigrator() (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	driver, err := pgxmigrate.WithInstance(m.db, &pgxmigrate.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	return migrator, nil
}
