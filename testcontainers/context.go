// Package testcontainers starts the PostgreSQL and Redis servers used by the
// integration tests and tears them down when the test ends.
//
// Integration tests only run when INTEGRATION_TESTS=1 and Docker is available:
//
//	func TestShopRepository(t *testing.T) {
//	    testcontainers.WithTestContext(t, func(tc *testcontainers.TestContext) {
//	        repo := postgres.NewShopRepository(tc.DB)
//	        ...
//	    }, testcontainers.WithPostgres())
//	}
package testcontainers

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

const (
	defaultTimeout = 2 * time.Minute
	enableEnv      = "INTEGRATION_TESTS"
)

type TestContext struct {
	t *testing.T

	Ctx        context.Context
	cancelFunc context.CancelFunc
	cleanup    []func()

	Postgres *PostgresContainer
	DB       *sql.DB

	Redis       *RedisContainer
	RedisClient *redis.Client
}

type Option func(*setup)

type setup struct {
	postgres bool
	redis    bool
}

func WithPostgres() Option {
	return func(s *setup) {
		s.postgres = true
	}
}

func WithRedis() Option {
	return func(s *setup) {
		s.redis = true
	}
}

// SkipUnlessEnabled skips t unless integration tests were requested.
func SkipUnlessEnabled(t *testing.T) {
	t.Helper()

	if testing.Short() || os.Getenv(enableEnv) != "1" {
		t.Skipf("integration test: set %s=1 to run", enableEnv)
	}
}

// NewTestContext starts the requested containers. The test is skipped when
// integration tests are disabled and failed when a container cannot start.
func NewTestContext(t *testing.T, opts ...Option) *TestContext {
	t.Helper()

	SkipUnlessEnabled(t)

	var s setup
	for _, opt := range opts {
		opt(&s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	tc := &TestContext{
		t:          t,
		Ctx:        ctx,
		cancelFunc: cancel,
	}

	if s.postgres {
		if err := tc.initPostgres(); err != nil {
			tc.Cleanup()
			t.Fatalf("failed to initialize postgres: %v", err)
		}
	}

	if s.redis {
		if err := tc.initRedis(); err != nil {
			tc.Cleanup()
			t.Fatalf("failed to initialize redis: %v", err)
		}
	}

	return tc
}

// WithTestContext runs fn with a fresh TestContext and cleans up afterwards.
func WithTestContext(t *testing.T, fn func(*TestContext), opts ...Option) {
	t.Helper()

	tc := NewTestContext(t, opts...)
	defer tc.Cleanup()

	fn(tc)
}

// Cleanup releases resources in reverse order of creation.
func (tc *TestContext) Cleanup() {
	for i := len(tc.cleanup) - 1; i >= 0; i-- {
		tc.cleanup[i]()
	}

	tc.cleanup = nil
	tc.cancelFunc()
}

func (tc *TestContext) addCleanup(fn func()) {
	tc.cleanup = append(tc.cleanup, fn)
}

func (tc *TestContext) initPostgres() error {
	container, err := NewPostgresContainer(tc.Ctx)
	if err != nil {
		return err
	}

	tc.Postgres = container
	tc.addCleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			tc.t.Errorf("failed to terminate postgres container: %v", err)
		}
	})

	db, err := sql.Open("pgx", container.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	tc.DB = db
	tc.addCleanup(func() {
		_ = db.Close()
	})

	return db.PingContext(tc.Ctx)
}

func (tc *TestContext) initRedis() error {
	container, err := NewRedisContainer(tc.Ctx)
	if err != nil {
		return err
	}

	tc.Redis = container
	tc.addCleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			tc.t.Errorf("failed to terminate redis container: %v", err)
		}
	})

	tc.RedisClient = redis.NewClient(&redis.Options{Addr: container.Address()})
	tc.addCleanup(func() {
		_ = tc.RedisClient.Close()
	})

	return tc.RedisClient.Ping(tc.Ctx).Err()
}
