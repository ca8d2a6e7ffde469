package testcontainers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage       = "postgres:16-alpine"
	defaultPostgresPort = "5432"
	defaultUser         = "coffeed"
	defaultPassword     = "coffeed"
	defaultDatabase     = "coffeed_test"
)

// PostgresContainer is a throwaway PostgreSQL server.
type PostgresContainer struct {
	testcontainers.Container
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

func NewPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{defaultPostgresPort + "/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     defaultUser,
			"POSTGRES_PASSWORD": defaultPassword,
			"POSTGRES_DB":       defaultDatabase,
		},
		// postgres logs the ready line twice: once for the init server, once for the real one
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
			wait.ForListeningPort(defaultPostgresPort+"/tcp"),
		),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	host, port, err := endpoint(ctx, container, defaultPostgresPort)
	if err != nil {
		return nil, err
	}

	return &PostgresContainer{
		Container: container,
		Host:      host,
		Port:      port,
		User:      defaultUser,
		Password:  defaultPassword,
		Database:  defaultDatabase,
	}, nil
}

func (c *PostgresContainer) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

func endpoint(ctx context.Context, container testcontainers.Container, port string) (string, int, error) {
	host, err := container.Host(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("failed to get container host: %w", err)
	}

	mappedPort, err := container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		return "", 0, fmt.Errorf("failed to get container port: %w", err)
	}

	p, err := strconv.Atoi(mappedPort.Port())
	if err != nil {
		return "", 0, fmt.Errorf("failed to parse port: %w", err)
	}

	return host, p, nil
}
