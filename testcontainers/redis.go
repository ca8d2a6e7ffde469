package testcontainers

import (
	"context"
	"fmt"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	redisImage       = "redis:7-alpine"
	defaultRedisPort = "6379"
)

// RedisContainer is a throwaway Redis server without authentication.
type RedisContainer struct {
	testcontainers.Container
	Host string
	Port int
}

func NewRedisContainer(ctx context.Context) (*RedisContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        redisImage,
		ExposedPorts: []string{defaultRedisPort + "/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	host, port, err := endpoint(ctx, container, defaultRedisPort)
	if err != nil {
		return nil, err
	}

	return &RedisContainer{
		Container: container,
		Host:      host,
		Port:      port,
	}, nil
}

// Address returns host:port.
func (c *RedisContainer) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
