// Package config reads the Redis settings of the import queue from the environment.
package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
)

// RedisConfig holds Redis connection and queue parameters.
type RedisConfig struct {
	Host          string
	Port          int
	Password      string
	DB            int
	UseTLS        bool
	Workers       int
	MaxRetries    int
	RetryInterval time.Duration
	TaskTimeout   time.Duration
	Retention     time.Duration
}

const (
	defaultHost          = "localhost"
	defaultPort          = 6379
	defaultWorkers       = 4
	defaultMaxRetries    = 3
	defaultRetryInterval = 30 * time.Second
	defaultTaskTimeout   = 2 * time.Minute
	defaultRetention     = 24 * time.Hour
	maxDB                = 15
	maxWorkers           = 100
	maxMaxRetries        = 10
)

// Enabled reports whether a Redis server was configured at all.
func Enabled() bool {
	return os.Getenv("REDIS_URL") != "" || os.Getenv("REDIS_HOST") != ""
}

// NewRedisConfig reads REDIS_URL, or REDIS_HOST / REDIS_PORT / REDIS_PASSWORD /
// REDIS_DB when no URL is given, plus the queue tunables.
func NewRedisConfig() (*RedisConfig, error) {
	cfg := &RedisConfig{
		Host:     getEnvOrDefault("REDIS_HOST", defaultHost),
		Password: os.Getenv("REDIS_PASSWORD"),
		UseTLS:   getEnvBool("REDIS_USE_TLS"),
	}

	var err error

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		err = cfg.applyURL(redisURL)
	} else {
		cfg.Port, err = getEnvInt("REDIS_PORT", defaultPort)

		db, dbErr := getEnvInt("REDIS_DB", 0)
		cfg.DB = db
		err = multierr.Append(err, dbErr)
	}

	workers, err1 := getEnvInt("REDIS_WORKERS", defaultWorkers)
	retries, err2 := getEnvInt("REDIS_MAX_RETRIES", defaultMaxRetries)
	interval, err3 := getEnvDuration("REDIS_RETRY_INTERVAL", defaultRetryInterval)
	timeout, err4 := getEnvDuration("REDIS_TASK_TIMEOUT", defaultTaskTimeout)
	retention, err5 := getEnvDuration("REDIS_RETENTION", defaultRetention)

	if err := multierr.Combine(err, err1, err2, err3, err4, err5); err != nil {
		return nil, err
	}

	cfg.Workers = workers
	cfg.MaxRetries = retries
	cfg.RetryInterval = interval
	cfg.TaskTimeout = timeout
	cfg.Retention = retention

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *RedisConfig) applyURL(raw string) error {
	opts, err := redis.ParseURL(raw)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	host, port, err := net.SplitHostPort(opts.Addr)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL address: %w", err)
	}

	c.Host = host
	c.Port, err = strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid port in REDIS_URL: %w", err)
	}

	c.Password = opts.Password
	c.DB = opts.DB
	c.UseTLS = c.UseTLS || opts.TLSConfig != nil

	return nil
}

// Validate checks every field and reports all problems at once.
func (c *RedisConfig) Validate() error {
	var err error

	if c.Host == "" {
		err = multierr.Append(err, errors.New("redis host is required"))
	}

	if c.Port < 1 || c.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("redis port must be between 1 and 65535, got %d", c.Port))
	}

	if c.DB < 0 || c.DB > maxDB {
		err = multierr.Append(err, fmt.Errorf("redis db must be between 0 and %d, got %d", maxDB, c.DB))
	}

	if c.Workers < 1 || c.Workers > maxWorkers {
		err = multierr.Append(err, fmt.Errorf("workers must be between 1 and %d, got %d", maxWorkers, c.Workers))
	}

	if c.MaxRetries < 0 || c.MaxRetries > maxMaxRetries {
		err = multierr.Append(err, fmt.Errorf("max retries must be between 0 and %d, got %d", maxMaxRetries, c.MaxRetries))
	}

	if c.RetryInterval < time.Second {
		err = multierr.Append(err, errors.New("retry interval must be at least 1s"))
	}

	if c.TaskTimeout <= 0 {
		err = multierr.Append(err, errors.New("task timeout must be positive"))
	}

	return err
}

// Addr returns host:port, bracketing IPv6 hosts.
func (c *RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ConnOpt returns the asynq connection options.
func (c *RedisConfig) ConnOpt() asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{
		Addr:         c.Addr(),
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	if c.UseTLS {
		opt.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: c.Host,
		}
	}

	return opt
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

func getEnvBool(key string) bool {
	value := strings.ToLower(os.Getenv(key))
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}

	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}

	return d, nil
}
