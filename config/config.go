package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Keys read by the import pipeline.
const (
	KeyPhoneCountryCode    = "resolver.phone_country_code"
	KeyPhoneMobilePrefix   = "resolver.phone_mobile_prefix"
	KeyPhoneMinLocalDigits = "resolver.phone_min_local_digits"
	KeyPhotoMaxWidth       = "resolver.photo_max_width"
	KeyDescriptionModel    = "description.model"
	KeyDescriptionEnabled  = "description.enabled"
)

var (
	ErrUnknownKey   = errors.New("unknown config key")
	ErrInvalidValue = errors.New("invalid config value")
	ErrNoDatabase   = errors.New("config: no database configured")
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindBool
)

type setting struct {
	kind        valueKind
	description string
}

// settings lists the keys that may be written through Set.
var settings = map[string]setting{
	KeyPhoneCountryCode:    {kindString, "Country calling code added to local phone numbers"},
	KeyPhoneMobilePrefix:   {kindString, "Leading digit of local mobile numbers"},
	KeyPhoneMinLocalDigits: {kindInt, "Minimum digits of a local mobile number"},
	KeyPhotoMaxWidth:       {kindInt, "Max width in pixels of the imported photo"},
	KeyDescriptionModel:    {kindString, "Gemini model used for shop descriptions"},
	KeyDescriptionEnabled:  {kindBool, "Generate shop descriptions with Gemini"},
}

// Service provides access to dynamic configuration values stored in the system_config table.
// A nil db is allowed: lookups then fall back to env overrides and defaults.
type Service struct {
	db    *sql.DB
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	cache map[string]cachedEntry
}

type cachedEntry struct {
	value     string
	expiresAt time.Time
}

const defaultTTL = time.Minute

func New(db *sql.DB) *Service {
	return &Service{
		db:    db,
		ttl:   defaultTTL,
		now:   time.Now,
		cache: make(map[string]cachedEntry),
	}
}

// GetString returns a string config value. Environment variable overrides DB values when present.
// The env var name is derived from key by uppercasing and replacing dots with underscores.
func (s *Service) GetString(ctx context.Context, key, defaultValue string) (string, error) {
	v, ok, err := s.lookup(ctx, key)
	if err != nil {
		return "", err
	}

	if !ok {
		return defaultValue, nil
	}

	return v, nil
}

// GetInt returns an integer config value. Unparsable values yield the default.
func (s *Service) GetInt(ctx context.Context, key string, defaultValue int) (int, error) {
	v, ok, err := s.lookup(ctx, key)
	if err != nil {
		return 0, err
	}

	if !ok {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return defaultValue, nil
	}

	return parsed, nil
}

// GetBool returns a boolean config value. Unparsable values yield the default.
func (s *Service) GetBool(ctx context.Context, key string, defaultValue bool) (bool, error) {
	v, ok, err := s.lookup(ctx, key)
	if err != nil {
		return false, err
	}

	if !ok {
		return defaultValue, nil
	}

	parsed, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return defaultValue, nil
	}

	return parsed, nil
}

// Upsert writes a configuration value.
func (s *Service) Upsert(ctx context.Context, key, value, description string) error {
	if s.db == nil {
		return ErrNoDatabase
	}

	const q = `INSERT INTO system_config (key, value, description, updated_at)
	           VALUES ($1, $2, $3, NOW())
	           ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, description = EXCLUDED.description, updated_at = NOW()`

	if _, err := s.db.ExecContext(ctx, q, key, value, description); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()

	return nil
}

// Set validates and stores a value for one of the known import keys.
func (s *Service) Set(ctx context.Context, key, value string) error {
	def, ok := settings[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	value = strings.TrimSpace(value)

	switch def.kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: %s must be a positive integer", ErrInvalidValue, key)
		}
	case kindBool:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%w: %s must be true or false", ErrInvalidValue, key)
		}
	default:
		if value == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalidValue, key)
		}
	}

	return s.Upsert(ctx, key, value, def.description)
}

func (s *Service) lookup(ctx context.Context, key string) (string, bool, error) {
	if v, ok := envOverride(key); ok {
		return v, true, nil
	}

	if v, ok := s.getFromCache(key); ok {
		return v, true, nil
	}

	if s.db == nil {
		return "", false, nil
	}

	const q = `SELECT value FROM system_config WHERE key = $1 LIMIT 1`

	var v string

	err := s.db.QueryRowContext(ctx, q, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}

		return "", false, err
	}

	s.putInCache(key, v)

	return v, true, nil
}

func envOverride(key string) (string, bool) {
	envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	if v := os.Getenv(envKey); v != "" {
		return v, true
	}

	return "", false
}

func (s *Service) getFromCache(key string) (string, bool) {
	s.mu.RLock()
	entry, ok := s.cache[key]
	s.mu.RUnlock()

	if !ok {
		return "", false
	}

	if s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.cache, key)
		s.mu.Unlock()

		return "", false
	}

	return entry.value, true
}

func (s *Service) putInCache(key, value string) {
	s.mu.Lock()
	s.cache[key] = cachedEntry{value: value, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
}
