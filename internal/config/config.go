// Package config supplies the process configuration loader and the
// default Database implementation: a read-through Redis-backed store
// for per-server session settings, grounded on the redishost package's
// envdecode-configured go-redis/v9 client, plus a pure in-memory
// Database for tests and demos.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"

	"github.com/opcua-go/sessionfactory/internal/domain"
)

// EnvConfig holds process-level configuration loaded from the
// environment via envdecode.
type EnvConfig struct {
	RedisAddr            string        `env:"SESSIONFACTORY_REDIS_ADDR,default=localhost:6379"`
	KeyPrefix            string        `env:"SESSIONFACTORY_KEY_PREFIX,default=sessionfactory:settings:"`
	HousekeepingInterval time.Duration `env:"SESSIONFACTORY_HOUSEKEEPING_INTERVAL,default=30s"`
}

// LoadEnv decodes an EnvConfig from the process environment.
func LoadEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envdecode.Decode(&cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// RedisDatabase is a read-through domain.Database: a miss against Redis
// falls back to a configured default rather than failing AcquireByMatch,
// since a missing per-server override is routine, not an error.
type RedisDatabase struct {
	client    *redis.Client
	keyPrefix string
	fallback  domain.SessionSettings
}

// NewRedisDatabase connects to Redis per cfg and pings it once to fail
// fast on misconfiguration.
func NewRedisDatabase(cfg EnvConfig, fallback domain.SessionSettings) (*RedisDatabase, error) {
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "sessionfactory:settings:"
	}
	return &RedisDatabase{client: client, keyPrefix: prefix, fallback: fallback}, nil
}

func (d *RedisDatabase) settingsKey(serverURI string) string { return d.keyPrefix + serverURI }

// DefaultSessionSettings implements domain.Database.
func (d *RedisDatabase) DefaultSessionSettings(ctx context.Context, serverURI string) (domain.SessionSettings, error) {
	raw, err := d.client.Get(ctx, d.settingsKey(serverURI)).Result()
	if err != nil {
		if err == redis.Nil {
			return d.fallback, nil
		}
		return domain.SessionSettings{}, err
	}
	var settings domain.SessionSettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return domain.SessionSettings{}, fmt.Errorf("decoding cached settings for %q: %w", serverURI, err)
	}
	return settings, nil
}

// SetDefaultSessionSettings stores an override for serverURI, used by
// operators to push per-server settings without a redeploy.
func (d *RedisDatabase) SetDefaultSessionSettings(ctx context.Context, serverURI string, settings domain.SessionSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return d.client.Set(ctx, d.settingsKey(serverURI), raw, 0).Err()
}

// Close releases the underlying Redis client.
func (d *RedisDatabase) Close() error { return d.client.Close() }

// InMemory is a pure in-memory domain.Database for tests and demos that
// don't need Redis.
type InMemory struct {
	mu       sync.RWMutex
	settings map[string]domain.SessionSettings
	fallback domain.SessionSettings
}

// NewInMemory builds an InMemory Database returning fallback for any
// server URI with no explicit override.
func NewInMemory(fallback domain.SessionSettings) *InMemory {
	return &InMemory{settings: make(map[string]domain.SessionSettings), fallback: fallback}
}

// Set registers an override for serverURI.
func (d *InMemory) Set(serverURI string, settings domain.SessionSettings) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settings[serverURI] = settings
}

// DefaultSessionSettings implements domain.Database.
func (d *InMemory) DefaultSessionSettings(ctx context.Context, serverURI string) (domain.SessionSettings, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if s, ok := d.settings[serverURI]; ok {
		return s, nil
	}
	return d.fallback, nil
}
