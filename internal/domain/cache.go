package domain

import (
	"context"
	"time"
)

// Cache is the verdict cache shared by the reputation clients. Keys are
// domains (or URL ids for malware verdicts); values are serialized verdicts.
// Implementations must be safe for concurrent use, bounded in size, and must
// evict the oldest entries first.
type Cache interface {
	// Get returns nil, nil when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with an expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Ping checks cache health.
	Ping(ctx context.Context) error

	Close() error
}

// CacheConfig selects and sizes the verdict cache backend.
type CacheConfig struct {
	// Type is "memory" or "redis".
	Type string `yaml:"type"`

	// Local LRU settings; also used as L1 when two-phase is enabled.
	LocalMaxSize int           `yaml:"localMaxSize"`
	LocalTTL     time.Duration `yaml:"localTTL"`

	// Redis settings.
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`

	// EnableTwoPhase checks the local LRU before Redis.
	EnableTwoPhase bool `yaml:"enableTwoPhase"`
}
