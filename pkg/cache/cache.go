// Package cache provides a key/value cache with per-entry expiry, backed by
// an in-process TTL cache or Redis.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/libris/pkg/lifecycle"
)

// System is a string key/value cache with expiry.
// Implementations must be safe for concurrent use.
type System interface {
	Start(lc *lifecycle.Coordinator) error
	// Get returns the value stored at key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value at key for ttl.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes key. Deleting an absent key succeeds.
	Delete(ctx context.Context, key string) error
}

// New creates the cache system selected by cfg.Driver.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	logger = logger.With("system", "cache", "driver", cfg.Driver)

	switch cfg.Driver {
	case DriverMemory:
		return NewMemory(cfg.MaxEntries, logger), nil
	case DriverRedis:
		return newRedis(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}
