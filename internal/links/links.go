// Package links issues temporary read URLs for stored blobs, reusing a
// previously signed URL while it has comfortably more life left than the
// cache window.
package links

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/libris/pkg/cache"
	"github.com/JaimeStill/libris/pkg/storage"
)

// KeyPrefix namespaces signed URLs in the shared cache.
const KeyPrefix = "signedUrl:"

// Signer returns a temporary read URL for a blob key.
type Signer interface {
	URL(ctx context.Context, key string) (string, error)
}

// Options holds the signed URL lifetime and the cache window.
// CacheTTL must be shorter than TTL so a cached URL is never served expired.
type Options struct {
	TTL      time.Duration
	CacheTTL time.Duration
}

type signer struct {
	store  storage.System
	kv     cache.System
	opts   Options
	logger *slog.Logger
}

// New creates a caching Signer. A nil kv disables caching.
func New(store storage.System, kv cache.System, opts Options, logger *slog.Logger) Signer {
	return &signer{
		store:  store,
		kv:     kv,
		opts:   opts,
		logger: logger.With("system", "links"),
	}
}

// CacheKey returns the cache key for a blob key.
func CacheKey(key string) string {
	return KeyPrefix + key
}

func (s *signer) URL(ctx context.Context, key string) (string, error) {
	ck := CacheKey(key)

	if s.kv != nil {
		url, ok, err := s.kv.Get(ctx, ck)
		switch {
		case err != nil:
			s.logger.Warn("signed url cache read failed", "key", key, "error", err)
		case ok:
			return url, nil
		}
	}

	url, err := s.store.SignedURL(ctx, key, s.opts.TTL)
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", key, err)
	}

	if s.kv != nil {
		if err := s.kv.Set(ctx, ck, url, s.opts.CacheTTL); err != nil {
			s.logger.Warn("signed url cache write failed", "key", key, "error", err)
		}
	}

	return url, nil
}
