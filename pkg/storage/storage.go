// Package storage is the blob store gateway: put, delete, and sign operations
// against Azure Blob Storage, S3-compatible object storage, or memory.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/JaimeStill/libris/pkg/lifecycle"
)

// System manages blob storage operations and lifecycle coordination.
type System interface {
	// Start registers a startup hook that prepares the container or bucket.
	Start(lc *lifecycle.Coordinator) error
	// Put streams data to the blob at key with the given content type.
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error
	// Delete removes the blob at key. Deleting an absent blob succeeds.
	Delete(ctx context.Context, key string) error
	// SignedURL returns a temporary read URL for key valid for ttl.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Exists reports whether a blob exists at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// New creates the storage system selected by cfg.Driver.
// Clients are constructed here; no network traffic happens until Start.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	logger = logger.With("system", "storage", "driver", cfg.Driver)

	switch cfg.Driver {
	case DriverAzure:
		return newAzure(cfg, logger)
	case DriverS3:
		return newS3(cfg, logger)
	case DriverMemory:
		return NewMemory(cfg.Container), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}

// NewKey builds an object key of the form {unix-millis}_{name}.
func NewKey(name string, now time.Time) string {
	return fmt.Sprintf("%d_%s", now.UnixMilli(), sanitizeName(name))
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", ".")
	}
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	name = strings.Join(strings.Fields(name), "-")
	return url.PathEscape(name)
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}
