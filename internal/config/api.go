package config

import (
	"fmt"
	"net/http"
	"os"

	"github.com/JaimeStill/libris/pkg/formatting"
	"github.com/JaimeStill/libris/pkg/middleware"
)

const (
	EnvAPIBasePath       = "LIBRIS_API_BASE_PATH"
	EnvAPIMaxUploadSize  = "LIBRIS_API_MAX_UPLOAD_SIZE"
	EnvAPIIdentityHeader = "LIBRIS_API_IDENTITY_HEADER"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "LIBRIS_CORS_ENABLED",
	Origins:          "LIBRIS_CORS_ORIGINS",
	AllowedMethods:   "LIBRIS_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "LIBRIS_CORS_ALLOWED_HEADERS",
	ExposedHeaders:   "LIBRIS_CORS_EXPOSED_HEADERS",
	AllowCredentials: "LIBRIS_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "LIBRIS_CORS_MAX_AGE",
}

// APIConfig holds API routing, upload limits, caller identity, and CORS settings.
// IdentityHeader names the header the upstream auth layer uses to pass the
// authenticated user id.
type APIConfig struct {
	BasePath       string                `toml:"base_path"`
	MaxUploadSize  string                `toml:"max_upload_size"`
	IdentityHeader string                `toml:"identity_header"`
	CORS           middleware.CORSConfig `toml:"cors"`
}

// MaxUploadSizeBytes returns MaxUploadSize parsed to bytes.
func (c *APIConfig) MaxUploadSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return 100 * 1024 * 1024
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS config.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	c.CORS.AllowHeader(c.IdentityHeader)
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}
	if overlay.IdentityHeader != "" {
		c.IdentityHeader = overlay.IdentityHeader
	}

	c.CORS.Merge(&overlay.CORS)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "100MB"
	}
	if c.IdentityHeader == "" {
		c.IdentityHeader = "X-User-ID"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv(EnvAPIBasePath); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv(EnvAPIMaxUploadSize); v != "" {
		c.MaxUploadSize = v
	}
	if v := os.Getenv(EnvAPIIdentityHeader); v != "" {
		c.IdentityHeader = v
	}
}

func (c *APIConfig) validate() error {
	if _, err := formatting.ParseBytes(c.MaxUploadSize); err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	c.IdentityHeader = http.CanonicalHeaderKey(c.IdentityHeader)
	return nil
}
