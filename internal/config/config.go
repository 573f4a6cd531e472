// Package config loads the libris service configuration from TOML files,
// an optional .env file, and LIBRIS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/libris/pkg/cache"
	"github.com/JaimeStill/libris/pkg/database"
	"github.com/JaimeStill/libris/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"
	DotEnvFile           = ".env"

	EnvLibrisEnv             = "LIBRIS_ENV"
	EnvLibrisShutdownTimeout = "LIBRIS_SHUTDOWN_TIMEOUT"
	EnvLibrisVersion         = "LIBRIS_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "LIBRIS_DB_HOST",
	Port:            "LIBRIS_DB_PORT",
	Name:            "LIBRIS_DB_NAME",
	User:            "LIBRIS_DB_USER",
	Password:        "LIBRIS_DB_PASSWORD",
	SSLMode:         "LIBRIS_DB_SSL_MODE",
	MaxOpenConns:    "LIBRIS_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "LIBRIS_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "LIBRIS_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "LIBRIS_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Driver:           "LIBRIS_STORAGE_DRIVER",
	Container:        "LIBRIS_STORAGE_CONTAINER",
	ConnectionString: "LIBRIS_STORAGE_AZURE_CONNECTION_STRING",
	AccountURL:       "LIBRIS_STORAGE_AZURE_ACCOUNT_URL",
	Region:           "LIBRIS_STORAGE_S3_REGION",
	Endpoint:         "LIBRIS_STORAGE_S3_ENDPOINT",
	AccessKeyID:      "LIBRIS_STORAGE_S3_ACCESS_KEY_ID",
	SecretAccessKey:  "LIBRIS_STORAGE_S3_SECRET_ACCESS_KEY",
	UsePathStyle:     "LIBRIS_STORAGE_S3_USE_PATH_STYLE",
}

var cacheEnv = &cache.Env{
	Driver:     "LIBRIS_CACHE_DRIVER",
	MaxEntries: "LIBRIS_CACHE_MAX_ENTRIES",
	Addr:       "LIBRIS_CACHE_ADDR",
	Password:   "LIBRIS_CACHE_PASSWORD",
	DB:         "LIBRIS_CACHE_DB",
	Prefix:     "LIBRIS_CACHE_PREFIX",
}

// Config is the root configuration for the libris service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	Storage         storage.Config  `toml:"storage"`
	Cache           cache.Config    `toml:"cache"`
	API             APIConfig       `toml:"api"`
	Catalog         CatalogConfig   `toml:"catalog"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the LIBRIS_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvLibrisEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads .env (if present) into the process environment without
// overriding existing variables, then the base config, any environment
// overlay, and finalizes all values.
func Load() (*Config, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", DotEnvFile, err)
	}

	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Parse decodes TOML into a Config without finalizing it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Cache.Merge(&overlay.Cache)
	c.API.Merge(&overlay.API)
	c.Catalog.Merge(&overlay.Catalog)
}

// Finalize applies defaults, environment overrides, and validation to every section.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Cache.Finalize(cacheEnv); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Catalog.Finalize(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvLibrisShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvLibrisVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func overlayPath() string {
	if env := os.Getenv(EnvLibrisEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
