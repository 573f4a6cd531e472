package storage

import (
	"fmt"
	"os"
	"strconv"
)

// Storage drivers.
const (
	DriverAzure  = "azure"
	DriverS3     = "s3"
	DriverMemory = "memory"
)

// Config holds blob storage connection parameters.
// Container names the Azure container or the S3 bucket depending on Driver.
type Config struct {
	Driver    string      `toml:"driver"`
	Container string      `toml:"container"`
	Azure     AzureConfig `toml:"azure"`
	S3        S3Config    `toml:"s3"`
}

// AzureConfig selects shared-key auth when ConnectionString is set,
// otherwise AccountURL with the default Azure credential chain.
type AzureConfig struct {
	ConnectionString string `toml:"connection_string"`
	AccountURL       string `toml:"account_url"`
}

// S3Config holds S3 and S3-compatible (MinIO) parameters.
// Static credentials are optional; the default AWS chain is used otherwise.
type S3Config struct {
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	UsePathStyle    bool   `toml:"use_path_style"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Driver           string
	Container        string
	ConnectionString string
	AccountURL       string
	Region           string
	Endpoint         string
	AccessKeyID      string
	SecretAccessKey  string
	UsePathStyle     string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Driver != "" {
		c.Driver = overlay.Driver
	}
	if overlay.Container != "" {
		c.Container = overlay.Container
	}
	if overlay.Azure.ConnectionString != "" {
		c.Azure.ConnectionString = overlay.Azure.ConnectionString
	}
	if overlay.Azure.AccountURL != "" {
		c.Azure.AccountURL = overlay.Azure.AccountURL
	}
	if overlay.S3.Region != "" {
		c.S3.Region = overlay.S3.Region
	}
	if overlay.S3.Endpoint != "" {
		c.S3.Endpoint = overlay.S3.Endpoint
	}
	if overlay.S3.AccessKeyID != "" {
		c.S3.AccessKeyID = overlay.S3.AccessKeyID
	}
	if overlay.S3.SecretAccessKey != "" {
		c.S3.SecretAccessKey = overlay.S3.SecretAccessKey
	}
	if overlay.S3.UsePathStyle {
		c.S3.UsePathStyle = true
	}
}

func (c *Config) loadDefaults() {
	if c.Driver == "" {
		c.Driver = DriverAzure
	}
	if c.Container == "" {
		c.Container = "libris"
	}
	if c.S3.Region == "" {
		c.S3.Region = "us-east-1"
	}
}

func (c *Config) loadEnv(env *Env) {
	set := func(name string, dst *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	set(env.Driver, &c.Driver)
	set(env.Container, &c.Container)
	set(env.ConnectionString, &c.Azure.ConnectionString)
	set(env.AccountURL, &c.Azure.AccountURL)
	set(env.Region, &c.S3.Region)
	set(env.Endpoint, &c.S3.Endpoint)
	set(env.AccessKeyID, &c.S3.AccessKeyID)
	set(env.SecretAccessKey, &c.S3.SecretAccessKey)

	if env.UsePathStyle != "" {
		if v := os.Getenv(env.UsePathStyle); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.S3.UsePathStyle = b
			}
		}
	}
}

func (c *Config) validate() error {
	if c.Container == "" {
		return fmt.Errorf("container required")
	}

	switch c.Driver {
	case DriverAzure:
		if c.Azure.ConnectionString == "" && c.Azure.AccountURL == "" {
			return fmt.Errorf("azure requires connection_string or account_url")
		}
	case DriverS3:
		if (c.S3.AccessKeyID == "") != (c.S3.SecretAccessKey == "") {
			return fmt.Errorf("s3 access_key_id and secret_access_key must be set together")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownDriver, c.Driver)
	}

	return nil
}
