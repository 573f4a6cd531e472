package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/JaimeStill/libris/pkg/formatting"
)

const (
	EnvCoverWidth       = "LIBRIS_COVER_WIDTH"
	EnvCoverHeight      = "LIBRIS_COVER_HEIGHT"
	EnvCoverQuality     = "LIBRIS_COVER_QUALITY"
	EnvViewsDedupWindow = "LIBRIS_VIEWS_DEDUP_WINDOW"
	EnvLinksTTL         = "LIBRIS_LINKS_TTL"
	EnvLinksCacheTTL    = "LIBRIS_LINKS_CACHE_TTL"
	EnvTrashRetention   = "LIBRIS_TRASH_RETENTION"
	EnvTrashSchedule    = "LIBRIS_TRASH_SCHEDULE"
	EnvTrashConcurrency = "LIBRIS_TRASH_CONCURRENCY"
	EnvTrashBatchSize   = "LIBRIS_TRASH_BATCH_SIZE"
	EnvTrashRunTimeout  = "LIBRIS_TRASH_RUN_TIMEOUT"
	EnvTrashScheduleOff = "LIBRIS_TRASH_SCHEDULE_DISABLED"
)

// CatalogConfig holds the tunables of the catalog core.
type CatalogConfig struct {
	Covers CoversConfig `toml:"covers"`
	Views  ViewsConfig  `toml:"views"`
	Links  LinksConfig  `toml:"links"`
	Trash  TrashConfig  `toml:"trash"`
}

// CoversConfig is the normalized cover size and JPEG quality.
type CoversConfig struct {
	Width   uint `toml:"width"`
	Height  uint `toml:"height"`
	Quality int  `toml:"quality"`
}

// ViewsConfig holds the window during which a repeat view is not re-counted.
type ViewsConfig struct {
	DedupWindow string `toml:"dedup_window"`
}

// LinksConfig holds the signed URL lifetime and how long a signed URL is
// reused from cache. CacheTTL must be shorter than TTL.
type LinksConfig struct {
	TTL      string `toml:"ttl"`
	CacheTTL string `toml:"cache_ttl"`
}

// TrashConfig controls permanent deletion of trashed versions.
// Retention accepts a day suffix ("15d").
type TrashConfig struct {
	Retention   string `toml:"retention"`
	Schedule    string `toml:"schedule"`
	Disabled    bool   `toml:"disabled"`
	Concurrency int    `toml:"concurrency"`
	BatchSize   int    `toml:"batch_size"`
	RunTimeout  string `toml:"run_timeout"`
}

func (c *ViewsConfig) DedupWindowDuration() time.Duration {
	d, _ := time.ParseDuration(c.DedupWindow)
	return d
}

func (c *LinksConfig) TTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
	return d
}

func (c *LinksConfig) CacheTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.CacheTTL)
	return d
}

func (c *TrashConfig) RetentionDuration() time.Duration {
	d, _ := formatting.ParseDuration(c.Retention)
	return d
}

func (c *TrashConfig) RunTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RunTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *CatalogConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *CatalogConfig) Merge(overlay *CatalogConfig) {
	if overlay.Covers.Width != 0 {
		c.Covers.Width = overlay.Covers.Width
	}
	if overlay.Covers.Height != 0 {
		c.Covers.Height = overlay.Covers.Height
	}
	if overlay.Covers.Quality != 0 {
		c.Covers.Quality = overlay.Covers.Quality
	}
	if overlay.Views.DedupWindow != "" {
		c.Views.DedupWindow = overlay.Views.DedupWindow
	}
	if overlay.Links.TTL != "" {
		c.Links.TTL = overlay.Links.TTL
	}
	if overlay.Links.CacheTTL != "" {
		c.Links.CacheTTL = overlay.Links.CacheTTL
	}
	if overlay.Trash.Retention != "" {
		c.Trash.Retention = overlay.Trash.Retention
	}
	if overlay.Trash.Schedule != "" {
		c.Trash.Schedule = overlay.Trash.Schedule
	}
	if overlay.Trash.Disabled {
		c.Trash.Disabled = true
	}
	if overlay.Trash.Concurrency != 0 {
		c.Trash.Concurrency = overlay.Trash.Concurrency
	}
	if overlay.Trash.BatchSize != 0 {
		c.Trash.BatchSize = overlay.Trash.BatchSize
	}
	if overlay.Trash.RunTimeout != "" {
		c.Trash.RunTimeout = overlay.Trash.RunTimeout
	}
}

func (c *CatalogConfig) loadDefaults() {
	if c.Covers.Width == 0 {
		c.Covers.Width = 600
	}
	if c.Covers.Height == 0 {
		c.Covers.Height = 900
	}
	if c.Covers.Quality == 0 {
		c.Covers.Quality = 85
	}
	if c.Views.DedupWindow == "" {
		c.Views.DedupWindow = "5h"
	}
	if c.Links.TTL == "" {
		c.Links.TTL = "1h"
	}
	if c.Links.CacheTTL == "" {
		c.Links.CacheTTL = "55m"
	}
	if c.Trash.Retention == "" {
		c.Trash.Retention = "15d"
	}
	if c.Trash.Schedule == "" {
		c.Trash.Schedule = "@daily"
	}
	if c.Trash.Concurrency == 0 {
		c.Trash.Concurrency = 8
	}
	if c.Trash.BatchSize == 0 {
		c.Trash.BatchSize = 500
	}
	if c.Trash.RunTimeout == "" {
		c.Trash.RunTimeout = "10m"
	}
}

func (c *CatalogConfig) loadEnv() {
	setUint := func(name string, dst *uint) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.ParseUint(v, 10, 32); err == nil {
				*dst = uint(n)
			}
		}
	}
	setInt := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	setUint(EnvCoverWidth, &c.Covers.Width)
	setUint(EnvCoverHeight, &c.Covers.Height)
	setInt(EnvCoverQuality, &c.Covers.Quality)
	setString(EnvViewsDedupWindow, &c.Views.DedupWindow)
	setString(EnvLinksTTL, &c.Links.TTL)
	setString(EnvLinksCacheTTL, &c.Links.CacheTTL)
	setString(EnvTrashRetention, &c.Trash.Retention)
	setString(EnvTrashSchedule, &c.Trash.Schedule)
	setInt(EnvTrashConcurrency, &c.Trash.Concurrency)
	setInt(EnvTrashBatchSize, &c.Trash.BatchSize)
	setString(EnvTrashRunTimeout, &c.Trash.RunTimeout)

	if v := os.Getenv(EnvTrashScheduleOff); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Trash.Disabled = b
		}
	}
}

func (c *CatalogConfig) validate() error {
	if c.Covers.Quality < 1 || c.Covers.Quality > 100 {
		return fmt.Errorf("invalid covers.quality: %d", c.Covers.Quality)
	}

	durations := map[string]string{
		"views.dedup_window": c.Views.DedupWindow,
		"links.ttl":          c.Links.TTL,
		"links.cache_ttl":    c.Links.CacheTTL,
		"trash.run_timeout":  c.Trash.RunTimeout,
	}
	for name, v := range durations {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid %s: must be positive", name)
		}
	}

	if c.Links.CacheTTLDuration() >= c.Links.TTLDuration() {
		return fmt.Errorf("links.cache_ttl (%s) must be shorter than links.ttl (%s)", c.Links.CacheTTL, c.Links.TTL)
	}

	if _, err := formatting.ParseDuration(c.Trash.Retention); err != nil {
		return fmt.Errorf("invalid trash.retention: %w", err)
	}
	if _, err := cron.ParseStandard(c.Trash.Schedule); err != nil {
		return fmt.Errorf("invalid trash.schedule: %w", err)
	}
	if c.Trash.Concurrency < 1 {
		return fmt.Errorf("invalid trash.concurrency: %d", c.Trash.Concurrency)
	}
	if c.Trash.BatchSize < 1 {
		return fmt.Errorf("invalid trash.batch_size: %d", c.Trash.BatchSize)
	}
	return nil
}
