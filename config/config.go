// Package config manages application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration for pipeline runs.
type Config struct {
	// APIKeys is the pool of Data API keys rotated across requests.
	// YOUTUBE_API_KEY / YOUTUBE_API_KEY_n environment variables take
	// precedence over this list.
	APIKeys []string `yaml:"api_keys"`
	// RequestsPerMinute caps outbound API calls.
	RequestsPerMinute int `yaml:"requests_per_minute"`
	// MaxVideosPerChannel bounds how many recent videos to pull per channel.
	MaxVideosPerChannel int `yaml:"max_videos_per_channel"`

	// Channels lists the channels to track.
	Channels []Channel `yaml:"channels"`

	// Database selects and addresses the warehouse engine.
	Database Database `yaml:"database"`

	// Schedule is a cron expression for unattended runs; empty disables
	// scheduling.
	Schedule string `yaml:"schedule"`
	// HTTPAddr is the listen address for health and metrics endpoints.
	HTTPAddr string `yaml:"http_addr"`

	// CalendarStart is the first day materialized into dim_dates (YYYY-MM-DD).
	CalendarStart string `yaml:"calendar_start"`
}

// Channel is one tracked channel entry.
type Channel struct {
	// ID is the channel identifier ("UC" + 22 characters).
	ID string `yaml:"id"`
	// Active toggles extraction without removing the entry.
	Active bool `yaml:"active"`
}

// Database selects the warehouse engine.
type Database struct {
	// Driver is "pgx" or "sqlite".
	Driver string `yaml:"driver"`
	// DSN is the driver-specific connection string.
	DSN string `yaml:"dsn"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		RequestsPerMinute:   60,
		MaxVideosPerChannel: 50,
		Database: Database{
			Driver: "sqlite",
			DSN:    "ytpipe.db",
		},
		HTTPAddr:      ":8080",
		CalendarStart: "2020-01-01",
	}
}

// Load loads configuration from environment variables, config file, and
// applies defaults. Priority: env vars > config file > defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(); err != nil {
		// Config file is optional
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile loads configuration from one explicit file plus environment
// overrides. The file must exist.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile attempts to load config from ytpipe.yaml in the current
// directory or home directory.
func (c *Config) loadFromFile() error {
	paths := []string{
		"ytpipe.yaml",
		filepath.Join(os.Getenv("HOME"), ".config", "ytpipe", "ytpipe.yaml"),
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}

		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}

	return os.ErrNotExist
}

// loadFromEnv overrides config with environment variables.
func (c *Config) loadFromEnv() {
	if v := os.Getenv("YTPIPE_REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("YTPIPE_MAX_VIDEOS_PER_CHANNEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxVideosPerChannel = n
		}
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("YTPIPE_SCHEDULE"); v != "" {
		c.Schedule = v
	}
	if v := os.Getenv("YTPIPE_HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
}

// Validate checks that configuration values are valid and consistent.
// It returns an error if any configuration value is invalid.
func (c *Config) Validate() error {
	if c.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests_per_minute must be positive")
	}
	if c.MaxVideosPerChannel < 0 {
		return fmt.Errorf("max_videos_per_channel must be non-negative")
	}
	if c.Database.Driver != "pgx" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("database driver must be pgx or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn must be set")
	}
	if c.CalendarStart != "" {
		if _, err := time.Parse("2006-01-02", c.CalendarStart); err != nil {
			return fmt.Errorf("calendar_start must be YYYY-MM-DD: %w", err)
		}
	}
	return nil
}

// ActiveChannelIDs returns the ids of channels flagged active, in file order.
func (c *Config) ActiveChannelIDs() []string {
	var ids []string
	for _, ch := range c.Channels {
		if ch.Active {
			ids = append(ids, ch.ID)
		}
	}
	return ids
}

// CalendarStartDate parses CalendarStart, falling back to the default on the
// zero value.
func (c *Config) CalendarStartDate() time.Time {
	t, err := time.Parse("2006-01-02", c.CalendarStart)
	if err != nil {
		return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}
