package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/joshhubert-dsp/recurrent-plus/recurrence"
)

type Config struct {
	NumPreview         int           `env:"RECUR_NUM_PREVIEW, default=5"`
	DailyOrGreaterOnly bool          `env:"RECUR_DAILY_OR_GREATER_ONLY, default=true"`
	Timezone           string        `env:"RECUR_TIMEZONE, default=UTC"`
	ComparisonZone     string        `env:"RECUR_COMPARISON_ZONE, default=UTC"`
	LogLevel           string        `env:"RECUR_LOG_LEVEL, default=info"`
	HTTPAddr           string        `env:"RECUR_HTTP_ADDR, default=:8080"`
	CacheTTL           time.Duration `env:"RECUR_CACHE_TTL, default=15m"`
	CacheMaxEntries    int           `env:"RECUR_CACHE_MAX_ENTRIES, default=1000"`
}

// LoadEnv reads a .env file from the working directory when one exists.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func FromEnv(ctx context.Context) (*Config, error) {
	return process(ctx, envconfig.OsLookuper())
}

// FromMap reads the configuration from m instead of the environment. A nil m
// yields the defaults.
func FromMap(ctx context.Context, m map[string]string) (*Config, error) {
	return process(ctx, envconfig.MapLookuper(m))
}

func process(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	if cfg.NumPreview < 0 || cfg.NumPreview > recurrence.MaxPreview {
		return nil, fmt.Errorf("RECUR_NUM_PREVIEW must be between 0 and %d, got %d", recurrence.MaxPreview, cfg.NumPreview)
	}
	if cfg.CacheMaxEntries < 0 {
		return nil, fmt.Errorf("RECUR_CACHE_MAX_ENTRIES must not be negative, got %d", cfg.CacheMaxEntries)
	}
	return &cfg, nil
}

// Location is the zone in which start times without an offset are read.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("RECUR_TIMEZONE: %w", err)
	}
	return loc, nil
}

func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("RECUR_LOG_LEVEL: %w", err)
	}
	return level, nil
}

// Recurrence converts c into the construction policy for rules.
func (c *Config) Recurrence() (recurrence.Config, error) {
	zone, err := time.LoadLocation(c.ComparisonZone)
	if err != nil {
		return recurrence.Config{}, fmt.Errorf("RECUR_COMPARISON_ZONE: %w", err)
	}
	return recurrence.Config{
		NumPreview:         c.NumPreview,
		DailyOrGreaterOnly: c.DailyOrGreaterOnly,
		ComparisonZone:     zone,
	}, nil
}

func (c *Config) Cache() recurrence.CacheConfig {
	cleanup := c.CacheTTL / 3
	if cleanup <= 0 {
		cleanup = recurrence.DefaultCacheConfig.CleanupInterval
	}
	return recurrence.CacheConfig{
		TTL:             c.CacheTTL,
		MaxEntries:      c.CacheMaxEntries,
		CleanupInterval: cleanup,
	}
}
