package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.NumPreview)
	assert.True(t, cfg.DailyOrGreaterOnly)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 1000, cfg.CacheMaxEntries)

	rc, err := cfg.Recurrence()
	require.NoError(t, err)
	assert.Equal(t, 5, rc.NumPreview)
	assert.Equal(t, time.UTC, rc.ComparisonZone)

	cache := cfg.Cache()
	assert.Equal(t, 15*time.Minute, cache.TTL)
	assert.Equal(t, 5*time.Minute, cache.CleanupInterval)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("RECUR_NUM_PREVIEW", "3")
	t.Setenv("RECUR_DAILY_OR_GREATER_ONLY", "false")
	t.Setenv("RECUR_LOG_LEVEL", "debug")
	t.Setenv("RECUR_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("RECUR_CACHE_TTL", "90s")
	t.Setenv("RECUR_CACHE_MAX_ENTRIES", "10")

	cfg, err := FromEnv(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.NumPreview)
	assert.False(t, cfg.DailyOrGreaterOnly)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, 10, cfg.CacheMaxEntries)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestFromMap(t *testing.T) {
	cfg, err := FromMap(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.NumPreview)
	assert.Equal(t, "info", cfg.LogLevel)

	cfg, err = FromMap(context.Background(), map[string]string{
		"RECUR_TIMEZONE":    "America/New_York",
		"RECUR_NUM_PREVIEW": "0",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.NumPreview)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())

	_, err = FromMap(context.Background(), map[string]string{"RECUR_NUM_PREVIEW": "-2"})
	assert.Error(t, err)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"negative preview", "RECUR_NUM_PREVIEW", "-1"},
		{"preview above the bound", "RECUR_NUM_PREVIEW", "1001"},
		{"not a number", "RECUR_NUM_PREVIEW", "five"},
		{"bad duration", "RECUR_CACHE_TTL", "soon"},
		{"negative cache size", "RECUR_CACHE_MAX_ENTRIES", "-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestConfig_BadZonesAndLevels(t *testing.T) {
	cfg := &Config{Timezone: "Nowhere/Special", ComparisonZone: "Nowhere/Special", LogLevel: "loud"}

	_, err := cfg.Location()
	assert.Error(t, err)
	_, err = cfg.Recurrence()
	assert.Error(t, err)
	_, err = cfg.Level()
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	// No .env file is not an error
	require.NoError(t, LoadEnv())

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RECUR_NUM_PREVIEW=7\n"), 0o600))
	t.Setenv("RECUR_NUM_PREVIEW", "")
	require.NoError(t, os.Unsetenv("RECUR_NUM_PREVIEW"))
	require.NoError(t, LoadEnv())

	cfg, err := FromEnv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.NumPreview)
}
