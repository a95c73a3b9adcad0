package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marketpulse/pipeline/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "localhost", cfg.Redis.Host)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, "time_window", cfg.Dedup.Mode)
	require.Equal(t, 24, cfg.Retention.Hours)
	require.Equal(t, 10, cfg.Analytics.TrendingKeywordsCount)
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("MARKETPULSE_REDIS_HOST", "redis.internal")
	os.Setenv("MARKETPULSE_DEDUPLICATION_MODE", "permanent")
	os.Setenv("MARKETPULSE_RETENTION_HOURS", "48")
	defer func() {
		os.Unsetenv("MARKETPULSE_REDIS_HOST")
		os.Unsetenv("MARKETPULSE_DEDUPLICATION_MODE")
		os.Unsetenv("MARKETPULSE_RETENTION_HOURS")
	}()

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "redis.internal", cfg.Redis.Host)
	require.Equal(t, "permanent", cfg.Dedup.Mode)
	require.Equal(t, 48, cfg.Retention.Hours)
}

func TestValidateRejectsBadDedupMode(t *testing.T) {
	os.Setenv("MARKETPULSE_DEDUPLICATION_MODE", "bogus")
	defer os.Unsetenv("MARKETPULSE_DEDUPLICATION_MODE")

	_, err := config.Load()
	require.Error(t, err)
}
