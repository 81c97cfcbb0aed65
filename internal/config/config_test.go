package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.TaskMaxAttempts)
	assert.Equal(t, 60*time.Second, cfg.TaskRetryDelay)
	assert.Equal(t, 24*time.Hour, cfg.CleanupMaxAge())
	assert.False(t, cfg.HostedAPIActive(), "no key configured")
	assert.Empty(t, cfg.ScrapeUserAgent, "fetchers rotate their own profiles unless overridden")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DOWNLOADER_CONFIG_FILE", "")
	t.Setenv("RAPIDAPI_KEY", "secret")
	t.Setenv("DOWNLOADER_USE_YTDLP", "true")
	t.Setenv("DOWNLOADER_API_TIMEOUT", "12")
	t.Setenv("DOWNLOADER_MAX_TRIES", "5")
	t.Setenv("DOWNLOADER_BLOCKED_DOMAINS", "Bad.example, ,evil.test")
	t.Setenv("DOWNLOADER_RECENT_JOBS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.HostedAPIActive())
	assert.True(t, cfg.YtDlpEnabled)
	assert.Equal(t, 12*time.Second, cfg.HostedAPITimeout)
	assert.Equal(t, 5, cfg.TaskMaxAttempts)
	assert.Equal(t, []string{"bad.example", "evil.test"}, cfg.BlockedDomains)
	assert.Equal(t, 100, cfg.RecentJobsLimit, "unparsable values keep the default")
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "downloader.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cleanup_hours: 48\nqueue_name: media\nrate_limit_per_minute: 30\n"), 0o600))
	t.Setenv("DOWNLOADER_CONFIG_FILE", path)
	t.Setenv("DOWNLOADER_QUEUE_NAME", "override")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 48, cfg.CleanupHours)
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
	assert.Equal(t, "override", cfg.QueueName)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("DOWNLOADER_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"no redis":          func(c *Config) { c.RedisAddr = "" },
		"zero attempts":     func(c *Config) { c.TaskMaxAttempts = 0 },
		"zero recent":       func(c *Config) { c.RecentJobsLimit = 0 },
		"negative cleanup":  func(c *Config) { c.CleanupHours = -1 },
		"unknown backend":   func(c *Config) { c.StorageBackend = "s3" },
		"supabase no creds": func(c *Config) { c.StorageBackend = "supabase" },
	}
	for name, mutate := range cases {
		cfg := Defaults()
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}
