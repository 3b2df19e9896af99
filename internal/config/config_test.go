package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "api-key", cfg.AuthMode)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 1000, cfg.CacheMaxSize)
	assert.Equal(t, 4, cfg.VelocityWeeks)
	assert.Equal(t, 14, cfg.BlockedAfterDays)
	assert.Equal(t, 7, cfg.StaleAfterDays)
	assert.Equal(t, 1, cfg.PageLimitMin)
	assert.Equal(t, 100, cfg.PageLimitMax)
	assert.Equal(t, 90, cfg.ActivityWindowDays)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("AUTH_MODE", "none")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("PAGE_LIMIT_MAX", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "none", cfg.AuthMode)
	assert.False(t, cfg.AuthEnabled())
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 25, cfg.PageLimitMax)
}

func TestLoadClampsPageLimits(t *testing.T) {
	t.Setenv("PAGE_LIMIT_MIN", "0")
	t.Setenv("PAGE_LIMIT_MAX", "-5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.PageLimitMin)
	assert.Equal(t, 1, cfg.PageLimitMax)
}

func TestGitHubEnabled(t *testing.T) {
	cfg := &Config{GitHubToken: "tok"}
	assert.False(t, cfg.GitHubEnabled())

	cfg.GitHubOwner = "p-blackswan"
	assert.True(t, cfg.GitHubEnabled())
}

func TestLoadTuningMissingPath(t *testing.T) {
	tn, err := LoadTuning("")
	require.NoError(t, err)
	assert.Nil(t, tn)
}

func TestLoadTuningFile(t *testing.T) {
	t.Setenv("PULSE_STALE_DAYS", "9")

	path := filepath.Join(t.TempDir(), "tuning.yaml")
	data := `
weights:
  activity: 30
  commits: 20
blocked_after_days: 21
stale_after_days: ${PULSE_STALE_DAYS}
velocity_weeks: 6
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	tn, err := LoadTuning(path)
	require.NoError(t, err)
	require.NotNil(t, tn)

	assert.Equal(t, 30, tn.Weights.Activity)
	assert.Equal(t, 20, tn.Weights.Commits)
	assert.Equal(t, 0, tn.Weights.PRs)
	assert.Equal(t, 21, tn.BlockedAfterDays)
	assert.Equal(t, 9, tn.StaleAfterDays)
	assert.Equal(t, 6, tn.VelocityWeeks)
}

func TestLoadTuningBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("weights: ["), 0o600))

	_, err := LoadTuning(path)
	assert.Error(t, err)
}
