package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`

	// API auth
	AuthMode    string `envconfig:"AUTH_MODE" default:"api-key"` // "api-key", "jwt", "none"
	APIKey      string `envconfig:"API_KEY"`
	JWTSecret   string `envconfig:"JWT_SECRET"`
	CORSOrigins string `envconfig:"CORS_ORIGINS"`

	// Cache
	CacheTTL        time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	CacheMaxSize    int           `envconfig:"CACHE_MAX_SIZE" default:"1000"`
	CacheSweepEvery time.Duration `envconfig:"CACHE_SWEEP_EVERY" default:"1m"`

	// Analytics
	VelocityWeeks    int `envconfig:"VELOCITY_WEEKS" default:"4"`
	BlockedAfterDays int `envconfig:"BLOCKED_AFTER_DAYS" default:"14"`
	StaleAfterDays   int `envconfig:"STALE_AFTER_DAYS" default:"7"`

	// Query pagination clamp for the HTTP surface
	PageLimitMin int `envconfig:"PAGE_LIMIT_MIN" default:"1"`
	PageLimitMax int `envconfig:"PAGE_LIMIT_MAX" default:"100"`

	// Activity-log window fed to the activity source
	ActivityWindowDays int `envconfig:"ACTIVITY_WINDOW_DAYS" default:"90"`

	// GitHub VCS source. Optional: the engine runs without it, with nil VCS snapshots.
	GitHubToken string `envconfig:"GITHUB_TOKEN"`
	GitHubOwner string `envconfig:"GITHUB_OWNER"`

	// Optional scorer tuning file (YAML). Empty means built-in defaults.
	TuningPath string `envconfig:"TUNING_PATH"`
}

// GitHubEnabled returns true if the GitHub VCS source is configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubToken != "" && c.GitHubOwner != ""
}

// AuthEnabled returns true unless auth is explicitly disabled.
func (c *Config) AuthEnabled() bool {
	return c.AuthMode != "none"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.PageLimitMin < 1 {
		cfg.PageLimitMin = 1
	}
	if cfg.PageLimitMax < cfg.PageLimitMin {
		cfg.PageLimitMax = cfg.PageLimitMin
	}
	return &cfg, nil
}

// LoadWithPrefix reads configuration with a prefix.
func LoadWithPrefix(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading config with prefix %s: %w", prefix, err)
	}
	return &cfg, nil
}
