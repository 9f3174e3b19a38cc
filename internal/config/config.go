// Package config loads the gateway configuration. Everything is additive
// over built-in defaults: extra rules, extra secret prefixes, extra
// restricted paths. A missing file means pure defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/execguard/execguard/internal/safefile"
)

const maxConfigBytes = 256 * 1024

// Config is the top-level execguard configuration.
type Config struct {
	Version        string          `yaml:"version"`
	Audit          AuditConfig     `yaml:"audit"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
	CustomRulesDir string          `yaml:"custom_rules_dir,omitempty"`
	Env            EnvConfig       `yaml:"env,omitempty"`
	Paths          PathsConfig     `yaml:"paths,omitempty"`
	LogLevel       string          `yaml:"log_level"`
}

// AuditConfig selects and locates the audit backend.
type AuditConfig struct {
	Backend string `yaml:"backend"` // jsonl or sqlite
	Dir     string `yaml:"dir"`     // jsonl: directory for daily files
	DBPath  string `yaml:"db_path"` // sqlite: database file
}

// RateLimitConfig holds the per-agent execution budget.
type RateLimitConfig struct {
	PerMinute       int    `yaml:"per_minute"`
	PerHour         int    `yaml:"per_hour"`
	CooldownSeconds int    `yaml:"cooldown_seconds"`
	RedisAddr       string `yaml:"redis_addr,omitempty"` // non-empty switches to the shared Redis limiter
}

// Cooldown returns the configured base cooldown as a duration.
func (r RateLimitConfig) Cooldown() time.Duration {
	return time.Duration(r.CooldownSeconds) * time.Second
}

// EnvConfig extends environment sanitization.
type EnvConfig struct {
	ExtraSecretPrefixes []string `yaml:"extra_secret_prefixes,omitempty"`
}

// PathsConfig extends the restricted working-directory set.
type PathsConfig struct {
	ExtraRestricted []string `yaml:"extra_restricted,omitempty"`
}

// Defaults returns the stock configuration.
func Defaults() *Config {
	return &Config{
		Version: "1",
		Audit: AuditConfig{
			Backend: "jsonl",
			Dir:     "./audit",
			DBPath:  "./execguard.db",
		},
		RateLimit: RateLimitConfig{
			PerMinute:       10,
			PerHour:         60,
			CooldownSeconds: 60,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a config file, applying defaults for anything the
// file leaves unset.
func Load(path string) (*Config, error) {
	data, err := safefile.ReadFileMax(path, maxConfigBytes)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Zero-value defaults reapplied after unmarshal.
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = "jsonl"
	}
	if cfg.RateLimit.PerMinute == 0 {
		cfg.RateLimit.PerMinute = 10
	}
	if cfg.RateLimit.PerHour == 0 {
		cfg.RateLimit.PerHour = 60
	}
	if cfg.RateLimit.CooldownSeconds == 0 {
		cfg.RateLimit.CooldownSeconds = 60
	}

	return cfg, nil
}

// Save writes the config to a YAML file at the given path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks that the config is consistent.
func (c *Config) Validate() error {
	switch c.Audit.Backend {
	case "jsonl":
		if c.Audit.Dir == "" {
			return fmt.Errorf("audit.dir is required for the jsonl backend")
		}
	case "sqlite":
		if c.Audit.DBPath == "" {
			return fmt.Errorf("audit.db_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown audit backend %q", c.Audit.Backend)
	}
	if c.RateLimit.PerMinute < 0 || c.RateLimit.PerHour < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	if c.RateLimit.PerHour < c.RateLimit.PerMinute {
		return fmt.Errorf("rate_limit.per_hour (%d) below per_minute (%d)",
			c.RateLimit.PerHour, c.RateLimit.PerMinute)
	}
	if c.CustomRulesDir != "" {
		info, err := os.Stat(c.CustomRulesDir)
		if err != nil {
			return fmt.Errorf("custom_rules_dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("custom_rules_dir %q is not a directory", c.CustomRulesDir)
		}
	}
	return nil
}
