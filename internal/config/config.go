// Package config loads client configuration with layered sources:
// built-in defaults, an optional YAML file, then CAPTCHAPAY_* environment
// variables, later layers overriding earlier ones.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix is stripped from environment variables before mapping them to
// config keys: CAPTCHAPAY_API_URL -> api_url.
const envPrefix = "CAPTCHAPAY_"

// Config holds all client settings.
type Config struct {
	// APIURL is the base URL of the platform API.
	APIURL string `koanf:"api_url"`

	// CountdownSeconds is the per-challenge countdown duration.
	CountdownSeconds int `koanf:"countdown_seconds"`

	// PollInterval is how often dashboard and wallet views refresh.
	PollInterval time.Duration `koanf:"poll_interval"`

	// RedisplayDelay is the pause between a correct answer and the next
	// challenge fetch.
	RedisplayDelay time.Duration `koanf:"redisplay_delay"`

	// WithdrawalMinimum is the smallest amount accepted by the withdrawal
	// form, in rupees. The server enforces its own minimum regardless.
	WithdrawalMinimum float64 `koanf:"withdrawal_minimum"`

	// AllowUnknownPlan controls the plan gate's fallback: when the identity
	// payload omits the plan field entirely, true lets the captcha view mount
	// and re-check server-side, false sends the user to plan selection.
	AllowUnknownPlan bool `koanf:"allow_unknown_plan"`

	// PageSize is the default page size for transaction listings.
	PageSize int `koanf:"page_size"`

	LogLevel string `koanf:"log_level"`
	LogFile  string `koanf:"log_file"`
}

func defaultConfig() *Config {
	return &Config{
		APIURL:            "http://localhost:5000/api",
		CountdownSeconds:  24,
		PollInterval:      10 * time.Second,
		RedisplayDelay:    1200 * time.Millisecond,
		WithdrawalMinimum: 200,
		AllowUnknownPlan:  true,
		PageSize:          15,
		LogLevel:          "info",
		LogFile:           "", // resolved to ~/.captchapay/captchapay.log when empty
	}
}

// Load builds the configuration from defaults, then the config file at
// path (skipped when missing or path is empty), then environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPath returns ~/.captchapay/config.yaml, or empty when the home
// directory cannot be resolved (config then comes from defaults and env).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".captchapay", "config.yaml")
}

func (c *Config) validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("config: api_url must not be empty")
	}
	if c.CountdownSeconds <= 0 {
		return fmt.Errorf("config: countdown_seconds must be positive, got %d", c.CountdownSeconds)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("config: poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.WithdrawalMinimum < 0 {
		return fmt.Errorf("config: withdrawal_minimum must not be negative, got %v", c.WithdrawalMinimum)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("config: page_size must be positive, got %d", c.PageSize)
	}
	return nil
}
