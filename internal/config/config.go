// Package config provides configuration loading and validation for the
// worker and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults applied by FromEnv when the corresponding variable is unset.
const (
	DefaultScrapeInterval   = 6 * time.Hour
	DefaultNotifyInterval   = time.Hour
	DefaultMaxRequests      = 10
	DefaultRateWindow       = time.Minute
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 10 * time.Minute
	DefaultFromName         = "Job Match Pro"
)

// Config holds the worker configuration. Values come from the environment
// (optionally a .env file loaded by the CLI) and may be overridden by a JSON
// config file.
type Config struct {
	// Connections
	DatabaseURL string `json:"database_url,omitempty" validate:"required"`
	RedisURL    string `json:"redis_url,omitempty"` // optional; disables the seen cache when empty

	// Email delivery
	SendGridAPIKey string `json:"sendgrid_api_key,omitempty"`
	FromEmail      string `json:"from_email,omitempty" validate:"omitempty,email"`
	FromName       string `json:"from_name,omitempty"`

	// Schedules
	ScrapeInterval time.Duration `json:"scrape_interval,omitempty" validate:"min=0"`
	NotifyInterval time.Duration `json:"notify_interval,omitempty" validate:"min=0"`

	// Scraper resilience. A zero request quota or window would make the rate
	// limiter block forever, so both must be positive.
	MaxRequests      int           `json:"max_requests,omitempty" validate:"min=1"`
	RateWindow       time.Duration `json:"rate_window,omitempty" validate:"min=1"`
	FailureThreshold int           `json:"failure_threshold,omitempty" validate:"min=0"`
	ResetTimeout     time.Duration `json:"reset_timeout,omitempty" validate:"min=0"`

	// Behavior
	Verbose bool `json:"verbose,omitempty"`
}

// FromEnv builds a Config from environment variables, applying defaults for
// anything unset. It does not validate; call Validate after any overrides.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		SendGridAPIKey:   os.Getenv("SENDGRID_API_KEY"),
		FromEmail:        os.Getenv("NOTIFY_FROM_EMAIL"),
		FromName:         envString("NOTIFY_FROM_NAME", DefaultFromName),
		ScrapeInterval:   DefaultScrapeInterval,
		NotifyInterval:   DefaultNotifyInterval,
		MaxRequests:      DefaultMaxRequests,
		RateWindow:       DefaultRateWindow,
		FailureThreshold: DefaultFailureThreshold,
		ResetTimeout:     DefaultResetTimeout,
		Verbose:          os.Getenv("VERBOSE") == "true",
	}

	var err error
	if cfg.ScrapeInterval, err = envDuration("SCRAPE_INTERVAL", cfg.ScrapeInterval); err != nil {
		return nil, err
	}
	if cfg.NotifyInterval, err = envDuration("NOTIFY_INTERVAL", cfg.NotifyInterval); err != nil {
		return nil, err
	}
	if cfg.MaxRequests, err = envInt("RATE_LIMIT_MAX_REQUESTS", cfg.MaxRequests); err != nil {
		return nil, err
	}
	if cfg.RateWindow, err = envDuration("RATE_LIMIT_WINDOW", cfg.RateWindow); err != nil {
		return nil, err
	}
	if cfg.FailureThreshold, err = envInt("BREAKER_FAILURE_THRESHOLD", cfg.FailureThreshold); err != nil {
		return nil, err
	}
	if cfg.ResetTimeout, err = envDuration("BREAKER_RESET_TIMEOUT", cfg.ResetTimeout); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadConfig loads configuration overrides from a JSON file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Merge returns a new Config with zero-valued fields filled from defaults.
// Bool fields are not merged: unset and false are indistinguishable, so flags
// win.
func (c *Config) Merge(defaults Config) Config {
	result := *c

	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.RedisURL == "" {
		result.RedisURL = defaults.RedisURL
	}
	if result.SendGridAPIKey == "" {
		result.SendGridAPIKey = defaults.SendGridAPIKey
	}
	if result.FromEmail == "" {
		result.FromEmail = defaults.FromEmail
	}
	if result.FromName == "" {
		result.FromName = defaults.FromName
	}
	if result.ScrapeInterval == 0 {
		result.ScrapeInterval = defaults.ScrapeInterval
	}
	if result.NotifyInterval == 0 {
		result.NotifyInterval = defaults.NotifyInterval
	}
	if result.MaxRequests == 0 {
		result.MaxRequests = defaults.MaxRequests
	}
	if result.RateWindow == 0 {
		result.RateWindow = defaults.RateWindow
	}
	if result.FailureThreshold == 0 {
		result.FailureThreshold = defaults.FailureThreshold
	}
	if result.ResetTimeout == 0 {
		result.ResetTimeout = defaults.ResetTimeout
	}

	return result
}

// Validate checks the configuration. Email delivery is optional as a whole,
// but an API key without a from-address (or vice versa) is a misconfiguration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			field := verrs[0]
			return fmt.Errorf("config error: field %q failed %q validation", field.Field(), field.Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}

	if (c.SendGridAPIKey == "") != (c.FromEmail == "") {
		return fmt.Errorf("config error: SENDGRID_API_KEY and NOTIFY_FROM_EMAIL must be set together")
	}

	return nil
}

// NotificationsEnabled reports whether email delivery is configured.
func (c *Config) NotificationsEnabled() bool {
	return c.SendGridAPIKey != "" && c.FromEmail != ""
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
