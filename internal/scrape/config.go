// Package scrape implements the job-scraping subsystem: a browser-driven
// primary extractor, a degraded HTTP fallback, and the orchestrator that runs
// sources through them under rate limiting and circuit breaking.
package scrape

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/job-match-pro/internal/fetch"
	"github.com/jonathan/job-match-pro/internal/schemas"
)

// Config is a source's declarative scraping configuration: the site family
// plus the CSS selectors used to enumerate and read job cards. It is a tagged
// variant validated at load time, never a free-form map.
type Config struct {
	Type             fetch.Site `json:"type"`
	JobCardSelector  string     `json:"job_card_selector"`
	TitleSelector    string     `json:"title_selector"`
	CompanySelector  string     `json:"company_selector"`
	LocationSelector string     `json:"location_selector"`
}

// ConfigError is a configuration-level failure. Unlike transient extraction
// errors it propagates to the orchestrator and aborts that source's
// processing for the cycle.
type ConfigError struct {
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("scraping config error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("scraping config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// ParseConfig validates and decodes a source's scraping_config document.
func ParseConfig(raw json.RawMessage) (*Config, error) {
	if len(raw) == 0 {
		return nil, &ConfigError{Message: "scraping_config is empty"}
	}

	if err := schemas.ValidateScrapingConfig(raw); err != nil {
		return nil, &ConfigError{Message: "scraping_config is invalid", Cause: err}
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, &ConfigError{Message: "failed to decode scraping_config", Cause: err}
	}

	return &cfg, nil
}
