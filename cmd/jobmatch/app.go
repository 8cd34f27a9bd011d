package main

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/jonathan/job-match-pro/internal/config"
	"github.com/jonathan/job-match-pro/internal/db"
	"github.com/jonathan/job-match-pro/internal/fetch"
	"github.com/jonathan/job-match-pro/internal/match"
	"github.com/jonathan/job-match-pro/internal/notify"
	"github.com/jonathan/job-match-pro/internal/resilience"
	"github.com/jonathan/job-match-pro/internal/scrape"
)

// loadConfig resolves the effective configuration: environment defaults,
// overridden by an optional JSON config file.
func loadConfig(configPath string) (*config.Config, error) {
	envCfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	cfg := envCfg
	if configPath != "" {
		fileCfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		merged := fileCfg.Merge(*envCfg)
		cfg = &merged
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app holds the wired components of a worker run. browser, orchestrator and
// dispatcher are nil when the corresponding pipeline was not requested.
type app struct {
	cfg      *config.Config
	database *db.DB
	browser  *fetch.Browser

	orchestrator *scrape.Orchestrator
	dispatcher   *notify.Dispatcher
}

// buildApp connects to external services and wires the requested pipelines.
// withScrape starts the headless browser and scraping stack; withNotify
// requires email delivery to be configured.
func buildApp(ctx context.Context, cfg *config.Config, withScrape, withNotify bool) (*app, error) {
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, database: database}

	if withScrape {
		if err := a.wireScraping(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	if withNotify {
		if !cfg.NotificationsEnabled() {
			a.Close()
			return nil, fmt.Errorf("email delivery not configured: set SENDGRID_API_KEY and NOTIFY_FROM_EMAIL")
		}
		sender := notify.NewEmailSender(cfg.SendGridAPIKey, cfg.FromName, cfg.FromEmail)
		a.dispatcher = notify.NewDispatcher(database, sender)
	}

	return a, nil
}

func (a *app) wireScraping(ctx context.Context) error {
	browser, err := fetch.NewBrowser(ctx, a.cfg.Verbose)
	if err != nil {
		return err
	}
	a.browser = browser

	var seen scrape.SeenCache
	if a.cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(a.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		seen = scrape.NewSeenCache(redis.NewClient(redisOpts), scrape.DefaultSeenTTL)
	} else {
		log.Println("[worker] REDIS_URL not set — seen cache disabled, relying on database dedup")
	}

	matcher := match.NewService(a.database)
	limiter := resilience.NewRateLimiter(a.cfg.MaxRequests, a.cfg.RateWindow)

	a.orchestrator = scrape.NewOrchestrator(
		a.database,
		scrape.NewBrowserScraper(browser),
		scrape.NewPageFetcher(nil),
		limiter,
		scrape.Options{
			FailureThreshold: a.cfg.FailureThreshold,
			ResetTimeout:     a.cfg.ResetTimeout,
			Seen:             seen,
			OnPersisted:      matcher.ScorePostings,
		},
	)
	return nil
}

// Close tears down external connections.
func (a *app) Close() {
	if a.browser != nil {
		a.browser.Close()
	}
	a.database.Close()
}
