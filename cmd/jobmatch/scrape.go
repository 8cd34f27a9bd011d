package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var scrapeCommand = &cobra.Command{
	Use:   "scrape",
	Short: "Run a single scrape cycle and exit",
	Long: `Scrapes one batch of active job sources (oldest-scraped first), persists new
postings, and scores them against stored resumes. Useful for manual runs and
cron-style deployments.`,
	RunE: runScrapeCmd,
}

var scrapeConfigPath string

func init() {
	scrapeCommand.Flags().StringVar(&scrapeConfigPath, "config", "", "Path to config.json file (environment values fill unset fields)")
	rootCmd.AddCommand(scrapeCommand)
}

func runScrapeCmd(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(scrapeConfigPath)
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg, true, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.orchestrator.RunCycle(ctx); err != nil {
		return err
	}
	log.Println("[worker] Scrape cycle complete")
	return nil
}
