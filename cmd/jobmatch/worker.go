package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-match-pro/internal/worker"
)

var workerCommand = &cobra.Command{
	Use:   "worker",
	Short: "Run the scraping and notification worker",
	Long: `Runs the long-lived worker: scrapes active job sources on a fixed cadence,
scores new postings against stored resumes, and emails users digests of
un-notified matches. Stops cleanly on SIGINT/SIGTERM.`,
	RunE: runWorkerCmd,
}

var workerConfigPath string

func init() {
	workerCommand.Flags().StringVar(&workerConfigPath, "config", "", "Path to config.json file (environment values fill unset fields)")
	rootCmd.AddCommand(workerCommand)
}

func runWorkerCmd(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(workerConfigPath)
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg, true, cfg.NotificationsEnabled())
	if err != nil {
		return err
	}
	defer a.Close()

	jobs := []worker.Job{
		{Name: "scrape", Interval: cfg.ScrapeInterval, Run: a.orchestrator.RunCycle},
	}
	if a.dispatcher != nil {
		jobs = append(jobs, worker.Job{Name: "notify", Interval: cfg.NotifyInterval, Run: a.dispatcher.ProcessNotifications})
	} else {
		log.Println("[worker] Email delivery not configured — notification job disabled")
	}

	scheduler := worker.New(jobs...)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}

	log.Println("[worker] Running — press Ctrl+C to stop")
	<-ctx.Done()

	scheduler.Stop()
	log.Println("[worker] Shutdown complete")
	return nil
}
