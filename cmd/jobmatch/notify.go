package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var notifyCommand = &cobra.Command{
	Use:   "notify",
	Short: "Run a single notification pass and exit",
	Long: `Sends one digest email per user with un-notified matches at or above the
user's minimum score, then marks those matches notified.`,
	RunE: runNotifyCmd,
}

var notifyConfigPath string

func init() {
	notifyCommand.Flags().StringVar(&notifyConfigPath, "config", "", "Path to config.json file (environment values fill unset fields)")
	rootCmd.AddCommand(notifyCommand)
}

func runNotifyCmd(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(notifyConfigPath)
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg, false, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.dispatcher.ProcessNotifications(ctx); err != nil {
		return err
	}
	log.Println("[worker] Notification pass complete")
	return nil
}
