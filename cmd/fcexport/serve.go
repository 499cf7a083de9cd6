package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	_ "fcexport/internal/export/sources"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled and file-watch export jobs until interrupted",
	Long: `Start the cron scheduler and file watchers for every enabled job
with a schedule or file_watch trigger, then block until SIGINT/SIGTERM.
In-flight exports are given time to finish on shutdown.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := newService(true)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	svc.RestartWatchers(ctx)
	defer svc.Stop()

	log.Info("watching for export triggers, Ctrl+C to stop")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down, waiting for running exports")
	waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	svc.WaitRunning(waitCtx)
	return nil
}
