package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/BuyBio/BuyBio/internal/scheduler"
	"github.com/BuyBio/BuyBio/internal/server"
)

func serveCmd() *cobra.Command {
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the screening schedule and the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()
			log.Println("[INFO] BuyBio starting...")

			// Context for graceful shutdown
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sched := scheduler.NewScheduler(ctx, a.screener, a.collector, a.notifier(), a.recorder, a.cfg.Watchlist, a.options)
			if err := sched.Register(a.cfg.Screen.Cron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if a.telegram != nil {
				go a.telegram.StartPolling(ctx, sched.HandleCommand)
				log.Println("[INFO] Telegram polling started")
			}

			if runOnStart || os.Getenv("RUN_ON_START") == "true" {
				log.Println("[INFO] run-on-start enabled, screening now")
				go func() {
					if _, err := sched.RunNow(); err != nil {
						log.Printf("[ERROR] initial screening: %v", err)
					}
				}()
			}

			srv := server.New(a.cfg.Server.Addr, server.Deps{
				Collector: a.collector,
				Screener:  a.screener,
				Recorder:  a.recorder,
				Metrics:   a.metrics,
				Watchlist: a.cfg.Watchlist,
				Options:   a.options,
			})
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			log.Println("[INFO] BuyBio is running. Press Ctrl+C to stop.")

			// Wait for shutdown signal
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-sigCh:
				log.Println("[INFO] shutdown signal received, stopping...")
			case err := <-errCh:
				if err != nil {
					return err
				}
			}

			cancel()
			shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
			defer done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Printf("[WARN] %v", err)
			}
			log.Println("[INFO] BuyBio stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "Screen the watchlist immediately after start")
	return cmd
}
