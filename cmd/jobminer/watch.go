package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vpr16/jobminer/internal/scheduler"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Collect repeatedly, only reporting new jobs",
	Long:  "Runs a collection every interval; blocks until SIGINT/SIGTERM. Listings recorded in an earlier pass are skipped.",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "time between collections (default: watch.interval from config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug, os.Stdout)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	interval := cfg.Watch.Interval
	if watchInterval > 0 {
		interval = watchInterval
	}

	logger.Info("config loaded",
		"query", cfg.Query,
		"interval", interval.String(),
		"state", cfg.State.Path,
		"retention", cfg.State.Retention.String(),
	)

	a, err := buildApp(cfg, appOptions{dedupe: true, notifier: true}, logger)
	if err != nil {
		logger.Error("failed to set up collection", "error", err)
		os.Exit(1)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.NewScheduler(a.collector, interval, a.seen, cfg.State.Retention, logger)
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}
