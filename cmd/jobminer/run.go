package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vpr16/jobminer/internal/monitor"
)

var (
	noTUI  bool
	dedupe bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect once and save matching jobs",
	Long:  "Runs one collection for the configured query, saves accepted records to the sink and shows progress in a terminal monitor (j: jobs, q: quit).",
	RunE:  runRun,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "log to stdout instead of opening the monitor")
	cmd.Flags().BoolVar(&dedupe, "dedupe", false, "skip listings already recorded in the state database")
}

func runRun(cmd *cobra.Command, args []string) error {
	var logOut io.Writer = os.Stdout
	if !noTUI {
		f, err := openLogFile()
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	logger := setupLogger(debug, logOut)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		if !noTUI {
			// The log file is not where the user is looking.
			setupLogger(debug, os.Stderr).Error("failed to load config", "error", err)
		}
		os.Exit(1)
	}

	logger.Info("config loaded",
		"query", cfg.Query,
		"num_scrolls", cfg.NumScrolls,
		"source", cfg.Source.Type,
		"extraction", cfg.Extraction,
		"sink", cfg.Sink.Type,
	)

	a, err := buildApp(cfg, appOptions{dedupe: dedupe, notifier: true}, logger)
	if err != nil {
		logger.Error("failed to set up collection", "error", err)
		os.Exit(1)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan error, 1)

	g.Go(func() error {
		defer close(done)
		_, err := a.collector.RunCollection(gctx)
		done <- err
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if !noTUI {
		g.Go(func() error {
			return monitor.Run(monitor.New(a.collector, cfg.Query), done, cancel)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("collection failed", "error", err)
		return err
	}
	return nil
}
