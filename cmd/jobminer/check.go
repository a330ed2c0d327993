package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Collect once, print matches, exit",
	Long:  "One-shot collection: prints accepted jobs to stdout. Does not write to the sink, send notifications or touch the state database.",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug, os.Stderr)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("check mode: nothing will be saved")

	a, err := buildApp(cfg, appOptions{noSink: true}, logger)
	if err != nil {
		logger.Error("failed to set up collection", "error", err)
		os.Exit(1)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := a.collector.RunCollection(ctx)
	if err != nil {
		logger.Error("collection failed", "error", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COMPANY\tTITLE\tLOCATION\tPOSTED\tURL")
	for _, rec := range a.collector.Snapshot() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", rec.Company, rec.Title, rec.Location, rec.PostedDate, rec.URL)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	logger.Info("check complete",
		"listings", summary.Listings,
		"accepted", summary.Accepted,
		"rejected", summary.RejectedTotal(),
		"malformed", summary.Malformed,
	)
	return err
}
