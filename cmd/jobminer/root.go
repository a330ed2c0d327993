package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vpr16/jobminer/internal/adapter"
	"github.com/vpr16/jobminer/internal/ai"
	"github.com/vpr16/jobminer/internal/config"
	"github.com/vpr16/jobminer/internal/extract"
	"github.com/vpr16/jobminer/internal/model"
	"github.com/vpr16/jobminer/internal/notifier"
	"github.com/vpr16/jobminer/internal/pipeline"
	"github.com/vpr16/jobminer/internal/ratelimit"
	"github.com/vpr16/jobminer/internal/retry"
	"github.com/vpr16/jobminer/internal/store"
)

const (
	defaultConfigPath = "config.yaml"
	legacyConfigPath  = "inputs.json"
	logFilePath       = "jobminer.log"
	httpTimeout       = 30 * time.Second
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobminer",
	Short: "Job listing miner",
	Long:  "jobminer collects job listings for a search, filters them against your requirements, extracts structured details from descriptions and saves the matches.",
	// Default to `run` so that `jobminer` with no args does one collection.
	RunE:         runRun,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is normal.
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBMINER_CONFIG env var, ./config.yaml, then ./inputs.json)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	addRunFlags(rootCmd)
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBMINER_CONFIG env var > ./config.yaml > ./inputs.json
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("JOBMINER_CONFIG")
	}
	if path == "" {
		path = defaultConfigPath
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if _, err := os.Stat(legacyConfigPath); err == nil {
				path = legacyConfigPath
			}
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// openLogFile is used while the monitor owns the terminal.
func openLogFile() (*os.File, error) {
	return os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	case "none":
		return nil
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// buildSource picks the listing source and the fetcher for its descriptions.
// Board sources deliver descriptions with their listings and serve them
// from memory.
func buildSource(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (model.ListingSource, model.DescriptionFetcher) {
	retrier := retry.NewRetrier(2, 5*time.Second, logger)
	opts := adapter.BrowserOptions{
		BaseURL:     cfg.Source.BaseURL,
		Query:       cfg.Query,
		NumScrolls:  cfg.NumScrolls,
		ScrollPause: cfg.Source.ScrollPause,
		Headless:    cfg.Source.Headless,
	}
	switch cfg.Source.Type {
	case "greenhouse":
		src := adapter.NewGreenhouseSource(cfg.Source.BaseURL, cfg.Source.Board, cfg.Source.Company, cfg.Query, httpClient, logger)
		return retry.NewListingSource(src, retrier), src
	case "lever":
		src := adapter.NewLeverSource(cfg.Source.BaseURL, cfg.Source.Board, cfg.Source.Company, cfg.Query, httpClient, logger)
		return retry.NewListingSource(src, retrier), src
	case "playwright":
		return adapter.NewPlaywrightSource(opts, logger), buildFetcher(cfg, httpClient, logger)
	case "chromedp":
		return adapter.NewChromedpSource(opts, logger), buildFetcher(cfg, httpClient, logger)
	default:
		src := adapter.NewLinkedInSource(cfg.Source.BaseURL, cfg.Query, cfg.NumScrolls, httpClient, logger)
		return retry.NewListingSource(src, retrier), buildFetcher(cfg, httpClient, logger)
	}
}

// buildFetcher layers per-host rate limiting under retries, so every attempt
// waits its turn.
func buildFetcher(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.DescriptionFetcher {
	var f model.DescriptionFetcher = adapter.NewHTTPDescriptionFetcher(httpClient)
	f = ratelimit.NewRateLimitedFetcher(f, ratelimit.NewHostLimiter(cfg.Source.MinDelay))
	return retry.NewDescriptionFetcher(f, retry.NewRetrier(2, 5*time.Second, logger))
}

func buildExtractor(cfg *config.Config, mode model.ExtractionMode, httpClient *http.Client, logger *slog.Logger) (model.DescriptionExtractor, error) {
	switch mode {
	case model.ModeSections:
		return extract.NewSectionExtractor(), nil
	case model.ModeLLM:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("llm extraction needs an API key (api_key, %s, or `jobminer apikey set`)", config.APIKeyEnv)
		}
		var provider ai.Provider = ai.NewOpenAIProvider(cfg.AI.BaseURL, cfg.APIKey, cfg.AI.Model, httpClient,
			ai.WithMaxTokens(cfg.AI.MaxTokens),
			ai.WithJSONMode(cfg.AI.JSONMode),
		)
		provider = ai.NewRetryProvider(provider, retry.NewRetrier(cfg.AI.MaxRetries, 2*time.Second, logger))
		logger.Info("llm extraction enabled", "model", cfg.AI.Model, "base_url", cfg.AI.BaseURL)
		return ai.NewLLMExtractor(provider, logger), nil
	default:
		return nil, nil
	}
}

func buildSink(cfg *config.Config) (model.RecordSink, error) {
	switch cfg.Sink.Type {
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.Sink.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "mysql":
		s, err := store.NewMySQLSink(cfg.Sink.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "none":
		return store.NewNopSink(), nil
	default:
		s, err := store.NewCSVSink(cfg.Sink.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// buildSeenStore opens the state database when dedup is wanted, or returns
// a store that has seen nothing.
func buildSeenStore(cfg *config.Config, dedupe bool) (model.SeenStore, func() error, error) {
	if !dedupe {
		return store.NewNopStore(), func() error { return nil }, nil
	}
	s, err := store.NewSQLiteStore(cfg.State.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening state store: %w", err)
	}
	return s, s.Close, nil
}

// app bundles everything a collection needs plus the cleanup for it.
type app struct {
	collector *pipeline.Collector
	seen      model.SeenStore
	close     func()
}

type appOptions struct {
	dedupe   bool
	noSink   bool
	notifier bool
}

func buildApp(cfg *config.Config, opts appOptions, logger *slog.Logger) (*app, error) {
	httpClient := newHTTPClient()

	extractor, err := buildExtractor(cfg, cfg.Extraction, httpClient, logger)
	if err != nil {
		return nil, err
	}

	var sink model.RecordSink = store.NewNopSink()
	if !opts.noSink {
		if sink, err = buildSink(cfg); err != nil {
			return nil, fmt.Errorf("opening %s sink: %w", cfg.Sink.Type, err)
		}
	}

	seen, closeSeen, err := buildSeenStore(cfg, opts.dedupe)
	if err != nil {
		sink.Close()
		return nil, err
	}

	var n model.Notifier
	if opts.notifier {
		n = setupNotifier(cfg, httpClient, logger)
	}

	source, fetcher := buildSource(cfg, httpClient, logger)
	p := pipeline.New(cfg.Requirements, fetcher, extractor, pipeline.Options{
		Mode:           cfg.Extraction,
		ExtractTimeout: cfg.AI.Timeout,
	}, logger)

	collector := pipeline.NewCollector(source, p, sink, seen, n, logger)

	return &app{
		collector: collector,
		seen:      seen,
		close: func() {
			if err := sink.Close(); err != nil {
				logger.Warn("closing sink", "error", err)
			}
			if err := closeSeen(); err != nil {
				logger.Warn("closing state store", "error", err)
			}
		},
	}, nil
}
