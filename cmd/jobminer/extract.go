package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vpr16/jobminer/internal/adapter"
	"github.com/vpr16/jobminer/internal/config"
	"github.com/vpr16/jobminer/internal/model"
)

var (
	extractMode string
	extractURL  string
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract structured details from one job description",
	Long:  "Reads a job description from a file, stdin or --url and prints the extraction as JSON. The llm mode reads the API key and model settings from the config.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractMode, "mode", string(model.ModeSections), "extractor to use: sections or llm")
	extractCmd.Flags().StringVar(&extractURL, "url", "", "fetch the description from a listing URL instead of reading input")
	rootCmd.AddCommand(extractCmd)
}

// extractionOutput is the JSON shape printed by `extract`.
type extractionOutput struct {
	Field        *string        `json:"field,omitempty"`
	Degree       *int           `json:"degree,omitempty"`
	StartDate    string         `json:"start_date,omitempty"`
	Duration     *string        `json:"duration,omitempty"`
	Requirements []string       `json:"requirements,omitempty"`
	Sections     model.Sections `json:"sections,omitempty"`
}

func newExtractionOutput(ext model.Extraction) extractionOutput {
	out := extractionOutput{Sections: ext.Sections}
	if a := ext.Attributes; a != nil {
		out.Field = a.Field
		out.Degree = a.DegreeLevel
		out.Duration = a.Duration
		out.Requirements = a.Requirements
		if a.StartDate != nil {
			out.StartDate = a.StartDate.Format(model.DateLayout)
		}
	}
	return out
}

func runExtract(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug, os.Stderr)

	mode := model.ExtractionMode(extractMode)
	if mode != model.ModeSections && mode != model.ModeLLM {
		return fmt.Errorf("unknown mode %q (want sections or llm)", extractMode)
	}

	// Only llm mode needs settings from the config file.
	cfg := &config.Config{}
	if mode == model.ModeLLM {
		var err error
		if cfg, err = loadConfig(cfgPath); err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	httpClient := newHTTPClient()
	extractor, err := buildExtractor(cfg, mode, httpClient, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	description, err := readDescription(ctx, cmd.InOrStdin(), args, httpClient, logger)
	if err != nil {
		return err
	}

	timeout := cfg.AI.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ext, err := extractor.Extract(ctx, description)
	if err != nil {
		return fmt.Errorf("extracting: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(newExtractionOutput(ext))
}

func readDescription(ctx context.Context, stdin io.Reader, args []string, httpClient *http.Client, logger *slog.Logger) (string, error) {
	switch {
	case extractURL != "":
		logger.Info("fetching description", "url", extractURL)
		return adapter.NewHTTPDescriptionFetcher(httpClient).FetchDescription(ctx, extractURL)
	case len(args) == 1 && args[0] != "-":
		b, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("reading description: %w", err)
		}
		return string(b), nil
	default:
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(b), nil
	}
}
