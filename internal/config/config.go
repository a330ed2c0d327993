package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vpr16/jobminer/internal/model"
	"github.com/vpr16/jobminer/internal/secrets"
)

// APIKeyEnv is consulted when the config file carries no api_key.
const APIKeyEnv = "JOBMINER_API_KEY"

// Config is the root configuration for one jobminer search.
type Config struct {
	Query        string
	NumScrolls   int
	Requirements model.RequirementSet
	Extraction   model.ExtractionMode
	APIKey       string
	Source       SourceConfig
	Sink         SinkConfig
	State        StateConfig
	AI           AIConfig
	Notification NotificationConfig
	Watch        WatchConfig
}

// SourceConfig selects how listings are collected.
type SourceConfig struct {
	Type        string // "http", "playwright", "chromedp", "greenhouse" or "lever"
	BaseURL     string
	Board       string // greenhouse board token or lever company slug
	Company     string // display name for board listings
	MinDelay    time.Duration // minimum gap between requests to the same host
	ScrollPause time.Duration // browser sources only
	Headless    bool
}

// SinkConfig selects where accepted records are written.
type SinkConfig struct {
	Type string // "csv", "sqlite", "mysql" or "none"
	Path string // csv and sqlite
	DSN  string // mysql
}

// StateConfig locates the seen-URL store used for cross-run dedup.
type StateConfig struct {
	Path      string
	Retention time.Duration
}

// AIConfig controls the generation-backed extractor.
type AIConfig struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration // per-extraction bound
	MaxRetries int
	MaxTokens  int
	JSONMode   bool // request response_format=json_object
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "none", "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// WatchConfig controls periodic re-collection.
type WatchConfig struct {
	Interval time.Duration
}

const (
	defaultBaseURL       = "https://www.linkedin.com"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultModel         = "gpt-4o-mini"
	defaultMaxTokens     = 1024
	defaultThreshold     = 0.8
	defaultCSVPath       = "jobs.csv"
	defaultSQLitePath    = "jobminer.db"
	defaultStatePath     = "jobminer-state.db"
	slackWebhookPrefix   = "https://hooks.slack.com/"
)

// apiKeyFromKeyring is replaced in tests.
var apiKeyFromKeyring = secrets.GetAPIKey

// stringList accepts either a single scalar or a sequence.
type stringList []string

func (l *stringList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" || strings.TrimSpace(n.Value) == "" {
			*l = nil
			return nil
		}
		*l = stringList{n.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := n.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	return fmt.Errorf("line %d: expected a string or a list of strings", n.Line)
}

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	Query               string             `yaml:"query"`
	NumScrolls          int                `yaml:"num_scrolls"`
	SimilarityThreshold *float64           `yaml:"similarity_threshold"`
	Requirements        rawRequirements    `yaml:"requirements"`
	Extraction          rawExtraction      `yaml:"extraction"`
	APIKey              string             `yaml:"api_key"`
	Source              rawSourceConfig    `yaml:"source"`
	Sink                SinkConfig         `yaml:"sink"`
	State               rawStateConfig     `yaml:"state"`
	AI                  rawAIConfig        `yaml:"ai"`
	Notification        NotificationConfig `yaml:"notification"`
	Watch               rawWatchConfig     `yaml:"watch"`
}

type rawRequirements struct {
	Recency   *string    `yaml:"recency"`
	Locations stringList `yaml:"locations"`
	Location  stringList `yaml:"location"`
	Companies stringList `yaml:"companies"`
	Company   stringList `yaml:"company"`
	Degree    *bool      `yaml:"degree"`
}

type rawExtraction struct {
	Mode string `yaml:"mode"`
}

type rawSourceConfig struct {
	Type        string `yaml:"type"`
	BaseURL     string `yaml:"base_url"`
	Board       string `yaml:"board"`
	Company     string `yaml:"company"`
	MinDelay    string `yaml:"min_delay"`
	ScrollPause string `yaml:"scroll_pause"`
	Headless    *bool  `yaml:"headless"`
}

type rawStateConfig struct {
	Path      string `yaml:"path"`
	Retention string `yaml:"retention"`
}

type rawAIConfig struct {
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Timeout    string `yaml:"timeout"`
	MaxRetries *int   `yaml:"max_retries"`
	MaxTokens  int    `yaml:"max_tokens"`
	JSONMode   *bool  `yaml:"json_mode"`
}

type rawWatchConfig struct {
	Interval string `yaml:"interval"`
}

// Load reads and parses the config file at path (YAML, or JSON such as
// inputs.json), applies defaults, resolves the API key and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	recency, err := parseRecency(raw.Requirements.Recency)
	if err != nil {
		return nil, err
	}

	threshold := defaultThreshold
	if raw.SimilarityThreshold != nil {
		threshold = *raw.SimilarityThreshold
	}

	mode := model.ModeNone
	if raw.Extraction.Mode != "" {
		mode = model.ExtractionMode(strings.ToLower(raw.Extraction.Mode))
	}

	minDelay, err := parseDuration("source.min_delay", raw.Source.MinDelay, 2*time.Second)
	if err != nil {
		return nil, err
	}
	sourceType := orDefault(strings.ToLower(raw.Source.Type), "http")
	sourceBaseURL := raw.Source.BaseURL
	if !isBoardSource(sourceType) {
		sourceBaseURL = orDefault(sourceBaseURL, defaultBaseURL)
	}

	scrollPause, err := parseDuration("source.scroll_pause", raw.Source.ScrollPause, 2*time.Second)
	if err != nil {
		return nil, err
	}
	retention, err := parseDuration("state.retention", raw.State.Retention, 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	aiTimeout, err := parseDuration("ai.timeout", raw.AI.Timeout, 30*time.Second)
	if err != nil {
		return nil, err
	}
	watchInterval, err := parseDuration("watch.interval", raw.Watch.Interval, 30*time.Minute)
	if err != nil {
		return nil, err
	}

	headless := true
	if raw.Source.Headless != nil {
		headless = *raw.Source.Headless
	}

	maxRetries := 3
	if raw.AI.MaxRetries != nil {
		maxRetries = *raw.AI.MaxRetries
	}
	jsonMode := true
	if raw.AI.JSONMode != nil {
		jsonMode = *raw.AI.JSONMode
	}

	cfg := &Config{
		Query:      strings.TrimSpace(raw.Query),
		NumScrolls: raw.NumScrolls,
		Requirements: model.RequirementSet{
			RecencyDays:         recency,
			Locations:           merge(raw.Requirements.Locations, raw.Requirements.Location),
			Companies:           merge(raw.Requirements.Companies, raw.Requirements.Company),
			DegreeRequired:      raw.Requirements.Degree,
			SimilarityThreshold: threshold,
		},
		Extraction: mode,
		APIKey:     resolveAPIKey(raw.APIKey),
		Source: SourceConfig{
			Type:        sourceType,
			BaseURL:     sourceBaseURL,
			Board:       raw.Source.Board,
			Company:     orDefault(raw.Source.Company, raw.Source.Board),
			MinDelay:    minDelay,
			ScrollPause: scrollPause,
			Headless:    headless,
		},
		Sink: raw.Sink,
		State: StateConfig{
			Path:      orDefault(raw.State.Path, defaultStatePath),
			Retention: retention,
		},
		AI: AIConfig{
			BaseURL:    orDefault(raw.AI.BaseURL, defaultOpenAIBaseURL),
			Model:      orDefault(raw.AI.Model, defaultModel),
			Timeout:    aiTimeout,
			MaxRetries: maxRetries,
			MaxTokens:  orDefaultInt(raw.AI.MaxTokens, defaultMaxTokens),
			JSONMode:   jsonMode,
		},
		Notification: raw.Notification,
		Watch:        WatchConfig{Interval: watchInterval},
	}

	cfg.Sink.Type = orDefault(strings.ToLower(cfg.Sink.Type), "csv")
	if cfg.Sink.Path == "" {
		switch cfg.Sink.Type {
		case "csv":
			cfg.Sink.Path = defaultCSVPath
		case "sqlite":
			cfg.Sink.Path = defaultSQLitePath
		}
	}
	cfg.Notification.Type = orDefault(strings.ToLower(cfg.Notification.Type), "log")

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseRecency accepts "N days", "N day" or a bare "N". Nil or blank means
// no recency requirement.
func parseRecency(raw *string) (*int, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	fields := strings.Fields(strings.ToLower(*raw))
	if len(fields) > 2 || (len(fields) == 2 && fields[1] != "days" && fields[1] != "day") {
		return nil, fmt.Errorf("parse requirements.recency %q: want \"N days\"", *raw)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("parse requirements.recency %q: %w", *raw, err)
	}
	if n < 0 {
		return nil, fmt.Errorf("requirements.recency must not be negative, got %d", n)
	}
	return &n, nil
}

func parseDuration(key, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", key, raw, err)
	}
	return d, nil
}

// resolveAPIKey falls back from the file value to the environment, then to
// the OS keychain.
func resolveAPIKey(fromFile string) string {
	if key := strings.TrimSpace(fromFile); key != "" {
		return key
	}
	if key := strings.TrimSpace(os.Getenv(APIKeyEnv)); key != "" {
		return key
	}
	if key, err := apiKeyFromKeyring(); err == nil {
		return key
	}
	return ""
}

func merge(a, b stringList) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func validate(cfg *Config) error {
	if cfg.Query == "" {
		return fmt.Errorf("query is required")
	}
	if cfg.NumScrolls < 0 {
		return fmt.Errorf("num_scrolls must not be negative, got %d", cfg.NumScrolls)
	}
	if t := cfg.Requirements.SimilarityThreshold; t < 0 || t > 1 {
		return fmt.Errorf("similarity_threshold must be between 0 and 1, got %v", t)
	}
	if !cfg.Extraction.Valid() {
		return fmt.Errorf("extraction.mode must be one of none, sections, llm; got %q", cfg.Extraction)
	}

	switch cfg.Source.Type {
	case "http", "playwright", "chromedp":
	case "greenhouse", "lever":
		if cfg.Source.Board == "" {
			return fmt.Errorf("source.board is required for %s sources", cfg.Source.Type)
		}
	default:
		return fmt.Errorf("source.type must be one of http, playwright, chromedp, greenhouse, lever; got %q", cfg.Source.Type)
	}
	if cfg.Source.MinDelay < 0 {
		return fmt.Errorf("source.min_delay must not be negative, got %v", cfg.Source.MinDelay)
	}

	switch cfg.Sink.Type {
	case "csv", "sqlite":
		if cfg.Sink.Path == "" {
			return fmt.Errorf("sink.path is required for sink type %q", cfg.Sink.Type)
		}
	case "mysql":
		if cfg.Sink.DSN == "" {
			return fmt.Errorf("sink.dsn is required when sink.type is \"mysql\"")
		}
	case "none":
	default:
		return fmt.Errorf("sink.type must be one of csv, sqlite, mysql, none; got %q", cfg.Sink.Type)
	}

	switch cfg.Notification.Type {
	case "none", "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, slackWebhookPrefix) {
			return fmt.Errorf("notification.webhook_url must start with %s", slackWebhookPrefix)
		}
	default:
		return fmt.Errorf("notification.type must be one of none, log, slack; got %q", cfg.Notification.Type)
	}

	if cfg.Extraction == model.ModeLLM {
		if cfg.APIKey == "" {
			return fmt.Errorf("api_key is required when extraction.mode is \"llm\" (or set %s, or run `jobminer apikey set`)", APIKeyEnv)
		}
		if cfg.AI.Model == "" {
			return fmt.Errorf("ai.model is required when extraction.mode is \"llm\"")
		}
		if cfg.AI.Timeout <= 0 {
			return fmt.Errorf("ai.timeout must be positive, got %v", cfg.AI.Timeout)
		}
	}
	if cfg.AI.MaxTokens <= 0 {
		return fmt.Errorf("ai.max_tokens must be positive, got %d", cfg.AI.MaxTokens)
	}
	if cfg.AI.MaxRetries < 0 {
		return fmt.Errorf("ai.max_retries must not be negative, got %d", cfg.AI.MaxRetries)
	}

	if cfg.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be positive, got %v", cfg.Watch.Interval)
	}

	return nil
}

// isBoardSource reports whether listings come from an applicant-tracking
// board API rather than the search site.
func isBoardSource(sourceType string) bool {
	return sourceType == "greenhouse" || sourceType == "lever"
}
