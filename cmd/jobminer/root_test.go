package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vpr16/jobminer/internal/config"
	"github.com/vpr16/jobminer/internal/extract"
	"github.com/vpr16/jobminer/internal/model"
	"github.com/vpr16/jobminer/internal/store"
)

func TestLoadConfig_FallsBackToInputsJSON(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("JOBMINER_CONFIG", "")

	if err := os.WriteFile(filepath.Join(dir, legacyConfigPath), []byte(`{"query": "go developer", "num_scrolls": 2}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Query != "go developer" || cfg.NumScrolls != 2 {
		t.Errorf("got query=%q num_scrolls=%d", cfg.Query, cfg.NumScrolls)
	}
}

func TestLoadConfig_PrefersEnvPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("query: rust engineer\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, defaultConfigPath), []byte("query: ignored\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JOBMINER_CONFIG", path)

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Query != "rust engineer" {
		t.Errorf("query = %q, want %q", cfg.Query, "rust engineer")
	}
}

func TestBuildSink(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name  string
		sink  config.SinkConfig
		check func(model.RecordSink) bool
	}{
		{"csv", config.SinkConfig{Type: "csv", Path: filepath.Join(dir, "jobs.csv")}, func(s model.RecordSink) bool { _, ok := s.(*store.CSVSink); return ok }},
		{"sqlite", config.SinkConfig{Type: "sqlite", Path: filepath.Join(dir, "jobs.db")}, func(s model.RecordSink) bool { _, ok := s.(*store.SQLiteStore); return ok }},
		{"none", config.SinkConfig{Type: "none"}, func(s model.RecordSink) bool { _, ok := s.(*store.NopSink); return ok }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink, err := buildSink(&config.Config{Sink: tt.sink})
			if err != nil {
				t.Fatalf("buildSink: %v", err)
			}
			defer sink.Close()
			if !tt.check(sink) {
				t.Errorf("unexpected sink type %T", sink)
			}
		})
	}
}

func TestBuildExtractor(t *testing.T) {
	logger := setupLogger(false, os.Stderr)
	client := newHTTPClient()

	ext, err := buildExtractor(&config.Config{}, model.ModeNone, client, logger)
	if err != nil || ext != nil {
		t.Errorf("mode none: got %v, %v; want nil, nil", ext, err)
	}

	ext, err = buildExtractor(&config.Config{}, model.ModeSections, client, logger)
	if err != nil {
		t.Fatalf("mode sections: %v", err)
	}
	if _, ok := ext.(*extract.SectionExtractor); !ok {
		t.Errorf("mode sections: got %T", ext)
	}

	if _, err := buildExtractor(&config.Config{}, model.ModeLLM, client, logger); err == nil {
		t.Error("mode llm without api key: expected error")
	}
}

func TestNewExtractionOutput(t *testing.T) {
	field := "Software"
	degree := model.DegreeBachelor
	start := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	out := newExtractionOutput(model.Extraction{Attributes: &model.ExtractedAttributes{
		Field:        &field,
		DegreeLevel:  &degree,
		StartDate:    &start,
		Requirements: []string{"Go"},
	}})

	b, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"field":"Software","degree":2,"start_date":"2024-09-01","requirements":["Go"]}`
	if string(b) != want {
		t.Errorf("got %s\nwant %s", b, want)
	}
}
