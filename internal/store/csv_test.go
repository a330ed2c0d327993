package store

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vpr16/jobminer/internal/model"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return rows
}

func TestCSVSink_HeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.csv")
	ctx := context.Background()

	for i, url := range []string{"https://a", "https://b"} {
		s, err := NewCSVSink(path)
		if err != nil {
			t.Fatalf("NewCSVSink #%d: %v", i, err)
		}
		if err := s.Append(ctx, model.JobRecord{RawListing: model.RawListing{URL: url, Title: "T"}}); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d rows", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(model.RecordColumns, ",") {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "https://a" || rows[2][0] != "https://b" {
		t.Errorf("unexpected row order: %v %v", rows[1], rows[2])
	}
}

func TestCSVSink_SectionsCellIsQuoted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.csv")
	s, err := NewCSVSink(path)
	if err != nil {
		t.Fatalf("NewCSVSink: %v", err)
	}
	rec := model.JobRecord{
		RawListing: model.RawListing{URL: "https://a"},
		Extraction: model.Extraction{Sections: model.Sections{"Skills": {"Go, SQL", "K8s"}}},
	}
	if err := s.Append(context.Background(), rec); err != nil {
		t.Fatalf("Append: %v", err)
	}
	s.Close()

	rows := readCSV(t, path)
	if got := rows[1][10]; got != `{"Skills":["Go, SQL","K8s"]}` {
		t.Errorf("sections cell = %q", got)
	}
	if len(rows[1]) != len(model.RecordColumns) {
		t.Errorf("expected %d columns, got %d", len(model.RecordColumns), len(rows[1]))
	}
}

func TestCSVSink_SecondWriterRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.csv")
	first, err := NewCSVSink(path)
	if err != nil {
		t.Fatalf("NewCSVSink: %v", err)
	}
	defer first.Close()

	if _, err := NewCSVSink(path); err == nil {
		t.Error("expected second sink on the same file to fail while locked")
	}
}

func TestCSVSink_CancelledContext(t *testing.T) {
	s, err := NewCSVSink(filepath.Join(t.TempDir(), "jobs.csv"))
	if err != nil {
		t.Fatalf("NewCSVSink: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Append(ctx, model.JobRecord{}); err == nil {
		t.Error("expected error for cancelled context")
	}
}
