package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vpr16/jobminer/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMarkSeenThenHasSeen(t *testing.T) {
	s := newTestStore(t)

	if err := s.MarkSeen("https://example.com/jobs/view/123"); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}

	seen, err := s.HasSeen("https://example.com/jobs/view/123")
	if err != nil {
		t.Fatalf("HasSeen: %v", err)
	}
	if !seen {
		t.Error("expected HasSeen to return true after MarkSeen")
	}
}

func TestHasSeenUnknownReturnsFalse(t *testing.T) {
	s := newTestStore(t)

	seen, err := s.HasSeen("https://example.com/nope")
	if err != nil {
		t.Fatalf("HasSeen: %v", err)
	}
	if seen {
		t.Error("expected HasSeen to return false for unknown URL")
	}
}

func TestMarkSeenIdempotent(t *testing.T) {
	s := newTestStore(t)

	if err := s.MarkSeen("u"); err != nil {
		t.Fatalf("first MarkSeen: %v", err)
	}
	if err := s.MarkSeen("u"); err != nil {
		t.Fatalf("second MarkSeen (duplicate): %v", err)
	}

	seen, err := s.HasSeen("u")
	if err != nil {
		t.Fatalf("HasSeen: %v", err)
	}
	if !seen {
		t.Error("expected HasSeen to return true after duplicate MarkSeen")
	}
}

func TestCleanupRemovesOldKeepsFresh(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return now.Add(-48 * time.Hour) }
	if err := s.MarkSeen("old"); err != nil {
		t.Fatalf("MarkSeen old: %v", err)
	}
	s.now = func() time.Time { return now }
	if err := s.MarkSeen("fresh"); err != nil {
		t.Fatalf("MarkSeen fresh: %v", err)
	}

	if err := s.Cleanup(24 * time.Hour); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	seen, err := s.HasSeen("old")
	if err != nil {
		t.Fatalf("HasSeen old: %v", err)
	}
	if seen {
		t.Error("expected old entry to be cleaned up")
	}

	seen, err = s.HasSeen("fresh")
	if err != nil {
		t.Fatalf("HasSeen fresh: %v", err)
	}
	if !seen {
		t.Error("expected fresh entry to survive cleanup")
	}
}

func TestAppendRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	field := "Software"
	degree := model.DegreeBachelor
	rec := model.JobRecord{
		RawListing: model.RawListing{
			URL:        "https://example.com/jobs/view/1",
			Title:      "Intern",
			Company:    "Acme",
			Location:   "Remote",
			PostedDate: "2024-06-08",
		},
		Extraction: model.Extraction{Attributes: &model.ExtractedAttributes{
			Field:        &field,
			DegreeLevel:  &degree,
			Requirements: []string{"Go", "SQL"},
		}},
	}

	if err := s.Append(ctx, rec); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(ctx, model.JobRecord{RawListing: model.RawListing{URL: "https://example.com/jobs/view/2"}}); err != nil {
		t.Fatalf("Append bare: %v", err)
	}

	n, err := s.CountRecords(ctx, s.RunID())
	if err != nil {
		t.Fatalf("CountRecords: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 records, got %d", n)
	}

	var gotDegree, gotReqs string
	err = s.db.QueryRow("SELECT degree, requirements FROM job_records WHERE url = ?", rec.URL).Scan(&gotDegree, &gotReqs)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if gotDegree != "2" || gotReqs != "Go; SQL" {
		t.Errorf("got degree=%q requirements=%q", gotDegree, gotReqs)
	}
}

func TestRunIDsDifferPerStore(t *testing.T) {
	a := newTestStore(t)
	b := newTestStore(t)
	if a.RunID() == "" || a.RunID() == b.RunID() {
		t.Errorf("expected distinct non-empty run IDs, got %q and %q", a.RunID(), b.RunID())
	}
}
