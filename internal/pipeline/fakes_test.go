package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/vpr16/jobminer/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

// fixedNow is the clock used by every pipeline test.
var fixedNow = time.Date(2024, 6, 10, 15, 30, 0, 0, time.UTC)

type fakeSource struct {
	listings []model.RawListing
	err      error
}

func (s *fakeSource) Listings(context.Context) ([]model.RawListing, error) {
	return s.listings, s.err
}

// countingFetcher returns descriptions by URL and counts calls per URL.
type countingFetcher struct {
	mu           sync.Mutex
	descriptions map[string]string
	err          error
	calls        map[string]int
}

func newCountingFetcher(descriptions map[string]string) *countingFetcher {
	return &countingFetcher{descriptions: descriptions, calls: make(map[string]int)}
}

func (f *countingFetcher) FetchDescription(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if f.err != nil {
		return "", f.err
	}
	return f.descriptions[url], nil
}

func (f *countingFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// stubExtractor returns a canned extraction or error.
type stubExtractor struct {
	extraction model.Extraction
	err        error
	calls      int
	lastInput  string
	block      bool
}

func (e *stubExtractor) Extract(ctx context.Context, description string) (model.Extraction, error) {
	e.calls++
	e.lastInput = description
	if e.block {
		<-ctx.Done()
		return model.Extraction{}, ctx.Err()
	}
	return e.extraction, e.err
}

type memorySink struct {
	records []model.JobRecord
	err     error
}

func (s *memorySink) Append(_ context.Context, rec model.JobRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memorySink) Close() error { return nil }

type memorySeen struct {
	seen map[string]bool
}

func newMemorySeen(urls ...string) *memorySeen {
	s := &memorySeen{seen: make(map[string]bool)}
	for _, u := range urls {
		s.seen[u] = true
	}
	return s
}

func (s *memorySeen) HasSeen(url string) (bool, error) { return s.seen[url], nil }

func (s *memorySeen) MarkSeen(url string) error {
	s.seen[url] = true
	return nil
}

func (s *memorySeen) Cleanup(_ time.Duration) error { return nil }

type recordingNotifier struct {
	notified []model.JobRecord
	err      error
}

func (n *recordingNotifier) Notify(records []model.JobRecord) error {
	n.notified = append(n.notified, records...)
	return n.err
}

var errBoom = errors.New("boom")
