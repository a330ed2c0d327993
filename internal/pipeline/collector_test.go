package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpr16/jobminer/internal/model"
)

func newTestCollector(src model.ListingSource, p *Pipeline, sink *memorySink, seen *memorySeen, n *recordingNotifier) *Collector {
	var notifier model.Notifier
	if n != nil {
		notifier = n
	}
	return NewCollector(src, p, sink, seen, notifier, discardLogger())
}

func TestRunCollection_ProcessesAndRecords(t *testing.T) {
	src := &fakeSource{listings: []model.RawListing{
		listing("a", "Seattle, WA", "Acme", "2024-06-09"),
		listing("b", "Boston, MA", "Acme", "2024-06-09"),
		listing("c", "Seattle, WA", "Acme", "not-a-date"),
		listing("d", "Seattle, WA", "Acme", "2024-05-01"),
		listing("e", "Seattle", "Acme", "2024-06-10"),
	}}
	req := model.RequirementSet{
		RecencyDays:         intPtr(7),
		Locations:           []string{"Seattle, WA"},
		SimilarityThreshold: 0.7,
	}
	sink := &memorySink{}
	seen := newMemorySeen()
	notifier := &recordingNotifier{}
	c := newTestCollector(src, newPipeline(req, nil, nil, model.ModeNone), sink, seen, notifier)

	sum, err := c.RunCollection(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, sum.Listings)
	assert.Equal(t, 5, sum.Processed)
	assert.Equal(t, 2, sum.Accepted)
	assert.Equal(t, 1, sum.Malformed)
	assert.Equal(t, 1, sum.Rejected[model.ReasonLocationMismatch])
	assert.Equal(t, 1, sum.Rejected[model.ReasonStale])
	assert.Equal(t, 2, sum.RejectedTotal())

	require.Len(t, sink.records, 2)
	assert.Equal(t, "a", sink.records[0].URL)
	assert.Equal(t, "e", sink.records[1].URL)
	assert.Equal(t, sink.records, c.Snapshot())
	assert.Len(t, notifier.notified, 2)
	assert.True(t, seen.seen["a"])
	assert.False(t, seen.seen["b"], "rejected listings are not marked seen")
	assert.False(t, c.Running())
}

func TestRunCollection_SkipsSeen(t *testing.T) {
	src := &fakeSource{listings: []model.RawListing{
		listing("a", "X", "Y", "2024-06-09"),
		listing("b", "X", "Y", "2024-06-09"),
	}}
	fetcher := newCountingFetcher(map[string]string{"a": "d", "b": "d"})
	sink := &memorySink{}
	c := newTestCollector(src, newPipeline(model.RequirementSet{}, fetcher, &stubExtractor{}, model.ModeSections), sink, newMemorySeen("a"), nil)

	sum, err := c.RunCollection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.AlreadySeen)
	assert.Equal(t, 1, sum.Accepted)
	assert.Equal(t, 0, fetcher.calls["a"])
	assert.Equal(t, 1, fetcher.calls["b"])
}

func TestRunCollection_SourceErrorFailsRun(t *testing.T) {
	c := newTestCollector(&fakeSource{err: errBoom}, newPipeline(model.RequirementSet{}, nil, nil, model.ModeNone), &memorySink{}, newMemorySeen(), nil)
	_, err := c.RunCollection(context.Background())
	assert.ErrorIs(t, err, errBoom)
}

func TestRunCollection_SinkErrorFailsRun(t *testing.T) {
	src := &fakeSource{listings: []model.RawListing{listing("a", "X", "Y", "2024-06-09")}}
	seen := newMemorySeen()
	c := newTestCollector(src, newPipeline(model.RequirementSet{}, nil, nil, model.ModeNone), &memorySink{err: errBoom}, seen, nil)

	_, err := c.RunCollection(context.Background())
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, c.Snapshot())
	assert.False(t, seen.seen["a"])
}

func TestRunCollection_NotifierErrorIsNotFatal(t *testing.T) {
	src := &fakeSource{listings: []model.RawListing{listing("a", "X", "Y", "2024-06-09")}}
	seen := newMemorySeen()
	c := newTestCollector(src, newPipeline(model.RequirementSet{}, nil, nil, model.ModeNone), &memorySink{}, seen, &recordingNotifier{err: errBoom})

	sum, err := c.RunCollection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Accepted)
	assert.True(t, seen.seen["a"])
}

func TestRunCollection_CancelledStopsBeforeNextListing(t *testing.T) {
	src := &fakeSource{listings: []model.RawListing{
		listing("a", "X", "Y", "2024-06-09"),
		listing("b", "X", "Y", "2024-06-09"),
	}}
	ctx, cancel := context.WithCancel(context.Background())
	sink := &cancellingSink{cancel: cancel}
	c := NewCollector(src, newPipeline(model.RequirementSet{}, nil, nil, model.ModeNone), sink, newMemorySeen(), nil, discardLogger())

	sum, err := c.RunCollection(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sum.Accepted)
	assert.Len(t, c.Snapshot(), 1)
}

// cancellingSink cancels the run after its first append.
type cancellingSink struct {
	memorySink
	cancel context.CancelFunc
}

func (s *cancellingSink) Append(ctx context.Context, rec model.JobRecord) error {
	s.cancel()
	return s.memorySink.Append(ctx, rec)
}

func TestRecordLog_ConcurrentSnapshot(t *testing.T) {
	var log RecordLog
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			log.Append(model.JobRecord{RawListing: model.RawListing{Title: "t"}})
		}
	}()

	for i := 0; i < 50; i++ {
		snap := log.Snapshot()
		for j := range snap {
			snap[j].Title = "mutated"
		}
	}
	wg.Wait()

	assert.Equal(t, 100, log.Len())
	for _, rec := range log.Snapshot() {
		assert.Equal(t, "t", rec.Title, "snapshot mutation must not leak into the log")
	}
}
