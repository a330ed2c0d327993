package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpr16/jobminer/internal/model"
)

func listing(url, location, company, posted string) model.RawListing {
	return model.RawListing{URL: url, Title: "Engineer", Company: company, Location: location, PostedDate: posted}
}

func newPipeline(req model.RequirementSet, f model.DescriptionFetcher, e model.DescriptionExtractor, mode model.ExtractionMode) *Pipeline {
	return New(req, f, e, Options{
		Mode:           mode,
		ExtractTimeout: time.Second,
		Now:            func() time.Time { return fixedNow },
	}, discardLogger())
}

func TestProcess_RejectedListingNeverFetches(t *testing.T) {
	req := model.RequirementSet{
		RecencyDays:         intPtr(7),
		Locations:           []string{"Seattle"},
		SimilarityThreshold: 0.8,
	}
	fetcher := newCountingFetcher(nil)
	ext := &stubExtractor{}
	p := newPipeline(req, fetcher, ext, model.ModeLLM)

	tests := []struct {
		name   string
		in     model.RawListing
		reason model.RejectReason
	}{
		{"stale", listing("u1", "Seattle", "Acme", "2024-06-01"), model.ReasonStale},
		{"location", listing("u2", "Boston", "Acme", "2024-06-09"), model.ReasonLocationMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, decision, err := p.Process(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Nil(t, rec)
			assert.False(t, decision.Accepted)
			assert.Equal(t, tt.reason, decision.Reason)
		})
	}
	assert.Zero(t, fetcher.total())
	assert.Zero(t, ext.calls)
}

func TestProcess_AcceptedFetchesOnce(t *testing.T) {
	field := "Data"
	fetcher := newCountingFetcher(map[string]string{"u1": "<p>desc</p>"})
	ext := &stubExtractor{extraction: model.Extraction{Attributes: &model.ExtractedAttributes{Field: &field}}}
	p := newPipeline(model.RequirementSet{}, fetcher, ext, model.ModeLLM)

	rec, decision, err := p.Process(context.Background(), listing("u1", "Remote", "Acme", "2024-06-09"))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, decision.Accepted)
	assert.Equal(t, 1, fetcher.calls["u1"])
	assert.Equal(t, "<p>desc</p>", ext.lastInput)
	require.NotNil(t, rec.Attributes)
	assert.Equal(t, "Data", *rec.Attributes.Field)
	assert.Nil(t, rec.Sections)
}

func TestProcess_ModeNoneSkipsFetch(t *testing.T) {
	fetcher := newCountingFetcher(map[string]string{"u1": "desc"})
	p := newPipeline(model.RequirementSet{}, fetcher, &stubExtractor{}, model.ModeNone)

	rec, _, err := p.Process(context.Background(), listing("u1", "Remote", "Acme", "2024-06-09"))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.Extraction.IsEmpty())
	assert.Zero(t, fetcher.total())
	assert.Equal(t, model.ModeNone, p.Mode())
}

func TestProcess_NilExtractorDegradesToNone(t *testing.T) {
	p := New(model.RequirementSet{}, newCountingFetcher(nil), nil, Options{Mode: model.ModeSections}, discardLogger())
	assert.Equal(t, model.ModeNone, p.Mode())
}

func TestProcess_ExtractionFailuresKeepBaseRecord(t *testing.T) {
	in := listing("u1", "Remote", "Acme", "2024-06-09")

	tests := []struct {
		name    string
		fetcher *countingFetcher
		ext     *stubExtractor
		calls   int
	}{
		{
			name:    "fetch error",
			fetcher: &countingFetcher{err: errBoom, calls: map[string]int{}},
			ext:     &stubExtractor{},
			calls:   0,
		},
		{
			name:    "empty description",
			fetcher: newCountingFetcher(map[string]string{"u1": "   "}),
			ext:     &stubExtractor{},
			calls:   0,
		},
		{
			name:    "extractor error",
			fetcher: newCountingFetcher(map[string]string{"u1": "desc"}),
			ext:     &stubExtractor{err: errBoom},
			calls:   1,
		},
		{
			name:    "extractor timeout",
			fetcher: newCountingFetcher(map[string]string{"u1": "desc"}),
			ext:     &stubExtractor{block: true},
			calls:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(model.RequirementSet{DegreeRequired: boolPtr(true)}, tt.fetcher, tt.ext, Options{
				Mode:           model.ModeLLM,
				ExtractTimeout: 10 * time.Millisecond,
				Now:            func() time.Time { return fixedNow },
			}, discardLogger())

			rec, decision, err := p.Process(context.Background(), in)
			require.NoError(t, err)
			require.NotNil(t, rec)
			assert.True(t, decision.Accepted)
			assert.Equal(t, in, rec.RawListing)
			assert.True(t, rec.Extraction.IsEmpty())
			assert.Equal(t, 1, tt.fetcher.total())
			assert.Equal(t, tt.calls, tt.ext.calls)
		})
	}
}

func TestProcess_DegreePostFilter(t *testing.T) {
	tests := []struct {
		name     string
		required *bool
		level    *int
		mode     model.ExtractionMode
		accepted bool
	}{
		{"required and bachelor", boolPtr(true), intPtr(model.DegreeBachelor), model.ModeLLM, true},
		{"required and none", boolPtr(true), intPtr(model.DegreeNone), model.ModeLLM, false},
		{"not required and none", boolPtr(false), intPtr(model.DegreeNone), model.ModeLLM, true},
		{"not required and master", boolPtr(false), intPtr(model.DegreeMaster), model.ModeLLM, false},
		{"required but unknown", boolPtr(true), nil, model.ModeLLM, true},
		{"no requirement", nil, intPtr(model.DegreeNone), model.ModeLLM, true},
		{"sections mode ignores degree", boolPtr(true), intPtr(model.DegreeNone), model.ModeSections, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := &stubExtractor{extraction: model.Extraction{Attributes: &model.ExtractedAttributes{DegreeLevel: tt.level}}}
			fetcher := newCountingFetcher(map[string]string{"u1": "desc"})
			p := newPipeline(model.RequirementSet{DegreeRequired: tt.required}, fetcher, ext, tt.mode)

			rec, decision, err := p.Process(context.Background(), listing("u1", "Remote", "Acme", "2024-06-09"))
			require.NoError(t, err)
			assert.Equal(t, tt.accepted, decision.Accepted)
			if tt.accepted {
				assert.NotNil(t, rec)
			} else {
				assert.Nil(t, rec)
				assert.Equal(t, model.ReasonDegreeMismatch, decision.Reason)
			}
			assert.Equal(t, 1, fetcher.total())
		})
	}
}

func TestProcess_MalformedDate(t *testing.T) {
	fetcher := newCountingFetcher(nil)
	p := newPipeline(model.RequirementSet{RecencyDays: intPtr(3)}, fetcher, &stubExtractor{}, model.ModeLLM)

	rec, _, err := p.Process(context.Background(), listing("u1", "Remote", "Acme", "June 9"))
	assert.Nil(t, rec)
	assert.True(t, errors.Is(err, model.ErrMalformedDate))
	assert.Zero(t, fetcher.total())
}
