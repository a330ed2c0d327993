package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/vpr16/jobminer/internal/filter"
	"github.com/vpr16/jobminer/internal/model"
)

// Options tune a Pipeline. The zero value runs without extraction.
type Options struct {
	Mode model.ExtractionMode
	// ExtractTimeout bounds each extractor call. Zero means no extra bound
	// beyond the caller's context.
	ExtractTimeout time.Duration
	// Now is the clock used for recency checks. Defaults to time.Now.
	Now func() time.Time
}

// Pipeline turns one raw listing into a filter decision and, when accepted,
// a record: filter → fetch description → extract → degree check.
type Pipeline struct {
	req       model.RequirementSet
	fetcher   model.DescriptionFetcher
	extractor model.DescriptionExtractor
	mode      model.ExtractionMode
	timeout   time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a pipeline. fetcher and extractor may be nil when opts.Mode is
// none; a pipeline missing either one never extracts.
func New(
	req model.RequirementSet,
	fetcher model.DescriptionFetcher,
	extractor model.DescriptionExtractor,
	opts Options,
	logger *slog.Logger,
) *Pipeline {
	mode := opts.Mode
	if mode == "" || fetcher == nil || extractor == nil {
		mode = model.ModeNone
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		req:       req,
		fetcher:   fetcher,
		extractor: extractor,
		mode:      mode,
		timeout:   opts.ExtractTimeout,
		now:       now,
		logger:    logger,
	}
}

// Mode reports the effective extraction mode.
func (p *Pipeline) Mode() model.ExtractionMode { return p.mode }

// Process evaluates listing and builds its record. Rejected listings return a
// nil record and never touch the fetcher. Accepted listings cause at most one
// description fetch. The only error returned is a malformed posted date;
// fetch and extraction failures degrade to an empty extraction.
func (p *Pipeline) Process(ctx context.Context, listing model.RawListing) (*model.JobRecord, model.FilterDecision, error) {
	decision, err := filter.Evaluate(listing, p.req, p.now())
	if err != nil {
		return nil, model.FilterDecision{}, err
	}
	if !decision.Accepted {
		p.logger.Debug("listing rejected", "url", listing.URL, "reason", decision.Reason)
		return nil, decision, nil
	}

	rec := &model.JobRecord{RawListing: listing}
	if p.mode == model.ModeNone {
		return rec, decision, nil
	}

	rec.Extraction = p.extract(ctx, listing)

	if p.mode == model.ModeLLM && !degreeSatisfied(p.req.DegreeRequired, rec.Attributes) {
		p.logger.Debug("listing rejected", "url", listing.URL, "reason", model.ReasonDegreeMismatch)
		return nil, model.Reject(model.ReasonDegreeMismatch), nil
	}

	return rec, decision, nil
}

func (p *Pipeline) extract(ctx context.Context, listing model.RawListing) model.Extraction {
	description, err := p.fetcher.FetchDescription(ctx, listing.URL)
	if err != nil {
		p.logger.Warn("description fetch failed, skipping extraction", "url", listing.URL, "error", err)
		return model.Extraction{}
	}
	if strings.TrimSpace(description) == "" {
		p.logger.Debug("empty description, skipping extraction", "url", listing.URL)
		return model.Extraction{}
	}

	extractCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		extractCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	extraction, err := p.extractor.Extract(extractCtx, description)
	if err != nil {
		p.logger.Warn("extraction failed, keeping base record", "url", listing.URL, "mode", p.mode, "error", err)
		return model.Extraction{}
	}
	return extraction
}

// degreeSatisfied applies the degree requirement to extracted attributes.
// An unknown degree level never rejects.
func degreeSatisfied(required *bool, attrs *model.ExtractedAttributes) bool {
	if required == nil || attrs == nil || attrs.DegreeLevel == nil {
		return true
	}
	if *required {
		return *attrs.DegreeLevel >= model.DegreeAssociate
	}
	return *attrs.DegreeLevel == model.DegreeNone
}
