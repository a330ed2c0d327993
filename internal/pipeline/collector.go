package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/vpr16/jobminer/internal/model"
)

// Summary counts what happened to the listings of one collection.
type Summary struct {
	Listings    int
	Processed   int
	AlreadySeen int
	Malformed   int
	Accepted    int
	Rejected    map[model.RejectReason]int
}

// RejectedTotal sums rejections across reasons.
func (s Summary) RejectedTotal() int {
	n := 0
	for _, c := range s.Rejected {
		n += c
	}
	return n
}

func (s Summary) clone() Summary {
	s.Rejected = maps.Clone(s.Rejected)
	return s
}

// Collector owns the full collection loop for one search:
// list → dedup → process → sink → log → notify → mark seen.
type Collector struct {
	source   model.ListingSource
	pipeline *Pipeline
	sink     model.RecordSink
	seen     model.SeenStore
	notifier model.Notifier
	log      *RecordLog
	logger   *slog.Logger

	mu       sync.Mutex
	progress Summary
	running  bool
}

// NewCollector creates a collector wired with all its dependencies. notifier
// may be nil.
func NewCollector(
	source model.ListingSource,
	pipeline *Pipeline,
	sink model.RecordSink,
	seen model.SeenStore,
	notifier model.Notifier,
	logger *slog.Logger,
) *Collector {
	return &Collector{
		source:   source,
		pipeline: pipeline,
		sink:     sink,
		seen:     seen,
		notifier: notifier,
		log:      &RecordLog{},
		logger:   logger,
	}
}

// RunCollection pulls the current listings and processes them one at a time.
// A listing-source failure or a sink failure aborts the run; a malformed
// posted date only skips that listing. Cancellation is checked before each
// listing, and the partial summary is returned with the context error.
func (c *Collector) RunCollection(ctx context.Context) (Summary, error) {
	c.mu.Lock()
	c.running = true
	c.progress = Summary{Rejected: make(map[model.RejectReason]int)}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	listings, err := c.source.Listings(ctx)
	if err != nil {
		return c.Progress(), fmt.Errorf("collecting listings: %w", err)
	}
	c.update(func(s *Summary) { s.Listings = len(listings) })
	c.logger.Info("listings collected", "count", len(listings))

	for _, listing := range listings {
		if err := ctx.Err(); err != nil {
			return c.Progress(), err
		}
		if err := c.handle(ctx, listing); err != nil {
			return c.Progress(), err
		}
	}

	sum := c.Progress()
	c.logger.Info("collection finished",
		"listings", sum.Listings,
		"accepted", sum.Accepted,
		"rejected", sum.RejectedTotal(),
		"already_seen", sum.AlreadySeen,
		"malformed", sum.Malformed,
	)
	return sum, nil
}

func (c *Collector) handle(ctx context.Context, listing model.RawListing) error {
	defer c.update(func(s *Summary) { s.Processed++ })

	seen, err := c.seen.HasSeen(listing.URL)
	if err != nil {
		return fmt.Errorf("checking seen status: %w", err)
	}
	if seen {
		c.update(func(s *Summary) { s.AlreadySeen++ })
		return nil
	}

	rec, decision, err := c.pipeline.Process(ctx, listing)
	if errors.Is(err, model.ErrMalformedDate) {
		c.logger.Warn("skipping listing", "url", listing.URL, "error", err)
		c.update(func(s *Summary) { s.Malformed++ })
		return nil
	}
	if err != nil {
		return fmt.Errorf("processing %s: %w", listing.URL, err)
	}
	if rec == nil {
		c.update(func(s *Summary) { s.Rejected[decision.Reason]++ })
		return nil
	}

	if err := c.sink.Append(ctx, *rec); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	c.log.Append(*rec)
	c.update(func(s *Summary) { s.Accepted++ })
	c.logger.Info("record saved", "title", rec.Title, "company", rec.Company, "url", rec.URL)

	if c.notifier != nil {
		if err := c.notifier.Notify([]model.JobRecord{*rec}); err != nil {
			c.logger.Warn("notification failed", "url", rec.URL, "error", err)
		}
	}

	if err := c.seen.MarkSeen(rec.URL); err != nil {
		return fmt.Errorf("marking seen: %w", err)
	}
	return nil
}

func (c *Collector) update(fn func(*Summary)) {
	c.mu.Lock()
	fn(&c.progress)
	c.mu.Unlock()
}

// Snapshot returns a copy of every record produced so far. Safe to call from
// any goroutine, including while RunCollection is running.
func (c *Collector) Snapshot() []model.JobRecord {
	return c.log.Snapshot()
}

// Progress returns the counters of the current or most recent collection.
func (c *Collector) Progress() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress.clone()
}

// Running reports whether a collection is in progress.
func (c *Collector) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
