package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vpr16/jobminer/internal/model"
	"github.com/vpr16/jobminer/internal/pipeline"
)

// Collection is one repeatable collection pass.
type Collection interface {
	RunCollection(ctx context.Context) (pipeline.Summary, error)
}

// Scheduler owns the watch loop: it runs the collection once immediately,
// then again every interval until the context is cancelled.
type Scheduler struct {
	collection Collection
	interval   time.Duration
	seen       model.SeenStore
	retention  time.Duration
	logger     *slog.Logger
}

// NewScheduler creates a scheduler. When seen is non-nil and retention is
// positive, seen entries older than retention are purged before each pass.
func NewScheduler(collection Collection, interval time.Duration, seen model.SeenStore, retention time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		collection: collection,
		interval:   interval,
		seen:       seen,
		retention:  retention,
		logger:     logger,
	}
}

// Run starts the loop. A failed pass is logged and the loop continues. It
// returns nil when ctx is cancelled (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler", "interval", s.interval.String())

	for pass := 1; ; pass++ {
		s.runOnce(ctx, pass)

		select {
		case <-ctx.Done():
			s.logger.Info("shutting down scheduler")
			return nil
		case <-time.After(s.interval):
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, pass int) {
	if ctx.Err() != nil {
		return
	}

	if s.seen != nil && s.retention > 0 {
		if err := s.seen.Cleanup(s.retention); err != nil {
			s.logger.Warn("seen store cleanup failed", "error", err)
		}
	}

	sum, err := s.collection.RunCollection(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Error("collection failed", "pass", pass, "error", err)
		return
	}
	s.logger.Info("pass complete",
		"pass", pass,
		"accepted", sum.Accepted,
		"already_seen", sum.AlreadySeen,
		"next_in", s.interval.String(),
	)
}
