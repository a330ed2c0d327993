package store

import (
	"context"
	"time"

	"github.com/vpr16/jobminer/internal/model"
)

// NopStore is a no-op seen store. It never marks URLs as seen, so every
// listing appears new on each collection.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) HasSeen(url string) (bool, error)       { return false, nil }
func (s *NopStore) MarkSeen(url string) error              { return nil }
func (s *NopStore) Cleanup(olderThan time.Duration) error { return nil }

// NopSink discards records. Used by `check` and dry runs.
type NopSink struct{}

func NewNopSink() *NopSink { return &NopSink{} }

func (s *NopSink) Append(ctx context.Context, rec model.JobRecord) error { return nil }
func (s *NopSink) Close() error                                       { return nil }
