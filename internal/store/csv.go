package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/gofrs/flock"

	"github.com/vpr16/jobminer/internal/model"
)

// CSVSink appends records to a CSV file in model.RecordColumns order. A
// sidecar lock file keeps two runs from interleaving rows in the same file.
type CSVSink struct {
	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
	lock *flock.Flock
}

// NewCSVSink opens path for appending, creating it if needed. The header row
// is written only when the file is empty.
func NewCSVSink(path string) (*CSVSink, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s is in use by another run", path)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		lock.Unlock()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	s := &CSVSink{file: f, w: csv.NewWriter(f), lock: lock}
	if info.Size() == 0 {
		if err := s.writeRow(model.RecordColumns); err != nil {
			s.Close()
			return nil, fmt.Errorf("writing header to %s: %w", path, err)
		}
	}
	return s, nil
}

// Append writes one row and flushes it immediately.
func (s *CSVSink) Append(ctx context.Context, rec model.JobRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeRow(rec.Row()); err != nil {
		return fmt.Errorf("appending %s: %w", rec.URL, err)
	}
	return nil
}

func (s *CSVSink) writeRow(row []string) error {
	if err := s.w.Write(row); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

// Close closes the file and releases the lock.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.file.Close(), s.lock.Unlock())
}
