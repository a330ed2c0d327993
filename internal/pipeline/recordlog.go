package pipeline

import (
	"sync"

	"github.com/vpr16/jobminer/internal/model"
)

// RecordLog is the append-only list of records produced during a run. It is
// written by the collection goroutine and read by anyone else.
type RecordLog struct {
	mu      sync.RWMutex
	records []model.JobRecord
}

// Append adds rec to the end of the log.
func (l *RecordLog) Append(rec model.JobRecord) {
	l.mu.Lock()
	l.records = append(l.records, rec)
	l.mu.Unlock()
}

// Snapshot returns a copy of the records appended so far, in order.
func (l *RecordLog) Snapshot() []model.JobRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.JobRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records appended so far.
func (l *RecordLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
