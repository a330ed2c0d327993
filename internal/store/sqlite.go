package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/vpr16/jobminer/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS seen_jobs (
	url        TEXT PRIMARY KEY,
	first_seen DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS job_records (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL,
	url          TEXT NOT NULL,
	title        TEXT NOT NULL,
	company      TEXT NOT NULL,
	location     TEXT NOT NULL,
	posted_date  TEXT NOT NULL,
	field        TEXT NOT NULL,
	degree       TEXT NOT NULL,
	start_date   TEXT NOT NULL,
	duration     TEXT NOT NULL,
	requirements TEXT NOT NULL,
	sections     TEXT NOT NULL,
	created_at   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_job_records_run ON job_records (run_id);
`

// SQLiteStore keeps both the seen-URL set and the record table in a single
// SQLite file. It implements model.SeenStore and model.RecordSink. Every
// record written through one SQLiteStore shares a run ID.
type SQLiteStore struct {
	db    *sql.DB
	runID string
	now   func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the tables exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &SQLiteStore{
		db:    db,
		runID: uuid.NewString(),
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// RunID identifies the records written by this store instance.
func (s *SQLiteStore) RunID() string { return s.runID }

// HasSeen returns true if the given URL has already been recorded.
func (s *SQLiteStore) HasSeen(url string) (bool, error) {
	var exists int
	err := s.db.QueryRow("SELECT 1 FROM seen_jobs WHERE url = ?", url).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking seen status for %s: %w", url, err)
	}
	return true, nil
}

// MarkSeen records a URL as seen. If it already exists the call is a no-op.
func (s *SQLiteStore) MarkSeen(url string) error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO seen_jobs (url, first_seen) VALUES (?, ?)", url, s.now())
	if err != nil {
		return fmt.Errorf("marking %s as seen: %w", url, err)
	}
	return nil
}

// Cleanup deletes seen entries older than the given duration.
func (s *SQLiteStore) Cleanup(olderThan time.Duration) error {
	cutoff := s.now().Add(-olderThan)
	_, err := s.db.Exec("DELETE FROM seen_jobs WHERE first_seen < ?", cutoff)
	if err != nil {
		return fmt.Errorf("cleaning up seen jobs older than %v: %w", olderThan, err)
	}
	return nil
}

// Append inserts one record row tagged with the run ID.
func (s *SQLiteStore) Append(ctx context.Context, rec model.JobRecord) error {
	row := rec.Row()
	args := make([]any, 0, len(row)+2)
	args = append(args, s.runID)
	for _, v := range row {
		args = append(args, v)
	}
	args = append(args, s.now())

	_, err := s.db.ExecContext(ctx, `INSERT INTO job_records
		(run_id, url, title, company, location, posted_date, field, degree,
		 start_date, duration, requirements, sections, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return fmt.Errorf("inserting record %s: %w", rec.URL, err)
	}
	return nil
}

// CountRecords returns how many records the given run wrote.
func (s *SQLiteStore) CountRecords(ctx context.Context, runID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM job_records WHERE run_id = ?", runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records for run %s: %w", runID, err)
	}
	return n, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
