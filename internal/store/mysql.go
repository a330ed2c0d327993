package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vpr16/jobminer/internal/model"
)

// JobRecordEntity is the gorm mapping of a flattened record.
type JobRecordEntity struct {
	ID           int64     `gorm:"primaryKey;autoIncrement;column:id"`
	RunID        string    `gorm:"column:run_id;size:36;index"`
	URL          string    `gorm:"column:url;size:512"`
	Title        string    `gorm:"column:title"`
	Company      string    `gorm:"column:company"`
	Location     string    `gorm:"column:location"`
	PostedDate   string    `gorm:"column:posted_date;size:10"`
	Field        string    `gorm:"column:field"`
	Degree       string    `gorm:"column:degree;size:1"`
	StartDate    string    `gorm:"column:start_date;size:10"`
	Duration     string    `gorm:"column:duration"`
	Requirements string    `gorm:"column:requirements;type:text"`
	Sections     string    `gorm:"column:sections;type:text"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

// TableName pins the table name used by gorm.
func (JobRecordEntity) TableName() string { return "job_records" }

// newJobRecordEntity maps a record onto the entity through Row so that the
// column contents match every other sink.
func newJobRecordEntity(runID string, rec model.JobRecord) *JobRecordEntity {
	row := rec.Row()
	return &JobRecordEntity{
		RunID:        runID,
		URL:          row[0],
		Title:        row[1],
		Company:      row[2],
		Location:     row[3],
		PostedDate:   row[4],
		Field:        row[5],
		Degree:       row[6],
		StartDate:    row[7],
		Duration:     row[8],
		Requirements: row[9],
		Sections:     row[10],
	}
}

// GormSink writes records through gorm. NewMySQLSink is the production
// constructor; any gorm dialector works.
type GormSink struct {
	db    *gorm.DB
	runID string
}

// NewMySQLSink connects to MySQL using dsn and migrates the record table.
// The dsn uses the go-sql-driver format, e.g.
// "user:pass@tcp(localhost:3306)/jobs?charset=utf8mb4&parseTime=True".
func NewMySQLSink(dsn string) (*GormSink, error) {
	return NewGormSink(mysql.Open(dsn))
}

// NewGormSink opens dialector and migrates the record table.
func NewGormSink(dialector gorm.Dialector) (*GormSink, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&JobRecordEntity{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrating job_records: %w", err)
	}

	return &GormSink{db: db, runID: uuid.NewString()}, nil
}

// RunID identifies the records written by this sink instance.
func (s *GormSink) RunID() string { return s.runID }

// Append inserts one record.
func (s *GormSink) Append(ctx context.Context, rec model.JobRecord) error {
	if err := s.db.WithContext(ctx).Create(newJobRecordEntity(s.runID, rec)).Error; err != nil {
		return fmt.Errorf("inserting record %s: %w", rec.URL, err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *GormSink) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
