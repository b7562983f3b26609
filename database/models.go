// Package database persists analysis runs for the trend-signals service.
//
// This package includes:
//   - Connection management using GORM and PostgreSQL
//   - Run, per-keyword acquisition, aligned matrix and correlation records
//   - Typed errors with operation context
//
// Stored runs are history for the API and for offline study. Acquisition never reads
// them back: every run fetches fresh data from the provider.
package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database holds the GORM database connection
type Database struct {
	db *gorm.DB
}

// DB returns the underlying GORM database instance
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Connect establishes database connection using GORM
func Connect(host string, port int, dbname, user, password string) (*Database, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		host, port, dbname, user, password)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// A run writes in short bursts; a small pool is enough
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{db: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Run statuses
const (
	RunRunning          = "running"
	RunCompleted        = "completed"
	RunInsufficientData = "insufficient_data"
	RunFailed           = "failed"
)

// AnalysisRun is one acquisition + analysis pass
type AnalysisRun struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	StartedAt  time.Time      `gorm:"not null;index" json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Keywords   pq.StringArray `gorm:"type:text[]" json:"keywords"`
	Window     string         `gorm:"type:text" json:"window"`
	Geo        string         `gorm:"type:text" json:"geo"`
	Status     string         `gorm:"type:text;not null" json:"status"`
	Recorded   int            `json:"recorded"`
	Rows       int            `json:"rows"`
	Message    string         `gorm:"type:text" json:"message,omitempty"`
}

func (AnalysisRun) TableName() string {
	return "analysis_runs"
}

// KeywordAttempt stores the acquisition outcome of one keyword
type KeywordAttempt struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID     uuid.UUID `gorm:"type:uuid;not null;index" json:"run_id"`
	Keyword   string    `gorm:"type:text;not null" json:"keyword"`
	Status    string    `gorm:"type:text;not null" json:"status"`
	Attempts  int       `json:"attempts"`
	Points    int       `json:"points"`
	LastError string    `gorm:"type:text" json:"last_error,omitempty"`
}

func (KeywordAttempt) TableName() string {
	return "keyword_attempts"
}

// SignalPoint is one cell of the aligned matrix
type SignalPoint struct {
	RunID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"run_id"`
	Keyword string    `gorm:"type:text;primaryKey" json:"keyword"`
	Date    time.Time `gorm:"primaryKey" json:"date"`
	Value   float64   `json:"value"`
}

func (SignalPoint) TableName() string {
	return "signal_points"
}

// SignalCorrelation stores the verdict of one keyword pair
type SignalCorrelation struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID       uuid.UUID `gorm:"type:uuid;not null;index:idx_signal_correlations_run" json:"run_id"`
	KeywordA    string    `gorm:"type:text;not null" json:"keyword_a"`
	KeywordB    string    `gorm:"type:text;not null" json:"keyword_b"`
	Title       string    `gorm:"type:text" json:"title"`
	Coefficient float64   `json:"coefficient"`
	Verdict     string    `gorm:"type:text" json:"verdict"`
}

func (SignalCorrelation) TableName() string {
	return "signal_correlations"
}
