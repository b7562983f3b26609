package database

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"trend-signals/acquisition"
	"trend-signals/analysis"
)

const insertBatchSize = 500

// RunRepository handles database operations for analysis runs
type RunRepository struct {
	db *Database
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *Database) *RunRepository {
	return &RunRepository{db: db}
}

// InitSchema performs auto-migration
func (r *RunRepository) InitSchema() error {
	log.Println("🔄 Migrating run tables...")
	err := r.db.db.AutoMigrate(
		&AnalysisRun{},
		&KeywordAttempt{},
		&SignalPoint{},
		&SignalCorrelation{},
	)
	if err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	return nil
}

// CreateRun inserts a new run
func (r *RunRepository) CreateRun(run *AnalysisRun) error {
	return wrap("CreateRun", r.db.db.Create(run).Error)
}

// FinishRun stamps the run with its final status
func (r *RunRepository) FinishRun(run *AnalysisRun, status, message string) error {
	now := time.Now()
	run.FinishedAt = &now
	run.Status = status
	run.Message = message
	return wrap("FinishRun", r.db.db.Save(run).Error)
}

// SaveAcquisition stores the per-keyword acquisition report
func (r *RunRepository) SaveAcquisition(runID uuid.UUID, report acquisition.Report) error {
	attempts := AttemptsFromReport(runID, report)
	if len(attempts) == 0 {
		return nil
	}
	return wrap("SaveAcquisition", r.db.db.CreateInBatches(attempts, insertBatchSize).Error)
}

// SaveResult stores the aligned matrix and the pair verdicts in one transaction
func (r *RunRepository) SaveResult(runID uuid.UUID, result *analysis.Result) error {
	points := PointsFromMatrix(runID, result.Matrix)
	correlations := CorrelationsFromResult(runID, result)

	err := r.db.db.Transaction(func(tx *gorm.DB) error {
		if len(points) > 0 {
			if err := tx.CreateInBatches(points, insertBatchSize).Error; err != nil {
				return err
			}
		}
		if len(correlations) > 0 {
			if err := tx.Create(&correlations).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return wrap("SaveResult", err)
}

// LatestRun returns the most recently started run
func (r *RunRepository) LatestRun() (*AnalysisRun, error) {
	var run AnalysisRun
	if err := r.db.db.Order("started_at DESC").First(&run).Error; err != nil {
		return nil, wrap("LatestRun", err)
	}
	return &run, nil
}

// CorrelationsForRun returns the stored verdicts of a run
func (r *RunRepository) CorrelationsForRun(runID uuid.UUID) ([]SignalCorrelation, error) {
	var out []SignalCorrelation
	err := r.db.db.Where("run_id = ?", runID).Order("id ASC").Find(&out).Error
	return out, wrap("CorrelationsForRun", err)
}

// AttemptsForRun returns the stored acquisition report of a run
func (r *RunRepository) AttemptsForRun(runID uuid.UUID) ([]KeywordAttempt, error) {
	var out []KeywordAttempt
	err := r.db.db.Where("run_id = ?", runID).Order("id ASC").Find(&out).Error
	return out, wrap("AttemptsForRun", err)
}

// AttemptsFromReport converts an acquisition report into rows
func AttemptsFromReport(runID uuid.UUID, report acquisition.Report) []KeywordAttempt {
	out := make([]KeywordAttempt, 0, len(report.Keywords))
	for _, k := range report.Keywords {
		out = append(out, KeywordAttempt{
			RunID:     runID,
			Keyword:   k.Keyword,
			Status:    string(k.Status),
			Attempts:  k.Attempts,
			Points:    k.Points,
			LastError: k.LastError,
		})
	}
	return out
}

// PointsFromMatrix flattens the aligned matrix into one row per cell
func PointsFromMatrix(runID uuid.UUID, m analysis.AlignedMatrix) []SignalPoint {
	out := make([]SignalPoint, 0, len(m.Dates)*len(m.Columns))
	for i, d := range m.Dates {
		for j, kw := range m.Columns {
			out = append(out, SignalPoint{RunID: runID, Keyword: kw, Date: d, Value: m.Values[i][j]})
		}
	}
	return out
}

// CorrelationsFromResult converts pair verdicts into rows
func CorrelationsFromResult(runID uuid.UUID, result *analysis.Result) []SignalCorrelation {
	out := make([]SignalCorrelation, 0, len(result.Verdicts))
	for _, v := range result.Verdicts {
		out = append(out, SignalCorrelation{
			RunID:       runID,
			KeywordA:    v.A,
			KeywordB:    v.B,
			Title:       v.Label(),
			Coefficient: v.Coefficient,
			Verdict:     string(v.Verdict),
		})
	}
	return out
}
