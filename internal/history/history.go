// Package history records runbook executions in a local sqlite database so
// operators can see what ran against which host, and with what output.
package history

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MaxOutputBytes caps the step output kept per step.
const MaxOutputBytes = 64 * 1024

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Run is one execution of a runbook (or ad-hoc command) against one host.
type Run struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	Runbook    string `gorm:"size:255;index"`
	Host       string `gorm:"size:128;index"`
	Status     string `gorm:"size:16;index"`
	Error      string `gorm:"type:text"`
	StartedAt  time.Time
	FinishedAt *time.Time

	Steps []StepRun `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// StepRun is the outcome of one runbook step.
type StepRun struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	RunID      uint   `gorm:"index"`
	Index      int    `gorm:"column:step_index"`
	Name       string `gorm:"size:255"`
	Action     string `gorm:"size:32"`
	Command    string `gorm:"type:text"`
	ExitCode   int
	Output     string `gorm:"type:text"`
	Status     string `gorm:"size:16"`
	DurationMs int64
	CreatedAt  time.Time
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store persists runs.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the history database at path.
// The special path ":memory:" opens a throwaway in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("history: create directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}

	// sqlite allows one writer; an in-memory database also exists per connection.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Run{}, &StepRun{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("history: auto-migrate: %w", err)
	}

	log.Printf("[History] Opened %s", path)
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// StartRun records the beginning of a run.
func (s *Store) StartRun(ctx context.Context, runbook, host string) (*Run, error) {
	run := &Run{
		Runbook:   runbook,
		Host:      host,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("history: start run: %w", err)
	}
	return run, nil
}

// RecordStep appends a step outcome to a run. Output beyond MaxOutputBytes
// is cut, keeping the tail where errors usually are.
func (s *Store) RecordStep(ctx context.Context, runID uint, step StepRun) error {
	step.ID = 0
	step.RunID = runID
	step.Output = truncateOutput(step.Output)
	if err := s.db.WithContext(ctx).Create(&step).Error; err != nil {
		return fmt.Errorf("history: record step %d of run %d: %w", step.Index, runID, err)
	}
	return nil
}

// FinishRun marks a run finished. A nil runErr means the run succeeded.
func (s *Store) FinishRun(ctx context.Context, runID uint, runErr error) error {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":      StatusSucceeded,
		"error":       "",
		"finished_at": &now,
	}
	if runErr != nil {
		updates["status"] = StatusFailed
		updates["error"] = runErr.Error()
	}

	result := s.db.WithContext(ctx).Model(&Run{}).Where("id = ?", runID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("history: finish run %d: %w", runID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("history: finish run %d: %w", runID, ErrNotFound)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first, without steps.
// A limit of zero or less returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	q := s.db.WithContext(ctx).Order("started_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run with its steps in execution order.
func (s *Store) GetRun(ctx context.Context, id uint) (*Run, error) {
	var run Run
	err := s.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_index ASC").Order("id ASC")
		}).
		First(&run, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("history: run %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("history: get run %d: %w", id, err)
	}
	return &run, nil
}

func truncateOutput(s string) string {
	if len(s) <= MaxOutputBytes {
		return s
	}
	const marker = "...[truncated]\n"
	return marker + s[len(s)-(MaxOutputBytes-len(marker)):]
}
