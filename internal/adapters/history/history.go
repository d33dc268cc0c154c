// Package history stores recommendation runs in a SQL database through gorm.
package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/survivor/pkg/logger"
	"github.com/okian/survivor/pkg/metrics"
)

const defaultListLimit = 20

// Store persists runs.
type Store struct {
	db     *gorm.DB
	logger logger.Logger
}

// Open connects to a sqlite database at dsn (":memory:" for a private
// in-memory database) and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", dsn, err)
	}
	// sqlite allows one writer; a single connection also keeps :memory: shared
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", dsn, err)
	}
	sqlDB.SetMaxOpenConns(1)
	return New(db)
}

// New migrates the schema on an existing connection.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Run{}, &RunPick{}); err != nil {
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return &Store{db: db, logger: logger.Get().Named("history")}, nil
}

// Close releases the connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save inserts run with its picks, assigning an ID when empty.
func (s *Store) Save(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	for i := range run.Picks {
		run.Picks[i].RunID = run.ID
		run.Picks[i].Position = i
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(run).Error
	})
	if err != nil {
		metrics.RecordHistoryOperation("save", "error")
		s.logger.Error(ctx, "save run failed", logger.String("id", run.ID), logger.Error(err))
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	metrics.RecordHistoryOperation("save", "ok")
	return nil
}

// Get loads one run with its picks in order.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.withPicks(ctx).Where("id = ?", id).First(&run).Error
	return s.found("get", &run, err)
}

// Latest loads the most recently created run.
func (s *Store) Latest(ctx context.Context) (*Run, error) {
	var run Run
	err := s.withPicks(ctx).Order("created_at DESC").Order("id").First(&run).Error
	return s.found("latest", &run, err)
}

// List returns up to limit runs, newest first, without picks.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit < 1 {
		limit = defaultListLimit
	}
	var runs []Run
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id").Limit(limit).Find(&runs).Error; err != nil {
		metrics.RecordHistoryOperation("list", "error")
		return nil, fmt.Errorf("list runs: %w", err)
	}
	metrics.RecordHistoryOperation("list", "ok")
	return runs, nil
}

func (s *Store) withPicks(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("Picks", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	})
}

func (s *Store) found(op string, run *Run, err error) (*Run, error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		metrics.RecordHistoryOperation(op, "not_found")
		return nil, ErrNotFound
	case err != nil:
		metrics.RecordHistoryOperation(op, "error")
		return nil, fmt.Errorf("%s run: %w", op, err)
	}
	metrics.RecordHistoryOperation(op, "ok")
	return run, nil
}
