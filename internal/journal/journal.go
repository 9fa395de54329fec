// Package journal records settled mutations in a local SQLite database.
// The journal is a diagnostic trail: writes are best effort and never
// block or fail a settlement.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/LexForumLab/lexforum/client/internal/mutation"
)

// ErrMissingDatabase indicates the journal was constructed without a database.
var ErrMissingDatabase = errors.New("journal: database is required")

// Record is one settled mutation.
type Record struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Operation   string `gorm:"size:128;index"`
	Resource    string `gorm:"size:64;index"`
	EntityID    int64
	TemporaryID int64
	Outcome     string `gorm:"size:16"`
	ErrorDetail string
	StartedAt   time.Time
	SettledAt   time.Time `gorm:"index"`
}

// TableName pins the journal to a stable table name.
func (Record) TableName() string {
	return "mutation_journal"
}

// OpenSQLite establishes a SQLite connection and migrates the journal schema.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("journal: database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("journal initialized", zap.String("path", path))
	}
	return db, nil
}

// Journal persists mutation settlements. It implements mutation.Recorder.
type Journal struct {
	db *gorm.DB
}

// New returns a Journal over the given database.
func New(db *gorm.DB) (*Journal, error) {
	if db == nil {
		return nil, ErrMissingDatabase
	}
	return &Journal{db: db}, nil
}

// Record implements mutation.Recorder.
func (j *Journal) Record(ctx context.Context, input mutation.RecordInput) error {
	record := Record{
		Operation:   input.Operation,
		Resource:    input.Kind.String(),
		EntityID:    input.EntityID.Int64(),
		TemporaryID: input.TemporaryID.Int64(),
		Outcome:     input.Outcome,
		ErrorDetail: input.ErrorDetail,
		StartedAt:   input.StartedAt,
		SettledAt:   input.SettledAt,
	}
	return j.db.WithContext(ctx).Create(&record).Error
}

// Recent returns the latest settlements, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []Record
	err := j.db.WithContext(ctx).
		Order("settled_at DESC, id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Prune deletes settlements older than the cutoff and reports how many
// rows were removed.
func (j *Journal) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	result := j.db.WithContext(ctx).
		Where("settled_at < ?", olderThan).
		Delete(&Record{})
	return result.RowsAffected, result.Error
}
