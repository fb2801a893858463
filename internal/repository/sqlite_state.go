package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
)

// stateSnapshot is one saved copy of the registry document
type stateSnapshot struct {
	ID      uint      `gorm:"primaryKey;autoIncrement"`
	Key     string    `gorm:"column:state_key;type:varchar(64);index;not null"`
	Payload string    `gorm:"type:text;not null"`
	SavedAt time.Time `gorm:"not null"`
}

func (stateSnapshot) TableName() string { return "state_snapshots" }

// SQLiteStateStore is the on-disk fallback. Every save appends a snapshot and
// snapshots beyond the retention count are pruned in the same transaction.
type SQLiteStateStore struct {
	db        *gorm.DB
	retention int
	logger    *slog.Logger
}

// NewSQLiteStateStore opens (or creates) the database file at path
func NewSQLiteStateStore(path string, retention int, logger *slog.Logger) (*SQLiteStateStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open local state: %w", err)
	}
	if err := db.AutoMigrate(&stateSnapshot{}); err != nil {
		return nil, fmt.Errorf("failed to migrate local state: %w", err)
	}
	return &SQLiteStateStore{db: db, retention: retention, logger: logger}, nil
}

// Load returns the newest snapshot, or nil when none exists
func (s *SQLiteStateStore) Load(ctx context.Context) (*domain.AppState, error) {
	var snap stateSnapshot
	err := s.db.WithContext(ctx).Where("state_key = ?", StateKey).Order("id desc").Take(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load local state: %w", err)
	}
	return decodeState([]byte(snap.Payload))
}

// Save appends a snapshot and prunes old ones
func (s *SQLiteStateStore) Save(ctx context.Context, state *domain.AppState) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		snap := stateSnapshot{Key: StateKey, Payload: string(data), SavedAt: state.UpdatedAt}
		if err := tx.Create(&snap).Error; err != nil {
			return fmt.Errorf("failed to save local state: %w", err)
		}
		if s.retention <= 0 {
			return nil
		}
		prune := tx.Where("state_key = ? AND id NOT IN (?)", StateKey,
			tx.Model(&stateSnapshot{}).Select("id").Where("state_key = ?", StateKey).Order("id desc").Limit(s.retention),
		).Delete(&stateSnapshot{})
		if prune.Error != nil {
			return fmt.Errorf("failed to prune local state: %w", prune.Error)
		}
		if prune.RowsAffected > 0 {
			s.logger.Debug("pruned local snapshots", slog.Int64("removed", prune.RowsAffected))
		}
		return nil
	})
}

// SnapshotCount reports how many snapshots are retained
func (s *SQLiteStateStore) SnapshotCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&stateSnapshot{}).Where("state_key = ?", StateKey).Count(&n).Error
	return n, err
}

// Close releases the underlying connection
func (s *SQLiteStateStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
