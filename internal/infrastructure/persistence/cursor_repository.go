package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCursorStore implements fulfillment.CursorStore on the sync_cursors
// table. Set is a single upsert; CompareAndSet is a conditional update, or a
// conflict-free insert when the expected value is empty.
type GormCursorStore struct {
	db *gorm.DB
}

// NewGormCursorStore creates a new GormCursorStore
func NewGormCursorStore(db *gorm.DB) *GormCursorStore {
	return &GormCursorStore{db: db}
}

// Get returns the cursor value, or "" when the cursor does not exist
func (s *GormCursorStore) Get(ctx context.Context, name string) (string, error) {
	var row models.CursorModel
	err := s.db.WithContext(ctx).First(&row, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.Value, nil
}

// Set upserts the cursor value
func (s *GormCursorStore) Set(ctx context.Context, name, value string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&models.CursorModel{Name: name, Value: value, UpdatedAt: time.Now()}).Error
}

// CompareAndSet writes value when the stored value equals expected. An
// empty expected value also matches a missing row.
func (s *GormCursorStore) CompareAndSet(ctx context.Context, name, expected, value string) (bool, error) {
	db := s.db.WithContext(ctx)
	now := time.Now()

	result := db.Model(&models.CursorModel{}).
		Where("name = ? AND value = ?", name, expected).
		Updates(map[string]any{"value": value, "updated_at": now})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}
	if expected != "" {
		return false, nil
	}

	result = db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.CursorModel{Name: name, Value: value, UpdatedAt: now})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

var _ fulfillment.CursorStore = (*GormCursorStore)(nil)
