package persistence

import (
	"context"
	"errors"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStoreScopeRepository implements fulfillment.StoreScopeProvider from the
// store_scopes table. A non-empty allow list further restricts the result.
type GormStoreScopeRepository struct {
	db      *gorm.DB
	allowed map[int64]bool
}

// NewGormStoreScopeRepository creates a new GormStoreScopeRepository
func NewGormStoreScopeRepository(db *gorm.DB, allowed []int64) *GormStoreScopeRepository {
	r := &GormStoreScopeRepository{db: db}
	if len(allowed) > 0 {
		r.allowed = make(map[int64]bool, len(allowed))
		for _, id := range allowed {
			r.allowed[id] = true
		}
	}
	return r
}

// EnabledStoreIDs returns active stores with remote fulfillment enabled
func (r *GormStoreScopeRepository) EnabledStoreIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&models.StoreScopeModel{}).
		Where("active = ? AND remote_fulfillment_enabled = ?", true, true).
		Order("store_id ASC").
		Pluck("store_id", &ids).Error; err != nil {
		return nil, err
	}
	if r.allowed == nil {
		return ids, nil
	}
	out := ids[:0]
	for _, id := range ids {
		if r.allowed[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// IsEnabled reports whether remote fulfillment is enabled for the store
func (r *GormStoreScopeRepository) IsEnabled(ctx context.Context, storeID int64) (bool, error) {
	if r.allowed != nil && !r.allowed[storeID] {
		return false, nil
	}
	var row models.StoreScopeModel
	err := r.db.WithContext(ctx).First(&row, "store_id = ?", storeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return row.Active && row.RemoteFulfillmentEnabled, nil
}

// Upsert records a store scope
func (r *GormStoreScopeRepository) Upsert(ctx context.Context, storeID int64, code string, active, enabled bool) error {
	return r.db.WithContext(ctx).Save(&models.StoreScopeModel{
		StoreID:                  storeID,
		Code:                     code,
		Active:                   active,
		RemoteFulfillmentEnabled: enabled,
	}).Error
}

var _ fulfillment.StoreScopeProvider = (*GormStoreScopeRepository)(nil)
