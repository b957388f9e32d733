package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements fulfillment.OrderRepository using GORM.
// Orders are saved with optimistic locking on the version column; lines are
// upserted and status comments are append-only.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by its ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfillment.TrackedOrder, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByIncrementID finds an order by its storefront increment id
func (r *GormOrderRepository) FindByIncrementID(ctx context.Context, incrementID string) (*fulfillment.TrackedOrder, error) {
	return r.findOne(ctx, "increment_id = ?", incrementID)
}

func (r *GormOrderRepository) findOne(ctx context.Context, query string, arg any) (*fulfillment.TrackedOrder, error) {
	var row models.OrderModel
	if err := r.preload(r.db.WithContext(ctx)).Where(query, arg).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// Find returns orders matching filter
func (r *GormOrderRepository) Find(ctx context.Context, filter fulfillment.OrderFilter) ([]fulfillment.TrackedOrder, error) {
	var rows []models.OrderModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.OrderModel{}), filter)
	query = r.applyPaging(query, filter.Filter)
	if err := r.preload(query).Find(&rows).Error; err != nil {
		return nil, err
	}
	orders := make([]fulfillment.TrackedOrder, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, nil
}

// Count returns the number of orders matching filter, ignoring paging
func (r *GormOrderRepository) Count(ctx context.Context, filter fulfillment.OrderFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.OrderModel{}), filter).Count(&count).Error
	return count, err
}

// Save inserts a new order or updates an existing one when its version
// still matches the stored version. The in-memory version is advanced on
// a successful update.
func (r *GormOrderRepository) Save(ctx context.Context, order *fulfillment.TrackedOrder) error {
	row := models.OrderModelFromDomain(order)
	updated := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.OrderModel{}).
			Where("id = ? AND version = ?", order.ID, order.Version).
			Updates(orderColumns(row, order.Version+1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&models.OrderModel{}).Where("id = ?", order.ID).Count(&exists).Error; err != nil {
				return err
			}
			if exists > 0 {
				return shared.ErrConcurrencyConflict
			}
			if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
				return fmt.Errorf("insert order %s: %w", order.IncrementID, err)
			}
		} else {
			updated = true
		}

		if len(row.Items) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"position", "qty_ordered", "qty_canceled", "qty_shipped", "qty_invoiced",
					"price", "tax_amount", "is_virtual", "remote_fulfilled",
				}),
			}).Create(&row.Items).Error; err != nil {
				return fmt.Errorf("save order items: %w", err)
			}
		}
		if len(row.Comments) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row.Comments).Error; err != nil {
				return fmt.Errorf("save order comments: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if updated {
		order.Version++
	}
	return nil
}

func orderColumns(m *models.OrderModel, version int) map[string]any {
	return map[string]any{
		"state":                m.State,
		"remote_status":        m.RemoteStatus,
		"submission_count":     m.SubmissionCount,
		"remote_fulfilled":     m.RemoteFulfilled,
		"shipping_method":      m.ShippingMethod,
		"shipping_amount":      m.ShippingAmount,
		"customer_email":       m.CustomerEmail,
		"ship_name":            m.ShippingAddress.Name,
		"ship_line1":           m.ShippingAddress.Line1,
		"ship_line2":           m.ShippingAddress.Line2,
		"ship_line3":           m.ShippingAddress.Line3,
		"ship_city":            m.ShippingAddress.City,
		"ship_state_or_region": m.ShippingAddress.StateOrRegion,
		"ship_postal_code":     m.ShippingAddress.PostalCode,
		"ship_country_code":    m.ShippingAddress.CountryCode,
		"ship_phone":           m.ShippingAddress.Phone,
		"version":              version,
		"updated_at":           m.UpdatedAt,
	}
}

func (r *GormOrderRepository) preload(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") })
}

func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter fulfillment.OrderFilter) *gorm.DB {
	if len(filter.States) > 0 {
		states := make([]string, len(filter.States))
		for i, s := range filter.States {
			states[i] = string(s)
		}
		query = query.Where("state IN ?", states)
	}
	if len(filter.RemoteStatuses) > 0 {
		statuses := make([]string, len(filter.RemoteStatuses))
		for i, s := range filter.RemoteStatuses {
			statuses[i] = string(s)
		}
		query = query.Where("remote_status IN ?", statuses)
	}
	if len(filter.StoreIDs) > 0 {
		query = query.Where("store_id IN ?", filter.StoreIDs)
	}
	if filter.RemoteFulfilled != nil {
		query = query.Where("remote_fulfilled = ?", *filter.RemoteFulfilled)
	}
	if filter.AfterIncrementID != "" {
		query = query.Where("increment_id > ?", filter.AfterIncrementID)
	}
	return query
}

func (r *GormOrderRepository) applyPaging(query *gorm.DB, filter shared.Filter) *gorm.DB {
	field, clause := orderClause(filter, orderSortColumns, "increment_id")
	query = query.Order(clause)
	if field != "increment_id" {
		query = query.Order("increment_id ASC")
	}
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}

var _ fulfillment.OrderRepository = (*GormOrderRepository)(nil)
