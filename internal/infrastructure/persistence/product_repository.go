package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements fulfillment.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindEnabledPage returns one page of remote-fulfillment-enabled products
func (r *GormProductRepository) FindEnabledPage(ctx context.Context, offset, limit int) ([]fulfillment.Product, error) {
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).
		Where("remote_fulfillment_enabled = ?", true).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toProducts(rows), nil
}

// FindBySKUs returns products whose SKU or merchant SKU is in skus
func (r *GormProductRepository) FindBySKUs(ctx context.Context, skus []string) ([]fulfillment.Product, error) {
	if len(skus) == 0 {
		return []fulfillment.Product{}, nil
	}
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).
		Where("sku IN ? OR merchant_sku IN ?", skus, skus).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toProducts(rows), nil
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfillment.Product, error) {
	var row models.ProductModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	p := row.ToDomain()
	return &p, nil
}

// Save creates or updates a product
func (r *GormProductRepository) Save(ctx context.Context, product *fulfillment.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	row := models.ProductModelFromDomain(product)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"sku":                        row.SKU,
			"merchant_sku":               row.MerchantSKU,
			"name":                       row.Name,
			"remote_fulfillment_enabled": row.RemoteFulfillmentEnabled,
			"updated_at":                 time.Now(),
		}),
	}).Create(row).Error
}

func toProducts(rows []models.ProductModel) []fulfillment.Product {
	products := make([]fulfillment.Product, len(rows))
	for i := range rows {
		products[i] = rows[i].ToDomain()
	}
	return products
}

// GormStockRepository implements fulfillment.StockRepository using GORM
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// FindByProductID returns the stock record of a product
func (r *GormStockRepository) FindByProductID(ctx context.Context, productID uuid.UUID) (*fulfillment.StockItem, error) {
	var row models.StockItemModel
	if err := r.db.WithContext(ctx).First(&row, "product_id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// SetQuantity upserts the stock record in one statement
func (r *GormStockRepository) SetQuantity(ctx context.Context, productID uuid.UUID, sku string, qty int64) error {
	level := fulfillment.NewStockLevel(productID, sku, qty)
	row := models.StockItemModel{
		ProductID: level.ProductID,
		SKU:       level.SKU,
		Qty:       level.Qty,
		IsInStock: level.IsInStock,
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"sku", "qty", "is_in_stock", "updated_at"}),
	}).Create(&row).Error
}

var (
	_ fulfillment.ProductRepository = (*GormProductRepository)(nil)
	_ fulfillment.StockRepository   = (*GormStockRepository)(nil)
)
