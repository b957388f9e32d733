package models

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for catalog SKU metadata.
type ProductModel struct {
	BaseModel
	SKU                      string `gorm:"type:varchar(64);not null;uniqueIndex"`
	MerchantSKU              string `gorm:"type:varchar(64);index"`
	Name                     string `gorm:"type:varchar(255)"`
	RemoteFulfillmentEnabled bool   `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product.
func (m *ProductModel) ToDomain() fulfillment.Product {
	return fulfillment.Product{
		ID:                       m.ID,
		SKU:                      m.SKU,
		MerchantSKU:              m.MerchantSKU,
		Name:                     m.Name,
		RemoteFulfillmentEnabled: m.RemoteFulfillmentEnabled,
	}
}

// ProductModelFromDomain creates a persistence model from a domain Product.
func ProductModelFromDomain(p *fulfillment.Product) *ProductModel {
	now := time.Now()
	return &ProductModel{
		BaseModel:                BaseModel{ID: p.ID, CreatedAt: now, UpdatedAt: now},
		SKU:                      p.SKU,
		MerchantSKU:              p.MerchantSKU,
		Name:                     p.Name,
		RemoteFulfillmentEnabled: p.RemoteFulfillmentEnabled,
	}
}

// StockItemModel is the stock level of one product.
type StockItemModel struct {
	ProductID uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SKU       string          `gorm:"type:varchar(64);index"`
	Qty       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	IsInStock bool            `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockItemModel) TableName() string {
	return "stock_items"
}

// ToDomain converts the persistence model to a domain StockItem.
func (m *StockItemModel) ToDomain() *fulfillment.StockItem {
	return &fulfillment.StockItem{
		ProductID: m.ProductID,
		SKU:       m.SKU,
		Qty:       m.Qty,
		IsInStock: m.IsInStock,
	}
}
