package fulfillment

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the SKU metadata of a local catalog product.
type Product struct {
	ID                       uuid.UUID
	SKU                      string
	MerchantSKU              string
	Name                     string
	RemoteFulfillmentEnabled bool
}

// TrackedSku returns the product as a TrackedSku with no remote data yet.
func (p Product) TrackedSku() TrackedSku {
	return TrackedSku{ProductID: p.ID, SKU: p.SKU, MerchantSKU: p.MerchantSKU}
}

// StockItem is the local stock record of a product.
type StockItem struct {
	ProductID uuid.UUID
	SKU       string
	Qty       decimal.Decimal
	IsInStock bool
}

// NewStockLevel returns a stock record with the in-stock flag derived from qty.
func NewStockLevel(productID uuid.UUID, sku string, qty int64) StockItem {
	if qty < 0 {
		qty = 0
	}
	return StockItem{
		ProductID: productID,
		SKU:       sku,
		Qty:       decimal.NewFromInt(qty),
		IsInStock: qty > 0,
	}
}
