package models

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for an invoice.
type InvoiceModel struct {
	ID             uuid.UUID          `gorm:"type:uuid;primaryKey"`
	OrderID        uuid.UUID          `gorm:"type:uuid;not null;index"`
	ShippingAmount decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	Subtotal       decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	TaxAmount      decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	GrandTotal     decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	CreatedAt      time.Time          `gorm:"not null"`
	Items          []InvoiceItemModel `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// InvoiceItemModel is an invoiced quantity of an order line.
type InvoiceItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderItemID uuid.UUID       `gorm:"type:uuid;not null;index"`
	SKU         string          `gorm:"type:varchar(64);not null"`
	Qty         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Price       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// ToDomain converts the persistence model to a domain Invoice.
func (m *InvoiceModel) ToDomain() fulfillment.Invoice {
	inv := fulfillment.Invoice{
		ID:             m.ID,
		OrderID:        m.OrderID,
		ShippingAmount: m.ShippingAmount,
		Subtotal:       m.Subtotal,
		TaxAmount:      m.TaxAmount,
		GrandTotal:     m.GrandTotal,
		CreatedAt:      m.CreatedAt,
		Items:          make([]fulfillment.InvoiceItem, len(m.Items)),
	}
	for i, item := range m.Items {
		inv.Items[i] = fulfillment.InvoiceItem{
			OrderItemID: item.OrderItemID,
			SKU:         item.SKU,
			Qty:         item.Qty,
			Price:       item.Price,
			TaxAmount:   item.TaxAmount,
		}
	}
	return inv
}

// InvoiceModelFromDomain creates a persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *fulfillment.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		ID:             inv.ID,
		OrderID:        inv.OrderID,
		ShippingAmount: inv.ShippingAmount,
		Subtotal:       inv.Subtotal,
		TaxAmount:      inv.TaxAmount,
		GrandTotal:     inv.GrandTotal,
		CreatedAt:      inv.CreatedAt,
		Items:          make([]InvoiceItemModel, len(inv.Items)),
	}
	for i, item := range inv.Items {
		m.Items[i] = InvoiceItemModel{
			ID:          uuid.New(),
			InvoiceID:   inv.ID,
			OrderItemID: item.OrderItemID,
			SKU:         item.SKU,
			Qty:         item.Qty,
			Price:       item.Price,
			TaxAmount:   item.TaxAmount,
		}
	}
	return m
}
