package models

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShipmentModel is the persistence model for one shipped package.
type ShipmentModel struct {
	ID            uuid.UUID            `gorm:"type:uuid;primaryKey"`
	OrderID       uuid.UUID            `gorm:"type:uuid;not null;index:idx_shipment_order_package,priority:1"`
	PackageNumber int64                `gorm:"not null;index:idx_shipment_order_package,priority:2"`
	CreatedAt     time.Time            `gorm:"not null"`
	Items         []ShipmentItemModel  `gorm:"foreignKey:ShipmentID;references:ID"`
	Tracks        []ShipmentTrackModel `gorm:"foreignKey:ShipmentID;references:ID"`
}

// TableName returns the table name for GORM
func (ShipmentModel) TableName() string {
	return "shipments"
}

// ShipmentItemModel is a shipped quantity of an order line.
type ShipmentItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ShipmentID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderItemID uuid.UUID       `gorm:"type:uuid;not null;index"`
	SKU         string          `gorm:"type:varchar(64);not null"`
	Qty         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (ShipmentItemModel) TableName() string {
	return "shipment_items"
}

// ShipmentTrackModel is the carrier tracking of a shipment.
type ShipmentTrackModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ShipmentID  uuid.UUID `gorm:"type:uuid;not null;index"`
	CarrierCode string    `gorm:"type:varchar(64);not null"`
	Title       string    `gorm:"type:varchar(128)"`
	Number      string    `gorm:"type:varchar(128)"`
}

// TableName returns the table name for GORM
func (ShipmentTrackModel) TableName() string {
	return "shipment_tracks"
}

// ToDomain converts the persistence model to a domain Shipment.
func (m *ShipmentModel) ToDomain() fulfillment.Shipment {
	s := fulfillment.Shipment{
		ID:            m.ID,
		OrderID:       m.OrderID,
		PackageNumber: m.PackageNumber,
		CreatedAt:     m.CreatedAt,
		Items:         make([]fulfillment.ShipmentItem, len(m.Items)),
		Tracks:        make([]fulfillment.Track, len(m.Tracks)),
	}
	for i, item := range m.Items {
		s.Items[i] = fulfillment.ShipmentItem{OrderItemID: item.OrderItemID, SKU: item.SKU, Qty: item.Qty}
	}
	for i, track := range m.Tracks {
		s.Tracks[i] = fulfillment.Track{CarrierCode: track.CarrierCode, Title: track.Title, Number: track.Number}
	}
	return s
}

// ShipmentModelFromDomain creates a persistence model from a domain Shipment.
func ShipmentModelFromDomain(s *fulfillment.Shipment) *ShipmentModel {
	m := &ShipmentModel{
		ID:            s.ID,
		OrderID:       s.OrderID,
		PackageNumber: s.PackageNumber,
		CreatedAt:     s.CreatedAt,
		Items:         make([]ShipmentItemModel, len(s.Items)),
		Tracks:        make([]ShipmentTrackModel, len(s.Tracks)),
	}
	for i, item := range s.Items {
		m.Items[i] = ShipmentItemModel{
			ID:          uuid.New(),
			ShipmentID:  s.ID,
			OrderItemID: item.OrderItemID,
			SKU:         item.SKU,
			Qty:         item.Qty,
		}
	}
	for i, track := range s.Tracks {
		m.Tracks[i] = ShipmentTrackModel{
			ID:          uuid.New(),
			ShipmentID:  s.ID,
			CarrierCode: track.CarrierCode,
			Title:       track.Title,
			Number:      track.Number,
		}
	}
	return m
}
