package persistence

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements fulfillment.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// Save inserts the invoice with its items
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *fulfillment.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(models.InvoiceModelFromDomain(invoice)).Error
}

// FindByOrderID returns the invoices of an order, oldest first
func (r *GormInvoiceRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]fulfillment.Invoice, error) {
	var rows []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	invoices := make([]fulfillment.Invoice, len(rows))
	for i := range rows {
		invoices[i] = rows[i].ToDomain()
	}
	return invoices, nil
}

// GormShipmentRepository implements fulfillment.ShipmentRepository using GORM
type GormShipmentRepository struct {
	db *gorm.DB
}

// NewGormShipmentRepository creates a new GormShipmentRepository
func NewGormShipmentRepository(db *gorm.DB) *GormShipmentRepository {
	return &GormShipmentRepository{db: db}
}

// Save inserts the shipment with its items and tracks
func (r *GormShipmentRepository) Save(ctx context.Context, shipment *fulfillment.Shipment) error {
	if shipment.ID == uuid.Nil {
		shipment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(models.ShipmentModelFromDomain(shipment)).Error
}

// FindByOrderID returns the shipments of an order by package number
func (r *GormShipmentRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]fulfillment.Shipment, error) {
	var rows []models.ShipmentModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Tracks").
		Where("order_id = ?", orderID).
		Order("package_number ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	shipments := make([]fulfillment.Shipment, len(rows))
	for i := range rows {
		shipments[i] = rows[i].ToDomain()
	}
	return shipments, nil
}

var (
	_ fulfillment.InvoiceRepository  = (*GormInvoiceRepository)(nil)
	_ fulfillment.ShipmentRepository = (*GormShipmentRepository)(nil)
)
