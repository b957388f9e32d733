package persistence

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"gorm.io/gorm"
)

// GormTransactionScope implements fulfillment.TransactionScope using GORM
// transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction. If fn returns an error,
// the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos fulfillment.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(fulfillment.TransactionalRepositories{
			Orders:    NewGormOrderRepository(tx),
			Invoices:  NewGormInvoiceRepository(tx),
			Shipments: NewGormShipmentRepository(tx),
		})
	})
}

var _ fulfillment.TransactionScope = (*GormTransactionScope)(nil)
