package fulfillment

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductRepository reads product SKU metadata.
type ProductRepository interface {
	// FindEnabledPage returns remote-fulfillment-enabled products ordered by id.
	FindEnabledPage(ctx context.Context, offset, limit int) ([]Product, error)
	// FindBySKUs returns products whose canonical or merchant SKU is in skus.
	FindBySKUs(ctx context.Context, skus []string) ([]Product, error)
	Save(ctx context.Context, product *Product) error
}

// StockRepository writes local stock levels.
type StockRepository interface {
	FindByProductID(ctx context.Context, productID uuid.UUID) (*StockItem, error)
	// SetQuantity upserts the stock record, deriving the in-stock flag from qty.
	SetQuantity(ctx context.Context, productID uuid.UUID, sku string, qty int64) error
}

// OrderFilter selects tracked orders.
type OrderFilter struct {
	shared.Filter
	States          []LocalOrderState
	RemoteStatuses  []RemoteStatus
	StoreIDs        []int64
	RemoteFulfilled *bool
	// AfterIncrementID keeps only orders sorting after this increment id.
	AfterIncrementID string
}

// OrderRepository reads and writes tracked orders with their items and comments.
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*TrackedOrder, error)
	FindByIncrementID(ctx context.Context, incrementID string) (*TrackedOrder, error)
	// Find returns orders matching filter ordered by increment id ascending.
	Find(ctx context.Context, filter OrderFilter) ([]TrackedOrder, error)
	Count(ctx context.Context, filter OrderFilter) (int64, error)
	// Save persists the order. A stale version returns shared.ErrConcurrencyConflict.
	Save(ctx context.Context, order *TrackedOrder) error
}

// InvoiceRepository persists invoices.
type InvoiceRepository interface {
	Save(ctx context.Context, invoice *Invoice) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]Invoice, error)
}

// ShipmentRepository persists shipments.
type ShipmentRepository interface {
	Save(ctx context.Context, shipment *Shipment) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]Shipment, error)
}

// TransactionalRepositories are the repositories bound to one transaction.
type TransactionalRepositories struct {
	Orders    OrderRepository
	Invoices  InvoiceRepository
	Shipments ShipmentRepository
}

// TransactionScope runs fn inside one database transaction. If fn returns an
// error the transaction is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// StoreScopeProvider returns the store scopes where remote fulfillment is
// active and enabled.
type StoreScopeProvider interface {
	EnabledStoreIDs(ctx context.Context) ([]int64, error)
	IsEnabled(ctx context.Context, storeID int64) (bool, error)
}
