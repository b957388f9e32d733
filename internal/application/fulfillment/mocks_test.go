package fulfillment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRemoteClient is a mock implementation of fulfillment.RemoteClient
type MockRemoteClient struct {
	mock.Mock
}

func (m *MockRemoteClient) ListInventorySupply(ctx context.Context, query fulfillment.SupplyQuery) (*fulfillment.SupplyList, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.SupplyList), args.Error(1)
}

func (m *MockRemoteClient) ListInventorySupplyByNextToken(ctx context.Context, sellerID, nextToken string) (*fulfillment.SupplyList, error) {
	args := m.Called(ctx, sellerID, nextToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.SupplyList), args.Error(1)
}

func (m *MockRemoteClient) CreateFulfillmentOrder(ctx context.Context, req *fulfillment.CreateFulfillmentOrderRequest) (*fulfillment.CreateFulfillmentOrderResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.CreateFulfillmentOrderResult), args.Error(1)
}

func (m *MockRemoteClient) GetFulfillmentOrder(ctx context.Context, sellerID, orderID string) (*fulfillment.FulfillmentOrderResult, error) {
	args := m.Called(ctx, sellerID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.FulfillmentOrderResult), args.Error(1)
}

func (m *MockRemoteClient) CancelFulfillmentOrder(ctx context.Context, sellerID, orderID string) (*fulfillment.CancelFulfillmentOrderResult, error) {
	args := m.Called(ctx, sellerID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.CancelFulfillmentOrderResult), args.Error(1)
}

func (m *MockRemoteClient) GetFulfillmentPreview(ctx context.Context, req *fulfillment.FulfillmentPreviewRequest) (*fulfillment.FulfillmentPreviewResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.FulfillmentPreviewResult), args.Error(1)
}

// MockProductRepository is a mock implementation of fulfillment.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindEnabledPage(ctx context.Context, offset, limit int) ([]fulfillment.Product, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fulfillment.Product), args.Error(1)
}

func (m *MockProductRepository) FindBySKUs(ctx context.Context, skus []string) ([]fulfillment.Product, error) {
	args := m.Called(ctx, skus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fulfillment.Product), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *fulfillment.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

// MockOrderRepository is a mock implementation of fulfillment.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfillment.TrackedOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.TrackedOrder), args.Error(1)
}

func (m *MockOrderRepository) FindByIncrementID(ctx context.Context, incrementID string) (*fulfillment.TrackedOrder, error) {
	args := m.Called(ctx, incrementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.TrackedOrder), args.Error(1)
}

func (m *MockOrderRepository) Find(ctx context.Context, filter fulfillment.OrderFilter) ([]fulfillment.TrackedOrder, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fulfillment.TrackedOrder), args.Error(1)
}

func (m *MockOrderRepository) Count(ctx context.Context, filter fulfillment.OrderFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) Save(ctx context.Context, order *fulfillment.TrackedOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// MockInvoiceRepository is a mock implementation of fulfillment.InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *fulfillment.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]fulfillment.Invoice, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]fulfillment.Invoice), args.Error(1)
}

// MockShipmentRepository is a mock implementation of fulfillment.ShipmentRepository
type MockShipmentRepository struct {
	mock.Mock
}

func (m *MockShipmentRepository) Save(ctx context.Context, shipment *fulfillment.Shipment) error {
	args := m.Called(ctx, shipment)
	return args.Error(0)
}

func (m *MockShipmentRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]fulfillment.Shipment, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]fulfillment.Shipment), args.Error(1)
}

// MockStoreScopeProvider is a mock implementation of fulfillment.StoreScopeProvider
type MockStoreScopeProvider struct {
	mock.Mock
}

func (m *MockStoreScopeProvider) EnabledStoreIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockStoreScopeProvider) IsEnabled(ctx context.Context, storeID int64) (bool, error) {
	args := m.Called(ctx, storeID)
	return args.Bool(0), args.Error(1)
}

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// memCursors is an in-memory CursorStore.
type memCursors struct {
	mu     sync.Mutex
	values map[string]string
	sets   []string
}

func newMemCursors(initial map[string]string) *memCursors {
	values := make(map[string]string)
	for k, v := range initial {
		values[k] = v
	}
	return &memCursors{values: values}
}

func (c *memCursors) Get(_ context.Context, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[name], nil
}

func (c *memCursors) Set(_ context.Context, name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = value
	c.sets = append(c.sets, name)
	return nil
}

func (c *memCursors) CompareAndSet(_ context.Context, name, expected, value string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values[name] != expected {
		return false, nil
	}
	c.values[name] = value
	return true, nil
}

func (c *memCursors) value(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[name]
}

// failingCursors fails every read.
type failingCursors struct{}

var errCursorStore = errors.New("cursor store unavailable")

func (failingCursors) Get(context.Context, string) (string, error) { return "", errCursorStore }
func (failingCursors) Set(context.Context, string, string) error   { return errCursorStore }
func (failingCursors) CompareAndSet(context.Context, string, string, string) (bool, error) {
	return false, errCursorStore
}

// memStock records stock writes per product.
type memStock struct {
	mu     sync.Mutex
	levels map[uuid.UUID]int64
	writes int
}

func newMemStock() *memStock {
	return &memStock{levels: make(map[uuid.UUID]int64)}
}

func (s *memStock) FindByProductID(_ context.Context, productID uuid.UUID) (*fulfillment.StockItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := fulfillment.NewStockLevel(productID, "", s.levels[productID])
	return &item, nil
}

func (s *memStock) SetQuantity(_ context.Context, productID uuid.UUID, _ string, qty int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels[productID] = qty
	s.writes++
	return nil
}

func (s *memStock) snapshot() map[uuid.UUID]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]int64, len(s.levels))
	for k, v := range s.levels {
		out[k] = v
	}
	return out
}

// recordingNotifier collects notifications.
type recordingNotifier struct {
	notes []fulfillment.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, note fulfillment.Notification) error {
	n.notes = append(n.notes, note)
	return nil
}

// txScope runs fn directly against the given repositories.
type txScope struct {
	repos fulfillment.TransactionalRepositories
	calls int
}

func (t *txScope) Execute(_ context.Context, fn func(repos fulfillment.TransactionalRepositories) error) error {
	t.calls++
	return fn(t.repos)
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

const testSellerID = "A1SELLER"

func testOptions() Options {
	return DefaultOptions()
}

func newTestGateway(client fulfillment.RemoteClient) *RemoteGateway {
	return NewRemoteGateway(client, testSellerID, nil)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testOrder(t *testing.T, incrementID string, items ...fulfillment.OrderItem) *fulfillment.TrackedOrder {
	t.Helper()
	order, err := fulfillment.NewTrackedOrder(incrementID, 1, items)
	require.NoError(t, err)
	order.ShippingMethod = "amazonfulfillment_standard"
	order.CustomerEmail = "buyer@example.com"
	order.ShippingAddress = fulfillment.Address{
		Name:        "Jane Buyer",
		Line1:       "1 Main St",
		City:        "Seattle",
		PostalCode:  "98101",
		CountryCode: "US",
	}
	return order
}

func testLine(sku, merchantSKU string, qty int64) fulfillment.OrderItem {
	return fulfillment.OrderItem{
		ProductID:       uuid.New(),
		SKU:             sku,
		MerchantSKU:     merchantSKU,
		Name:            sku,
		QtyOrdered:      decimal.NewFromInt(qty),
		Price:           decimal.NewFromInt(10),
		TaxAmount:       decimal.Zero,
		RemoteFulfilled: true,
	}
}
