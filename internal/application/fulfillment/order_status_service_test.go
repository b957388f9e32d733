package fulfillment

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type orderStatusFixture struct {
	service   *OrderStatusService
	client    *MockRemoteClient
	orders    *MockOrderRepository
	invoices  *MockInvoiceRepository
	shipments *MockShipmentRepository
	scopes    *MockStoreScopeProvider
	cursors   *memCursors
	notifier  *recordingNotifier
	saved     []*fulfillment.TrackedOrder
}

func newOrderStatusFixture(opts Options) *orderStatusFixture {
	f := &orderStatusFixture{
		client:    new(MockRemoteClient),
		orders:    new(MockOrderRepository),
		invoices:  new(MockInvoiceRepository),
		shipments: new(MockShipmentRepository),
		scopes:    new(MockStoreScopeProvider),
		cursors:   newMemCursors(nil),
		notifier:  &recordingNotifier{},
	}
	tx := &txScope{repos: fulfillment.TransactionalRepositories{
		Orders:    f.orders,
		Invoices:  f.invoices,
		Shipments: f.shipments,
	}}
	f.service = NewOrderStatusService(f.orders, f.scopes, f.cursors, tx, newTestGateway(f.client), f.notifier, opts, nil)
	f.scopes.On("EnabledStoreIDs", mock.Anything).Return([]int64{1}, nil)
	return f
}

// recordSaves captures a copy of every order passed to Save.
func (f *orderStatusFixture) recordSaves(err error) {
	f.orders.On("Save", mock.Anything, mock.AnythingOfType("*fulfillment.TrackedOrder")).
		Run(func(args mock.Arguments) {
			f.saved = append(f.saved, args.Get(1).(*fulfillment.TrackedOrder).Clone())
		}).
		Return(err)
}

func (f *orderStatusFixture) lastSaved(t *testing.T) *fulfillment.TrackedOrder {
	t.Helper()
	require.NotEmpty(t, f.saved)
	return f.saved[len(f.saved)-1]
}

func inFlightOrder(t *testing.T, items ...fulfillment.OrderItem) *fulfillment.TrackedOrder {
	order := testOrder(t, "100000001", items...)
	order.RemoteStatus = fulfillment.RemoteStatusReceived
	order.ShippingAmount = decimal.NewFromInt(6)
	return order
}

func remoteResult(status string) *fulfillment.FulfillmentOrderResult {
	return &fulfillment.FulfillmentOrderResult{
		FulfillmentOrder: fulfillment.FulfillmentOrder{
			SellerFulfillmentOrderID: "100000001",
			DisplayableOrderID:       "100000001",
			FulfillmentOrderStatus:   status,
		},
	}
}

func shippedResult() *fulfillment.FulfillmentOrderResult {
	result := remoteResult("COMPLETE")
	result.Shipments = []fulfillment.FulfillmentShipment{{
		AmazonShipmentID: "S1",
		Items: []fulfillment.FulfillmentShipmentItem{
			{SellerSKU: "M-A", Quantity: 2, PackageNumber: 1},
			{SellerSKU: "SKU-B", Quantity: 1, PackageNumber: 2},
		},
		Packages: []fulfillment.FulfillmentShipmentPackage{
			{PackageNumber: 1, CarrierCode: "UPS", TrackingNumber: "1Z100"},
			{PackageNumber: 2, CarrierCode: "USPS", TrackingNumber: "9400"},
		},
	}}
	return result
}

func TestOrderStatusService_CompletionInvoicesAndShips(t *testing.T) {
	f := newOrderStatusFixture(testOptions())
	order := inFlightOrder(t, testLine("SKU-A", "M-A", 2), testLine("SKU-B", "", 1))

	f.orders.On("Find", mock.Anything, mock.Anything).Return([]fulfillment.TrackedOrder{*order}, nil)
	f.client.On("GetFulfillmentOrder", mock.Anything, testSellerID, "100000001").Return(shippedResult(), nil)
	f.invoices.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	f.shipments.On("Save", mock.Anything, mock.Anything).Return(nil).Twice()
	f.recordSaves(nil)

	report, err := f.service.SyncOrderStatus(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Updated)
	f.invoices.AssertNumberOfCalls(t, "Save", 1)
	f.shipments.AssertNumberOfCalls(t, "Save", 2)

	final := f.lastSaved(t)
	assert.Equal(t, fulfillment.RemoteStatusComplete, final.RemoteStatus)
	assert.Equal(t, fulfillment.LocalOrderStateComplete, final.State)
	for _, item := range final.Items {
		assert.True(t, item.QtyShipped.Equal(item.QtyOrdered), item.SKU)
		assert.True(t, item.QtyInvoiced.Equal(item.QtyOrdered), item.SKU)
	}

	shipmentNotes := 0
	for _, n := range f.notifier.notes {
		if n.Severity == fulfillment.SeverityNotice {
			shipmentNotes++
		}
	}
	assert.Equal(t, 2, shipmentNotes)
}

func TestOrderStatusService_CompletionIsIdempotent(t *testing.T) {
	f := newOrderStatusFixture(testOptions())
	order := inFlightOrder(t, testLine("SKU-A", "M-A", 2), testLine("SKU-B", "", 1))
	for idx := range order.Items {
		order.Items[idx].QtyShipped = order.Items[idx].QtyOrdered
		order.Items[idx].QtyInvoiced = order.Items[idx].QtyOrdered
	}

	f.orders.On("Find", mock.Anything, mock.Anything).Return([]fulfillment.TrackedOrder{*order}, nil)
	f.client.On("GetFulfillmentOrder", mock.Anything, testSellerID, "100000001").Return(shippedResult(), nil)
	f.recordSaves(nil)

	_, err := f.service.SyncOrderStatus(context.Background())
	require.NoError(t, err)

	f.invoices.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.shipments.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	assert.Len(t, f.saved, 1)
	assert.Equal(t, fulfillment.RemoteStatusComplete, f.lastSaved(t).RemoteStatus)
}

func TestOrderStatusService_ShipmentFailureKeepsOrderInFlight(t *testing.T) {
	f := newOrderStatusFixture(testOptions())
	order := inFlightOrder(t, testLine("SKU-A", "M-A", 2), testLine("SKU-B", "", 1))

	f.orders.On("Find", mock.Anything, mock.Anything).Return([]fulfillment.TrackedOrder{*order}, nil)
	f.client.On("GetFulfillmentOrder", mock.Anything, testSellerID, "100000001").Return(shippedResult(), nil)
	f.invoices.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.shipments.On("Save", mock.Anything, mock.MatchedBy(func(s *fulfillment.Shipment) bool {
		return s.PackageNumber == 1
	})).Return(errors.New("disk full"))
	f.shipments.On("Save", mock.Anything, mock.MatchedBy(func(s *fulfillment.Shipment) bool {
		return s.PackageNumber == 2
	})).Return(nil)
	f.recordSaves(nil)

	report, err := f.service.SyncOrderStatus(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	final := f.lastSaved(t)
	assert.Equal(t, fulfillment.RemoteStatusReceived, final.RemoteStatus)
	assert.True(t, final.Items[0].QtyShipped.IsZero())
	assert.True(t, final.Items[1].QtyShipped.Equal(decimal.NewFromInt(1)))
}

func TestOrderStatusService_EchoMismatchNeverTransitions(t *testing.T) {
	f := newOrderStatusFixture(testOptions())
	order := inFlightOrder(t, testLine("SKU-A", "", 1))
	result := shippedResult()
	result.FulfillmentOrder.DisplayableOrderID = "100000999"

	f.orders.On("Find", mock.Anything, mock.Anything).Return([]fulfillment.TrackedOrder{*order}, nil)
	f.client.On("GetFulfillmentOrder", mock.Anything, testSellerID, "100000001").Return(result, nil)

	report, err := f.service.SyncOrderStatus(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	f.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.invoices.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	require.Len(t, f.notifier.notes, 1)
	assert.Contains(t, f.notifier.notes[0].Message, "100000001")
}

func TestOrderStatusService_RejectionCancelsOnlyMatchedLines(t *testing.T) {
	f := newOrderStatusFixture(testOptions())
	order := inFlightOrder(t, testLine("SKU-A", "", 2), testLine("SKU-B", "M-B", 1), testLine("SKU-C", "", 3))
	result := remoteResult("UNFULFILLABLE")
	result.Items = []fulfillment.FulfillmentOrderItem{
		{SellerSKU: "SKU-A", Quantity: 2, UnfulfillableQuantity: 2},
		{SellerSKU: "M-B", Quantity: 1, UnfulfillableQuantity: 1},
		{SellerSKU: "SKU-C", Quantity: 3},
	}

	f.orders.On("Find", mock.Anything, mock.Anything).Return([]fulfillment.TrackedOrder{*order}, nil)
	f.client.On("GetFulfillmentOrder", mock.Anything, testSellerID, "100000001").Return(result, nil)
	f.recordSaves(nil)

	_, err := f.service.SyncOrderStatus(context.Background())
	require.NoError(t, err)

	final := f.lastSaved(t)
	assert.Equal(t, fulfillment.RemoteStatusUnfulfillable, final.RemoteStatus)
	assert.Equal(t, fulfillment.LocalOrderStateNew, final.State)
	assert.True(t, final.Items[0].QtyCanceled.Equal(decimal.NewFromInt(2)))
	assert.True(t, final.Items[1].QtyCanceled.Equal(decimal.NewFromInt(1)))
	assert.True(t, final.Items[2].QtyCanceled.IsZero())
	require.Len(t, final.Comments, 1)
	assert.Equal(t, fulfillment.CancellationComment([]string{"SKU-A", "SKU-B"}), final.Comments[0].Comment)
}

func TestOrderStatusService_MirrorsInFlightStatus(t *testing.T) {
	f := newOrderStatusFixture(testOptions())
	order := inFlightOrder(t, testLine("SKU-A", "", 1))

	f.orders.On("Find", mock.Anything, mock.Anything).Return([]fulfillment.TrackedOrder{*order}, nil)
	f.client.On("GetFulfillmentOrder", mock.Anything, testSellerID, "100000001").Return(remoteResult("PROCESSING"), nil)
	f.recordSaves(nil)

	_, err := f.service.SyncOrderStatus(context.Background())
	require.NoError(t, err)

	assert.Equal(t, fulfillment.RemoteStatusProcessing, f.lastSaved(t).RemoteStatus)
}

func TestOrderStatusService_LookupFailureNotifies(t *testing.T) {
	f := newOrderStatusFixture(testOptions())
	order := inFlightOrder(t, testLine("SKU-A", "", 1))

	f.orders.On("Find", mock.Anything, mock.Anything).Return([]fulfillment.TrackedOrder{*order}, nil)
	f.client.On("GetFulfillmentOrder", mock.Anything, testSellerID, "100000001").
		Return(nil, &fulfillment.RemoteError{StatusCode: 400, ErrorCode: "InvalidParameterValue", RequestID: "req-1"})

	report, err := f.service.SyncOrderStatus(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	require.Len(t, f.notifier.notes, 1)
	assert.Equal(t, "Unable to retrieve fulfillment data for order: 100000001.", f.notifier.notes[0].Message)
	f.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestOrderStatusService_PageCursor(t *testing.T) {
	opts := testOptions()
	opts.OrderPageSize = 2
	f := newOrderStatusFixture(opts)

	first := inFlightOrder(t, testLine("SKU-A", "", 1))
	second := testOrder(t, "100000002", testLine("SKU-A", "", 1))
	second.RemoteStatus = fulfillment.RemoteStatusReceived
	mirror := func(id string) *fulfillment.FulfillmentOrderResult {
		r := remoteResult("RECEIVED")
		r.FulfillmentOrder.DisplayableOrderID = id
		return r
	}

	f.orders.On("Find", mock.Anything, mock.MatchedBy(func(filter fulfillment.OrderFilter) bool {
		return filter.AfterIncrementID == "" && filter.Page == 1 && filter.PageSize == 2 && *filter.RemoteFulfilled
	})).Return([]fulfillment.TrackedOrder{*first, *second}, nil).Once()
	f.orders.On("Find", mock.Anything, mock.MatchedBy(func(filter fulfillment.OrderFilter) bool {
		return filter.AfterIncrementID == "100000002" && filter.Page == 1
	})).Return([]fulfillment.TrackedOrder{}, nil).Once()
	f.client.On("GetFulfillmentOrder", mock.Anything, testSellerID, "100000001").Return(mirror("100000001"), nil)
	f.client.On("GetFulfillmentOrder", mock.Anything, testSellerID, "100000002").Return(mirror("100000002"), nil)

	report, err := f.service.SyncOrderStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, report.PassCompleted)
	assert.Equal(t, "100000002", f.cursors.value(fulfillment.CursorOrderAfter))

	report, err = f.service.SyncOrderStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, report.PassCompleted)
	assert.Equal(t, "", f.cursors.value(fulfillment.CursorOrderAfter))
	f.orders.AssertExpectations(t)
}

func TestOrderStatusService_NoEnabledStores(t *testing.T) {
	f := &orderStatusFixture{
		orders: new(MockOrderRepository),
		scopes: new(MockStoreScopeProvider),
	}
	f.service = NewOrderStatusService(f.orders, f.scopes, newMemCursors(nil), &txScope{},
		newTestGateway(new(MockRemoteClient)), nil, testOptions(), nil)
	f.scopes.On("EnabledStoreIDs", mock.Anything).Return([]int64{}, nil)

	report, err := f.service.SyncOrderStatus(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Skipped)
	f.orders.AssertNotCalled(t, "Find", mock.Anything, mock.Anything)
}
