package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormTransactionScope_CommitsInvoiceWithOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	orders := NewGormOrderRepository(db)

	order := newOrder(t, "100000010", 1, fulfillment.RemoteStatusProcessing)
	require.NoError(t, orders.Save(ctx, order))

	invoice := &fulfillment.Invoice{
		OrderID: order.ID,
		Items: []fulfillment.InvoiceItem{{
			OrderItemID: order.Items[0].ID,
			SKU:         "SKU-A",
			Qty:         decimal.NewFromInt(2),
			Price:       decimal.NewFromInt(10),
			TaxAmount:   decimal.RequireFromString("1.5"),
		}},
		ShippingAmount: decimal.NewFromInt(4),
		Subtotal:       decimal.NewFromInt(20),
		TaxAmount:      decimal.RequireFromString("1.5"),
		GrandTotal:     decimal.RequireFromString("25.5"),
		CreatedAt:      time.Now(),
	}

	err := NewGormTransactionScope(db).Execute(ctx, func(repos fulfillment.TransactionalRepositories) error {
		if err := repos.Invoices.Save(ctx, invoice); err != nil {
			return err
		}
		order.AddComment("Invoiced shipped quantities")
		return repos.Orders.Save(ctx, order)
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, invoice.ID)

	invoices, err := NewGormInvoiceRepository(db).FindByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	require.Len(t, invoices[0].Items, 1)
	assert.Equal(t, "SKU-A", invoices[0].Items[0].SKU)
	assert.True(t, decimal.RequireFromString("25.5").Equal(invoices[0].GrandTotal))

	loaded, err := orders.FindByIncrementID(ctx, "100000010")
	require.NoError(t, err)
	assert.Len(t, loaded.Comments, 1)
}

func TestGormTransactionScope_RollsBackShipment(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	orders := NewGormOrderRepository(db)

	order := newOrder(t, "100000011", 1, fulfillment.RemoteStatusProcessing)
	require.NoError(t, orders.Save(ctx, order))

	shipment := &fulfillment.Shipment{
		OrderID:       order.ID,
		PackageNumber: 1,
		Items: []fulfillment.ShipmentItem{{
			OrderItemID: order.Items[1].ID,
			SKU:         "SKU-B",
			Qty:         decimal.NewFromInt(1),
		}},
		Tracks:    []fulfillment.Track{{CarrierCode: "ups", Title: "United Parcel Service", Number: "1Z999"}},
		CreatedAt: time.Now(),
	}

	boom := errors.New("order save failed")
	err := NewGormTransactionScope(db).Execute(ctx, func(repos fulfillment.TransactionalRepositories) error {
		if err := repos.Shipments.Save(ctx, shipment); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	shipments, err := NewGormShipmentRepository(db).FindByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, shipments)
}

func TestGormShipmentRepository_OrdersByPackage(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewGormShipmentRepository(db)
	orderID := uuid.New()

	for _, pkg := range []int64{3, 1, 2} {
		require.NoError(t, repo.Save(ctx, &fulfillment.Shipment{
			OrderID:       orderID,
			PackageNumber: pkg,
			Items: []fulfillment.ShipmentItem{{
				OrderItemID: uuid.New(),
				SKU:         "SKU-A",
				Qty:         decimal.NewFromInt(1),
			}},
			Tracks:    []fulfillment.Track{{CarrierCode: "usps", Title: "United States Postal Service", Number: "9400"}},
			CreatedAt: time.Now(),
		}))
	}

	shipments, err := repo.FindByOrderID(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, shipments, 3)
	for i, s := range shipments {
		assert.Equal(t, int64(i+1), s.PackageNumber)
		require.Len(t, s.Tracks, 1)
		assert.Equal(t, "usps", s.Tracks[0].CarrierCode)
		require.Len(t, s.Items, 1)
	}
}
