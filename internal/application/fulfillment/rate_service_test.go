package fulfillment

import (
	"context"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func day(d int) *time.Time {
	t := time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func fee(value string) []fulfillment.Fee {
	return []fulfillment.Fee{
		{Name: "FBAPerUnitFulfillmentFee", Amount: fulfillment.Money{CurrencyCode: "USD", Value: decimal.RequireFromString(value)}},
		{Name: "FBATransportationFee", Amount: fulfillment.Money{CurrencyCode: "USD", Value: decimal.NewFromInt(99)}},
	}
}

func TestRatesFromPreview(t *testing.T) {
	result := &fulfillment.FulfillmentPreviewResult{Previews: []fulfillment.FulfillmentPreview{
		{
			ShippingSpeedCategory: fulfillment.ShippingSpeedStandard,
			IsFulfillable:         true,
			EstimatedFees:         fee("5.99"),
			Shipments:             []fulfillment.PreviewShipment{{EarliestArrivalDate: day(9), LatestArrivalDate: day(12)}},
		},
		{
			ShippingSpeedCategory: fulfillment.ShippingSpeedPriority,
			IsFulfillable:         true,
			EstimatedFees:         fee("19.99"),
			Shipments:             []fulfillment.PreviewShipment{{EarliestArrivalDate: day(3), LatestArrivalDate: day(4)}},
		},
		{
			ShippingSpeedCategory: fulfillment.ShippingSpeedExpedited,
			IsFulfillable:         false,
			EstimatedFees:         fee("9.99"),
		},
	}}

	rates := RatesFromPreview(result)
	require.Len(t, rates, 2)
	assert.Equal(t, "Priority", rates[0].ShippingSpeed)
	assert.True(t, rates[0].Cost.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, "USD", rates[0].Currency)
	assert.Equal(t, day(3), rates[0].Earliest)
	assert.Equal(t, "Standard", rates[1].ShippingSpeed)
}

func TestRatesFromPreview_TiesKeepProviderOrder(t *testing.T) {
	result := &fulfillment.FulfillmentPreviewResult{Previews: []fulfillment.FulfillmentPreview{
		{ShippingSpeedCategory: fulfillment.ShippingSpeedExpedited, IsFulfillable: true,
			Shipments: []fulfillment.PreviewShipment{{LatestArrivalDate: day(5)}}},
		{ShippingSpeedCategory: fulfillment.ShippingSpeedPriority, IsFulfillable: true,
			Shipments: []fulfillment.PreviewShipment{{EarliestArrivalDate: day(5)}}},
	}}

	rates := RatesFromPreview(result)
	require.Len(t, rates, 2)
	assert.Equal(t, "Expedited", rates[0].ShippingSpeed)
	assert.Equal(t, "Priority", rates[1].ShippingSpeed)
	assert.True(t, rates[0].Cost.IsZero())
}

func TestRateService_Estimate(t *testing.T) {
	client := new(MockRemoteClient)
	service := NewRateService(newTestGateway(client), nil)

	client.On("GetFulfillmentPreview", mock.Anything, mock.MatchedBy(func(req *fulfillment.FulfillmentPreviewRequest) bool {
		return req.SellerID == testSellerID &&
			len(req.Items) == 1 &&
			req.Items[0].SellerSKU == "M-A" &&
			req.Items[0].SellerFulfillmentOrderItemID == "1" &&
			req.Address.CountryCode == "US"
	})).Return(&fulfillment.FulfillmentPreviewResult{Previews: []fulfillment.FulfillmentPreview{
		{ShippingSpeedCategory: fulfillment.ShippingSpeedStandard, IsFulfillable: true, EstimatedFees: fee("4.50")},
	}}, nil)

	rates := service.Estimate(context.Background(), RateRequest{
		Address: RateAddress{Name: "Jane", Line1: "1 Main St", City: "Seattle", CountryCode: "US"},
		Items:   []RateItem{{SKU: "SKU-A", MerchantSKU: "M-A", Quantity: 1}},
	})

	require.Len(t, rates, 1)
	assert.True(t, rates[0].Cost.Equal(decimal.RequireFromString("4.50")))
	client.AssertExpectations(t)
}

func TestRateService_Estimate_InvalidRequestSkipsProvider(t *testing.T) {
	client := new(MockRemoteClient)
	service := NewRateService(newTestGateway(client), nil)

	rates := service.Estimate(context.Background(), RateRequest{
		Address: RateAddress{Name: "Jane", Line1: "1 Main St", City: "Seattle", CountryCode: "USA"},
		Items:   []RateItem{{SKU: "SKU-A", Quantity: 1}},
	})

	assert.Nil(t, rates)
	client.AssertNotCalled(t, "GetFulfillmentPreview", mock.Anything, mock.Anything)
}
