package fulfillment

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RateService quotes provider shipping speeds for a cart or product page.
type RateService struct {
	gateway *RemoteGateway
	logger  *zap.Logger
}

// NewRateService creates a new RateService
func NewRateService(gateway *RemoteGateway, logger *zap.Logger) *RateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateService{
		gateway: gateway,
		logger:  logger.Named("rate_quote"),
	}
}

// Estimate returns one rate per fulfillable shipping speed ordered by
// arrival time. A failed preview yields no rates.
func (s *RateService) Estimate(ctx context.Context, req RateRequest) []Rate {
	ctx, span := telemetry.StartSpan(ctx, "rate_quote", "estimate", "items", len(req.Items))
	defer span.End()

	preview := &fulfillment.FulfillmentPreviewRequest{
		SellerID: s.gateway.SellerID(),
		Address: fulfillment.NewDestinationAddress(fulfillment.Address{
			Name:          req.Address.Name,
			Line1:         req.Address.Line1,
			Line2:         req.Address.Line2,
			City:          req.Address.City,
			StateOrRegion: req.Address.StateOrRegion,
			PostalCode:    req.Address.PostalCode,
			CountryCode:   req.Address.CountryCode,
			Phone:         req.Address.Phone,
		}),
	}
	for i, item := range req.Items {
		sku := fulfillment.TrackedSku{SKU: item.SKU, MerchantSKU: item.MerchantSKU}
		preview.Items = append(preview.Items, fulfillment.FulfillmentPreviewItem{
			SellerSKU:                    sku.QuerySKU(),
			SellerFulfillmentOrderItemID: strconv.Itoa(i + 1),
			Quantity:                     item.Quantity,
		})
	}

	result := s.gateway.Preview(ctx, preview)
	if result == nil {
		return nil
	}
	rates := RatesFromPreview(result)
	s.logger.Debug("Shipping rates estimated", zap.Int("rates", len(rates)))
	return rates
}

// RatesFromPreview converts fulfillable previews into rates. The cost is the
// first estimated fee and the arrival window comes from the last shipment.
// Rates are ordered by earliest arrival, falling back to latest arrival;
// ties keep the provider order.
func RatesFromPreview(result *fulfillment.FulfillmentPreviewResult) []Rate {
	type keyed struct {
		rate Rate
		at   time.Time
	}
	var out []keyed
	for _, p := range result.Previews {
		if !p.IsFulfillable {
			continue
		}
		rate := Rate{ShippingSpeed: string(p.ShippingSpeedCategory), Cost: decimal.Zero}
		if len(p.EstimatedFees) > 0 {
			rate.Cost = p.EstimatedFees[0].Amount.Value
			rate.Currency = p.EstimatedFees[0].Amount.CurrencyCode
		}
		var at time.Time
		for _, shipment := range p.Shipments {
			rate.Earliest = shipment.EarliestArrivalDate
			rate.Latest = shipment.LatestArrivalDate
		}
		switch {
		case rate.Earliest != nil:
			at = *rate.Earliest
		case rate.Latest != nil:
			at = *rate.Latest
		}
		out = append(out, keyed{rate: rate, at: at})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].at.Before(out[j].at) })

	rates := make([]Rate, 0, len(out))
	for _, k := range out {
		rates = append(rates, k.rate)
	}
	return rates
}
