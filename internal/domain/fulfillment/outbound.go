package fulfillment

import (
	"strings"
	"time"
)

// DefaultPackingSlipComment is printed on the packing slip when none is configured.
const DefaultPackingSlipComment = "Thank you for your order!"

var shippingSpeeds = map[string]ShippingSpeed{
	"amazonfulfillment_standard":  ShippingSpeedStandard,
	"amazonfulfillment_priority":  ShippingSpeedPriority,
	"amazonfulfillment_expedited": ShippingSpeedExpedited,
	"tablerate_bestway":           ShippingSpeedStandard,
	"freeshipping_freeshipping":   ShippingSpeedStandard,
	"flatrate_flatrate":           ShippingSpeedStandard,
}

// ShippingSpeedForMethod maps a local shipping method to a provider speed.
func ShippingSpeedForMethod(method string) (ShippingSpeed, bool) {
	speed, ok := shippingSpeeds[method]
	return speed, ok
}

// OutboundOptions carries the merchant settings used to build create requests.
type OutboundOptions struct {
	SellerID           string
	PackingSlipComment string
	ShipConfirmation   bool
}

// BuildCreateRequest maps a tracked order to a create request.
// Only provider-fulfilled physical lines with quantity left to ship are sent.
func BuildCreateRequest(order *TrackedOrder, opts OutboundOptions, now time.Time) *CreateFulfillmentOrderRequest {
	speed, ok := ShippingSpeedForMethod(order.ShippingMethod)
	if !ok {
		speed = ShippingSpeedStandard
	}
	comment := strings.TrimSpace(opts.PackingSlipComment)
	if comment == "" {
		comment = DefaultPackingSlipComment
	}

	req := &CreateFulfillmentOrderRequest{
		SellerID:                 opts.SellerID,
		SellerFulfillmentOrderID: order.IncrementID,
		DisplayableOrderID:       order.IncrementID,
		DisplayableOrderDate:     now.UTC(),
		DisplayableOrderComment:  comment,
		ShippingSpeedCategory:    speed,
		FulfillmentPolicy:        FulfillmentPolicyFillOrKill,
		DestinationAddress:       NewDestinationAddress(order.ShippingAddress),
	}
	if opts.ShipConfirmation && order.CustomerEmail != "" {
		req.NotificationEmailList = []string{order.CustomerEmail}
	}

	for idx := range order.Items {
		item := &order.Items[idx]
		if !item.RemoteFulfilled || item.IsVirtual {
			continue
		}
		qty := item.QtyToShip()
		if qty.IsZero() {
			continue
		}
		req.Items = append(req.Items, CreateFulfillmentOrderItem{
			SellerSKU:                    item.QuerySKU(),
			SellerFulfillmentOrderItemID: item.ID.String(),
			Quantity:                     qty.IntPart(),
		})
	}
	return req
}
