package fulfillment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// FulfillmentPolicyFillOrKill ships nothing unless every line can be shipped.
const FulfillmentPolicyFillOrKill = "FillOrKill"

// ShippingSpeed is a provider shipping speed category.
type ShippingSpeed string

const (
	ShippingSpeedStandard  ShippingSpeed = "Standard"
	ShippingSpeedExpedited ShippingSpeed = "Expedited"
	ShippingSpeedPriority  ShippingSpeed = "Priority"
)

// RemoteClient is the transport to the remote fulfillment provider.
// Every method returns a *RemoteError on provider or transport failure.
type RemoteClient interface {
	ListInventorySupply(ctx context.Context, query SupplyQuery) (*SupplyList, error)
	ListInventorySupplyByNextToken(ctx context.Context, sellerID, nextToken string) (*SupplyList, error)
	CreateFulfillmentOrder(ctx context.Context, req *CreateFulfillmentOrderRequest) (*CreateFulfillmentOrderResult, error)
	GetFulfillmentOrder(ctx context.Context, sellerID, sellerFulfillmentOrderID string) (*FulfillmentOrderResult, error)
	CancelFulfillmentOrder(ctx context.Context, sellerID, sellerFulfillmentOrderID string) (*CancelFulfillmentOrderResult, error)
	GetFulfillmentPreview(ctx context.Context, req *FulfillmentPreviewRequest) (*FulfillmentPreviewResult, error)
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

// DestinationAddress is the provider's address schema.
type DestinationAddress struct {
	Name                string `json:"Name" validate:"required"`
	Line1               string `json:"Line1" validate:"required"`
	Line2               string `json:"Line2,omitempty"`
	Line3               string `json:"Line3,omitempty"`
	City                string `json:"City" validate:"required"`
	StateOrProvinceCode string `json:"StateOrProvinceCode,omitempty"`
	PostalCode          string `json:"PostalCode,omitempty"`
	CountryCode         string `json:"CountryCode" validate:"required,len=2"`
	PhoneNumber         string `json:"PhoneNumber,omitempty"`
}

// NewDestinationAddress converts a local address into the provider schema.
func NewDestinationAddress(a Address) DestinationAddress {
	return DestinationAddress{
		Name:                a.Name,
		Line1:               a.Line1,
		Line2:               a.Line2,
		Line3:               a.Line3,
		City:                a.City,
		StateOrProvinceCode: a.StateOrRegion,
		PostalCode:          a.PostalCode,
		CountryCode:         a.CountryCode,
		PhoneNumber:         a.Phone,
	}
}

// CreateFulfillmentOrderItem is one line of an outbound order.
type CreateFulfillmentOrderItem struct {
	SellerSKU                    string `json:"SellerSKU" validate:"required"`
	SellerFulfillmentOrderItemID string `json:"SellerFulfillmentOrderItemId" validate:"required"`
	Quantity                     int64  `json:"Quantity" validate:"gt=0"`
}

// CreateFulfillmentOrderRequest asks the provider to ship an order.
type CreateFulfillmentOrderRequest struct {
	SellerID                 string                       `json:"SellerId" validate:"required"`
	SellerFulfillmentOrderID string                       `json:"SellerFulfillmentOrderId" validate:"required,max=40"`
	DisplayableOrderID       string                       `json:"DisplayableOrderId" validate:"required,eqfield=SellerFulfillmentOrderID"`
	DisplayableOrderDate     time.Time                    `json:"DisplayableOrderDateTime" validate:"required"`
	DisplayableOrderComment  string                       `json:"DisplayableOrderComment" validate:"required,max=1000"`
	ShippingSpeedCategory    ShippingSpeed                `json:"ShippingSpeedCategory" validate:"required,oneof=Standard Expedited Priority"`
	FulfillmentPolicy        string                       `json:"FulfillmentPolicy" validate:"required"`
	DestinationAddress       DestinationAddress           `json:"DestinationAddress"`
	NotificationEmailList    []string                     `json:"NotificationEmailList,omitempty" validate:"omitempty,dive,email"`
	Items                    []CreateFulfillmentOrderItem `json:"Items" validate:"required,min=1,dive"`
}

// CreateFulfillmentOrderResult is the provider's acknowledgement of a create request.
type CreateFulfillmentOrderResult struct {
	RequestID string `json:"RequestId"`
}

// Accepted reports whether the acknowledgement carries response metadata.
func (r *CreateFulfillmentOrderResult) Accepted() bool {
	return r != nil && r.RequestID != ""
}

// CancelFulfillmentOrderResult is the provider's acknowledgement of a cancel request.
type CancelFulfillmentOrderResult struct {
	RequestID string `json:"RequestId"`
}

// ---------------------------------------------------------------------------
// Get
// ---------------------------------------------------------------------------

// FulfillmentOrder is the provider's header for an order.
type FulfillmentOrder struct {
	SellerFulfillmentOrderID string `json:"SellerFulfillmentOrderId"`
	DisplayableOrderID       string `json:"DisplayableOrderId"`
	FulfillmentOrderStatus   string `json:"FulfillmentOrderStatus"`
	ShippingSpeedCategory    string `json:"ShippingSpeedCategory,omitempty"`
}

// FulfillmentOrderItem is a requested line as the provider sees it.
type FulfillmentOrderItem struct {
	SellerSKU                    string `json:"SellerSKU"`
	SellerFulfillmentOrderItemID string `json:"SellerFulfillmentOrderItemId"`
	Quantity                     int64  `json:"Quantity"`
	CancelledQuantity            int64  `json:"CancelledQuantity"`
	UnfulfillableQuantity        int64  `json:"UnfulfillableQuantity"`
}

// FulfillmentShipmentItem is a shipped quantity inside a package.
type FulfillmentShipmentItem struct {
	SellerSKU     string `json:"SellerSKU"`
	Quantity      int64  `json:"Quantity"`
	PackageNumber int64  `json:"PackageNumber"`
}

// FulfillmentShipmentPackage carries tracking for a package.
type FulfillmentShipmentPackage struct {
	PackageNumber  int64  `json:"PackageNumber"`
	CarrierCode    string `json:"CarrierCode"`
	TrackingNumber string `json:"TrackingNumber,omitempty"`
}

// FulfillmentShipment is one provider shipment of an order.
type FulfillmentShipment struct {
	AmazonShipmentID          string                       `json:"AmazonShipmentId"`
	FulfillmentCenterID       string                       `json:"FulfillmentCenterId,omitempty"`
	FulfillmentShipmentStatus string                       `json:"FulfillmentShipmentStatus"`
	Items                     []FulfillmentShipmentItem    `json:"FulfillmentShipmentItem"`
	Packages                  []FulfillmentShipmentPackage `json:"FulfillmentShipmentPackage"`
}

// FulfillmentOrderResult is the provider's view of an order.
type FulfillmentOrderResult struct {
	FulfillmentOrder FulfillmentOrder       `json:"FulfillmentOrder"`
	Items            []FulfillmentOrderItem `json:"FulfillmentOrderItem"`
	Shipments        []FulfillmentShipment  `json:"FulfillmentShipment"`
	RequestID        string                 `json:"RequestId,omitempty"`
}

// Status returns the parsed order status. Unknown values return false.
func (r *FulfillmentOrderResult) Status() (RemoteStatus, bool) {
	return ParseRemoteStatus(r.FulfillmentOrder.FulfillmentOrderStatus)
}

// CancelledSKUs returns the seller SKUs the provider cancelled or cannot
// fulfill. When no line carries cancelled or unfulfillable quantities every
// requested SKU is returned.
func (r *FulfillmentOrderResult) CancelledSKUs() []string {
	var cancelled, all []string
	for _, item := range r.Items {
		if item.SellerSKU == "" {
			continue
		}
		all = append(all, item.SellerSKU)
		if item.CancelledQuantity > 0 || item.UnfulfillableQuantity > 0 {
			cancelled = append(cancelled, item.SellerSKU)
		}
	}
	if len(cancelled) > 0 {
		return cancelled
	}
	return all
}

// ---------------------------------------------------------------------------
// Preview
// ---------------------------------------------------------------------------

// FulfillmentPreviewItem is a candidate line for a rate quote.
type FulfillmentPreviewItem struct {
	SellerSKU                    string `json:"SellerSKU" validate:"required"`
	SellerFulfillmentOrderItemID string `json:"SellerFulfillmentOrderItemId" validate:"required"`
	Quantity                     int64  `json:"Quantity" validate:"gt=0"`
}

// FulfillmentPreviewRequest asks for shipping speed estimates.
type FulfillmentPreviewRequest struct {
	SellerID string                   `json:"SellerId" validate:"required"`
	Address  DestinationAddress       `json:"Address"`
	Items    []FulfillmentPreviewItem `json:"Items" validate:"required,min=1,dive"`
}

// Money is a provider currency amount.
type Money struct {
	CurrencyCode string          `json:"CurrencyCode"`
	Value        decimal.Decimal `json:"Value"`
}

// Fee is an estimated fee on a preview.
type Fee struct {
	Name   string `json:"Name"`
	Amount Money  `json:"Amount"`
}

// PreviewShipment is the timing of one estimated shipment.
type PreviewShipment struct {
	EarliestShipDate    *time.Time `json:"EarliestShipDate,omitempty"`
	LatestShipDate      *time.Time `json:"LatestShipDate,omitempty"`
	EarliestArrivalDate *time.Time `json:"EarliestArrivalDate,omitempty"`
	LatestArrivalDate   *time.Time `json:"LatestArrivalDate,omitempty"`
}

// FulfillmentPreview is the estimate for one shipping speed.
type FulfillmentPreview struct {
	ShippingSpeedCategory ShippingSpeed     `json:"ShippingSpeedCategory"`
	IsFulfillable         bool              `json:"IsFulfillable"`
	EstimatedFees         []Fee             `json:"EstimatedFees"`
	Shipments             []PreviewShipment `json:"FulfillmentPreviewShipments"`
}

// FulfillmentPreviewResult lists estimates per shipping speed.
type FulfillmentPreviewResult struct {
	Previews  []FulfillmentPreview `json:"FulfillmentPreviews"`
	RequestID string               `json:"RequestId,omitempty"`
}
