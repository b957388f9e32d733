package fulfillment

import "time"

// Availability is the timing category of remote supply.
type Availability string

const (
	AvailabilityImmediately Availability = "Immediately"
	AvailabilityDateTime    Availability = "DateTime"
)

// RemoteSupplyRecord is one SKU of a remote inventory supply listing.
type RemoteSupplyRecord struct {
	SellerSKU            string       `json:"SellerSKU"`
	FNSKU                string       `json:"FNSKU,omitempty"`
	ASIN                 string       `json:"ASIN,omitempty"`
	Condition            string       `json:"Condition,omitempty"`
	TotalSupplyQty       int64        `json:"TotalSupplyQuantity"`
	InStockSupplyQty     int64        `json:"InStockSupplyQuantity"`
	EarliestAvailability Availability `json:"EarliestAvailability"`
}

// IsUsable reports whether the record counts as sellable stock.
func (r RemoteSupplyRecord) IsUsable() bool {
	return r.EarliestAvailability == AvailabilityImmediately && r.InStockSupplyQty > 0
}

// UsableQty returns the in-stock quantity, or zero when the record is not usable.
func (r RemoteSupplyRecord) UsableQty() int64 {
	if !r.IsUsable() {
		return 0
	}
	return r.InStockSupplyQty
}

// SupplyList is one page of a remote inventory supply listing.
type SupplyList struct {
	Records   []RemoteSupplyRecord `json:"InventorySupplyList"`
	NextToken string               `json:"NextToken,omitempty"`
	RequestID string               `json:"RequestId,omitempty"`
}

// SupplyQuery selects remote supply by SKU list or change timestamp.
type SupplyQuery struct {
	SellerID   string
	SellerSKUs []string
	Since      *time.Time
}
