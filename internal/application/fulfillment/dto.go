package fulfillment

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/shopspring/decimal"
)

// SyncReport summarizes one reconciliation run.
type SyncReport struct {
	Job           string        `json:"job"`
	Skipped       bool          `json:"skipped"`
	SkipReason    string        `json:"skip_reason,omitempty"`
	Processed     int           `json:"processed"`
	Updated       int           `json:"updated"`
	Failed        int           `json:"failed"`
	Unmatched     []string      `json:"unmatched,omitempty"`
	PassCompleted bool          `json:"pass_completed"`
	Duration      time.Duration `json:"duration"`
}

// OrderSummary is the tracked state of one order.
type OrderSummary struct {
	IncrementID     string `json:"increment_id"`
	StoreID         int64  `json:"store_id"`
	State           string `json:"state"`
	RemoteStatus    string `json:"remote_status"`
	RemoteFulfilled bool   `json:"remote_fulfilled"`
	SubmissionCount int    `json:"submission_count"`
}

// ToOrderSummary converts a tracked order to its summary.
func ToOrderSummary(o *fulfillment.TrackedOrder) *OrderSummary {
	return &OrderSummary{
		IncrementID:     o.IncrementID,
		StoreID:         o.StoreID,
		State:           string(o.State),
		RemoteStatus:    string(o.RemoteStatus),
		RemoteFulfilled: o.RemoteFulfilled,
		SubmissionCount: o.SubmissionCount,
	}
}

// Credential check results.
const (
	CredentialResultSuccess = "success"
	CredentialResultFail    = "fail"
)

// CredentialCheckResult is the outcome of a credential check.
type CredentialCheckResult struct {
	Result  string `json:"result"`
	Message string `json:"message"`
}

// ResyncResult is returned when a full inventory resync is flagged.
type ResyncResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RateAddress is the destination of a rate quote.
type RateAddress struct {
	Name          string `json:"name" binding:"required"`
	Line1         string `json:"line1" binding:"required"`
	Line2         string `json:"line2"`
	City          string `json:"city" binding:"required"`
	StateOrRegion string `json:"state_or_region"`
	PostalCode    string `json:"postal_code"`
	CountryCode   string `json:"country_code" binding:"required,len=2"`
	Phone         string `json:"phone"`
}

// RateItem is a candidate line of a rate quote.
type RateItem struct {
	SKU         string `json:"sku" binding:"required"`
	MerchantSKU string `json:"merchant_sku"`
	Quantity    int64  `json:"quantity" binding:"required,gt=0"`
}

// RateRequest asks for shipping rates.
type RateRequest struct {
	Address RateAddress `json:"address" binding:"required"`
	Items   []RateItem  `json:"items" binding:"required,min=1,dive"`
}

// Rate is one shipping speed offered for a quote.
type Rate struct {
	ShippingSpeed string          `json:"type"`
	Earliest      *time.Time      `json:"earliest,omitempty"`
	Latest        *time.Time      `json:"latest,omitempty"`
	Cost          decimal.Decimal `json:"cost"`
	Currency      string          `json:"currency,omitempty"`
}
