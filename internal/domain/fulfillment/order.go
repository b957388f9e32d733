package fulfillment

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxSubmissionAttempts is the default attempt count at which resubmission gives up.
const MaxSubmissionAttempts = 5

// Address is a shipping destination.
type Address struct {
	Name          string
	Line1         string
	Line2         string
	Line3         string
	City          string
	StateOrRegion string
	PostalCode    string
	CountryCode   string
	Phone         string
}

// StatusComment is an entry in the order status history.
type StatusComment struct {
	Comment   string
	CreatedAt time.Time
}

// OrderItem is a line of a tracked order.
type OrderItem struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	ProductID       uuid.UUID
	SKU             string
	MerchantSKU     string
	Name            string
	QtyOrdered      decimal.Decimal
	QtyCanceled     decimal.Decimal
	QtyShipped      decimal.Decimal
	QtyInvoiced     decimal.Decimal
	Price           decimal.Decimal
	TaxAmount       decimal.Decimal
	IsVirtual       bool
	RemoteFulfilled bool
}

// QtyToShip returns the quantity not yet shipped or cancelled.
func (i *OrderItem) QtyToShip() decimal.Decimal {
	qty := i.QtyOrdered.Sub(i.QtyShipped).Sub(i.QtyCanceled)
	if qty.IsNegative() {
		return decimal.Zero
	}
	return qty
}

// QtyToInvoice returns the quantity not yet invoiced or cancelled.
func (i *OrderItem) QtyToInvoice() decimal.Decimal {
	qty := i.QtyOrdered.Sub(i.QtyInvoiced).Sub(i.QtyCanceled)
	if qty.IsNegative() {
		return decimal.Zero
	}
	return qty
}

// QuerySKU returns the SKU the provider knows this line by.
func (i *OrderItem) QuerySKU() string {
	return i.TrackedSku().QuerySKU()
}

// MatchesSKU reports whether a remote SKU refers to this line.
func (i *OrderItem) MatchesSKU(remote string) bool {
	return i.TrackedSku().Matches(remote)
}

// TrackedSku returns the SKU pair of the line.
func (i *OrderItem) TrackedSku() TrackedSku {
	return TrackedSku{ProductID: i.ProductID, SKU: i.SKU, MerchantSKU: i.MerchantSKU}
}

// TrackedOrder is a local order whose fulfillment is delegated to the provider.
type TrackedOrder struct {
	shared.BaseAggregateRoot
	IncrementID     string
	StoreID         int64
	State           LocalOrderState
	RemoteStatus    RemoteStatus
	SubmissionCount int
	RemoteFulfilled bool
	ShippingMethod  string
	ShippingAmount  decimal.Decimal
	CustomerEmail   string
	ShippingAddress Address
	Items           []OrderItem
	Comments        []StatusComment
}

// NewTrackedOrder creates a tracked order in the "new" remote status.
func NewTrackedOrder(incrementID string, storeID int64, items []OrderItem) (*TrackedOrder, error) {
	if strings.TrimSpace(incrementID) == "" {
		return nil, shared.NewDomainError("INVALID_INCREMENT_ID", "Increment id cannot be empty")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("INVALID_ITEMS", "Order must have at least one item")
	}
	order := &TrackedOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		IncrementID:       incrementID,
		StoreID:           storeID,
		State:             LocalOrderStateNew,
		RemoteStatus:      RemoteStatusNew,
		ShippingAmount:    decimal.Zero,
	}
	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.OrderID = order.ID
		order.Items = append(order.Items, item)
	}
	order.RemoteFulfilled = order.HasRemoteFulfilledItem()
	return order, nil
}

// HasRemoteFulfilledItem reports whether any line is fulfilled by the provider.
func (o *TrackedOrder) HasRemoteFulfilledItem() bool {
	for _, item := range o.Items {
		if item.RemoteFulfilled {
			return true
		}
	}
	return false
}

// IsPollable reports whether status reconciliation should query this order.
func (o *TrackedOrder) IsPollable() bool {
	if !o.RemoteFulfilled || !o.State.IsOpen() {
		return false
	}
	switch o.RemoteStatus {
	case RemoteStatusReceived, RemoteStatusPlanning, RemoteStatusProcessing:
		return true
	}
	return false
}

// IsResubmittable reports whether the resubmission engine should retry this order.
func (o *TrackedOrder) IsResubmittable() bool {
	return o.RemoteFulfilled && o.State.IsOpen() && o.RemoteStatus.IsPreSubmission()
}

// TransitionTo moves the remote status forward.
func (o *TrackedOrder) TransitionTo(target RemoteStatus) error {
	if o.RemoteStatus == target {
		return nil
	}
	if !o.RemoteStatus.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot move remote status from %s to %s", o.RemoteStatus, target))
	}
	o.RemoteStatus = target
	o.touch()
	return nil
}

// RecordAttempt increments the submission counter and returns the new attempt number.
func (o *TrackedOrder) RecordAttempt() int {
	o.SubmissionCount++
	o.touch()
	return o.SubmissionCount
}

// AttemptsExhausted reports whether the counter reached limit.
// A non-positive limit means MaxSubmissionAttempts.
func (o *TrackedOrder) AttemptsExhausted(limit int) bool {
	if limit <= 0 {
		limit = MaxSubmissionAttempts
	}
	return o.SubmissionCount >= limit
}

// VerifyRemoteID checks that a remote result belongs to this order.
func (o *TrackedOrder) VerifyRemoteID(displayableOrderID string) error {
	if displayableOrderID != o.IncrementID {
		return ErrOrderMismatch
	}
	return nil
}

// CancelLines cancels every open line whose SKU appears in remoteSKUs and
// returns the canonical SKUs of the lines that changed. Unmatched lines are
// untouched and the order itself is never cancelled.
func (o *TrackedOrder) CancelLines(remoteSKUs []string) []string {
	var canceled []string
	for idx := range o.Items {
		item := &o.Items[idx]
		if !matchesAny(item, remoteSKUs) {
			continue
		}
		if item.QtyCanceled.GreaterThanOrEqual(item.QtyOrdered) {
			continue
		}
		item.QtyCanceled = item.QtyOrdered
		canceled = append(canceled, item.SKU)
	}
	if len(canceled) > 0 {
		o.touch()
	}
	return canceled
}

// AddComment appends an entry to the order status history.
func (o *TrackedOrder) AddComment(comment string) {
	o.Comments = append(o.Comments, StatusComment{Comment: comment, CreatedAt: time.Now()})
	o.touch()
}

// TotalQtyOrdered returns the sum of ordered quantities across lines.
func (o *TrackedOrder) TotalQtyOrdered() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.QtyOrdered)
	}
	return total
}

// CanShip reports whether any physical line still has quantity to ship.
func (o *TrackedOrder) CanShip() bool {
	if !o.State.IsOpen() {
		return false
	}
	for idx := range o.Items {
		if !o.Items[idx].IsVirtual && o.Items[idx].QtyToShip().IsPositive() {
			return true
		}
	}
	return false
}

// CompleteIfFulfilled moves the order to complete once no physical line has
// quantity left to ship.
func (o *TrackedOrder) CompleteIfFulfilled() bool {
	if !o.State.IsOpen() {
		return false
	}
	for idx := range o.Items {
		if !o.Items[idx].IsVirtual && o.Items[idx].QtyToShip().IsPositive() {
			return false
		}
	}
	o.State = LocalOrderStateComplete
	o.touch()
	return true
}

// Cancel records a local cancellation. The remote status becomes cancelled
// unless the provider already reached a terminal status.
func (o *TrackedOrder) Cancel() {
	o.State = LocalOrderStateCanceled
	if !o.RemoteStatus.IsTerminal() {
		o.RemoteStatus = RemoteStatusCancelled
	}
	o.touch()
}

// MarkInProcess moves a new order into processing after a shipment.
func (o *TrackedOrder) MarkInProcess() {
	if o.State == LocalOrderStateNew {
		o.State = LocalOrderStateProcessing
		o.touch()
	}
}

// Clone returns a deep copy that can be mutated and discarded on failure.
func (o *TrackedOrder) Clone() *TrackedOrder {
	c := *o
	c.Items = make([]OrderItem, len(o.Items))
	copy(c.Items, o.Items)
	c.Comments = make([]StatusComment, len(o.Comments))
	copy(c.Comments, o.Comments)
	return &c
}

func (o *TrackedOrder) touch() {
	o.UpdatedAt = time.Now()
}

func matchesAny(item *OrderItem, remoteSKUs []string) bool {
	for _, sku := range remoteSKUs {
		if item.MatchesSKU(sku) {
			return true
		}
	}
	return false
}

// CancellationComment is appended when provider-rejected lines are cancelled.
func CancellationComment(skus []string) string {
	return fmt.Sprintf("Fulfillment items with SKUs: %s are unable to be fulfilled. Check your seller central account for more information.",
		strings.Join(skus, ", "))
}
