package fulfillment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Severity of an operator notification.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
	SeverityNotice   Severity = "notice"
)

// Notification titles.
const (
	InventoryNoticeTitle   = "Amazon Fulfillment Inventory Status"
	FulfillmentNoticeTitle = "Amazon Multi-Channel Fulfillment"
)

// Notification is an operator-facing admin message.
type Notification struct {
	ID        uuid.UUID
	Severity  Severity
	Title     string
	Message   string
	CreatedAt time.Time
}

// NewNotification creates a notification stamped with the current time.
func NewNotification(severity Severity, title, message string) Notification {
	return Notification{
		ID:        uuid.New(),
		Severity:  severity,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now(),
	}
}

// Notifier delivers operator notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// UnmatchedInventoryNotice lists SKUs with no usable remote stock.
func UnmatchedInventoryNotice(skus []string) Notification {
	return NewNotification(SeverityMajor, InventoryNoticeTitle, fmt.Sprintf(
		"The following SKUs had no matching inventory at the fulfillment provider and their quantity was set to 0: %s",
		strings.Join(skus, ", ")))
}

// InventorySyncedNotice reports a page where every SKU matched.
func InventorySyncedNotice() Notification {
	return NewNotification(SeverityNotice, InventoryNoticeTitle,
		"All enabled SKUs were matched with fulfillment provider inventory.")
}

// UnknownRemoteSkuNotice lists remote SKUs with no associated local product.
func UnknownRemoteSkuNotice(skus []string) Notification {
	return NewNotification(SeverityMinor, InventoryNoticeTitle, fmt.Sprintf(
		"The following SKUs reported by the fulfillment provider have no associated product: %s",
		strings.Join(skus, ", ")))
}

// OrderNotice reports an order-level provider failure.
func OrderNotice(format, incrementID string) Notification {
	return NewNotification(SeverityMajor, FulfillmentNoticeTitle, fmt.Sprintf(format, incrementID))
}

// ShipmentNotice reports a shipment materialized from a provider package.
func ShipmentNotice(incrementID string, s *Shipment) Notification {
	msg := fmt.Sprintf("Shipment created for order: %s, package %d.", incrementID, s.PackageNumber)
	if len(s.Tracks) > 0 {
		msg = fmt.Sprintf("Shipment created for order: %s, package %d, %s tracking %s.",
			incrementID, s.PackageNumber, s.Tracks[0].Title, s.Tracks[0].Number)
	}
	return NewNotification(SeverityNotice, FulfillmentNoticeTitle, msg)
}

// Order-level failure messages.
const (
	MsgCreateFailed    = "Unable to create a Fulfillment Order for order: %s."
	MsgRetrieveFailed  = "Unable to retrieve fulfillment data for order: %s."
	MsgOrderNotFound   = "Fulfillment Order for order: %s does not exist."
	MsgCancelFailed    = "Unable to cancel Fulfillment Order for order: %s."
	MsgOrderIDMismatch = "Fulfillment data for order: %s belongs to a different order and was ignored."
)
