package fulfillment

import (
	"errors"
	"fmt"

	"github.com/erp/fulfillment/internal/domain/shared"
)

var (
	// ErrOrderMismatch is returned when a remote result echoes a different order id.
	ErrOrderMismatch = shared.NewDomainError("ORDER_MISMATCH", "Remote order id does not match local increment id")
	// ErrNothingToShip is returned when a remote shipment matches no shippable line.
	ErrNothingToShip = shared.NewDomainError("NOTHING_TO_SHIP", "No order lines can be shipped for this package")
	// ErrNothingToInvoice is returned when no shipped quantity remains uninvoiced.
	ErrNothingToInvoice = shared.NewDomainError("NOTHING_TO_INVOICE", "No shipped quantity remains to be invoiced")
)

// RemoteError is the typed failure raised by a RemoteClient.
type RemoteError struct {
	StatusCode int
	ErrorCode  string
	ErrorType  string
	RequestID  string
	Message    string
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote fulfillment error: status=%d code=%s type=%s request_id=%s: %s",
		e.StatusCode, e.ErrorCode, e.ErrorType, e.RequestID, e.Message)
}

// AsRemoteError extracts a *RemoteError from err, if any.
func AsRemoteError(err error) (*RemoteError, bool) {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr, true
	}
	return nil, false
}
