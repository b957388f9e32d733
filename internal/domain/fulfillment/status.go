package fulfillment

import "strings"

// RemoteStatus is the fulfillment status tracked for an order on the provider side.
type RemoteStatus string

const (
	RemoteStatusNew                RemoteStatus = "new"
	RemoteStatusAttempted          RemoteStatus = "attempted"
	RemoteStatusFail               RemoteStatus = "fail"
	RemoteStatusReceived           RemoteStatus = "received"
	RemoteStatusPlanning           RemoteStatus = "planning"
	RemoteStatusProcessing         RemoteStatus = "processing"
	RemoteStatusComplete           RemoteStatus = "complete"
	RemoteStatusCompletePartialled RemoteStatus = "complete_partialled"
	RemoteStatusInvalid            RemoteStatus = "invalid"
	RemoteStatusCancelled          RemoteStatus = "cancelled"
	RemoteStatusUnfulfillable      RemoteStatus = "unfulfillable"
)

// PendingSubmissionStatuses are the statuses picked up by resubmission.
var PendingSubmissionStatuses = []RemoteStatus{RemoteStatusNew, RemoteStatusAttempted}

// InFlightStatuses are the statuses polled by order status reconciliation.
var InFlightStatuses = []RemoteStatus{RemoteStatusReceived, RemoteStatusPlanning, RemoteStatusProcessing}

// ParseRemoteStatus converts a provider status such as "COMPLETE_PARTIALLED"
// into a RemoteStatus. The second result is false for unknown values.
func ParseRemoteStatus(raw string) (RemoteStatus, bool) {
	s := RemoteStatus(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.IsValid()
}

// IsValid checks if the status is a valid RemoteStatus
func (s RemoteStatus) IsValid() bool {
	switch s {
	case RemoteStatusNew, RemoteStatusAttempted, RemoteStatusFail,
		RemoteStatusReceived, RemoteStatusPlanning, RemoteStatusProcessing,
		RemoteStatusComplete, RemoteStatusCompletePartialled,
		RemoteStatusInvalid, RemoteStatusCancelled, RemoteStatusUnfulfillable:
		return true
	}
	return false
}

// String returns the string representation of RemoteStatus
func (s RemoteStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further polling or retry happens in this status.
func (s RemoteStatus) IsTerminal() bool {
	switch s {
	case RemoteStatusComplete, RemoteStatusCompletePartialled,
		RemoteStatusInvalid, RemoteStatusCancelled, RemoteStatusUnfulfillable,
		RemoteStatusFail:
		return true
	}
	return false
}

// IsPreSubmission reports whether the provider has not yet accepted the order.
func (s RemoteStatus) IsPreSubmission() bool {
	return s == RemoteStatusNew || s == RemoteStatusAttempted
}

// IsCompletion reports whether the status means the provider shipped the order.
func (s RemoteStatus) IsCompletion() bool {
	return s == RemoteStatusComplete || s == RemoteStatusCompletePartialled
}

// IsRejection reports whether the provider will not ship some or all lines.
func (s RemoteStatus) IsRejection() bool {
	return s == RemoteStatusInvalid || s == RemoteStatusCancelled || s == RemoteStatusUnfulfillable
}

// rank orders non-terminal statuses; terminal statuses share the highest rank.
func (s RemoteStatus) rank() int {
	switch s {
	case RemoteStatusNew:
		return 0
	case RemoteStatusAttempted:
		return 1
	case RemoteStatusReceived:
		return 2
	case RemoteStatusPlanning:
		return 3
	case RemoteStatusProcessing:
		return 4
	}
	return 5
}

// CanTransitionTo checks if the status can move to target.
// Statuses only move forward and terminal statuses never change.
func (s RemoteStatus) CanTransitionTo(target RemoteStatus) bool {
	if !target.IsValid() || s.IsTerminal() {
		return false
	}
	if s.IsPreSubmission() {
		switch target {
		case RemoteStatusAttempted, RemoteStatusReceived, RemoteStatusFail, RemoteStatusCancelled:
			return target.rank() > s.rank() || target.IsTerminal()
		}
		return false
	}
	// Submitted orders cannot go back to the submission states or fail locally.
	if target.IsPreSubmission() || target == RemoteStatusFail {
		return false
	}
	return target.rank() > s.rank()
}

// LocalOrderState is the lifecycle state of the order on the local platform.
type LocalOrderState string

const (
	LocalOrderStateNew        LocalOrderState = "new"
	LocalOrderStateProcessing LocalOrderState = "processing"
	LocalOrderStateComplete   LocalOrderState = "complete"
	LocalOrderStateClosed     LocalOrderState = "closed"
	LocalOrderStateCanceled   LocalOrderState = "canceled"
	LocalOrderStateHolded     LocalOrderState = "holded"
)

// OpenLocalStates are the local states eligible for polling and resubmission.
var OpenLocalStates = []LocalOrderState{LocalOrderStateNew, LocalOrderStateProcessing}

// IsValid checks if the state is a valid LocalOrderState
func (s LocalOrderState) IsValid() bool {
	switch s {
	case LocalOrderStateNew, LocalOrderStateProcessing, LocalOrderStateComplete,
		LocalOrderStateClosed, LocalOrderStateCanceled, LocalOrderStateHolded:
		return true
	}
	return false
}

// IsOpen reports whether the order can still be shipped or cancelled.
func (s LocalOrderState) IsOpen() bool {
	return s == LocalOrderStateNew || s == LocalOrderStateProcessing
}

// String returns the string representation of LocalOrderState
func (s LocalOrderState) String() string {
	return string(s)
}
