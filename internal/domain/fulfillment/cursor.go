package fulfillment

import "context"

// Cursor names persisted between scheduler invocations.
const (
	CursorInventoryRow     = "inventory_sync_row"
	CursorInventoryToken   = "inventory_sync_token"
	CursorInventoryRunning = "inventory_sync_running"
	CursorInventoryLease   = "inventory_sync_lease"
	CursorOrderAfter       = "order_sync_after"
)

// Values of CursorInventoryRunning. The flag records whether the last full
// pass completed: a pass is active while the flag is anything but FlagStopped.
const (
	FlagStopped = "1"
	FlagActive  = "0"
)

// CursorStore is a keyed string store with per-key atomic updates.
// A missing key reads as the empty string.
type CursorStore interface {
	Get(ctx context.Context, name string) (string, error)
	// Set upserts the value in a single atomic write.
	Set(ctx context.Context, name, value string) error
	// CompareAndSet writes value only if the current value equals expected.
	// An empty expected value matches a missing key.
	CompareAndSet(ctx context.Context, name, expected, value string) (bool, error)
}
