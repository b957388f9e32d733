package fulfillment

import "time"

// Options are the merchant and batching settings shared by the services.
type Options struct {
	InventoryPageSize  int
	OrderPageSize      int
	ResubmitBatchSize  int
	MaxAttempts        int
	LeaseTTL           time.Duration
	PackingSlipComment string
	ShipConfirmation   bool
}

// DefaultOptions returns the batching defaults.
func DefaultOptions() Options {
	return Options{
		InventoryPageSize: 45,
		OrderPageSize:     50,
		ResubmitBatchSize: 20,
		MaxAttempts:       5,
		LeaseTTL:          10 * time.Minute,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.InventoryPageSize <= 0 {
		o.InventoryPageSize = d.InventoryPageSize
	}
	if o.OrderPageSize <= 0 {
		o.OrderPageSize = d.OrderPageSize
	}
	if o.ResubmitBatchSize <= 0 {
		o.ResubmitBatchSize = d.ResubmitBatchSize
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.LeaseTTL <= 0 {
		o.LeaseTTL = d.LeaseTTL
	}
	return o
}
