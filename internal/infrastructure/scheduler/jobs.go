package scheduler

import (
	fulfillmentapp "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/config"
)

// Services are the reconciliation entry points driven by the scheduler.
type Services struct {
	Inventory    *fulfillmentapp.InventoryService
	OrderStatus  *fulfillmentapp.OrderStatusService
	Resubmission *fulfillmentapp.ResubmissionService
}

// ReconciliationJobs builds the four periodic jobs from configuration.
func ReconciliationJobs(cfg config.SchedulerConfig, svc Services) []Job {
	return []Job{
		{
			Name:     fulfillmentapp.JobInventoryCurrent,
			Interval: cfg.InventoryCurrentInterval,
			Run:      svc.Inventory.SyncCurrent,
		},
		{
			Name:     fulfillmentapp.JobInventoryFull,
			Interval: cfg.InventoryFullInterval,
			Run:      svc.Inventory.SyncFull,
		},
		{
			Name:     fulfillmentapp.JobOrderStatus,
			Interval: cfg.OrderStatusInterval,
			Run:      svc.OrderStatus.SyncOrderStatus,
		},
		{
			Name:     fulfillmentapp.JobResubmit,
			Interval: cfg.ResubmitInterval,
			Run:      svc.Resubmission.Resubmit,
		},
	}
}

// ConfigFrom converts the scheduler section into a runner Config.
func ConfigFrom(cfg config.SchedulerConfig) Config {
	c := DefaultConfig()
	c.Enabled = cfg.Enabled
	if cfg.JobTimeout > 0 {
		c.JobTimeout = cfg.JobTimeout
	}
	c.RunOnStart = cfg.RunOnStart
	return c
}
