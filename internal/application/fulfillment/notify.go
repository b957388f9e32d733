package fulfillment

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"go.uber.org/zap"
)

// deliver sends n through notifier. Delivery failures are logged and never
// interrupt a job.
func deliver(ctx context.Context, notifier fulfillment.Notifier, logger *zap.Logger, n fulfillment.Notification) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, n); err != nil {
		logger.Warn("Failed to deliver notification",
			zap.String("title", n.Title),
			zap.String("severity", string(n.Severity)),
			zap.Error(err),
		)
	}
}
