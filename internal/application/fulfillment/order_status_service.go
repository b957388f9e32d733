package fulfillment

import (
	"context"
	"errors"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// OrderStatusService polls in-flight orders and applies remote status
// changes as local invoices, shipments and line cancellations.
type OrderStatusService struct {
	orders   fulfillment.OrderRepository
	scopes   fulfillment.StoreScopeProvider
	cursors  fulfillment.CursorStore
	tx       fulfillment.TransactionScope
	gateway  *RemoteGateway
	notifier fulfillment.Notifier
	opts     Options
	logger   *zap.Logger
	metrics  *telemetry.ReconciliationMetrics
	now      func() time.Time
}

// NewOrderStatusService creates a new OrderStatusService
func NewOrderStatusService(
	orders fulfillment.OrderRepository,
	scopes fulfillment.StoreScopeProvider,
	cursors fulfillment.CursorStore,
	tx fulfillment.TransactionScope,
	gateway *RemoteGateway,
	notifier fulfillment.Notifier,
	opts Options,
	logger *zap.Logger,
) *OrderStatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderStatusService{
		orders:   orders,
		scopes:   scopes,
		cursors:  cursors,
		tx:       tx,
		gateway:  gateway,
		notifier: notifier,
		opts:     opts.withDefaults(),
		logger:   logger.Named("order_status_sync"),
		now:      time.Now,
	}
}

// SetMetrics sets the metrics recorder (optional)
func (s *OrderStatusService) SetMetrics(m *telemetry.ReconciliationMetrics) {
	s.metrics = m
}

// SyncOrderStatus reconciles one page of in-flight orders. Pages are keyed
// by the last increment id seen, so orders leaving the in-flight set do not
// shift later orders past the cursor. A short page restarts the scan.
func (s *OrderStatusService) SyncOrderStatus(ctx context.Context) (*SyncReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "order_status_sync", "poll")
	defer span.End()
	started := s.now()
	report := &SyncReport{Job: JobOrderStatus}

	storeIDs, err := s.scopes.EnabledStoreIDs(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(storeIDs) == 0 {
		report.Skipped = true
		report.SkipReason = "no enabled store scopes"
		return report, nil
	}

	after, err := s.cursors.Get(ctx, fulfillment.CursorOrderAfter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	remoteFulfilled := true
	orders, err := s.orders.Find(ctx, fulfillment.OrderFilter{
		Filter: shared.Filter{
			Page:     1,
			PageSize: s.opts.OrderPageSize,
			OrderBy:  "increment_id",
			OrderDir: "asc",
		},
		States:           fulfillment.OpenLocalStates,
		RemoteStatuses:   fulfillment.InFlightStatuses,
		StoreIDs:         storeIDs,
		RemoteFulfilled:  &remoteFulfilled,
		AfterIncrementID: after,
	})
	if err != nil {
		s.logger.Error("Failed to load in-flight orders", zap.String("after", after), zap.Error(err))
		report.Failed++
		return s.finish(ctx, report, started), nil
	}

	for idx := range orders {
		report.Processed++
		if s.reconcile(ctx, &orders[idx]) {
			report.Updated++
		} else {
			report.Failed++
		}
	}

	next := ""
	if len(orders) < s.opts.OrderPageSize {
		report.PassCompleted = true
	} else {
		next = orders[len(orders)-1].IncrementID
	}
	if err := s.cursors.Set(ctx, fulfillment.CursorOrderAfter, next); err != nil {
		s.logger.Error("Failed to store order cursor", zap.String("after", next), zap.Error(err))
	}
	return s.finish(ctx, report, started), nil
}

// ReconcileOrder fetches the remote view of one order and applies it.
// It returns false when the remote lookup or any local write failed.
func (s *OrderStatusService) ReconcileOrder(ctx context.Context, order *fulfillment.TrackedOrder) bool {
	return s.reconcile(ctx, order)
}

func (s *OrderStatusService) reconcile(ctx context.Context, order *fulfillment.TrackedOrder) bool {
	ctx, span := telemetry.StartSpan(ctx, "order_status_sync", "reconcile", "order", order.IncrementID)
	defer span.End()

	log := s.logger.With(zap.String("order", order.IncrementID))

	result := s.gateway.GetOrder(ctx, order.IncrementID)
	if result == nil {
		s.notify(ctx, fulfillment.OrderNotice(fulfillment.MsgRetrieveFailed, order.IncrementID))
		return false
	}

	if err := order.VerifyRemoteID(result.FulfillmentOrder.DisplayableOrderID); err != nil {
		log.Warn("Remote order id does not match, result ignored",
			zap.String("remote_order", result.FulfillmentOrder.DisplayableOrderID),
		)
		s.notify(ctx, fulfillment.OrderNotice(fulfillment.MsgOrderIDMismatch, order.IncrementID))
		return false
	}

	status, ok := result.Status()
	if !ok {
		log.Warn("Unknown remote order status",
			zap.String("status", result.FulfillmentOrder.FulfillmentOrderStatus),
		)
		return false
	}

	switch {
	case status.IsCompletion():
		return s.complete(ctx, order, result, status)
	case status.IsRejection():
		return s.reject(ctx, order, result, status)
	default:
		return s.mirror(ctx, order, status)
	}
}

// ---------------------------------------------------------------------------
// Completion
// ---------------------------------------------------------------------------

// complete invoices the shipped quantities, materializes one shipment per
// package and then moves the remote status to its completion value. The
// status stays in flight while any package failed so the next run retries.
func (s *OrderStatusService) complete(ctx context.Context, order *fulfillment.TrackedOrder, result *fulfillment.FulfillmentOrderResult, status fulfillment.RemoteStatus) bool {
	log := s.logger.With(zap.String("order", order.IncrementID))

	if !s.invoice(ctx, order, result) {
		return false
	}

	failed := 0
	for _, plan := range fulfillment.PlanPackages(result) {
		draft := order.Clone()
		shipment, err := draft.ApplyPackage(plan)
		if errors.Is(err, fulfillment.ErrNothingToShip) {
			log.Debug("Package already shipped", zap.Int64("package", plan.PackageNumber))
			continue
		}
		if err != nil {
			log.Error("Failed to build shipment", zap.Int64("package", plan.PackageNumber), zap.Error(err))
			failed++
			continue
		}
		draft.MarkInProcess()

		err = s.tx.Execute(ctx, func(repos fulfillment.TransactionalRepositories) error {
			if err := repos.Shipments.Save(ctx, shipment); err != nil {
				return err
			}
			return repos.Orders.Save(ctx, draft)
		})
		if err != nil {
			log.Error("Failed to save shipment", zap.Int64("package", plan.PackageNumber), zap.Error(err))
			failed++
			continue
		}
		*order = *draft
		if s.metrics != nil {
			s.metrics.RecordShipment(ctx)
		}
		s.notify(ctx, fulfillment.ShipmentNotice(order.IncrementID, shipment))
	}
	if failed > 0 {
		return false
	}

	draft := order.Clone()
	if err := draft.TransitionTo(status); err != nil {
		log.Warn("Remote status transition rejected", zap.String("status", string(status)), zap.Error(err))
		return false
	}
	draft.CompleteIfFulfilled()
	return s.saveOrder(ctx, order, draft, status)
}

// invoice bills the shipped quantities not yet invoiced.
func (s *OrderStatusService) invoice(ctx context.Context, order *fulfillment.TrackedOrder, result *fulfillment.FulfillmentOrderResult) bool {
	draft := order.Clone()
	invoice, err := fulfillment.BuildInvoice(draft, fulfillment.ShippedQuantities(result))
	if errors.Is(err, fulfillment.ErrNothingToInvoice) {
		return true
	}
	if err != nil {
		s.logger.Error("Failed to build invoice", zap.String("order", order.IncrementID), zap.Error(err))
		return false
	}

	err = s.tx.Execute(ctx, func(repos fulfillment.TransactionalRepositories) error {
		if err := repos.Invoices.Save(ctx, invoice); err != nil {
			return err
		}
		return repos.Orders.Save(ctx, draft)
	})
	if err != nil {
		s.logger.Error("Failed to save invoice", zap.String("order", order.IncrementID), zap.Error(err))
		return false
	}
	*order = *draft
	s.logger.Info("Order invoiced",
		zap.String("order", order.IncrementID),
		zap.String("grand_total", invoice.GrandTotal.String()),
	)
	return true
}

// ---------------------------------------------------------------------------
// Rejection
// ---------------------------------------------------------------------------

// reject cancels the lines the provider could not fulfill. The order
// itself stays open.
func (s *OrderStatusService) reject(ctx context.Context, order *fulfillment.TrackedOrder, result *fulfillment.FulfillmentOrderResult, status fulfillment.RemoteStatus) bool {
	draft := order.Clone()
	if canceled := draft.CancelLines(result.CancelledSKUs()); len(canceled) > 0 {
		draft.AddComment(fulfillment.CancellationComment(canceled))
	}
	if err := draft.TransitionTo(status); err != nil {
		s.logger.Warn("Remote status transition rejected",
			zap.String("order", order.IncrementID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return false
	}
	return s.saveOrder(ctx, order, draft, status)
}

// ---------------------------------------------------------------------------
// Mirror
// ---------------------------------------------------------------------------

func (s *OrderStatusService) mirror(ctx context.Context, order *fulfillment.TrackedOrder, status fulfillment.RemoteStatus) bool {
	if order.RemoteStatus == status {
		return true
	}
	draft := order.Clone()
	if err := draft.TransitionTo(status); err != nil {
		s.logger.Debug("Ignoring backward remote status",
			zap.String("order", order.IncrementID),
			zap.String("from", string(order.RemoteStatus)),
			zap.String("to", string(status)),
		)
		return true
	}
	return s.saveOrder(ctx, order, draft, status)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *OrderStatusService) saveOrder(ctx context.Context, order, draft *fulfillment.TrackedOrder, status fulfillment.RemoteStatus) bool {
	err := s.tx.Execute(ctx, func(repos fulfillment.TransactionalRepositories) error {
		return repos.Orders.Save(ctx, draft)
	})
	if err != nil {
		s.logger.Error("Failed to save order",
			zap.String("order", order.IncrementID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return false
	}
	from := order.RemoteStatus
	*order = *draft
	if from != status {
		if s.metrics != nil {
			s.metrics.RecordTransition(ctx, string(status))
		}
		s.logger.Info("Remote status updated",
			zap.String("order", order.IncrementID),
			zap.String("from", string(from)),
			zap.String("to", string(status)),
		)
	}
	return true
}

func (s *OrderStatusService) notify(ctx context.Context, n fulfillment.Notification) {
	deliver(ctx, s.notifier, s.logger, n)
}

func (s *OrderStatusService) finish(ctx context.Context, report *SyncReport, started time.Time) *SyncReport {
	report.Duration = s.now().Sub(started)
	s.logger.Info("Order status sync finished",
		zap.Int("processed", report.Processed),
		zap.Int("updated", report.Updated),
		zap.Int("failed", report.Failed),
		zap.Bool("pass_completed", report.PassCompleted),
	)
	return report
}
