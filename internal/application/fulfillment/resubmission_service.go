package fulfillment

import (
	"context"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ResubmissionService retries create calls for orders the provider never
// accepted.
type ResubmissionService struct {
	orders   fulfillment.OrderRepository
	scopes   fulfillment.StoreScopeProvider
	tx       fulfillment.TransactionScope
	gateway  *RemoteGateway
	notifier fulfillment.Notifier
	opts     Options
	logger   *zap.Logger
	metrics  *telemetry.ReconciliationMetrics
	now      func() time.Time
}

// NewResubmissionService creates a new ResubmissionService
func NewResubmissionService(
	orders fulfillment.OrderRepository,
	scopes fulfillment.StoreScopeProvider,
	tx fulfillment.TransactionScope,
	gateway *RemoteGateway,
	notifier fulfillment.Notifier,
	opts Options,
	logger *zap.Logger,
) *ResubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResubmissionService{
		orders:   orders,
		scopes:   scopes,
		tx:       tx,
		gateway:  gateway,
		notifier: notifier,
		opts:     opts.withDefaults(),
		logger:   logger.Named("order_resubmit"),
		now:      time.Now,
	}
}

// SetMetrics sets the metrics recorder (optional)
func (s *ResubmissionService) SetMetrics(m *telemetry.ReconciliationMetrics) {
	s.metrics = m
}

// Resubmit retries up to one batch of pending orders, oldest increment id
// first. Every attempt is counted and persisted. An accepted order moves to
// received; an order that reached the attempt limit moves to fail.
func (s *ResubmissionService) Resubmit(ctx context.Context) (*SyncReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "order_resubmit", "run")
	defer span.End()
	started := s.now()
	report := &SyncReport{Job: JobResubmit}

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

	remoteFulfilled := true
	orders, err := s.orders.Find(ctx, fulfillment.OrderFilter{
		Filter: shared.Filter{
			Page:     1,
			PageSize: s.opts.ResubmitBatchSize,
			OrderBy:  "increment_id",
			OrderDir: "asc",
		},
		States:          fulfillment.OpenLocalStates,
		RemoteStatuses:  fulfillment.PendingSubmissionStatuses,
		StoreIDs:        storeIDs,
		RemoteFulfilled: &remoteFulfilled,
	})
	if err != nil {
		s.logger.Error("Failed to load pending orders", zap.Error(err))
		report.Failed++
		return s.finish(report, started), nil
	}

	for idx := range orders {
		report.Processed++
		if s.attempt(ctx, &orders[idx]) {
			report.Updated++
		} else {
			report.Failed++
		}
	}
	return s.finish(report, started), nil
}

// attempt submits one order and reports whether the provider accepted it.
func (s *ResubmissionService) attempt(ctx context.Context, order *fulfillment.TrackedOrder) bool {
	draft := order.Clone()
	attempt := draft.RecordAttempt()
	log := s.logger.With(zap.String("order", order.IncrementID), zap.Int("attempt", attempt))

	req := fulfillment.BuildCreateRequest(draft, fulfillment.OutboundOptions{
		SellerID:           s.gateway.SellerID(),
		PackingSlipComment: s.opts.PackingSlipComment,
		ShipConfirmation:   s.opts.ShipConfirmation,
	}, s.now())

	accepted := s.gateway.CreateOrder(ctx, req).Accepted()
	switch {
	case accepted:
		if err := draft.TransitionTo(fulfillment.RemoteStatusReceived); err != nil {
			log.Warn("Remote status transition rejected", zap.Error(err))
		}
	case draft.AttemptsExhausted(s.opts.MaxAttempts):
		if err := draft.TransitionTo(fulfillment.RemoteStatusFail); err != nil {
			log.Warn("Remote status transition rejected", zap.Error(err))
		}
	}
	// Below the limit only the attempt count changes.

	err := s.tx.Execute(ctx, func(repos fulfillment.TransactionalRepositories) error {
		return repos.Orders.Save(ctx, draft)
	})
	if err != nil {
		log.Error("Failed to save resubmission attempt", zap.Error(err))
		return false
	}

	from := order.RemoteStatus
	*order = *draft
	if from != order.RemoteStatus && s.metrics != nil {
		s.metrics.RecordTransition(ctx, string(order.RemoteStatus))
	}

	switch order.RemoteStatus {
	case fulfillment.RemoteStatusReceived:
		log.Info("Order accepted on resubmission")
	case fulfillment.RemoteStatusFail:
		log.Warn("Order resubmission attempts exhausted")
		s.notify(ctx, fulfillment.OrderNotice(fulfillment.MsgCreateFailed, order.IncrementID))
	default:
		log.Info("Order resubmission failed, will retry")
	}
	return accepted
}

func (s *ResubmissionService) notify(ctx context.Context, n fulfillment.Notification) {
	deliver(ctx, s.notifier, s.logger, n)
}

func (s *ResubmissionService) finish(report *SyncReport, started time.Time) *SyncReport {
	report.Duration = s.now().Sub(started)
	s.logger.Info("Order resubmission finished",
		zap.Int("processed", report.Processed),
		zap.Int("accepted", report.Updated),
		zap.Int("failed", report.Failed),
	)
	return report
}
