package fulfillment

import (
	"context"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// SubmissionService handles order placement and local cancellation hooks.
type SubmissionService struct {
	orders   fulfillment.OrderRepository
	scopes   fulfillment.StoreScopeProvider
	gateway  *RemoteGateway
	notifier fulfillment.Notifier
	opts     Options
	logger   *zap.Logger
	metrics  *telemetry.ReconciliationMetrics
	now      func() time.Time
}

// NewSubmissionService creates a new SubmissionService
func NewSubmissionService(
	orders fulfillment.OrderRepository,
	scopes fulfillment.StoreScopeProvider,
	gateway *RemoteGateway,
	notifier fulfillment.Notifier,
	opts Options,
	logger *zap.Logger,
) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		orders:   orders,
		scopes:   scopes,
		gateway:  gateway,
		notifier: notifier,
		opts:     opts.withDefaults(),
		logger:   logger.Named("order_submission"),
		now:      time.Now,
	}
}

// SetMetrics sets the metrics recorder (optional)
func (s *SubmissionService) SetMetrics(m *telemetry.ReconciliationMetrics) {
	s.metrics = m
}

// SubmitOrder sends a newly placed order to the provider. Orders without a
// provider-fulfilled line, or placed in a store scope without the
// integration, are left untouched. An accepted order becomes received; a
// rejected one becomes attempted with one attempt recorded so resubmission
// picks it up.
func (s *SubmissionService) SubmitOrder(ctx context.Context, order *fulfillment.TrackedOrder) error {
	ctx, span := telemetry.StartSpan(ctx, "order_submission", "submit", "order", order.IncrementID)
	defer span.End()

	if !order.HasRemoteFulfilledItem() {
		return nil
	}
	enabled, err := s.scopes.IsEnabled(ctx, order.StoreID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	draft := order.Clone()
	draft.RemoteFulfilled = true
	if enabled && draft.RemoteStatus.IsPreSubmission() {
		req := fulfillment.BuildCreateRequest(draft, fulfillment.OutboundOptions{
			SellerID:           s.gateway.SellerID(),
			PackingSlipComment: s.opts.PackingSlipComment,
			ShipConfirmation:   s.opts.ShipConfirmation,
		}, s.now())

		if s.gateway.CreateOrder(ctx, req).Accepted() {
			draft.RemoteStatus = fulfillment.RemoteStatusReceived
			draft.SubmissionCount = 0
		} else {
			draft.RemoteStatus = fulfillment.RemoteStatusAttempted
			draft.SubmissionCount = 1
			s.notify(ctx, fulfillment.OrderNotice(fulfillment.MsgCreateFailed, order.IncrementID))
		}
	}

	if err := s.orders.Save(ctx, draft); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if draft.RemoteStatus != order.RemoteStatus && s.metrics != nil {
		s.metrics.RecordTransition(ctx, string(draft.RemoteStatus))
	}
	*order = *draft
	s.logger.Info("Order submitted",
		zap.String("order", order.IncrementID),
		zap.String("remote_status", string(order.RemoteStatus)),
	)
	return nil
}

// CancelOrder records a local cancellation and, unless skipRemote is set,
// cancels the order on the provider. Provider failures become
// notifications; only the local save can fail the call.
func (s *SubmissionService) CancelOrder(ctx context.Context, order *fulfillment.TrackedOrder, skipRemote bool) error {
	ctx, span := telemetry.StartSpan(ctx, "order_submission", "cancel", "order", order.IncrementID)
	defer span.End()

	if !order.RemoteFulfilled {
		return nil
	}
	enabled, err := s.scopes.IsEnabled(ctx, order.StoreID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if !enabled {
		return nil
	}

	submitted := !order.RemoteStatus.IsPreSubmission()
	draft := order.Clone()
	draft.Cancel()
	if err := s.orders.Save(ctx, draft); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	*order = *draft

	if skipRemote || !submitted {
		return nil
	}
	if s.gateway.GetOrder(ctx, order.IncrementID) == nil {
		s.notify(ctx, fulfillment.OrderNotice(fulfillment.MsgOrderNotFound, order.IncrementID))
		return nil
	}
	if s.gateway.CancelOrder(ctx, order.IncrementID) == nil {
		s.notify(ctx, fulfillment.OrderNotice(fulfillment.MsgCancelFailed, order.IncrementID))
		return nil
	}
	s.logger.Info("Fulfillment order cancelled", zap.String("order", order.IncrementID))
	return nil
}

// SubmitByIncrementID loads the order and submits it.
func (s *SubmissionService) SubmitByIncrementID(ctx context.Context, incrementID string) (*OrderSummary, error) {
	order, err := s.orders.FindByIncrementID(ctx, incrementID)
	if err != nil {
		return nil, err
	}
	if err := s.SubmitOrder(ctx, order); err != nil {
		return nil, err
	}
	return ToOrderSummary(order), nil
}

// CancelByIncrementID loads the order and records its cancellation.
func (s *SubmissionService) CancelByIncrementID(ctx context.Context, incrementID string, skipRemote bool) (*OrderSummary, error) {
	order, err := s.orders.FindByIncrementID(ctx, incrementID)
	if err != nil {
		return nil, err
	}
	if err := s.CancelOrder(ctx, order, skipRemote); err != nil {
		return nil, err
	}
	return ToOrderSummary(order), nil
}

func (s *SubmissionService) notify(ctx context.Context, n fulfillment.Notification) {
	deliver(ctx, s.notifier, s.logger, n)
}
