package fulfillment

import (
	"context"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Remote operation names used in logs and metrics.
const (
	OpListInventorySupply         = "ListInventorySupply"
	OpListInventorySupplyNextPage = "ListInventorySupplyByNextToken"
	OpCreateFulfillmentOrder      = "CreateFulfillmentOrder"
	OpGetFulfillmentOrder         = "GetFulfillmentOrder"
	OpCancelFulfillmentOrder      = "CancelFulfillmentOrder"
	OpGetFulfillmentPreview       = "GetFulfillmentPreview"
)

// RemoteGateway is the call boundary to the fulfillment provider. Every
// failure is logged with the provider error details and converted to a nil
// result so callers treat it as "no data".
type RemoteGateway struct {
	client   fulfillment.RemoteClient
	sellerID string
	validate *validator.Validate
	logger   *zap.Logger
	metrics  *telemetry.ReconciliationMetrics
}

// NewRemoteGateway creates a gateway for sellerID over client.
func NewRemoteGateway(client fulfillment.RemoteClient, sellerID string, logger *zap.Logger) *RemoteGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteGateway{
		client:   client,
		sellerID: sellerID,
		validate: validator.New(),
		logger:   logger.Named("mcf_gateway"),
	}
}

// SetMetrics sets the metrics recorder (optional)
func (g *RemoteGateway) SetMetrics(m *telemetry.ReconciliationMetrics) {
	g.metrics = m
}

// SellerID returns the merchant id used on every request.
func (g *RemoteGateway) SellerID() string {
	return g.sellerID
}

// ListSupply lists supply for skus, or all supply changed since since.
func (g *RemoteGateway) ListSupply(ctx context.Context, skus []string, since *time.Time) *fulfillment.SupplyList {
	list, _ := g.ListSupplyErr(ctx, skus, since)
	return list
}

// ListSupplyErr is ListSupply that also returns the logged failure.
func (g *RemoteGateway) ListSupplyErr(ctx context.Context, skus []string, since *time.Time) (*fulfillment.SupplyList, error) {
	ctx, span := telemetry.StartSpan(ctx, "mcf", OpListInventorySupply, "skus", len(skus))
	defer span.End()

	list, err := g.client.ListInventorySupply(ctx, fulfillment.SupplyQuery{
		SellerID:   g.sellerID,
		SellerSKUs: skus,
		Since:      since,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		g.fail(ctx, OpListInventorySupply, "", err)
		return nil, err
	}
	return list, nil
}

// ListSupplyByNextToken fetches the page after token.
func (g *RemoteGateway) ListSupplyByNextToken(ctx context.Context, token string) *fulfillment.SupplyList {
	ctx, span := telemetry.StartSpan(ctx, "mcf", OpListInventorySupplyNextPage)
	defer span.End()

	list, err := g.client.ListInventorySupplyByNextToken(ctx, g.sellerID, token)
	if err != nil {
		telemetry.RecordError(span, err)
		g.fail(ctx, OpListInventorySupplyNextPage, "", err)
		return nil
	}
	return list
}

// CreateOrder validates and submits a create request.
func (g *RemoteGateway) CreateOrder(ctx context.Context, req *fulfillment.CreateFulfillmentOrderRequest) *fulfillment.CreateFulfillmentOrderResult {
	ctx, span := telemetry.StartSpan(ctx, "mcf", OpCreateFulfillmentOrder, "order", req.SellerFulfillmentOrderID)
	defer span.End()

	if err := g.validate.Struct(req); err != nil {
		telemetry.RecordError(span, err)
		g.logger.Warn("Fulfillment order request failed validation",
			zap.String("order", req.SellerFulfillmentOrderID),
			zap.Error(err),
		)
		g.recordSubmission(ctx, false)
		return nil
	}

	result, err := g.client.CreateFulfillmentOrder(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		g.fail(ctx, OpCreateFulfillmentOrder, req.SellerFulfillmentOrderID, err)
		g.recordSubmission(ctx, false)
		return nil
	}
	g.recordSubmission(ctx, result.Accepted())
	return result
}

// GetOrder fetches the provider view of the order with incrementID.
func (g *RemoteGateway) GetOrder(ctx context.Context, incrementID string) *fulfillment.FulfillmentOrderResult {
	ctx, span := telemetry.StartSpan(ctx, "mcf", OpGetFulfillmentOrder, "order", incrementID)
	defer span.End()

	result, err := g.client.GetFulfillmentOrder(ctx, g.sellerID, incrementID)
	if err != nil {
		telemetry.RecordError(span, err)
		g.fail(ctx, OpGetFulfillmentOrder, incrementID, err)
		return nil
	}
	return result
}

// CancelOrder asks the provider to cancel the order with incrementID.
func (g *RemoteGateway) CancelOrder(ctx context.Context, incrementID string) *fulfillment.CancelFulfillmentOrderResult {
	ctx, span := telemetry.StartSpan(ctx, "mcf", OpCancelFulfillmentOrder, "order", incrementID)
	defer span.End()

	result, err := g.client.CancelFulfillmentOrder(ctx, g.sellerID, incrementID)
	if err != nil {
		telemetry.RecordError(span, err)
		g.fail(ctx, OpCancelFulfillmentOrder, incrementID, err)
		return nil
	}
	return result
}

// Preview requests shipping estimates.
func (g *RemoteGateway) Preview(ctx context.Context, req *fulfillment.FulfillmentPreviewRequest) *fulfillment.FulfillmentPreviewResult {
	ctx, span := telemetry.StartSpan(ctx, "mcf", OpGetFulfillmentPreview, "items", len(req.Items))
	defer span.End()

	if err := g.validate.Struct(req); err != nil {
		telemetry.RecordError(span, err)
		g.logger.Debug("Fulfillment preview request failed validation", zap.Error(err))
		return nil
	}

	result, err := g.client.GetFulfillmentPreview(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		g.fail(ctx, OpGetFulfillmentPreview, "", err)
		return nil
	}
	return result
}

func (g *RemoteGateway) fail(ctx context.Context, operation, order string, err error) {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.Error(err),
	}
	if order != "" {
		fields = append(fields, zap.String("order", order))
	}
	errorCode := "transport"
	if remoteErr, ok := fulfillment.AsRemoteError(err); ok {
		errorCode = remoteErr.ErrorCode
		fields = append(fields,
			zap.Int("status_code", remoteErr.StatusCode),
			zap.String("error_code", remoteErr.ErrorCode),
			zap.String("error_type", remoteErr.ErrorType),
			zap.String("request_id", remoteErr.RequestID),
		)
	}
	g.logger.Error("Fulfillment provider call failed", fields...)
	if g.metrics != nil {
		g.metrics.RecordRemoteError(ctx, operation, errorCode)
	}
}

func (g *RemoteGateway) recordSubmission(ctx context.Context, accepted bool) {
	if g.metrics != nil {
		g.metrics.RecordSubmission(ctx, accepted)
	}
}
