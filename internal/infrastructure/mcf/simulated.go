package mcf

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ensure SimulatedClient implements RemoteClient
var _ fulfillment.RemoteClient = (*SimulatedClient)(nil)

const (
	simulatedPageSize    = 50
	simulatedTokenPrefix = "sim-page-"
)

// Provider order statuses produced by the simulated provider.
const (
	simStatusReceived    = "RECEIVED"
	simStatusProcessing  = "PROCESSING"
	simStatusComplete    = "COMPLETE"
	simStatusCancelled   = "CANCELLED"
	simShipmentShipped   = "SHIPPED"
	simulatedCarrierCode = "USPS"
)

// simulatedSpeed is a fixed preview estimate per shipping speed.
type simulatedSpeed struct {
	speed       fulfillment.ShippingSpeed
	baseFee     decimal.Decimal
	perUnitFee  decimal.Decimal
	arrivalDays int
}

var simulatedSpeeds = []simulatedSpeed{
	{fulfillment.ShippingSpeedStandard, decimal.RequireFromString("5.99"), decimal.RequireFromString("0.50"), 5},
	{fulfillment.ShippingSpeedExpedited, decimal.RequireFromString("9.99"), decimal.RequireFromString("1.00"), 3},
	{fulfillment.ShippingSpeedPriority, decimal.RequireFromString("14.99"), decimal.RequireFromString("1.50"), 2},
}

type simulatedOrder struct {
	request   fulfillment.CreateFulfillmentOrderRequest
	status    string
	shipments []fulfillment.FulfillmentShipment
	updatedAt time.Time
}

// SimulatedClient is a deterministic in-memory provider. Orders are accepted
// as RECEIVED and only change state through Advance, Ship and Cancel, so a
// local run reproduces the same reconciliation outcome every time.
type SimulatedClient struct {
	mu       sync.Mutex
	supply   map[string]fulfillment.RemoteSupplyRecord
	changed  map[string]time.Time
	orders   map[string]*simulatedOrder
	pageSize int
	now      func() time.Time
	logger   *zap.Logger
}

// NewSimulatedClient creates an empty simulated provider.
func NewSimulatedClient(logger *zap.Logger) *SimulatedClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulatedClient{
		supply:   make(map[string]fulfillment.RemoteSupplyRecord),
		changed:  make(map[string]time.Time),
		orders:   make(map[string]*simulatedOrder),
		pageSize: simulatedPageSize,
		now:      time.Now,
		logger:   logger.Named("mcf_simulated"),
	}
}

// SetClock replaces the clock. Used for deterministic tests.
func (s *SimulatedClient) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetPageSize sets the number of supply records per page.
func (s *SimulatedClient) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.pageSize = n
	}
}

// SetSupply stores usable in-stock supply for sku.
func (s *SimulatedClient) SetSupply(sku string, inStock int64) {
	availability := fulfillment.AvailabilityImmediately
	if inStock <= 0 {
		availability = ""
	}
	s.PutSupply(fulfillment.RemoteSupplyRecord{
		SellerSKU:            sku,
		TotalSupplyQty:       inStock,
		InStockSupplyQty:     inStock,
		EarliestAvailability: availability,
	})
}

// PutSupply stores a raw supply record.
func (s *SimulatedClient) PutSupply(record fulfillment.RemoteSupplyRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supply[record.SellerSKU] = record
	s.changed[record.SellerSKU] = s.now()
}

// ---------------------------------------------------------------------------
// Inventory
// ---------------------------------------------------------------------------

// ListInventorySupply returns the requested SKUs, or every record changed
// since query.Since, sorted by SKU and paged.
func (s *SimulatedClient) ListInventorySupply(_ context.Context, query fulfillment.SupplyQuery) (*fulfillment.SupplyList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(query.SellerSKUs) > 0 {
		records := make([]fulfillment.RemoteSupplyRecord, 0, len(query.SellerSKUs))
		for _, sku := range query.SellerSKUs {
			record, ok := s.supply[sku]
			if !ok {
				record = fulfillment.RemoteSupplyRecord{SellerSKU: sku}
			}
			records = append(records, record)
		}
		return &fulfillment.SupplyList{Records: records, RequestID: newRequestID()}, nil
	}

	return s.page(query.Since, 0), nil
}

// ListInventorySupplyByNextToken returns the page the token points to.
func (s *SimulatedClient) ListInventorySupplyByNextToken(_ context.Context, _ string, nextToken string) (*fulfillment.SupplyList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	offset, since, err := parseToken(nextToken)
	if err != nil {
		return nil, &fulfillment.RemoteError{
			StatusCode: http.StatusBadRequest,
			ErrorCode:  "InvalidParameterValue",
			ErrorType:  "Sender",
			RequestID:  newRequestID(),
			Message:    err.Error(),
		}
	}
	return s.page(since, offset), nil
}

func (s *SimulatedClient) changedSince(since *time.Time) []string {
	skus := make([]string, 0, len(s.supply))
	for sku := range s.supply {
		if since != nil && s.changed[sku].Before(*since) {
			continue
		}
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	return skus
}

func (s *SimulatedClient) page(since *time.Time, offset int) *fulfillment.SupplyList {
	skus := s.changedSince(since)
	end := offset + s.pageSize
	if end > len(skus) {
		end = len(skus)
	}
	list := &fulfillment.SupplyList{RequestID: newRequestID()}
	for _, sku := range skus[min(offset, len(skus)):end] {
		list.Records = append(list.Records, s.supply[sku])
	}
	if end < len(skus) {
		list.NextToken = formatToken(end, since)
	}
	return list
}

func formatToken(offset int, since *time.Time) string {
	token := simulatedTokenPrefix + strconv.Itoa(offset)
	if since != nil {
		token += "@" + strconv.FormatInt(since.UnixNano(), 10)
	}
	return token
}

// parseToken reads an offset token with an optional "@unixnano" since filter.
func parseToken(token string) (int, *time.Time, error) {
	if !strings.HasPrefix(token, simulatedTokenPrefix) {
		return 0, nil, fmt.Errorf("invalid next token %q", token)
	}
	rest := strings.TrimPrefix(token, simulatedTokenPrefix)
	var since *time.Time
	if at := strings.IndexByte(rest, '@'); at >= 0 {
		nanos, err := strconv.ParseInt(rest[at+1:], 10, 64)
		if err != nil {
			return 0, nil, fmt.Errorf("invalid next token %q", token)
		}
		t := time.Unix(0, nanos)
		since = &t
		rest = rest[:at]
	}
	offset, err := strconv.Atoi(rest)
	if err != nil || offset < 0 {
		return 0, nil, fmt.Errorf("invalid next token %q", token)
	}
	return offset, since, nil
}

// ---------------------------------------------------------------------------
// Outbound
// ---------------------------------------------------------------------------

// CreateFulfillmentOrder accepts an order in RECEIVED status. A duplicate
// seller fulfillment order id is rejected the way the provider rejects it.
func (s *SimulatedClient) CreateFulfillmentOrder(_ context.Context, req *fulfillment.CreateFulfillmentOrderRequest) (*fulfillment.CreateFulfillmentOrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req == nil || req.SellerFulfillmentOrderID == "" {
		return nil, invalidParameter("SellerFulfillmentOrderId is required")
	}
	if _, exists := s.orders[req.SellerFulfillmentOrderID]; exists {
		return nil, invalidParameter(fmt.Sprintf("Fulfillment order %s already exists", req.SellerFulfillmentOrderID))
	}

	copied := *req
	copied.Items = append([]fulfillment.CreateFulfillmentOrderItem(nil), req.Items...)
	s.orders[req.SellerFulfillmentOrderID] = &simulatedOrder{
		request:   copied,
		status:    simStatusReceived,
		updatedAt: s.now(),
	}
	s.logger.Debug("Simulated order accepted", zap.String("order_id", req.SellerFulfillmentOrderID))
	return &fulfillment.CreateFulfillmentOrderResult{RequestID: newRequestID()}, nil
}

// GetFulfillmentOrder returns a snapshot of the stored order.
func (s *SimulatedClient) GetFulfillmentOrder(_ context.Context, _ string, id string) (*fulfillment.FulfillmentOrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, invalidParameter(fmt.Sprintf("Requested order %s not found", id))
	}
	return order.result(), nil
}

// CancelFulfillmentOrder cancels an order that has not shipped.
func (s *SimulatedClient) CancelFulfillmentOrder(_ context.Context, _ string, id string) (*fulfillment.CancelFulfillmentOrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, invalidParameter(fmt.Sprintf("Requested order %s not found", id))
	}
	if order.status == simStatusComplete {
		return nil, invalidParameter(fmt.Sprintf("Order %s has already shipped", id))
	}
	order.status = simStatusCancelled
	order.updatedAt = s.now()
	return &fulfillment.CancelFulfillmentOrderResult{RequestID: newRequestID()}, nil
}

// GetFulfillmentPreview quotes every speed. A speed is fulfillable when each
// requested SKU has enough usable supply.
func (s *SimulatedClient) GetFulfillmentPreview(_ context.Context, req *fulfillment.FulfillmentPreviewRequest) (*fulfillment.FulfillmentPreviewResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req == nil || len(req.Items) == 0 {
		return nil, invalidParameter("Items are required")
	}

	fulfillable := true
	var units int64
	for _, item := range req.Items {
		units += item.Quantity
		if s.supply[item.SellerSKU].UsableQty() < item.Quantity {
			fulfillable = false
		}
	}

	now := s.now().UTC().Truncate(24 * time.Hour)
	result := &fulfillment.FulfillmentPreviewResult{RequestID: newRequestID()}
	for _, sp := range simulatedSpeeds {
		preview := fulfillment.FulfillmentPreview{
			ShippingSpeedCategory: sp.speed,
			IsFulfillable:         fulfillable,
		}
		if fulfillable {
			extra := decimal.NewFromInt(units - 1)
			fee := sp.baseFee.Add(sp.perUnitFee.Mul(extra))
			shipDate := now.AddDate(0, 0, 1)
			earliest := now.AddDate(0, 0, sp.arrivalDays)
			latest := earliest.AddDate(0, 0, 2)
			preview.EstimatedFees = []fulfillment.Fee{{
				Name:   "FBAPerUnitFulfillmentFee",
				Amount: fulfillment.Money{CurrencyCode: "USD", Value: fee},
			}}
			preview.Shipments = []fulfillment.PreviewShipment{{
				EarliestShipDate:    &shipDate,
				LatestShipDate:      &shipDate,
				EarliestArrivalDate: &earliest,
				LatestArrivalDate:   &latest,
			}}
		}
		result.Previews = append(result.Previews, preview)
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Provider-side controls
// ---------------------------------------------------------------------------

// Advance sets the provider status of an order, e.g. "PLANNING".
func (s *SimulatedClient) Advance(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("simulated order %s not found", id)
	}
	order.status = strings.ToUpper(status)
	order.updatedAt = s.now()
	return nil
}

// Ship ships every line of an order in a single package and marks it COMPLETE.
func (s *SimulatedClient) Ship(id, trackingNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("simulated order %s not found", id)
	}
	if order.status == simStatusCancelled {
		return fmt.Errorf("simulated order %s is cancelled", id)
	}

	shipment := fulfillment.FulfillmentShipment{
		AmazonShipmentID:          fmt.Sprintf("SIM%s%d", id, len(order.shipments)+1),
		FulfillmentCenterID:       "SIM1",
		FulfillmentShipmentStatus: simShipmentShipped,
		Packages: []fulfillment.FulfillmentShipmentPackage{{
			PackageNumber:  1,
			CarrierCode:    simulatedCarrierCode,
			TrackingNumber: trackingNumber,
		}},
	}
	for _, item := range order.request.Items {
		shipment.Items = append(shipment.Items, fulfillment.FulfillmentShipmentItem{
			SellerSKU:     item.SellerSKU,
			Quantity:      item.Quantity,
			PackageNumber: 1,
		})
	}
	order.shipments = append(order.shipments, shipment)
	order.status = simStatusComplete
	order.updatedAt = s.now()
	return nil
}

// Process moves a received order into PROCESSING.
func (s *SimulatedClient) Process(id string) error {
	return s.Advance(id, simStatusProcessing)
}

// Orders returns the ids of every accepted order, sorted.
func (s *SimulatedClient) Orders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.orders))
	for id := range s.orders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (o *simulatedOrder) result() *fulfillment.FulfillmentOrderResult {
	res := &fulfillment.FulfillmentOrderResult{
		FulfillmentOrder: fulfillment.FulfillmentOrder{
			SellerFulfillmentOrderID: o.request.SellerFulfillmentOrderID,
			DisplayableOrderID:       o.request.DisplayableOrderID,
			FulfillmentOrderStatus:   o.status,
			ShippingSpeedCategory:    string(o.request.ShippingSpeedCategory),
		},
		RequestID: newRequestID(),
	}
	for _, item := range o.request.Items {
		line := fulfillment.FulfillmentOrderItem{
			SellerSKU:                    item.SellerSKU,
			SellerFulfillmentOrderItemID: item.SellerFulfillmentOrderItemID,
			Quantity:                     item.Quantity,
		}
		if o.status == simStatusCancelled {
			line.CancelledQuantity = item.Quantity
		}
		res.Items = append(res.Items, line)
	}
	for _, sh := range o.shipments {
		sh.Items = append([]fulfillment.FulfillmentShipmentItem(nil), sh.Items...)
		sh.Packages = append([]fulfillment.FulfillmentShipmentPackage(nil), sh.Packages...)
		res.Shipments = append(res.Shipments, sh)
	}
	return res
}

func invalidParameter(msg string) *fulfillment.RemoteError {
	return &fulfillment.RemoteError{
		StatusCode: http.StatusBadRequest,
		ErrorCode:  "InvalidParameterValue",
		ErrorType:  "Sender",
		RequestID:  newRequestID(),
		Message:    msg,
	}
}

func newRequestID() string {
	return uuid.New().String()
}
