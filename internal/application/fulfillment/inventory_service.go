package fulfillment

import (
	"context"
	"strconv"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Job names.
const (
	JobInventoryCurrent = "inventory_current"
	JobInventoryFull    = "inventory_full"
	JobOrderStatus      = "order_status"
	JobResubmit         = "order_resubmit"
)

// InventoryService reconciles local stock with remote supply.
type InventoryService struct {
	products fulfillment.ProductRepository
	stock    fulfillment.StockRepository
	cursors  fulfillment.CursorStore
	gateway  *RemoteGateway
	notifier fulfillment.Notifier
	opts     Options
	logger   *zap.Logger
	metrics  *telemetry.ReconciliationMetrics
	now      func() time.Time
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(
	products fulfillment.ProductRepository,
	stock fulfillment.StockRepository,
	cursors fulfillment.CursorStore,
	gateway *RemoteGateway,
	notifier fulfillment.Notifier,
	opts Options,
	logger *zap.Logger,
) *InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryService{
		products: products,
		stock:    stock,
		cursors:  cursors,
		gateway:  gateway,
		notifier: notifier,
		opts:     opts.withDefaults(),
		logger:   logger.Named("inventory_sync"),
		now:      time.Now,
	}
}

// SetMetrics sets the metrics recorder (optional)
func (s *InventoryService) SetMetrics(m *telemetry.ReconciliationMetrics) {
	s.metrics = m
}

// ---------------------------------------------------------------------------
// Incremental sync
// ---------------------------------------------------------------------------

// SyncCurrent applies remote supply changes since the stored continuation
// token, or since one day ago when no token is stored. The next token is
// stored for the following run; a failed call clears it.
func (s *InventoryService) SyncCurrent(ctx context.Context) (*SyncReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "inventory_sync", "current")
	defer span.End()
	started := s.now()
	report := &SyncReport{Job: JobInventoryCurrent}

	token, err := s.cursors.Get(ctx, fulfillment.CursorInventoryToken)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var list *fulfillment.SupplyList
	if token != "" {
		list = s.gateway.ListSupplyByNextToken(ctx, token)
	} else {
		since := s.now().Add(-24 * time.Hour)
		list = s.gateway.ListSupply(ctx, nil, &since)
	}

	if list == nil {
		report.Failed++
		s.replaceToken(ctx, token, "")
		return s.finish(ctx, report, started), nil
	}

	skus := make([]string, 0, len(list.Records))
	for _, r := range list.Records {
		if r.SellerSKU != "" {
			skus = append(skus, r.SellerSKU)
		}
	}
	report.Processed = len(list.Records)

	if len(skus) > 0 {
		products, err := s.products.FindBySKUs(ctx, skus)
		if err != nil {
			// Keep the token so the same page is read again next run.
			s.logger.Error("Failed to load products for supply page", zap.Error(err))
			report.Failed++
			return s.finish(ctx, report, started), nil
		}

		idx := fulfillment.NewSkuIndex(trackedSkus(products))
		matches, unknown := idx.MatchSupply(list.Records)
		for _, m := range matches {
			if !m.Matched {
				continue
			}
			s.writeStock(ctx, report, m.Sku, m.Qty)
		}
		if len(unknown) > 0 {
			report.Unmatched = unknown
			s.notify(ctx, fulfillment.UnknownRemoteSkuNotice(unknown))
		}
	}

	s.replaceToken(ctx, token, list.NextToken)
	return s.finish(ctx, report, started), nil
}

func (s *InventoryService) replaceToken(ctx context.Context, current, next string) {
	ok, err := s.cursors.CompareAndSet(ctx, fulfillment.CursorInventoryToken, current, next)
	if err != nil {
		s.logger.Error("Failed to store inventory next token", zap.Error(err))
		return
	}
	if !ok {
		s.logger.Warn("Inventory next token changed by another run, keeping its value")
	}
}

// ---------------------------------------------------------------------------
// Full sync
// ---------------------------------------------------------------------------

// SyncFull processes one page of a flagged full resync. Every product of the
// page gets a stock write: usable remote supply, else zero. The pass ends
// when a page comes back short or empty.
func (s *InventoryService) SyncFull(ctx context.Context) (*SyncReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "inventory_sync", "full")
	defer span.End()
	started := s.now()
	report := &SyncReport{Job: JobInventoryFull}

	active, err := s.passActive(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !active {
		report.Skipped = true
		report.SkipReason = "no full resync flagged"
		return report, nil
	}

	lease, acquired, err := s.acquireLease(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !acquired {
		report.Skipped = true
		report.SkipReason = "another full sync run holds the lease"
		return report, nil
	}
	defer s.releaseLease(ctx, lease)

	// The pass may have completed while the lease was being taken.
	active, err = s.passActive(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !active {
		report.Skipped = true
		report.SkipReason = "no full resync flagged"
		return report, nil
	}

	row, err := s.readRow(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	products, err := s.products.FindEnabledPage(ctx, row, s.opts.InventoryPageSize)
	if err != nil {
		s.logger.Error("Failed to load enabled products", zap.Int("row", row), zap.Error(err))
		report.Failed++
		return s.finish(ctx, report, started), nil
	}

	if len(products) == 0 {
		s.completePass(ctx, report, 0)
		return s.finish(ctx, report, started), nil
	}

	idx := fulfillment.NewSkuIndex(trackedSkus(products))
	list := s.gateway.ListSupply(ctx, idx.QuerySKUs(), nil)
	if list == nil {
		// Nothing is zeroed on a failed call; the same page is retried next run.
		report.Failed++
		return s.finish(ctx, report, started), nil
	}

	report.Processed = len(products)
	matches, _ := idx.MatchSupply(list.Records)
	for _, m := range matches {
		s.writeStock(ctx, report, m.Sku, m.Qty)
	}

	if unmatched := idx.Unmatched(); len(unmatched) > 0 {
		report.Unmatched = unmatched
		s.notify(ctx, fulfillment.UnmatchedInventoryNotice(unmatched))
		if s.metrics != nil {
			s.metrics.RecordUnmatchedSkus(ctx, len(unmatched))
		}
	} else {
		s.notify(ctx, fulfillment.InventorySyncedNotice())
	}

	next := row + len(products)
	if len(products) < s.opts.InventoryPageSize {
		s.completePass(ctx, report, next)
		return s.finish(ctx, report, started), nil
	}
	if err := s.cursors.Set(ctx, fulfillment.CursorInventoryRow, strconv.Itoa(next)); err != nil {
		s.logger.Error("Failed to advance inventory row", zap.Int("row", next), zap.Error(err))
	}
	return s.finish(ctx, report, started), nil
}

// FlagFullResync starts a new full pass from the first row.
func (s *InventoryService) FlagFullResync(ctx context.Context) error {
	if err := s.cursors.Set(ctx, fulfillment.CursorInventoryRow, "0"); err != nil {
		return err
	}
	if err := s.cursors.Set(ctx, fulfillment.CursorInventoryRunning, fulfillment.FlagActive); err != nil {
		return err
	}
	s.logger.Info("Full inventory resync flagged")
	return nil
}

// completePass stores the final row and marks the pass stopped. The row
// returns to 0 when the next pass is flagged.
func (s *InventoryService) completePass(ctx context.Context, report *SyncReport, row int) {
	report.PassCompleted = true
	if err := s.cursors.Set(ctx, fulfillment.CursorInventoryRow, strconv.Itoa(row)); err != nil {
		s.logger.Error("Failed to store inventory row", zap.Error(err))
	}
	if err := s.cursors.Set(ctx, fulfillment.CursorInventoryRunning, fulfillment.FlagStopped); err != nil {
		s.logger.Error("Failed to stop inventory pass", zap.Error(err))
		return
	}
	s.logger.Info("Full inventory pass completed", zap.Int("row", row))
}

func (s *InventoryService) passActive(ctx context.Context) (bool, error) {
	flag, err := s.cursors.Get(ctx, fulfillment.CursorInventoryRunning)
	if err != nil {
		return false, err
	}
	return flag != fulfillment.FlagStopped, nil
}

func (s *InventoryService) readRow(ctx context.Context) (int, error) {
	raw, err := s.cursors.Get(ctx, fulfillment.CursorInventoryRow)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	row, err := strconv.Atoi(raw)
	if err != nil || row < 0 {
		s.logger.Warn("Invalid inventory row cursor, restarting at 0", zap.String("value", raw))
		return 0, nil
	}
	return row, nil
}

// acquireLease claims the full sync lease. The stored value is the lease
// expiry in unix nanoseconds; an expired lease can be taken over.
func (s *InventoryService) acquireLease(ctx context.Context) (string, bool, error) {
	current, err := s.cursors.Get(ctx, fulfillment.CursorInventoryLease)
	if err != nil {
		return "", false, err
	}
	now := s.now()
	if current != "" {
		expiry, parseErr := strconv.ParseInt(current, 10, 64)
		if parseErr == nil && now.UnixNano() < expiry {
			return "", false, nil
		}
	}
	lease := strconv.FormatInt(now.Add(s.opts.LeaseTTL).UnixNano(), 10)
	ok, err := s.cursors.CompareAndSet(ctx, fulfillment.CursorInventoryLease, current, lease)
	if err != nil || !ok {
		return "", false, err
	}
	return lease, true, nil
}

func (s *InventoryService) releaseLease(ctx context.Context, lease string) {
	if _, err := s.cursors.CompareAndSet(ctx, fulfillment.CursorInventoryLease, lease, ""); err != nil {
		s.logger.Warn("Failed to release full sync lease", zap.Error(err))
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *InventoryService) writeStock(ctx context.Context, report *SyncReport, sku fulfillment.TrackedSku, qty int64) {
	if err := s.stock.SetQuantity(ctx, sku.ProductID, sku.SKU, qty); err != nil {
		s.logger.Error("Failed to update stock",
			zap.String("sku", sku.SKU),
			zap.Int64("qty", qty),
			zap.Error(err),
		)
		report.Failed++
		return
	}
	report.Updated++
}

func (s *InventoryService) notify(ctx context.Context, n fulfillment.Notification) {
	deliver(ctx, s.notifier, s.logger, n)
}

func (s *InventoryService) finish(ctx context.Context, report *SyncReport, started time.Time) *SyncReport {
	report.Duration = s.now().Sub(started)
	if s.metrics != nil {
		s.metrics.RecordStockWrites(ctx, report.Job, report.Updated)
	}
	s.logger.Info("Inventory sync finished",
		zap.String("job", report.Job),
		zap.Int("processed", report.Processed),
		zap.Int("updated", report.Updated),
		zap.Int("failed", report.Failed),
		zap.Bool("pass_completed", report.PassCompleted),
	)
	return report
}

func trackedSkus(products []fulfillment.Product) []fulfillment.TrackedSku {
	out := make([]fulfillment.TrackedSku, 0, len(products))
	for _, p := range products {
		out = append(out, p.TrackedSku())
	}
	return out
}
