package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a nil meter is passed to a metrics constructor.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// ReconciliationMetrics records the side effects of the reconciliation jobs.
type ReconciliationMetrics struct {
	jobRuns         *Counter
	jobDuration     *Histogram
	stockWrites     *Counter
	unmatchedSkus   *Counter
	transitions     *Counter
	submissions     *Counter
	remoteErrors    *Counter
	shipmentsCreate *Counter
}

// NewReconciliationMetrics creates the reconciliation instruments on meter.
func NewReconciliationMetrics(meter metric.Meter) (*ReconciliationMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &ReconciliationMetrics{}
	var err error
	if m.jobRuns, err = NewCounter(meter, "mcf_job_runs_total", "Reconciliation job runs", "{runs}"); err != nil {
		return nil, err
	}
	if m.jobDuration, err = NewHistogram(meter, "mcf_job_duration_seconds", "Reconciliation job duration", "s", JobDurationBuckets); err != nil {
		return nil, err
	}
	if m.stockWrites, err = NewCounter(meter, "mcf_stock_writes_total", "Local stock records written from remote supply", "{writes}"); err != nil {
		return nil, err
	}
	if m.unmatchedSkus, err = NewCounter(meter, "mcf_unmatched_skus_total", "Enabled SKUs with no usable remote supply", "{skus}"); err != nil {
		return nil, err
	}
	if m.transitions, err = NewCounter(meter, "mcf_order_transitions_total", "Remote status transitions applied to orders", "{orders}"); err != nil {
		return nil, err
	}
	if m.submissions, err = NewCounter(meter, "mcf_order_submissions_total", "Fulfillment order create attempts", "{attempts}"); err != nil {
		return nil, err
	}
	if m.remoteErrors, err = NewCounter(meter, "mcf_remote_errors_total", "Failed remote fulfillment calls", "{errors}"); err != nil {
		return nil, err
	}
	if m.shipmentsCreate, err = NewCounter(meter, "mcf_shipments_created_total", "Shipments materialized from remote packages", "{shipments}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordJobRun records one job run and its duration.
func (m *ReconciliationMetrics) RecordJobRun(ctx context.Context, job string, d time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.jobRuns.Inc(ctx, AttrJob.String(job), AttrOutcome.String(outcome))
	m.jobDuration.RecordDuration(ctx, d, AttrJob.String(job))
}

// RecordStockWrites records stock writes made by job.
func (m *ReconciliationMetrics) RecordStockWrites(ctx context.Context, job string, n int) {
	if n > 0 {
		m.stockWrites.Add(ctx, int64(n), AttrJob.String(job))
	}
}

// RecordUnmatchedSkus records SKUs zeroed for lack of remote supply.
func (m *ReconciliationMetrics) RecordUnmatchedSkus(ctx context.Context, n int) {
	if n > 0 {
		m.unmatchedSkus.Add(ctx, int64(n))
	}
}

// RecordTransition records an order moving to remoteStatus.
func (m *ReconciliationMetrics) RecordTransition(ctx context.Context, remoteStatus string) {
	m.transitions.Inc(ctx, AttrRemoteStatus.String(remoteStatus))
}

// RecordSubmission records a create attempt and whether the provider accepted it.
func (m *ReconciliationMetrics) RecordSubmission(ctx context.Context, accepted bool) {
	outcome := OutcomeSuccess
	if !accepted {
		outcome = OutcomeFailure
	}
	m.submissions.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordRemoteError records a failed remote call.
func (m *ReconciliationMetrics) RecordRemoteError(ctx context.Context, operation, errorCode string) {
	m.remoteErrors.Inc(ctx, AttrOperation.String(operation), AttrErrorCode.String(errorCode))
}

// RecordShipment records a materialized shipment.
func (m *ReconciliationMetrics) RecordShipment(ctx context.Context) {
	m.shipmentsCreate.Inc(ctx)
}
