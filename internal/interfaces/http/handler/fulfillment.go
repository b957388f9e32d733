package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	fulfillmentapp "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/scheduler"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// FulfillmentAdmin serves the manual admin actions
type FulfillmentAdmin interface {
	FlagFullResync(ctx context.Context) fulfillmentapp.ResyncResult
	CheckCredentials(ctx context.Context) fulfillmentapp.CredentialCheckResult
}

// RateEstimator quotes shipping speeds
type RateEstimator interface {
	Estimate(ctx context.Context, req fulfillmentapp.RateRequest) []fulfillmentapp.Rate
}

// JobRunner exposes the reconciliation job scheduler
type JobRunner interface {
	Jobs() []string
	RunNow(ctx context.Context, name string) (*scheduler.JobRun, error)
	GetRunHistory(limit int) []*scheduler.JobRun
	GetRunHistoryByJob(job string, limit int) []*scheduler.JobRun
}

// OrderSubmitter runs the order placement and cancellation hooks
type OrderSubmitter interface {
	SubmitByIncrementID(ctx context.Context, incrementID string) (*fulfillmentapp.OrderSummary, error)
	CancelByIncrementID(ctx context.Context, incrementID string, skipRemote bool) (*fulfillmentapp.OrderSummary, error)
}

var (
	_ OrderSubmitter   = (*fulfillmentapp.SubmissionService)(nil)
	_ FulfillmentAdmin = (*fulfillmentapp.AdminService)(nil)
	_ RateEstimator    = (*fulfillmentapp.RateService)(nil)
	_ JobRunner        = (*scheduler.Scheduler)(nil)
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// FulfillmentHandler handles the fulfillment admin endpoints
type FulfillmentHandler struct {
	BaseHandler
	admin  FulfillmentAdmin
	rates  RateEstimator
	jobs   JobRunner
	orders OrderSubmitter
}

// NewFulfillmentHandler creates a new FulfillmentHandler. jobs may be nil
// when the process runs without a scheduler.
func NewFulfillmentHandler(admin FulfillmentAdmin, rates RateEstimator, jobs JobRunner) *FulfillmentHandler {
	return &FulfillmentHandler{
		admin: admin,
		rates: rates,
		jobs:  jobs,
	}
}

// WithOrders enables the order submit and cancel endpoints
func (h *FulfillmentHandler) WithOrders(orders OrderSubmitter) *FulfillmentHandler {
	h.orders = orders
	return h
}

// CancelOrderRequest controls a local cancellation
type CancelOrderRequest struct {
	SkipRemote bool `json:"skip_remote"`
}

// RatesResponse wraps the quoted rates
type RatesResponse struct {
	Rates []fulfillmentapp.Rate `json:"rates"`
}

// JobRunResponse is the API view of one job run
type JobRunResponse struct {
	ID          string                     `json:"id"`
	Job         string                     `json:"job"`
	Status      string                     `json:"status"`
	Error       string                     `json:"error,omitempty"`
	StartedAt   time.Time                  `json:"started_at"`
	CompletedAt *time.Time                 `json:"completed_at,omitempty"`
	DurationMs  int64                      `json:"duration_ms"`
	Report      *fulfillmentapp.SyncReport `json:"report,omitempty"`
}

// JobsResponse lists the registered jobs and their recent runs
type JobsResponse struct {
	Jobs []string         `json:"jobs"`
	Runs []JobRunResponse `json:"runs"`
}

func toJobRunResponse(run *scheduler.JobRun) JobRunResponse {
	return JobRunResponse{
		ID:          run.ID.String(),
		Job:         run.Job,
		Status:      string(run.Status),
		Error:       run.Error,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		DurationMs:  run.Duration().Milliseconds(),
		Report:      run.Report,
	}
}

// FlagFullResync flags a full inventory synchronization
// POST /api/v1/fulfillment/inventory/resync
func (h *FulfillmentHandler) FlagFullResync(c *gin.Context) {
	result := h.admin.FlagFullResync(c.Request.Context())
	if !result.Success {
		h.InternalError(c, result.Message)
		return
	}
	h.Success(c, result)
}

// CheckCredentials verifies the configured provider keys. A rejected key
// is a successful check with result "fail".
// GET /api/v1/fulfillment/credentials/check
func (h *FulfillmentHandler) CheckCredentials(c *gin.Context) {
	h.Success(c, h.admin.CheckCredentials(c.Request.Context()))
}

// EstimateRates quotes shipping speeds for an address and items
// POST /api/v1/fulfillment/rates
func (h *FulfillmentHandler) EstimateRates(c *gin.Context) {
	var req fulfillmentapp.RateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	rates := h.rates.Estimate(c.Request.Context(), req)
	if rates == nil {
		rates = []fulfillmentapp.Rate{}
	}
	h.Success(c, RatesResponse{Rates: rates})
}

// ListJobs returns the registered jobs and recent runs, optionally
// filtered by ?job= and capped by ?limit=
// GET /api/v1/fulfillment/jobs
func (h *FulfillmentHandler) ListJobs(c *gin.Context) {
	if h.jobs == nil {
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "Job scheduler is not running")
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			h.BadRequest(c, "limit must be between 1 and "+strconv.Itoa(maxHistoryLimit))
			return
		}
		limit = n
	}

	var runs []*scheduler.JobRun
	if job := c.Query("job"); job != "" {
		runs = h.jobs.GetRunHistoryByJob(job, limit)
	} else {
		runs = h.jobs.GetRunHistory(limit)
	}

	resp := JobsResponse{Jobs: h.jobs.Jobs(), Runs: make([]JobRunResponse, 0, len(runs))}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, toJobRunResponse(run))
	}
	h.Success(c, resp)
}

// RunJob runs a reconciliation job immediately and returns the run
// POST /api/v1/fulfillment/jobs/:name/run
func (h *FulfillmentHandler) RunJob(c *gin.Context) {
	if h.jobs == nil {
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "Job scheduler is not running")
		return
	}

	// a disconnecting client must not abort a half-applied pass
	ctx := context.WithoutCancel(c.Request.Context())
	run, err := h.jobs.RunNow(ctx, c.Param("name"))
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "Unknown job "+c.Param("name"))
		return
	case errors.Is(err, scheduler.ErrJobAlreadyRunning):
		h.Error(c, http.StatusConflict, dto.ErrCodeAlreadyExists, "Job is already running")
		return
	case run == nil:
		h.HandleError(c, err)
		return
	}

	// a failed run is still reported as a run
	h.Success(c, toJobRunResponse(run))
}

// SubmitOrder sends a placed order to the provider
// POST /api/v1/fulfillment/orders/:increment_id/submit
func (h *FulfillmentHandler) SubmitOrder(c *gin.Context) {
	if h.orders == nil {
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "Order hooks are not enabled")
		return
	}

	summary, err := h.orders.SubmitByIncrementID(c.Request.Context(), c.Param("increment_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// CancelOrder records a local cancellation and cancels the provider order
// unless skip_remote is set. The body is optional.
// POST /api/v1/fulfillment/orders/:increment_id/cancel
func (h *FulfillmentHandler) CancelOrder(c *gin.Context) {
	if h.orders == nil {
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "Order hooks are not enabled")
		return
	}

	var req CancelOrderRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}

	summary, err := h.orders.CancelByIncrementID(c.Request.Context(), c.Param("increment_id"), req.SkipRemote)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}
