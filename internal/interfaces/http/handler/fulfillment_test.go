package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	fulfillmentapp "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/scheduler"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockAdmin struct {
	mock.Mock
}

func (m *mockAdmin) FlagFullResync(ctx context.Context) fulfillmentapp.ResyncResult {
	return m.Called(ctx).Get(0).(fulfillmentapp.ResyncResult)
}

func (m *mockAdmin) CheckCredentials(ctx context.Context) fulfillmentapp.CredentialCheckResult {
	return m.Called(ctx).Get(0).(fulfillmentapp.CredentialCheckResult)
}

type mockRates struct {
	mock.Mock
}

func (m *mockRates) Estimate(ctx context.Context, req fulfillmentapp.RateRequest) []fulfillmentapp.Rate {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]fulfillmentapp.Rate)
}

type mockJobs struct {
	mock.Mock
}

func (m *mockJobs) Jobs() []string {
	return m.Called().Get(0).([]string)
}

func (m *mockJobs) RunNow(ctx context.Context, name string) (*scheduler.JobRun, error) {
	args := m.Called(ctx, name)
	run, _ := args.Get(0).(*scheduler.JobRun)
	return run, args.Error(1)
}

func (m *mockJobs) GetRunHistory(limit int) []*scheduler.JobRun {
	return m.Called(limit).Get(0).([]*scheduler.JobRun)
}

func (m *mockJobs) GetRunHistoryByJob(job string, limit int) []*scheduler.JobRun {
	return m.Called(job, limit).Get(0).([]*scheduler.JobRun)
}

type mockOrders struct {
	mock.Mock
}

func (m *mockOrders) SubmitByIncrementID(ctx context.Context, incrementID string) (*fulfillmentapp.OrderSummary, error) {
	args := m.Called(ctx, incrementID)
	summary, _ := args.Get(0).(*fulfillmentapp.OrderSummary)
	return summary, args.Error(1)
}

func (m *mockOrders) CancelByIncrementID(ctx context.Context, incrementID string, skipRemote bool) (*fulfillmentapp.OrderSummary, error) {
	args := m.Called(ctx, incrementID, skipRemote)
	summary, _ := args.Get(0).(*fulfillmentapp.OrderSummary)
	return summary, args.Error(1)
}

func newFulfillmentRouter(h *FulfillmentHandler) *gin.Engine {
	r := gin.New()
	r.POST("/inventory/resync", h.FlagFullResync)
	r.GET("/credentials/check", h.CheckCredentials)
	r.POST("/rates", h.EstimateRates)
	r.GET("/jobs", h.ListJobs)
	r.POST("/jobs/:name/run", h.RunJob)
	r.POST("/orders/:increment_id/submit", h.SubmitOrder)
	r.POST("/orders/:increment_id/cancel", h.CancelOrder)
	return r
}

func serve(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func finishedRun(job string, status scheduler.RunStatus) *scheduler.JobRun {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	completed := started.Add(1500 * time.Millisecond)
	return &scheduler.JobRun{
		ID:          uuid.New(),
		Job:         job,
		Status:      status,
		StartedAt:   started,
		CompletedAt: &completed,
		Report:      &fulfillmentapp.SyncReport{Job: job, Processed: 2, Updated: 2},
	}
}

// ---------------------------------------------------------------------------
// Admin actions
// ---------------------------------------------------------------------------

func TestFulfillmentHandler_FlagFullResync(t *testing.T) {
	admin := new(mockAdmin)
	admin.On("FlagFullResync", mock.Anything).Return(fulfillmentapp.ResyncResult{
		Success: true,
		Message: fulfillmentapp.MsgResyncFlagged,
	})
	r := newFulfillmentRouter(NewFulfillmentHandler(admin, new(mockRates), nil))

	w := serve(r, http.MethodPost, "/inventory/resync", "")

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["success"])
	assert.Equal(t, fulfillmentapp.MsgResyncFlagged, data["message"])
	admin.AssertExpectations(t)
}

func TestFulfillmentHandler_FlagFullResyncFailure(t *testing.T) {
	admin := new(mockAdmin)
	admin.On("FlagFullResync", mock.Anything).Return(fulfillmentapp.ResyncResult{
		Success: false,
		Message: fulfillmentapp.MsgResyncFailed,
	})
	r := newFulfillmentRouter(NewFulfillmentHandler(admin, new(mockRates), nil))

	w := serve(r, http.MethodPost, "/inventory/resync", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
	assert.Equal(t, fulfillmentapp.MsgResyncFailed, resp.Error.Message)
}

func TestFulfillmentHandler_CheckCredentials(t *testing.T) {
	tests := []struct {
		name   string
		result fulfillmentapp.CredentialCheckResult
	}{
		{"valid keys", fulfillmentapp.CredentialCheckResult{Result: fulfillmentapp.CredentialResultSuccess, Message: fulfillmentapp.MsgCredentialsValid}},
		{"rejected keys", fulfillmentapp.CredentialCheckResult{Result: fulfillmentapp.CredentialResultFail, Message: fulfillmentapp.MsgCredentialsInvalid}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			admin := new(mockAdmin)
			admin.On("CheckCredentials", mock.Anything).Return(tt.result)
			r := newFulfillmentRouter(NewFulfillmentHandler(admin, new(mockRates), nil))

			w := serve(r, http.MethodGet, "/credentials/check", "")

			assert.Equal(t, http.StatusOK, w.Code)
			data := decodeResponse(t, w).Data.(map[string]any)
			assert.Equal(t, tt.result.Result, data["result"])
			assert.Equal(t, tt.result.Message, data["message"])
		})
	}
}

// ---------------------------------------------------------------------------
// Rates
// ---------------------------------------------------------------------------

const validRateBody = `{
	"address": {"name": "Jane Doe", "line1": "1 Main St", "city": "Seattle", "state_or_region": "WA", "postal_code": "98101", "country_code": "US"},
	"items": [{"sku": "WIDGET-1", "quantity": 2}]
}`

func TestFulfillmentHandler_EstimateRates(t *testing.T) {
	earliest := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	rates := new(mockRates)
	rates.On("Estimate", mock.Anything, mock.MatchedBy(func(req fulfillmentapp.RateRequest) bool {
		return req.Address.City == "Seattle" && len(req.Items) == 1 && req.Items[0].Quantity == 2
	})).Return([]fulfillmentapp.Rate{
		{ShippingSpeed: "Priority", Earliest: &earliest, Cost: decimal.RequireFromString("14.99"), Currency: "USD"},
		{ShippingSpeed: "Standard", Cost: decimal.RequireFromString("5.99"), Currency: "USD"},
	})
	r := newFulfillmentRouter(NewFulfillmentHandler(new(mockAdmin), rates, nil))

	w := serve(r, http.MethodPost, "/rates", validRateBody)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool          `json:"success"`
		Data    RatesResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Rates, 2)
	assert.Equal(t, "Priority", resp.Data.Rates[0].ShippingSpeed)
	assert.True(t, resp.Data.Rates[0].Cost.Equal(decimal.RequireFromString("14.99")))
	rates.AssertExpectations(t)
}

func TestFulfillmentHandler_EstimateRatesEmpty(t *testing.T) {
	rates := new(mockRates)
	rates.On("Estimate", mock.Anything, mock.Anything).Return(nil)
	r := newFulfillmentRouter(NewFulfillmentHandler(new(mockAdmin), rates, nil))

	w := serve(r, http.MethodPost, "/rates", validRateBody)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"rates":[]}`, string(mustMarshal(t, decodeResponse(t, w).Data)))
}

func TestFulfillmentHandler_EstimateRatesValidation(t *testing.T) {
	rates := new(mockRates)
	r := newFulfillmentRouter(NewFulfillmentHandler(new(mockAdmin), rates, nil))

	body := `{"address": {"name": "Jane", "line1": "1 Main St", "city": "Seattle", "country_code": "USA"}, "items": []}`
	w := serve(r, http.MethodPost, "/rates", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

	fields := make([]string, 0, len(resp.Error.Details))
	for _, d := range resp.Error.Details {
		fields = append(fields, d.Field)
	}
	assert.Contains(t, fields, "address.country_code")
	assert.Contains(t, fields, "items")
	rates.AssertNotCalled(t, "Estimate", mock.Anything, mock.Anything)
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

// ---------------------------------------------------------------------------
// Jobs
// ---------------------------------------------------------------------------

func TestFulfillmentHandler_ListJobs(t *testing.T) {
	jobs := new(mockJobs)
	jobs.On("Jobs").Return([]string{fulfillmentapp.JobInventoryCurrent, fulfillmentapp.JobOrderStatus})
	jobs.On("GetRunHistory", defaultHistoryLimit).Return([]*scheduler.JobRun{
		finishedRun(fulfillmentapp.JobOrderStatus, scheduler.RunStatusSuccess),
	})
	r := newFulfillmentRouter(NewFulfillmentHandler(new(mockAdmin), new(mockRates), jobs))

	w := serve(r, http.MethodGet, "/jobs", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data JobsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Jobs, 2)
	require.Len(t, resp.Data.Runs, 1)
	assert.Equal(t, "SUCCESS", resp.Data.Runs[0].Status)
	assert.Equal(t, int64(1500), resp.Data.Runs[0].DurationMs)
	assert.Equal(t, 2, resp.Data.Runs[0].Report.Updated)
}

func TestFulfillmentHandler_ListJobsFiltered(t *testing.T) {
	jobs := new(mockJobs)
	jobs.On("Jobs").Return([]string{fulfillmentapp.JobResubmit})
	jobs.On("GetRunHistoryByJob", fulfillmentapp.JobResubmit, 5).Return([]*scheduler.JobRun{})
	r := newFulfillmentRouter(NewFulfillmentHandler(new(mockAdmin), new(mockRates), jobs))

	w := serve(r, http.MethodGet, "/jobs?job="+fulfillmentapp.JobResubmit+"&limit=5", "")

	assert.Equal(t, http.StatusOK, w.Code)
	jobs.AssertExpectations(t)
}

func TestFulfillmentHandler_ListJobsBadLimit(t *testing.T) {
	r := newFulfillmentRouter(NewFulfillmentHandler(new(mockAdmin), new(mockRates), new(mockJobs)))

	for _, limit := range []string{"0", "abc", "1000"} {
		w := serve(r, http.MethodGet, "/jobs?limit="+limit, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, limit)
	}
}

func TestFulfillmentHandler_JobsWithoutScheduler(t *testing.T) {
	r := newFulfillmentRouter(NewFulfillmentHandler(new(mockAdmin), new(mockRates), nil))

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/jobs", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodPost, "/jobs/order_status/run", "").Code)
}

func TestFulfillmentHandler_RunJob(t *testing.T) {
	tests := []struct {
		name   string
		run    *scheduler.JobRun
		err    error
		status int
		code   string
	}{
		{
			name:   "success",
			run:    finishedRun(fulfillmentapp.JobInventoryFull, scheduler.RunStatusSuccess),
			status: http.StatusOK,
		},
		{
			name:   "failed run is reported",
			run:    finishedRun(fulfillmentapp.JobInventoryFull, scheduler.RunStatusFailed),
			err:    fmt.Errorf("cursor store unavailable"),
			status: http.StatusOK,
		},
		{
			name:   "unknown job",
			err:    fmt.Errorf("%w: %q", scheduler.ErrJobNotFound, fulfillmentapp.JobInventoryFull),
			status: http.StatusNotFound,
			code:   dto.ErrCodeNotFound,
		},
		{
			name:   "already running",
			err:    scheduler.ErrJobAlreadyRunning,
			status: http.StatusConflict,
			code:   dto.ErrCodeAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := new(mockJobs)
			jobs.On("RunNow", mock.Anything, fulfillmentapp.JobInventoryFull).Return(tt.run, tt.err)
			r := newFulfillmentRouter(NewFulfillmentHandler(new(mockAdmin), new(mockRates), jobs))

			w := serve(r, http.MethodPost, "/jobs/"+fulfillmentapp.JobInventoryFull+"/run", "")

			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, decodeResponse(t, w).Error.Code)
				return
			}
			var resp struct {
				Data JobRunResponse `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, string(tt.run.Status), resp.Data.Status)
			assert.Equal(t, tt.run.ID.String(), resp.Data.ID)
		})
	}
}

// ---------------------------------------------------------------------------
// Order hooks
// ---------------------------------------------------------------------------

func TestFulfillmentHandler_SubmitOrder(t *testing.T) {
	orders := new(mockOrders)
	orders.On("SubmitByIncrementID", mock.Anything, "100000001").Return(&fulfillmentapp.OrderSummary{
		IncrementID:     "100000001",
		RemoteStatus:    "received",
		RemoteFulfilled: true,
	}, nil)
	r := newFulfillmentRouter(NewFulfillmentHandler(new(mockAdmin), new(mockRates), nil).WithOrders(orders))

	w := serve(r, http.MethodPost, "/orders/100000001/submit", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data fulfillmentapp.OrderSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "received", resp.Data.RemoteStatus)
	assert.True(t, resp.Data.RemoteFulfilled)
}

func TestFulfillmentHandler_SubmitOrderNotFound(t *testing.T) {
	orders := new(mockOrders)
	orders.On("SubmitByIncrementID", mock.Anything, "missing").Return(nil, shared.ErrNotFound)
	r := newFulfillmentRouter(NewFulfillmentHandler(new(mockAdmin), new(mockRates), nil).WithOrders(orders))

	w := serve(r, http.MethodPost, "/orders/missing/submit", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, decodeResponse(t, w).Error.Code)
}

func TestFulfillmentHandler_CancelOrder(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		skipRemote bool
	}{
		{"no body", "", false},
		{"skip remote", `{"skip_remote":true}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := new(mockOrders)
			orders.On("CancelByIncrementID", mock.Anything, "100000001", tt.skipRemote).
				Return(&fulfillmentapp.OrderSummary{IncrementID: "100000001", RemoteStatus: "cancelled"}, nil)
			r := newFulfillmentRouter(NewFulfillmentHandler(new(mockAdmin), new(mockRates), nil).WithOrders(orders))

			w := serve(r, http.MethodPost, "/orders/100000001/cancel", tt.body)

			assert.Equal(t, http.StatusOK, w.Code)
			orders.AssertExpectations(t)
		})
	}
}

func TestFulfillmentHandler_CancelOrderBadJSON(t *testing.T) {
	r := newFulfillmentRouter(NewFulfillmentHandler(new(mockAdmin), new(mockRates), nil).WithOrders(new(mockOrders)))

	w := serve(r, http.MethodPost, "/orders/100000001/cancel", "{")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFulfillmentHandler_OrdersDisabled(t *testing.T) {
	r := newFulfillmentRouter(NewFulfillmentHandler(new(mockAdmin), new(mockRates), nil))

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodPost, "/orders/1/submit", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodPost, "/orders/1/cancel", "").Code)
}
