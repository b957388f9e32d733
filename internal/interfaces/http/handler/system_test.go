package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping() error { return p.err }

func TestSystemHandler_Health(t *testing.T) {
	h := NewSystemHandler(stubPinger{}, "mcf-fulfillment", "1.2.0")
	c, w := newTestContext(http.MethodGet, "/health", "")

	h.Health(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "ok", resp.Database)
	assert.Equal(t, "mcf-fulfillment", resp.Name)
	assert.Equal(t, "1.2.0", resp.Version)
	assert.NotEmpty(t, resp.GoVersion)
}

func TestSystemHandler_HealthDatabaseDown(t *testing.T) {
	h := NewSystemHandler(stubPinger{err: errors.New("connection refused")}, "mcf-fulfillment", "dev")
	c, w := newTestContext(http.MethodGet, "/health", "")

	h.Health(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "error", resp.Database)
}
