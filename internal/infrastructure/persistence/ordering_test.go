package persistence

import (
	"testing"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestSortDirection(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "ASC"},
		{"asc", "ASC"},
		{"DESC", "DESC"},
		{"  desc  ", "DESC"},
		{"DESC; DROP TABLE mcf_orders;--", "ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sortDirection(tt.input))
		})
	}
}

func TestOrderClause(t *testing.T) {
	col, clause := orderClause(shared.Filter{OrderBy: "created_at", OrderDir: "desc"}, orderSortColumns, "increment_id")
	assert.Equal(t, "created_at", col)
	assert.Equal(t, "created_at DESC", clause)

	col, clause = orderClause(shared.Filter{OrderBy: "customer_email"}, orderSortColumns, "increment_id")
	assert.Equal(t, "increment_id", col)
	assert.Equal(t, "increment_id ASC", clause)
}
