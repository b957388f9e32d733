package persistence

import (
	"strings"

	"github.com/erp/fulfillment/internal/domain/shared"
)

// orderSortColumns are the tracked order columns a caller may sort by.
var orderSortColumns = map[string]bool{
	"increment_id":     true,
	"created_at":       true,
	"updated_at":       true,
	"submission_count": true,
}

// sortColumn returns requested when it is whitelisted, otherwise fallback.
func sortColumn(requested string, allowed map[string]bool, fallback string) string {
	if col := strings.TrimSpace(requested); allowed[col] {
		return col
	}
	return fallback
}

// sortDirection normalizes dir to ASC or DESC. Anything unrecognized sorts
// ascending so pages stay in increment order.
func sortDirection(dir string) string {
	if strings.EqualFold(strings.TrimSpace(dir), "desc") {
		return "DESC"
	}
	return "ASC"
}

// orderClause builds a safe ORDER BY clause for filter.
func orderClause(filter shared.Filter, allowed map[string]bool, fallback string) (string, string) {
	col := sortColumn(filter.OrderBy, allowed, fallback)
	return col, col + " " + sortDirection(filter.OrderDir)
}
