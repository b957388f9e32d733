package fulfillment

import (
	"strings"

	"github.com/google/uuid"
)

// TrackedSku is a product SKU pair used during one reconciliation pass.
type TrackedSku struct {
	ProductID     uuid.UUID
	SKU           string
	MerchantSKU   string
	HasRemoteData bool
}

// QuerySKU returns the merchant SKU when set, else the canonical SKU.
func (t TrackedSku) QuerySKU() string {
	if strings.TrimSpace(t.MerchantSKU) != "" {
		return t.MerchantSKU
	}
	return t.SKU
}

// Matches reports whether a remote SKU refers to this product.
func (t TrackedSku) Matches(remote string) bool {
	if remote == "" {
		return false
	}
	return remote == t.SKU || (t.MerchantSKU != "" && remote == t.MerchantSKU)
}

// SkuIndex resolves remote SKUs back to local products.
type SkuIndex struct {
	entries   []TrackedSku
	known     map[string]bool
	queryKeys []string
}

// NewSkuIndex builds an index over the given SKUs.
func NewSkuIndex(skus []TrackedSku) *SkuIndex {
	idx := &SkuIndex{
		entries: make([]TrackedSku, len(skus)),
		known:   make(map[string]bool),
	}
	copy(idx.entries, skus)
	seen := make(map[string]bool)
	for _, sku := range idx.entries {
		if sku.MerchantSKU != "" {
			idx.known[sku.MerchantSKU] = true
		}
		if sku.SKU != "" {
			idx.known[sku.SKU] = true
		}
		q := sku.QuerySKU()
		if q != "" && !seen[q] {
			seen[q] = true
			idx.queryKeys = append(idx.queryKeys, q)
		}
	}
	return idx
}

// QuerySKUs returns the distinct SKUs to send to the provider, in input order.
func (x *SkuIndex) QuerySKUs() []string {
	out := make([]string, len(x.queryKeys))
	copy(out, x.queryKeys)
	return out
}

// Knows reports whether a remote SKU refers to any indexed product.
func (x *SkuIndex) Knows(remote string) bool {
	return x.known[remote]
}

// SupplyMatch is the stock level resolved for one indexed product.
type SupplyMatch struct {
	Sku     TrackedSku
	Qty     int64
	Matched bool
}

// MatchSupply resolves usable supply for every indexed product and flags the
// products that matched. A record keyed by the merchant SKU wins over one
// keyed by the canonical SKU of the same product. Unusable records never
// match. The second result lists remote SKUs that refer to no product.
func (x *SkuIndex) MatchSupply(records []RemoteSupplyRecord) ([]SupplyMatch, []string) {
	usable := make(map[string]int64)
	var unknown []string
	seenUnknown := make(map[string]bool)
	for _, r := range records {
		if r.SellerSKU == "" {
			continue
		}
		if !x.Knows(r.SellerSKU) && !seenUnknown[r.SellerSKU] {
			seenUnknown[r.SellerSKU] = true
			unknown = append(unknown, r.SellerSKU)
		}
		if r.IsUsable() {
			usable[r.SellerSKU] = r.InStockSupplyQty
		}
	}

	matches := make([]SupplyMatch, len(x.entries))
	for i := range x.entries {
		entry := &x.entries[i]
		qty, ok := int64(0), false
		if entry.MerchantSKU != "" {
			qty, ok = usable[entry.MerchantSKU]
		}
		if !ok {
			qty, ok = usable[entry.SKU]
		}
		entry.HasRemoteData = ok
		matches[i] = SupplyMatch{Sku: *entry, Qty: qty, Matched: ok}
	}
	return matches, unknown
}

// Unmatched returns the query SKUs of products without remote data.
func (x *SkuIndex) Unmatched() []string {
	var out []string
	for _, sku := range x.entries {
		if !sku.HasRemoteData {
			out = append(out, sku.QuerySKU())
		}
	}
	return out
}
