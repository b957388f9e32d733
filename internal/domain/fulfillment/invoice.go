package fulfillment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceItem is an invoiced quantity of an order line.
type InvoiceItem struct {
	OrderItemID uuid.UUID
	SKU         string
	Qty         decimal.Decimal
	Price       decimal.Decimal
	TaxAmount   decimal.Decimal
}

// Invoice bills the quantities the provider reported as shipped.
type Invoice struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	Items          []InvoiceItem
	ShippingAmount decimal.Decimal
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	GrandTotal     decimal.Decimal
	CreatedAt      time.Time
}

// ShippedQuantities sums shipped quantity per seller SKU across all shipments.
func ShippedQuantities(result *FulfillmentOrderResult) map[string]int64 {
	shipped := make(map[string]int64)
	for _, shipment := range result.Shipments {
		for _, item := range shipment.Items {
			if item.SellerSKU == "" || item.Quantity <= 0 {
				continue
			}
			shipped[item.SellerSKU] += item.Quantity
		}
	}
	return shipped
}

// BuildInvoice creates an invoice for the shipped quantities and records the
// invoiced quantity on the order lines. Shipping is prorated as the order
// shipping amount divided by total ordered quantity, times invoiced quantity.
func BuildInvoice(order *TrackedOrder, shipped map[string]int64) (*Invoice, error) {
	invoice := &Invoice{
		ID:             uuid.New(),
		OrderID:        order.ID,
		ShippingAmount: decimal.Zero,
		Subtotal:       decimal.Zero,
		TaxAmount:      decimal.Zero,
		CreatedAt:      time.Now(),
	}

	remaining := make(map[string]int64, len(shipped))
	for sku, qty := range shipped {
		remaining[sku] = qty
	}

	invoicedQty := decimal.Zero
	for idx := range order.Items {
		item := &order.Items[idx]
		sku, ok := remainingFor(item, remaining)
		if !ok {
			continue
		}
		qty := decimal.Min(decimal.NewFromInt(remaining[sku]), item.QtyToInvoice())
		if !qty.IsPositive() {
			continue
		}
		remaining[sku] -= qty.IntPart()

		tax := decimal.Zero
		if item.QtyOrdered.IsPositive() {
			tax = item.TaxAmount.Div(item.QtyOrdered).Mul(qty).Round(2)
		}
		invoice.Items = append(invoice.Items, InvoiceItem{
			OrderItemID: item.ID,
			SKU:         item.SKU,
			Qty:         qty,
			Price:       item.Price,
			TaxAmount:   tax,
		})
		invoice.Subtotal = invoice.Subtotal.Add(item.Price.Mul(qty))
		invoice.TaxAmount = invoice.TaxAmount.Add(tax)
		invoicedQty = invoicedQty.Add(qty)
		item.QtyInvoiced = item.QtyInvoiced.Add(qty)
	}

	if len(invoice.Items) == 0 {
		return nil, ErrNothingToInvoice
	}

	totalOrdered := order.TotalQtyOrdered()
	if totalOrdered.IsPositive() {
		invoice.ShippingAmount = order.ShippingAmount.Div(totalOrdered).Mul(invoicedQty).Round(2)
	}
	invoice.GrandTotal = invoice.Subtotal.Add(invoice.TaxAmount).Add(invoice.ShippingAmount)
	order.touch()
	return invoice, nil
}

// remainingFor returns the key of shipped under which item still has quantity.
// A merchant SKU key is preferred over the canonical SKU key.
func remainingFor(item *OrderItem, remaining map[string]int64) (string, bool) {
	if item.MerchantSKU != "" && remaining[item.MerchantSKU] > 0 {
		return item.MerchantSKU, true
	}
	if remaining[item.SKU] > 0 {
		return item.SKU, true
	}
	return "", false
}
