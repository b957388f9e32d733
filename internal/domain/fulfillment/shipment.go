package fulfillment

import (
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShipmentItem is a shipped quantity of an order line.
type ShipmentItem struct {
	OrderItemID uuid.UUID
	SKU         string
	Qty         decimal.Decimal
}

// Track is the carrier tracking attached to a shipment.
type Track struct {
	CarrierCode string
	Title       string
	Number      string
}

// Shipment is a local shipment materialized from one provider package.
type Shipment struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	PackageNumber int64
	Items         []ShipmentItem
	Tracks        []Track
	CreatedAt     time.Time
}

// PackageLine is a shipped SKU quantity inside a package.
type PackageLine struct {
	SellerSKU string
	Quantity  int64
}

// PackagePlan groups the provider shipment items and tracking of one package.
type PackagePlan struct {
	PackageNumber int64
	Lines         []PackageLine
	Track         *Track
}

// PlanPackages groups the shipped items of a result by package number and
// attaches converted carrier tracking. Plans are ordered by package number.
func PlanPackages(result *FulfillmentOrderResult) []PackagePlan {
	byPackage := make(map[int64]*PackagePlan)
	for _, shipment := range result.Shipments {
		for _, item := range shipment.Items {
			if item.SellerSKU == "" {
				continue
			}
			plan, ok := byPackage[item.PackageNumber]
			if !ok {
				plan = &PackagePlan{PackageNumber: item.PackageNumber}
				byPackage[item.PackageNumber] = plan
			}
			plan.Lines = append(plan.Lines, PackageLine{SellerSKU: item.SellerSKU, Quantity: item.Quantity})
		}
	}
	for _, shipment := range result.Shipments {
		for _, pkg := range shipment.Packages {
			plan, ok := byPackage[pkg.PackageNumber]
			if !ok {
				continue
			}
			carrier := ConvertCarrier(pkg.CarrierCode)
			number := pkg.TrackingNumber
			if number == "" {
				number = strconv.FormatInt(pkg.PackageNumber, 10)
			}
			plan.Track = &Track{CarrierCode: carrier.Code, Title: carrier.Title, Number: number}
		}
	}

	plans := make([]PackagePlan, 0, len(byPackage))
	for _, plan := range byPackage {
		plans = append(plans, *plan)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].PackageNumber < plans[j].PackageNumber })
	return plans
}

// ApplyPackage creates a shipment for one package and records the shipped
// quantity on matching physical lines. Quantities are capped at what is left
// to ship, so applying the same package twice ships nothing the second time.
func (o *TrackedOrder) ApplyPackage(plan PackagePlan) (*Shipment, error) {
	shipment := &Shipment{
		ID:            uuid.New(),
		OrderID:       o.ID,
		PackageNumber: plan.PackageNumber,
		CreatedAt:     time.Now(),
	}
	remaining := make([]int64, len(plan.Lines))
	for i, line := range plan.Lines {
		remaining[i] = line.Quantity
	}
	for idx := range o.Items {
		item := &o.Items[idx]
		if item.IsVirtual {
			continue
		}
		for i, line := range plan.Lines {
			if !item.MatchesSKU(line.SellerSKU) {
				continue
			}
			qty := decimal.Min(decimal.NewFromInt(remaining[i]), item.QtyToShip())
			if !qty.IsPositive() {
				continue
			}
			remaining[i] -= qty.IntPart()
			item.QtyShipped = item.QtyShipped.Add(qty)
			shipment.Items = append(shipment.Items, ShipmentItem{
				OrderItemID: item.ID,
				SKU:         item.SKU,
				Qty:         qty,
			})
		}
	}
	if len(shipment.Items) == 0 {
		return nil, ErrNothingToShip
	}
	if plan.Track != nil {
		shipment.Tracks = append(shipment.Tracks, *plan.Track)
	}
	o.MarkInProcess()
	o.touch()
	return shipment, nil
}
