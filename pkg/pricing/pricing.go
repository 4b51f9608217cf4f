package pricing

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Line carries the monetary snapshot of a single cart line. Callers convert
// their own item types into this shape; the package never reaches into cart
// state.
type Line struct {
	UnitPrice  decimal.Decimal
	MRP        decimal.Decimal
	GSTPercent decimal.Decimal
	Quantity   int
}

// Summary aggregates the monetary view of a set of lines. All values are in
// the base currency unit; formatting is a presentation concern.
type Summary struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalItems    int             `json:"total_items"`
	TotalQuantity int             `json:"total_quantity"`
	TotalMRP      decimal.Decimal `json:"total_mrp"`
	TotalGST      decimal.Decimal `json:"total_gst"`
	Total         decimal.Decimal `json:"total"`
	// Savings is TotalMRP - Subtotal and goes negative when a line's MRP sits
	// below its selling price; that anomaly is surfaced, not clamped.
	Savings         decimal.Decimal `json:"savings"`
	AverageDiscount decimal.Decimal `json:"average_discount"`
}

// Summarize folds the lines into a Summary. Pure and deterministic; safe to
// call repeatedly on every read.
func Summarize(lines []Line) Summary {
	s := Summary{
		Subtotal:        decimal.Zero,
		TotalMRP:        decimal.Zero,
		TotalGST:        decimal.Zero,
		Total:           decimal.Zero,
		Savings:         decimal.Zero,
		AverageDiscount: decimal.Zero,
	}

	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		lineSubtotal := line.UnitPrice.Mul(qty)

		s.Subtotal = s.Subtotal.Add(lineSubtotal)
		s.TotalMRP = s.TotalMRP.Add(line.MRP.Mul(qty))
		s.TotalGST = s.TotalGST.Add(lineSubtotal.Mul(line.GSTPercent).Div(hundred))
		s.TotalItems++
		s.TotalQuantity += line.Quantity
	}

	s.Total = s.Subtotal.Add(s.TotalGST)
	s.Savings = s.TotalMRP.Sub(s.Subtotal)
	if s.TotalMRP.IsPositive() {
		s.AverageDiscount = s.Savings.Div(s.TotalMRP).Mul(hundred)
	}
	return s
}

// DiscountPercent returns the rounded percentage discount of price against
// mrp, or 0 when mrp is not positive.
func DiscountPercent(mrp, price decimal.Decimal) int {
	if !mrp.IsPositive() {
		return 0
	}
	pct := mrp.Sub(price).Div(mrp).Mul(hundred).Round(0)
	return int(pct.IntPart())
}

// Tier describes one bulk-pricing step: buy at least MinQuantity, get
// DiscountPercent off the unit price.
type Tier struct {
	MinQuantity     int             `json:"min_quantity"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// BulkDiscountResult is the outcome of applying the best matching tier.
type BulkDiscountResult struct {
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	FinalPrice      decimal.Decimal `json:"final_price"`
}

// BulkDiscount selects the highest discount among all tiers whose MinQuantity
// is satisfied. Tier tables are not required to be sorted or monotonic; a
// lower tier carrying a larger discount still wins.
func BulkDiscount(quantity int, unitPrice decimal.Decimal, tiers []Tier) BulkDiscountResult {
	best := decimal.Zero
	for _, tier := range tiers {
		if tier.MinQuantity > quantity {
			continue
		}
		if tier.DiscountPercent.GreaterThan(best) {
			best = tier.DiscountPercent
		}
	}

	amount := unitPrice.Mul(best).Div(hundred)
	return BulkDiscountResult{
		DiscountPercent: best,
		DiscountAmount:  amount,
		FinalPrice:      unitPrice.Sub(amount),
	}
}
