package cart

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kiranakart/cart-engine/pkg/errors"
	"github.com/kiranakart/cart-engine/pkg/pricing"
)

// LineItem is one cart entry: a product/variant pair with the display and
// constraint fields snapshotted at add time, plus the mutable quantity.
// Stock and MOQ reflect the catalog as of the add; they are advisory bounds,
// not live inventory.
type LineItem struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	VariantID   string          `json:"variantId"`
	Name        string          `json:"name"`
	VariantName string          `json:"variantName,omitempty"`
	Brand       string          `json:"brand,omitempty"`
	Category    string          `json:"category,omitempty"`
	Slug        string          `json:"slug,omitempty"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Price       decimal.Decimal `json:"price"`
	MRP         decimal.Decimal `json:"mrp"`
	GSTPercent  decimal.Decimal `json:"gstPercent"`
	PackSize    string          `json:"packSize,omitempty"`
	PackType    string          `json:"packType,omitempty"`
	Stock       int             `json:"stock"`
	MOQ         int             `json:"moq"`
	Quantity    int             `json:"quantity"`
}

// LineItemID derives the cart key for a product/variant pair. Two entries
// with the same key are the same line and merge on add.
func LineItemID(productID, variantID string) string {
	return strings.TrimSpace(productID) + ":" + strings.TrimSpace(variantID)
}

// Validate checks the fields a line item cannot function without.
func (li LineItem) Validate() error {
	if strings.TrimSpace(li.ProductID) == "" || strings.TrimSpace(li.VariantID) == "" {
		return errors.New(errors.CodeValidation, "line item requires product and variant identifiers")
	}
	if li.ID == "" {
		return errors.New(errors.CodeValidation, "line item id is empty")
	}
	if li.Quantity < 1 {
		return errors.New(errors.CodeValidation, "line item quantity must be at least 1")
	}
	if li.Price.IsNegative() || li.MRP.IsNegative() {
		return errors.New(errors.CodeValidation, "line item prices must be non-negative")
	}
	return nil
}

// EffectiveMOQ returns the order floor for the item, never below one.
func (li LineItem) EffectiveMOQ() int {
	if li.MOQ > 1 {
		return li.MOQ
	}
	return 1
}

// DiscountPercent is the rounded list-versus-selling discount for display.
func (li LineItem) DiscountPercent() int {
	return pricing.DiscountPercent(li.MRP, li.Price)
}

// pricingLine converts the item for summary math.
func (li LineItem) pricingLine() pricing.Line {
	return pricing.Line{
		UnitPrice:  li.Price,
		MRP:        li.MRP,
		GSTPercent: li.GSTPercent,
		Quantity:   li.Quantity,
	}
}

// cloneItems deep-copies a line-item slice so callers cannot mutate store
// state through returned views.
func cloneItems(items []LineItem) []LineItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
