package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kiranakart/cart-engine/pkg/cartcheck"
	"github.com/kiranakart/cart-engine/pkg/errors"
	"github.com/kiranakart/cart-engine/pkg/logger"
	"github.com/kiranakart/cart-engine/pkg/pricing"
)

// ProductRef carries the product-level display fields snapshotted into a
// line item at add time.
type ProductRef struct {
	ID       string
	Name     string
	Brand    string
	Category string
	Slug     string
	ImageURL string
}

// VariantRef carries the sellable unit: pricing, pack descriptors, tax rate
// and the stock/MOQ bounds.
type VariantRef struct {
	ID         string
	Name       string
	Price      decimal.Decimal
	MRP        decimal.Decimal
	GSTPercent decimal.Decimal
	PackSize   string
	PackType   string
	Stock      int
	MOQ        int
}

// AddProductInput is the request shape for adding a product/variant pair.
// Quantity of zero means "use the variant's order floor".
type AddProductInput struct {
	Product  ProductRef
	Variant  VariantRef
	Quantity int
}

// Service is the cart engine facade: quantity-bounded mutations on top of
// the store, plus the derived read surface (summary, violations, checkout
// readiness).
type Service interface {
	AddProduct(ctx context.Context, input AddProductInput) error
	UpdateQuantity(ctx context.Context, key string, quantity int) error
	Increment(ctx context.Context, key string) error
	Decrement(ctx context.Context, key string) error
	Remove(ctx context.Context, key string) error
	Toggle(ctx context.Context, input AddProductInput) error
	Clear(ctx context.Context) error

	Items() []LineItem
	Summary() pricing.Summary
	Violations() []cartcheck.Violation
	CheckoutReady() bool
	ExportText() string
	UniqueCount() int
	AverageItemValue() decimal.Decimal
	IsInCart(key string) bool
	QuantityOf(key string) int
	IsUpdating(key string) bool

	Sync(ctx context.Context, target Strategy) error
	SwitchStrategy(ctx context.Context, target Strategy) error
}

type service struct {
	store *Store
	logg  *logger.Logger
}

// NewService wires the facade over a hydrated store.
func NewService(store *Store, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, errors.New(errors.CodeInternal, "cart service requires a store")
	}
	return &service{store: store, logg: logg}, nil
}

// AddProduct validates identifiers, snapshots the catalog fields into a line
// item and adds it. The resulting quantity is checked against the variant's
// stock and MOQ before any state changes; a bound violation rejects the add
// and leaves the cart untouched.
func (s *service) AddProduct(ctx context.Context, input AddProductInput) error {
	if strings.TrimSpace(input.Product.ID) == "" || strings.TrimSpace(input.Variant.ID) == "" {
		return errors.New(errors.CodeValidation, "product and variant identifiers are required")
	}

	item := buildLineItem(input)
	projected := s.store.QuantityOf(item.ID) + item.Quantity

	if projected > item.Stock {
		return stockExceeded(item, projected)
	}
	if projected < item.EffectiveMOQ() {
		return belowMinimum(item, projected)
	}

	return s.store.Add(ctx, item)
}

// UpdateQuantity pins a line's quantity. Zero or negative removes the line;
// a quantity outside the stock/MOQ bounds is rejected with the cart
// unchanged. Unknown keys are a no-op.
func (s *service) UpdateQuantity(ctx context.Context, key string, quantity int) error {
	if quantity < 1 {
		return s.store.Remove(ctx, key)
	}

	item, ok := s.store.Get(key)
	if !ok {
		return nil
	}
	if quantity > item.Stock {
		return stockExceeded(item, quantity)
	}
	if quantity < item.EffectiveMOQ() {
		return belowMinimum(item, quantity)
	}

	return s.store.SetQuantity(ctx, key, quantity)
}

// Increment raises the quantity by one, bounded by the stock snapshot.
func (s *service) Increment(ctx context.Context, key string) error {
	item, ok := s.store.Get(key)
	if !ok {
		return nil
	}
	next := item.Quantity + 1
	if next > item.Stock {
		return stockExceeded(item, next)
	}
	return s.store.Increment(ctx, key)
}

// Decrement lowers the quantity by one. Stepping below the variant's order
// floor removes the line entirely.
func (s *service) Decrement(ctx context.Context, key string) error {
	item, ok := s.store.Get(key)
	if !ok {
		return nil
	}
	if item.Quantity-1 < item.EffectiveMOQ() {
		return s.store.Remove(ctx, key)
	}
	return s.store.Decrement(ctx, key)
}

func (s *service) Remove(ctx context.Context, key string) error {
	return s.store.Remove(ctx, key)
}

// Toggle removes the pair when present, otherwise adds it at the variant's
// order floor.
func (s *service) Toggle(ctx context.Context, input AddProductInput) error {
	key := LineItemID(input.Product.ID, input.Variant.ID)
	if s.store.IsInCart(key) {
		return s.store.Remove(ctx, key)
	}
	input.Quantity = 0
	return s.AddProduct(ctx, input)
}

func (s *service) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}

func (s *service) Items() []LineItem {
	return s.store.Items()
}

// Summary recomputes the monetary aggregate from the current collection.
func (s *service) Summary() pricing.Summary {
	items := s.store.Items()
	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, item.pricingLine())
	}
	return pricing.Summarize(lines)
}

// Violations checks every line against its cached stock/MOQ snapshot. The
// result is advisory; nothing is removed or clamped.
func (s *service) Violations() []cartcheck.Violation {
	items := s.store.Items()
	inputs := make([]cartcheck.Input, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, cartcheck.Input{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			Stock:     item.Stock,
			MOQ:       item.MOQ,
			Quantity:  item.Quantity,
		})
	}
	return cartcheck.Validate(inputs)
}

// CheckoutReady reports whether the cart is non-empty, violation-free and
// has no mutation still waiting on persistence.
func (s *service) CheckoutReady() bool {
	if s.store.Count() == 0 {
		return false
	}
	if s.store.HasPending() {
		return false
	}
	return len(s.Violations()) == 0
}

// ExportText renders the cart as a shareable plain-text order summary.
func (s *service) ExportText() string {
	items := s.store.Items()
	if len(items) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Order Summary\n")
	for i, item := range items {
		name := item.Name
		if item.PackSize != "" {
			name = fmt.Sprintf("%s (%s)", name, item.PackSize)
		}
		lineTotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		fmt.Fprintf(&b, "%d. %s — %d x ₹%s = ₹%s\n",
			i+1, name, item.Quantity, item.Price.StringFixed(2), lineTotal.StringFixed(2))
	}
	summary := s.Summary()
	fmt.Fprintf(&b, "Subtotal: ₹%s\n", summary.Subtotal.StringFixed(2))
	fmt.Fprintf(&b, "GST: ₹%s\n", summary.TotalGST.StringFixed(2))
	fmt.Fprintf(&b, "Total: ₹%s\n", summary.Total.StringFixed(2))
	return b.String()
}

func (s *service) UniqueCount() int {
	return s.store.Count()
}

// AverageItemValue is the tax-inclusive total spread over distinct lines.
func (s *service) AverageItemValue() decimal.Decimal {
	count := s.store.Count()
	if count == 0 {
		return decimal.Zero
	}
	return s.Summary().Total.Div(decimal.NewFromInt(int64(count)))
}

func (s *service) IsInCart(key string) bool {
	return s.store.IsInCart(key)
}

func (s *service) QuantityOf(key string) int {
	return s.store.QuantityOf(key)
}

func (s *service) IsUpdating(key string) bool {
	return s.store.IsUpdating(key)
}

// Sync merges the current collection with the target strategy's persisted
// one and adopts the target. Used when a guest session authenticates.
func (s *service) Sync(ctx context.Context, target Strategy) error {
	if s.logg != nil && target != nil {
		ctx = s.logg.WithField(ctx, "target_strategy", target.Kind())
		s.logg.Info(ctx, "reconciling cart onto target strategy")
	}
	return s.store.Reconcile(ctx, target)
}

// SwitchStrategy adopts the target without merging, discarding the current
// in-memory view in favor of the target's persisted state.
func (s *service) SwitchStrategy(ctx context.Context, target Strategy) error {
	return s.store.SwapStrategy(ctx, target)
}

func buildLineItem(input AddProductInput) LineItem {
	item := LineItem{
		ID:          LineItemID(input.Product.ID, input.Variant.ID),
		ProductID:   strings.TrimSpace(input.Product.ID),
		VariantID:   strings.TrimSpace(input.Variant.ID),
		Name:        input.Product.Name,
		VariantName: input.Variant.Name,
		Brand:       input.Product.Brand,
		Category:    input.Product.Category,
		Slug:        input.Product.Slug,
		ImageURL:    input.Product.ImageURL,
		Price:       input.Variant.Price,
		MRP:         input.Variant.MRP,
		GSTPercent:  input.Variant.GSTPercent,
		PackSize:    input.Variant.PackSize,
		PackType:    input.Variant.PackType,
		Stock:       input.Variant.Stock,
		MOQ:         input.Variant.MOQ,
		Quantity:    input.Quantity,
	}
	if input.Variant.Name != "" {
		item.Name = strings.TrimSpace(input.Product.Name + " " + input.Variant.Name)
	}
	if item.Quantity < 1 {
		item.Quantity = item.EffectiveMOQ()
	}
	return item
}

func stockExceeded(item LineItem, requested int) error {
	return errors.New(errors.CodeStockExceeded, "requested quantity exceeds available stock").WithDetails(map[string]any{
		"item_id":   item.ID,
		"stock":     item.Stock,
		"requested": requested,
	})
}

func belowMinimum(item LineItem, requested int) error {
	return errors.New(errors.CodeBelowMinimum, "requested quantity is below the minimum order quantity").WithDetails(map[string]any{
		"item_id":   item.ID,
		"moq":       item.EffectiveMOQ(),
		"requested": requested,
	})
}
