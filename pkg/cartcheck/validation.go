package cartcheck

import (
	"fmt"

	pkgerrors "github.com/kiranakart/cart-engine/pkg/errors"
)

// Kind classifies a line-item violation.
type Kind string

const (
	KindOutOfStock        Kind = "out_of_stock"
	KindInsufficientStock Kind = "insufficient_stock"
	KindBelowMOQ          Kind = "below_moq"
)

// Input describes the data required to check one line item against its cached
// stock and MOQ snapshot.
type Input struct {
	ProductID string
	VariantID string
	Name      string
	Stock     int
	MOQ       int
	Quantity  int
}

// Violation reports one offending line item. Violations are advisory; this
// package never mutates cart state.
type Violation struct {
	Kind      Kind   `json:"kind"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Name      string `json:"name,omitempty"`
	Stock     int    `json:"stock"`
	MOQ       int    `json:"moq"`
	Quantity  int    `json:"quantity"`
}

// Validate checks every line item and returns at most one violation per item.
// Stock exhaustion wins over the other kinds when several apply.
func Validate(items []Input) []Violation {
	var violations []Violation
	for _, item := range items {
		kind, ok := classify(item)
		if !ok {
			continue
		}
		violations = append(violations, Violation{
			Kind:      kind,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			Stock:     item.Stock,
			MOQ:       item.MOQ,
			Quantity:  item.Quantity,
		})
	}
	return violations
}

func classify(item Input) (Kind, bool) {
	switch {
	case item.Stock <= 0:
		return KindOutOfStock, true
	case item.Stock < item.Quantity:
		return KindInsufficientStock, true
	case item.Quantity > 0 && item.Quantity < item.MOQ:
		return KindBelowMOQ, true
	default:
		return "", false
	}
}

// AsError wraps a non-empty violation list into a typed error for flows that
// must block, such as checkout. Returns nil when there is nothing to report.
func AsError(violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("cart has %d invalid line item(s)", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}
