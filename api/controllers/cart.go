package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kiranakart/cart-engine/api/middleware"
	"github.com/kiranakart/cart-engine/api/responses"
	"github.com/kiranakart/cart-engine/api/validators"
	cartsvc "github.com/kiranakart/cart-engine/internal/cart"
	"github.com/kiranakart/cart-engine/internal/catalog"
	"github.com/kiranakart/cart-engine/pkg/cartcheck"
	pkgerrors "github.com/kiranakart/cart-engine/pkg/errors"
	"github.com/kiranakart/cart-engine/pkg/logger"
	"github.com/kiranakart/cart-engine/pkg/pricing"
)

type cartViewResponse struct {
	Items            []cartsvc.LineItem    `json:"items"`
	Summary          pricing.Summary       `json:"summary"`
	Violations       []cartcheck.Violation `json:"violations,omitempty"`
	CheckoutReady    bool                  `json:"checkout_ready"`
	UniqueCount      int                   `json:"unique_count"`
	AverageItemValue decimal.Decimal       `json:"average_item_value"`
}

func newCartViewResponse(svc cartsvc.Service) cartViewResponse {
	return cartViewResponse{
		Items:            svc.Items(),
		Summary:          svc.Summary(),
		Violations:       svc.Violations(),
		CheckoutReady:    svc.CheckoutReady(),
		UniqueCount:      svc.UniqueCount(),
		AverageItemValue: svc.AverageItemValue(),
	}
}

func sessionFor(manager *cartsvc.Manager, r *http.Request) (cartsvc.Service, error) {
	deviceID, ok := middleware.DeviceIDFromContext(r.Context())
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "device context missing")
	}
	return manager.Session(r.Context(), deviceID)
}

// CartView returns the full cart state for the calling device: line items,
// pricing summary and advisory stock/MOQ violations.
func CartView(manager *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := sessionFor(manager, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartViewResponse(svc))
	}
}

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	VariantID string `json:"variant_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"min=0"`
}

// CartAddItem resolves the variant against the catalog and adds it to the
// cart, snapshotting price, stock and MOQ at add time. A zero quantity lets
// the cart default to the variant's minimum order quantity.
func CartAddItem(manager *cartsvc.Manager, catalogSvc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := catalogSvc.Variant(r.Context(), payload.ProductID, payload.VariantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		svc, err := sessionFor(manager, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.AddProduct(r.Context(), addInputFromDetail(detail, payload.Quantity)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartViewResponse(svc))
	}
}

func addInputFromDetail(detail catalog.Detail, quantity int) cartsvc.AddProductInput {
	return cartsvc.AddProductInput{
		Product: cartsvc.ProductRef{
			ID:       detail.ProductID,
			Name:     detail.ProductName,
			Brand:    detail.Brand,
			Category: detail.Category,
			Slug:     detail.Slug,
			ImageURL: detail.ImageURL,
		},
		Variant: cartsvc.VariantRef{
			ID:         detail.VariantID,
			Name:       detail.VariantName,
			Price:      detail.Price,
			MRP:        detail.MRP,
			GSTPercent: detail.GSTPercent,
			PackSize:   detail.PackSize,
			PackType:   detail.PackType,
			Stock:      detail.Stock,
			MOQ:        detail.MOQ,
		},
		Quantity: quantity,
	}
}

type toggleItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	VariantID string `json:"variant_id" validate:"required,uuid"`
}

// CartToggleItem removes the line when present, otherwise adds it at the
// variant's order floor.
func CartToggleItem(manager *cartsvc.Manager, catalogSvc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload toggleItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := catalogSvc.Variant(r.Context(), payload.ProductID, payload.VariantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		svc, err := sessionFor(manager, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Toggle(r.Context(), addInputFromDetail(detail, 0)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartViewResponse(svc))
	}
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// CartUpdateItem sets the absolute quantity of a line. Zero or negative
// removes the line.
func CartUpdateItem(manager *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		svc, err := sessionFor(manager, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		key := chi.URLParam(r, "key")
		if err := svc.UpdateQuantity(r.Context(), key, *payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartViewResponse(svc))
	}
}

// CartIncrementItem steps a line's quantity up by one, bounded by stock.
func CartIncrementItem(manager *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := sessionFor(manager, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Increment(r.Context(), chi.URLParam(r, "key")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartViewResponse(svc))
	}
}

// CartDecrementItem steps a line's quantity down by one. Stepping below the
// minimum order quantity removes the line.
func CartDecrementItem(manager *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := sessionFor(manager, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Decrement(r.Context(), chi.URLParam(r, "key")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartViewResponse(svc))
	}
}

// CartRemoveItem deletes a line. Removing an absent line is a no-op.
func CartRemoveItem(manager *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := sessionFor(manager, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Remove(r.Context(), chi.URLParam(r, "key")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartViewResponse(svc))
	}
}

// CartClear empties the cart in one operation.
func CartClear(manager *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := sessionFor(manager, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartViewResponse(svc))
	}
}

// CartLoginSync merges the device's guest cart into the authenticated user's
// remote cart and switches the session to remote persistence. Requires a
// bearer token.
func CartLoginSync(manager *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID, ok := middleware.DeviceIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "device context missing"))
			return
		}
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "login sync requires an authenticated user"))
			return
		}

		svc, err := manager.Login(r.Context(), deviceID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartViewResponse(svc))
	}
}

// CartLogout switches the session back to guest-local persistence. The
// remote cart stays untouched for the user's next sign-in.
func CartLogout(manager *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID, ok := middleware.DeviceIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "device context missing"))
			return
		}

		svc, err := manager.Logout(r.Context(), deviceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartViewResponse(svc))
	}
}

// CartExport renders the cart as a shareable plain-text order summary.
func CartExport(manager *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := sessionFor(manager, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(svc.ExportText())); err != nil && logg != nil {
			logg.Error(r.Context(), "cart.export.write", err)
		}
	}
}
