package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kiranakart/cart-engine/api/responses"
	"github.com/kiranakart/cart-engine/internal/catalog"
	"github.com/kiranakart/cart-engine/pkg/db/models"
	"github.com/kiranakart/cart-engine/pkg/logger"
	"github.com/kiranakart/cart-engine/pkg/pricing"
	"github.com/shopspring/decimal"
)

type productResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Brand     string            `json:"brand,omitempty"`
	Category  string            `json:"category,omitempty"`
	Slug      string            `json:"slug,omitempty"`
	ImageURL  string            `json:"image_url,omitempty"`
	Variants  []variantResponse `json:"variants"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type variantResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	MRP        decimal.Decimal `json:"mrp"`
	GSTPercent decimal.Decimal `json:"gst_percent"`
	PackSize   string          `json:"pack_size,omitempty"`
	PackType   string          `json:"pack_type,omitempty"`
	Stock      int             `json:"stock"`
	MOQ        int             `json:"moq"`
	Discount   int             `json:"discount_percent"`
}

func newProductResponse(product models.Product) productResponse {
	variants := make([]variantResponse, 0, len(product.Variants))
	for _, variant := range product.Variants {
		variants = append(variants, variantResponse{
			ID:         variant.ID.String(),
			Name:       variant.Name,
			Price:      variant.Price,
			MRP:        variant.MRP,
			GSTPercent: variant.GSTPercent,
			PackSize:   variant.PackSize,
			PackType:   variant.PackType,
			Stock:      variant.Stock,
			MOQ:        variant.MOQ,
			Discount:   pricing.DiscountPercent(variant.MRP, variant.Price),
		})
	}

	return productResponse{
		ID:        product.ID.String(),
		Name:      product.Name,
		Brand:     product.Brand,
		Category:  product.Category,
		Slug:      product.Slug,
		ImageURL:  product.ImageURL,
		Variants:  variants,
		UpdatedAt: product.UpdatedAt,
	}
}

// ProductsList pages through active catalog products with their variants.
func ProductsList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		products, err := svc.Products(r.Context(), limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]productResponse, 0, len(products))
		for _, product := range products {
			out = append(out, newProductResponse(product))
		}
		responses.WriteSuccess(w, out)
	}
}

// ProductVariant resolves one product/variant pair into the cart-ready
// detail clients add from.
func ProductVariant(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := svc.Variant(r.Context(), chi.URLParam(r, "productID"), chi.URLParam(r, "variantID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}
