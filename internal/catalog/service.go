package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kiranakart/cart-engine/pkg/db/models"
	"github.com/kiranakart/cart-engine/pkg/errors"
	"github.com/kiranakart/cart-engine/pkg/logger"
	"github.com/kiranakart/cart-engine/pkg/pricing"
)

// Detail is the cart-ready view of one product/variant pair: the display and
// constraint fields a line item snapshots at add time.
type Detail struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Brand       string          `json:"brand,omitempty"`
	Category    string          `json:"category,omitempty"`
	Slug        string          `json:"slug,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
	VariantID   string          `json:"variant_id"`
	VariantName string          `json:"variant_name"`
	Price       decimal.Decimal `json:"price"`
	MRP         decimal.Decimal `json:"mrp"`
	GSTPercent  decimal.Decimal `json:"gst_percent"`
	PackSize    string          `json:"pack_size,omitempty"`
	PackType    string          `json:"pack_type,omitempty"`
	Stock       int             `json:"stock"`
	MOQ         int             `json:"moq"`
	Discount    int             `json:"discount_percent"`
}

// Service resolves catalog lookups for the cart surface.
type Service interface {
	Variant(ctx context.Context, productID, variantID string) (Detail, error)
	Products(ctx context.Context, limit, offset int) ([]models.Product, error)
}

type service struct {
	repo Repo
	logg *logger.Logger
}

// NewService wires the catalog facade.
func NewService(repo Repo, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New(errors.CodeInternal, "catalog service requires a repo")
	}
	return &service{repo: repo, logg: logg}, nil
}

// Variant resolves one product/variant pair into its cart-ready detail.
func (s *service) Variant(ctx context.Context, productID, variantID string) (Detail, error) {
	pid, err := uuid.Parse(strings.TrimSpace(productID))
	if err != nil {
		return Detail{}, errors.New(errors.CodeValidation, "product id must be a valid uuid")
	}
	vid, err := uuid.Parse(strings.TrimSpace(variantID))
	if err != nil {
		return Detail{}, errors.New(errors.CodeValidation, "variant id must be a valid uuid")
	}

	product, variant, err := s.repo.GetVariant(ctx, pid, vid)
	if err != nil {
		return Detail{}, err
	}

	return Detail{
		ProductID:   product.ID.String(),
		ProductName: product.Name,
		Brand:       product.Brand,
		Category:    product.Category,
		Slug:        product.Slug,
		ImageURL:    product.ImageURL,
		VariantID:   variant.ID.String(),
		VariantName: variant.Name,
		Price:       variant.Price,
		MRP:         variant.MRP,
		GSTPercent:  variant.GSTPercent,
		PackSize:    variant.PackSize,
		PackType:    variant.PackType,
		Stock:       variant.Stock,
		MOQ:         variant.MOQ,
		Discount:    pricing.DiscountPercent(variant.MRP, variant.Price),
	}, nil
}

func (s *service) Products(ctx context.Context, limit, offset int) ([]models.Product, error) {
	return s.repo.ListActive(ctx, limit, offset)
}
