package catalog

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kiranakart/cart-engine/pkg/db"
	"github.com/kiranakart/cart-engine/pkg/db/models"
	"github.com/kiranakart/cart-engine/pkg/errors"
)

// Repo is the read-only catalog surface the cart snapshots from.
type Repo interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (models.Product, error)
	GetVariant(ctx context.Context, productID, variantID uuid.UUID) (models.Product, models.ProductVariant, error)
	ListActive(ctx context.Context, limit, offset int) ([]models.Product, error)
}

type repo struct {
	client *db.Client
}

// NewRepo builds the GORM-backed catalog reader.
func NewRepo(client *db.Client) (Repo, error) {
	if client == nil {
		return nil, errors.New(errors.CodeInternal, "catalog repo requires a db client")
	}
	return &repo{client: client}, nil
}

func (r *repo) GetProduct(ctx context.Context, productID uuid.UUID) (models.Product, error) {
	var product models.Product
	err := r.client.DB().WithContext(ctx).
		Preload("Variants").
		Where("id = ? AND is_active = ?", productID, true).
		First(&product).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return models.Product{}, errors.New(errors.CodeNotFound, "product not found")
		}
		return models.Product{}, errors.Wrap(errors.CodeDependency, err, "fetching product")
	}
	return product, nil
}

func (r *repo) GetVariant(ctx context.Context, productID, variantID uuid.UUID) (models.Product, models.ProductVariant, error) {
	product, err := r.GetProduct(ctx, productID)
	if err != nil {
		return models.Product{}, models.ProductVariant{}, err
	}

	for _, variant := range product.Variants {
		if variant.ID == variantID {
			return product, variant, nil
		}
	}
	return models.Product{}, models.ProductVariant{}, errors.New(errors.CodeNotFound, "product variant not found")
}

func (r *repo) ListActive(ctx context.Context, limit, offset int) ([]models.Product, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var products []models.Product
	err := r.client.DB().WithContext(ctx).
		Preload("Variants").
		Where("is_active = ?", true).
		Order("name ASC").
		Limit(limit).
		Offset(offset).
		Find(&products).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "listing products")
	}
	return products, nil
}
