package catalog

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kiranakart/cart-engine/pkg/db"
	"github.com/kiranakart/cart-engine/pkg/db/models"
	pkgerrors "github.com/kiranakart/cart-engine/pkg/errors"
)

func setupCatalog(t *testing.T) (Service, *db.Client) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = conn.Exec(`
		CREATE TABLE products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			brand TEXT,
			category TEXT,
			slug TEXT,
			image_url TEXT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		)
	`).Error
	require.NoError(t, err)

	err = conn.Exec(`
		CREATE TABLE product_variants (
			id TEXT PRIMARY KEY,
			product_id TEXT NOT NULL,
			name TEXT NOT NULL,
			price NUMERIC NOT NULL,
			mrp NUMERIC NOT NULL,
			pack_size TEXT,
			pack_type TEXT,
			stock INTEGER NOT NULL DEFAULT 0,
			moq INTEGER NOT NULL DEFAULT 1,
			gst_percent NUMERIC NOT NULL DEFAULT 0,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		)
	`).Error
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, err := conn.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	client := db.NewFromConn(conn)
	repo, err := NewRepo(client)
	require.NoError(t, err)
	svc, err := NewService(repo, nil)
	require.NoError(t, err)
	return svc, client
}

func seedProduct(t *testing.T, client *db.Client, name string, active bool) (uuid.UUID, uuid.UUID) {
	t.Helper()

	product := models.Product{
		ID:       uuid.New(),
		Name:     name,
		Brand:    "Organic Farms",
		Slug:     strings.ToLower(strings.ReplaceAll(name, " ", "-")) + "-" + uuid.NewString()[:8],
		IsActive: active,
	}
	require.NoError(t, client.DB().Create(&product).Error)
	// gorm substitutes the column default (true) for zero-value IsActive on
	// Create, so write the flag directly to seed inactive products.
	require.NoError(t, client.DB().Model(&models.Product{}).
		Where("id = ?", product.ID).
		UpdateColumn("is_active", active).Error)

	variant := models.ProductVariant{
		ID:         uuid.New(),
		ProductID:  product.ID,
		Name:       "1kg",
		Price:      decimal.NewFromInt(120),
		MRP:        decimal.NewFromInt(150),
		GSTPercent: decimal.NewFromInt(18),
		PackSize:   "1kg",
		PackType:   "pouch",
		Stock:      10,
		MOQ:        2,
	}
	require.NoError(t, client.DB().Create(&variant).Error)
	return product.ID, variant.ID
}

func TestVariantLookup(t *testing.T) {
	svc, client := setupCatalog(t)
	productID, variantID := seedProduct(t, client, "Toor Dal", true)

	detail, err := svc.Variant(context.Background(), productID.String(), variantID.String())
	require.NoError(t, err)

	require.Equal(t, "Toor Dal", detail.ProductName)
	require.Equal(t, "1kg", detail.VariantName)
	require.True(t, detail.Price.Equal(decimal.NewFromInt(120)))
	require.True(t, detail.MRP.Equal(decimal.NewFromInt(150)))
	require.Equal(t, 10, detail.Stock)
	require.Equal(t, 2, detail.MOQ)
	require.Equal(t, 20, detail.Discount)
}

func TestVariantRejectsMalformedIDs(t *testing.T) {
	svc, _ := setupCatalog(t)

	_, err := svc.Variant(context.Background(), "not-a-uuid", uuid.NewString())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestVariantNotFound(t *testing.T) {
	svc, client := setupCatalog(t)
	productID, _ := seedProduct(t, client, "Toor Dal", true)

	_, err := svc.Variant(context.Background(), productID.String(), uuid.NewString())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestInactiveProductIsHidden(t *testing.T) {
	svc, client := setupCatalog(t)
	productID, variantID := seedProduct(t, client, "Discontinued Rice", false)

	_, err := svc.Variant(context.Background(), productID.String(), variantID.String())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestProductsListsActiveOnly(t *testing.T) {
	svc, client := setupCatalog(t)
	seedProduct(t, client, "Basmati Rice", true)
	seedProduct(t, client, "Toor Dal", true)
	seedProduct(t, client, "Hidden Item", false)

	products, err := svc.Products(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, "Basmati Rice", products[0].Name)
	require.Len(t, products[0].Variants, 1)
}
