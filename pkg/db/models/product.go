package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog entity the cart reads display fields from at
// add-time. The catalog service owns these rows; the cart never writes them.
type Product struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Brand     string    `gorm:"column:brand"`
	Category  string    `gorm:"column:category"`
	Slug      string    `gorm:"column:slug;uniqueIndex"`
	ImageURL  string    `gorm:"column:image_url"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Variants []ProductVariant `gorm:"foreignKey:ProductID"`
}

// ProductVariant carries the sellable unit: price, list price, pack
// descriptors, tax rate and the stock/MOQ bounds the validator snapshots.
type ProductVariant struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Name       string          `gorm:"column:name;not null"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric;not null"`
	MRP        decimal.Decimal `gorm:"column:mrp;type:numeric;not null"`
	PackSize   string          `gorm:"column:pack_size"`
	PackType   string          `gorm:"column:pack_type"`
	Stock      int             `gorm:"column:stock;not null;default:0"`
	MOQ        int             `gorm:"column:moq;not null;default:1"`
	GSTPercent decimal.Decimal `gorm:"column:gst_percent;type:numeric;not null;default:0"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
