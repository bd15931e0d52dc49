package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the sellable catalog entry derived exactly once per approved
// ProductModel. The unique index on ProductModelId enforces idempotent
// derivation at the storage layer.
type Product struct {
	ID             int             `gorm:"primary_key" json:"id"`
	ProductModelId int             `gorm:"uniqueIndex;not null" json:"product_model_id"`
	Title          string          `gorm:"size:255;not null" json:"title"`
	Sku            string          `gorm:"size:100;index" json:"sku"`
	Price          decimal.Decimal `gorm:"type:decimal(20,2)" json:"price"`
	ImageUrl       string          `gorm:"size:1024" json:"image_url"`
	IsActive       *bool           `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
