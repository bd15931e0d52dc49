package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem is read-only reference data used for cost lookup; it is not
// part of the transition chain. Matching against (supplier, material, color)
// is case-insensitive and trimmed.
type InventoryItem struct {
	ID         int             `gorm:"primary_key" json:"id"`
	SupplierId int             `gorm:"index;not null" json:"supplier_id"`
	Material   string          `gorm:"size:255;not null" json:"material"`
	Color      string          `gorm:"size:100" json:"color"`
	QuantityKg decimal.Decimal `gorm:"type:decimal(20,4)" json:"quantity_kg"`
	PricePerKg decimal.Decimal `gorm:"type:decimal(20,2)" json:"price_per_kg"`
	Status     string          `gorm:"size:50" json:"status"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
