package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaterialRequest is a designer's ask to a supplier for a quantity of a
// material/color. Status is driven exclusively by the addressed supplier.
type MaterialRequest struct {
	ID             int                   `gorm:"primary_key" json:"id"`
	ProductModelId *int                  `gorm:"index" json:"product_model_id"`
	CollectionId   int                   `gorm:"index" json:"collection_id"`
	RequestedBy    int                   `gorm:"index;not null" json:"requested_by"`
	SupplierId     *int                  `gorm:"index" json:"supplier_id"`
	ManufacturerId *int                  `gorm:"index" json:"manufacturer_id"`
	Material       string                `gorm:"size:255;not null" json:"material" binding:"required"`
	Color          string                `gorm:"size:100;not null" json:"color" binding:"required"`
	QuantityKg     decimal.Decimal       `gorm:"type:decimal(20,4);not null" json:"quantity_kg"`
	QuantitySentKg *decimal.Decimal      `gorm:"type:decimal(20,4)" json:"quantity_sent_kg"`
	Deadline       *time.Time            `json:"deadline"`
	Status         MaterialRequestStatus `gorm:"size:20;not null;default:new;index" json:"status"`
	RejectionReason string               `gorm:"type:text" json:"rejection_reason"`

	// Shipment-prep metadata recorded by the supplier before sending.
	BatchLotId          string     `gorm:"size:100" json:"batch_lot_id"`
	DocumentUrl         string     `gorm:"size:1024" json:"document_url"`
	ShippingDate        *time.Time `json:"shipping_date"`
	TrackingNumber      string     `gorm:"size:100" json:"tracking_number"`
	ManufacturerAddress string     `gorm:"size:1024" json:"manufacturer_address"`

	// Denormalized product-model context resolved at creation time.
	ProductModelName string `gorm:"size:255" json:"product_model_name"`
	ProductModelSku  string `gorm:"size:100" json:"product_model_sku"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
