package models

import (
	"fmt"
	"time"
)

// SewingOrder is a manufacturer's unit of production work for a product
// model, derived from a confirmed shipment.
//
// OpenKey backs the one-open-order-per-(product_model, manufacturer) rule:
// it holds "<product_model_id>:<manufacturer_id>" while the order is open
// and NULL once completed. The unique index turns a concurrent duplicate
// create into a 1062, which the upsert retries as an update (MySQL allows
// any number of NULLs in a unique index, so completed orders never collide).
type SewingOrder struct {
	ID               int               `gorm:"primary_key" json:"id"`
	ProductModelId   int               `gorm:"index;not null" json:"product_model_id"`
	ManufacturerId   int               `gorm:"index;not null" json:"manufacturer_id"`
	ShipmentId       *int              `gorm:"index" json:"shipment_id"`
	QuantityPieces   int               `gorm:"not null;default:1" json:"quantity_pieces"`
	Status           SewingOrderStatus `gorm:"size:20;not null;default:new;index" json:"status"`
	MaterialStatus   MaterialStatus    `gorm:"size:20;not null;default:pending" json:"material_status"`
	OpenKey          *string           `gorm:"size:50;uniqueIndex" json:"-"`
	Deadline         *time.Time        `json:"deadline"`
	StartedAt        *time.Time        `json:"started_at"`
	CompletedAt      *time.Time        `json:"completed_at"`
	ProofDocumentUrl string            `gorm:"size:1024" json:"proof_document_url"`
	CreatedAt        time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// SewingOrderOpenKey derives the dedup key for an open order.
func SewingOrderOpenKey(productModelId, manufacturerId int) string {
	return fmt.Sprintf("%d:%d", productModelId, manufacturerId)
}
