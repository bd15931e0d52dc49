package models

import "time"

// MaterialShipment represents physical delivery of a material batch to a
// manufacturer. Records are produced by the shipment sync worker when a
// supplier marks a request sent; status is driven exclusively by the
// addressed manufacturer.
type MaterialShipment struct {
	ID                int            `gorm:"primary_key" json:"id"`
	MaterialRequestId *int           `gorm:"uniqueIndex" json:"material_request_id"`
	SupplierId        int            `gorm:"index;not null" json:"supplier_id"`
	ManufacturerId    int            `gorm:"index;not null" json:"manufacturer_id"`
	ProductModelId    int            `gorm:"index;not null" json:"product_model_id"`
	Status            ShipmentStatus `gorm:"size:30;not null;default:sent_to_manufacturer;index" json:"status"`
	ProblemReason     string         `gorm:"type:text" json:"problem_reason"`
	BatchLotId        string         `gorm:"size:100" json:"batch_lot_id"`
	TrackingNumber    string         `gorm:"size:100" json:"tracking_number"`
	ShippingDate      *time.Time     `json:"shipping_date"`
	ReceivedAt        *time.Time     `json:"received_at"`
	ConfirmedAt       *time.Time     `json:"confirmed_at"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}
