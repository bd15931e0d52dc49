package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductModel tracks a garment from concept to market-ready. Core fields
// freeze once the development stage reaches approved; only an administrative
// channel outside this core may alter them afterwards.
type ProductModel struct {
	ID               int                 `gorm:"primary_key" json:"id"`
	CollectionId     int                 `gorm:"index" json:"collection_id"`
	DesignerId       int                 `gorm:"index;not null" json:"designer_id"`
	Name             string              `gorm:"size:255;not null" json:"name" binding:"required"`
	Sku              string              `gorm:"size:100;index" json:"sku"`
	Category         string              `gorm:"size:100" json:"category"`
	Materials        string              `gorm:"type:text" json:"materials"`
	Price            decimal.Decimal     `gorm:"type:decimal(20,2)" json:"price"`
	DevelopmentStage DevelopmentStage    `gorm:"size:20;not null;default:idea;index" json:"development_stage"`
	Images           []ProductModelImage `gorm:"foreignKey:ProductModelId" json:"images,omitempty"`
	CreatedAt        time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type ProductModelImage struct {
	ID             int    `gorm:"primary_key" json:"id"`
	ProductModelId int    `gorm:"index;not null" json:"product_model_id"`
	ImageUrl       string `gorm:"size:1024;not null" json:"image_url"`
	IsPrimary      *bool  `gorm:"default:false" json:"is_primary"`
}

// ProductModelApproval is an append-only audit record, written once per
// approval event and never mutated.
type ProductModelApproval struct {
	ID             int       `gorm:"primary_key" json:"id"`
	ProductModelId int       `gorm:"index;not null" json:"product_model_id"`
	ApprovalItem   string    `gorm:"size:255" json:"approval_item"`
	Status         string    `gorm:"size:50" json:"status"`
	Note           string    `gorm:"type:text" json:"note"`
	ApprovedBy     int       `gorm:"index" json:"approved_by"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}
