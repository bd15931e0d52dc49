package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesOrder lifecycle is owned by the checkout subsystem; the aggregation
// engine only reads completed transactions.
type SalesOrder struct {
	ID         int              `gorm:"primary_key" json:"id"`
	CustomerId int              `gorm:"index" json:"customer_id"`
	TotalPrice decimal.Decimal  `gorm:"type:decimal(20,2);not null" json:"total_price"`
	Status     SalesOrderStatus `gorm:"size:30;not null;index" json:"status"`
	Items      []SalesOrderItem `gorm:"foreignKey:SalesOrderId" json:"items,omitempty"`
	CreatedAt  time.Time        `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type SalesOrderItem struct {
	ID           int             `gorm:"primary_key" json:"id"`
	SalesOrderId int             `gorm:"index;not null" json:"sales_order_id"`
	ProductId    int             `gorm:"index;not null" json:"product_id"`
	Quantity     int             `gorm:"not null;default:1" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(20,2)" json:"unit_price"`
}
