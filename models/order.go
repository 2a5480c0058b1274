package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is a storefront order. (IntegrationID, ExternalOrderID) is unique so
// a redelivered webhook updates the existing row instead of inserting another.
type Order struct {
	gorm.Model
	IntegrationID uint `gorm:"not null;uniqueIndex:ux_orders_integration_external,priority:1" json:"integration_id"`
	CustomerID    uint `gorm:"not null;index" json:"customer_id"`

	ExternalOrderID string          `gorm:"not null;uniqueIndex:ux_orders_integration_external,priority:2" json:"external_order_id"`
	Status          string          `gorm:"not null" json:"status"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Currency        string          `gorm:"size:8" json:"currency"`
	OrderCreatedAt  *time.Time      `json:"order_created_at"`

	// Relations
	Items    []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Customer Customer    `json:"-"`
}

// OrderItem is a single line of an order. Items are written once, when the
// order is first ingested.
type OrderItem struct {
	gorm.Model
	OrderID uint `gorm:"not null;index" json:"order_id"`

	ProductSKU   string          `json:"product_sku"`
	ProductName  string          `gorm:"not null" json:"product_name"`
	Quantity     int             `gorm:"not null;check:quantity >= 1" json:"quantity"`
	PricePerUnit decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price_per_unit"`
}
