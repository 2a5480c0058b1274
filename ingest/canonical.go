// Package ingest turns platform order webhooks into stored orders. It
// normalizes Shopify and WooCommerce payloads into a CanonicalOrder, upserts
// the customer, order and items, and creates the CRM lead with its audit
// event for orders seen for the first time.
package ingest

import (
	"time"

	"github.com/shopspring/decimal"

	"shopdesk/models"
)

// CanonicalOrder is the platform independent form of an order webhook.
type CanonicalOrder struct {
	Platform        models.Platform
	ExternalOrderID string
	Status          string
	TotalAmount     decimal.Decimal
	Currency        string
	OrderCreatedAt  *time.Time
	Customer        CanonicalCustomer
	Items           []CanonicalItem
}

type CanonicalCustomer struct {
	Email string
	Name  string
	// FallbackName names a customer created without a name. It never
	// replaces the name of a stored customer.
	FallbackName string
	Phone        string
	Address      *models.Address
}

type CanonicalItem struct {
	ProductSKU   string
	ProductName  string
	Quantity     int
	PricePerUnit decimal.Decimal
}

// PrimaryItem returns the first item of the order, or nil when there is none.
func (o *CanonicalOrder) PrimaryItem() *CanonicalItem {
	if len(o.Items) == 0 {
		return nil
	}
	return &o.Items[0]
}
