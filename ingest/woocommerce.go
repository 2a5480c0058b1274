package ingest

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"shopdesk/models"
	"shopdesk/utils"
)

// WooCommerceOrder is the subset of the WooCommerce order.created payload the
// pipeline reads. Line item prices arrive as JSON numbers.
type WooCommerceOrder struct {
	ID             json.Number           `json:"id" validate:"required"`
	Status         string                `json:"status" validate:"required"`
	Total          json.Number           `json:"total" validate:"required"`
	Currency       string                `json:"currency"`
	DateCreated    string                `json:"date_created"`
	DateCreatedGMT string                `json:"date_created_gmt"`
	Billing        *WooCommerceBilling   `json:"billing" validate:"required"`
	Shipping       *WooCommerceAddress   `json:"shipping"`
	LineItems      []WooCommerceLineItem `json:"line_items" validate:"required,min=1,dive"`
}

type WooCommerceAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
}

type WooCommerceBilling struct {
	WooCommerceAddress
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone"`
}

type WooCommerceLineItem struct {
	ID       json.Number `json:"id"`
	Name     string      `json:"name" validate:"required"`
	SKU      string      `json:"sku"`
	Quantity int         `json:"quantity" validate:"min=1"`
	Price    float64     `json:"price" validate:"gte=0"`
}

func (o *WooCommerceOrder) Platform() models.Platform { return models.PlatformWooCommerce }

func (o *WooCommerceOrder) toCanonical() (*CanonicalOrder, error) {
	total, err := decimal.NewFromString(strings.TrimSpace(o.Total.String()))
	if err != nil {
		return nil, invalidField("total", "must be a decimal number")
	}

	field, ts := "date_created_gmt", o.DateCreatedGMT
	if strings.TrimSpace(ts) == "" {
		field, ts = "date_created", o.DateCreated
	}
	createdAt, err := parseTimestamp(field, ts)
	if err != nil {
		return nil, err
	}

	billing := o.Billing.WooCommerceAddress.detail()
	shipping := billing
	if o.Shipping != nil {
		if d := o.Shipping.detail(); d != nil {
			shipping = d
		}
	}
	customer := CanonicalCustomer{
		Email: utils.NormalizeEmail(o.Billing.Email),
		Name:  joinNonEmpty(" ", o.Billing.FirstName, o.Billing.LastName),
		Phone: strings.TrimSpace(o.Billing.Phone),
	}
	if addr := (&models.Address{Billing: billing, Shipping: shipping}); !addr.IsZero() {
		customer.Address = addr
	}

	items := make([]CanonicalItem, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		items = append(items, CanonicalItem{
			ProductSKU:   strings.TrimSpace(li.SKU),
			ProductName:  strings.TrimSpace(li.Name),
			Quantity:     li.Quantity,
			PricePerUnit: decimal.NewFromFloat(li.Price),
		})
	}

	return &CanonicalOrder{
		ExternalOrderID: idString(o.ID),
		Status:          strings.TrimSpace(o.Status),
		TotalAmount:     total,
		Currency:        strings.TrimSpace(o.Currency),
		OrderCreatedAt:  createdAt,
		Customer:        customer,
		Items:           items,
	}, nil
}

func (a *WooCommerceAddress) detail() *models.AddressDetail {
	d := &models.AddressDetail{
		Street:     joinNonEmpty(" ", a.Address1, a.Address2),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.Postcode),
		Country:    strings.TrimSpace(a.Country),
	}
	if d.IsZero() {
		return nil
	}
	return d
}
