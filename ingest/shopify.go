package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"shopdesk/models"
	"shopdesk/utils"
)

const defaultShopifyStatus = "pending"

// ShopifyOrder is the subset of the Shopify orders/create payload the
// pipeline reads. Nested objects are optional.
type ShopifyOrder struct {
	ID              json.Number       `json:"id" validate:"required"`
	Email           string            `json:"email"`
	FinancialStatus *string           `json:"financial_status"`
	TotalPrice      string            `json:"total_price" validate:"required,numeric"`
	Currency        string            `json:"currency"`
	CreatedAt       string            `json:"created_at"`
	Customer        *ShopifyCustomer  `json:"customer"`
	ShippingAddress *ShopifyAddress   `json:"shipping_address"`
	LineItems       []ShopifyLineItem `json:"line_items" validate:"required,min=1,dive"`
}

type ShopifyCustomer struct {
	ID             json.Number     `json:"id"`
	Email          string          `json:"email"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Phone          string          `json:"phone"`
	DefaultAddress *ShopifyAddress `json:"default_address"`
}

type ShopifyAddress struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Province string `json:"province"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
	Phone    string `json:"phone"`
}

type ShopifyLineItem struct {
	ID       json.Number `json:"id"`
	Title    string      `json:"title" validate:"required"`
	SKU      string      `json:"sku"`
	Quantity int         `json:"quantity" validate:"min=1"`
	Price    string      `json:"price" validate:"required"`
}

func (o *ShopifyOrder) Platform() models.Platform { return models.PlatformShopify }

func (o *ShopifyOrder) toCanonical() (*CanonicalOrder, error) {
	total, err := decimal.NewFromString(strings.TrimSpace(o.TotalPrice))
	if err != nil {
		return nil, invalidField("total_price", "must be a decimal string")
	}

	createdAt, err := parseTimestamp("created_at", o.CreatedAt)
	if err != nil {
		return nil, err
	}

	status := defaultShopifyStatus
	if o.FinancialStatus != nil && strings.TrimSpace(*o.FinancialStatus) != "" {
		status = strings.TrimSpace(*o.FinancialStatus)
	}

	customer, err := o.customer()
	if err != nil {
		return nil, err
	}

	items := make([]CanonicalItem, 0, len(o.LineItems))
	for i, li := range o.LineItems {
		price, err := decimal.NewFromString(strings.TrimSpace(li.Price))
		if err != nil {
			return nil, invalidField(fmt.Sprintf("line_items[%d].price", i), "must be a decimal string")
		}
		if price.IsNegative() {
			return nil, invalidField(fmt.Sprintf("line_items[%d].price", i), "must be greater than or equal to 0")
		}
		items = append(items, CanonicalItem{
			ProductSKU:   strings.TrimSpace(li.SKU),
			ProductName:  strings.TrimSpace(li.Title),
			Quantity:     li.Quantity,
			PricePerUnit: price,
		})
	}

	return &CanonicalOrder{
		ExternalOrderID: idString(o.ID),
		Status:          status,
		TotalAmount:     total,
		Currency:        strings.TrimSpace(o.Currency),
		OrderCreatedAt:  createdAt,
		Customer:        customer,
		Items:           items,
	}, nil
}

func (o *ShopifyOrder) customer() (CanonicalCustomer, error) {
	var c CanonicalCustomer
	if o.Customer != nil {
		c.Email = o.Customer.Email
		c.Name = joinNonEmpty(" ", o.Customer.FirstName, o.Customer.LastName)
		c.Phone = strings.TrimSpace(o.Customer.Phone)
	}
	c.Email = utils.NormalizeEmail(utils.FirstNonEmpty(c.Email, o.Email))
	if c.Email == "" {
		return c, invalidField("customer.email", "is required")
	}
	if c.Name == "" {
		c.FallbackName = c.Email
	}

	var billing *models.AddressDetail
	if o.Customer != nil && o.Customer.DefaultAddress != nil {
		billing = o.Customer.DefaultAddress.detail()
		if c.Phone == "" {
			c.Phone = strings.TrimSpace(o.Customer.DefaultAddress.Phone)
		}
	}
	shipping := billing
	if o.ShippingAddress != nil {
		shipping = o.ShippingAddress.detail()
	}

	addr := &models.Address{Billing: billing, Shipping: shipping}
	if !addr.IsZero() {
		c.Address = addr
	}
	return c, nil
}

func (a *ShopifyAddress) detail() *models.AddressDetail {
	d := &models.AddressDetail{
		Street:     joinNonEmpty(" ", a.Address1, a.Address2),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.Province),
		PostalCode: strings.TrimSpace(a.Zip),
		Country:    strings.TrimSpace(a.Country),
	}
	if d.IsZero() {
		return nil
	}
	return d
}

func invalidField(field, message string) error {
	return utils.NewValidationError("Invalid order payload", utils.FieldError{Field: field, Message: message})
}
