package models

import (
	"bytes"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AddressDetail is one postal address.
type AddressDetail struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// IsZero reports whether no field of the address is set.
func (a *AddressDetail) IsZero() bool {
	return a == nil || *a == AddressDetail{}
}

// Address holds the billing and shipping addresses of a customer.
type Address struct {
	Billing  *AddressDetail `json:"billing,omitempty"`
	Shipping *AddressDetail `json:"shipping,omitempty"`
}

// IsZero reports whether neither address carries data.
func (a *Address) IsZero() bool {
	return a == nil || (a.Billing.IsZero() && a.Shipping.IsZero())
}

// Customer is an end buyer, unique by email within a tenant.
type Customer struct {
	gorm.Model
	UserID uint `gorm:"not null;uniqueIndex:ux_customers_user_email,priority:1" json:"user_id"`

	Name    string         `gorm:"not null" json:"name"`
	Email   string         `gorm:"not null;uniqueIndex:ux_customers_user_email,priority:2" json:"email"`
	Phone   string         `json:"phone"`
	Address datatypes.JSON `gorm:"type:jsonb" json:"address"`
	Source  string         `json:"source"`
	OrderID *int64         `json:"order_id,omitempty"`

	// Relations
	Orders []Order `gorm:"foreignKey:CustomerID" json:"orders,omitempty"`
}

// DecodeAddress returns the structured address stored on the customer.
// Keys other than billing and shipping are an error.
func (c *Customer) DecodeAddress() (*Address, error) {
	if len(c.Address) == 0 || string(c.Address) == "null" {
		return &Address{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(c.Address))
	dec.DisallowUnknownFields()
	var addr Address
	if err := dec.Decode(&addr); err != nil {
		return nil, err
	}
	return &addr, nil
}

// EncodeAddress stores addr on the customer. A zero address clears the column.
func (c *Customer) EncodeAddress(addr *Address) error {
	if addr.IsZero() {
		c.Address = nil
		return nil
	}
	b, err := json.Marshal(addr)
	if err != nil {
		return err
	}
	c.Address = datatypes.JSON(b)
	return nil
}
