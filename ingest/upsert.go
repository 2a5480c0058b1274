package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shopdesk/models"
	"shopdesk/store"
	"shopdesk/utils"
)

const defaultCustomerName = "Unknown Customer"

// UpsertResult describes what UpsertOrder wrote.
type UpsertResult struct {
	Order      *models.Order
	Customer   *models.Customer
	IsNewOrder bool
	// ExistingLeadID is the lead of an already ingested order, if any.
	ExistingLeadID *uint
}

// UpsertOrder resolves the customer by (tenant, email), then creates the
// order with its items or updates the existing one. Items are only written
// for new orders.
func UpsertOrder(ctx context.Context, tx store.Store, integration *models.Integration, order *CanonicalOrder) (*UpsertResult, error) {
	customer, err := resolveCustomer(ctx, tx, integration, order)
	if err != nil {
		return nil, err
	}

	existing, err := tx.FindOrderByExternalID(ctx, integration.ID, order.ExternalOrderID)
	switch {
	case err == nil:
		existing.Status = order.Status
		existing.TotalAmount = order.TotalAmount
		if order.Currency != "" {
			existing.Currency = order.Currency
		}
		if order.OrderCreatedAt != nil {
			existing.OrderCreatedAt = order.OrderCreatedAt
		}
		if err := tx.UpdateOrder(ctx, existing); err != nil {
			return nil, err
		}

		result := &UpsertResult{Order: existing, Customer: customer}
		lead, err := tx.FindLeadByOrderID(ctx, existing.ID)
		switch {
		case err == nil:
			result.ExistingLeadID = &lead.ID
		case !errors.Is(err, store.ErrNotFound):
			return nil, err
		}
		return result, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	created := &models.Order{
		IntegrationID:   integration.ID,
		CustomerID:      customer.ID,
		ExternalOrderID: order.ExternalOrderID,
		Status:          order.Status,
		TotalAmount:     order.TotalAmount,
		Currency:        order.Currency,
		OrderCreatedAt:  order.OrderCreatedAt,
	}
	if err := tx.CreateOrder(ctx, created); err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, models.OrderItem{
			OrderID:      created.ID,
			ProductSKU:   item.ProductSKU,
			ProductName:  item.ProductName,
			Quantity:     item.Quantity,
			PricePerUnit: item.PricePerUnit,
		})
	}
	if err := tx.CreateOrderItems(ctx, items); err != nil {
		return nil, err
	}
	created.Items = items

	return &UpsertResult{Order: created, Customer: customer, IsNewOrder: true}, nil
}

// resolveCustomer finds or creates the tenant's customer. Present fields of
// an existing customer are never overwritten with blank input.
func resolveCustomer(ctx context.Context, tx store.Store, integration *models.Integration, order *CanonicalOrder) (*models.Customer, error) {
	in := order.Customer

	customer, err := tx.FindCustomerByEmail(ctx, integration.UserID, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		name := utils.FirstNonEmpty(strings.TrimSpace(in.Name), strings.TrimSpace(in.FallbackName), defaultCustomerName)
		customer = &models.Customer{
			UserID: integration.UserID,
			Name:   name,
			Email:  in.Email,
			Phone:  in.Phone,
			Source: string(order.Platform),
		}
		if err := customer.EncodeAddress(in.Address); err != nil {
			return nil, fmt.Errorf("encode address: %w", err)
		}
		if err := tx.CreateCustomer(ctx, customer); err != nil {
			return nil, err
		}
		return customer, nil
	}
	if err != nil {
		return nil, err
	}

	changed := false
	if name := strings.TrimSpace(in.Name); name != "" && name != customer.Name {
		customer.Name = name
		changed = true
	}
	if in.Phone != "" && in.Phone != customer.Phone {
		customer.Phone = in.Phone
		changed = true
	}
	if !in.Address.IsZero() {
		merged, err := mergeCustomerAddress(customer, in.Address)
		if err != nil {
			return nil, err
		}
		changed = changed || merged
	}

	if changed {
		if err := tx.UpdateCustomer(ctx, customer); err != nil {
			return nil, err
		}
	}
	return customer, nil
}

// mergeCustomerAddress merges incoming into the stored address. A stored
// value that is not a billing/shipping object is left as it is.
func mergeCustomerAddress(customer *models.Customer, incoming *models.Address) (bool, error) {
	current, err := customer.DecodeAddress()
	if err != nil {
		utils.Logger("ingest").WithError(err).WithField("customer_id", customer.ID).
			Warn("Stored customer address is not structured, leaving it unchanged")
		return false, nil
	}
	before := string(customer.Address)
	if err := customer.EncodeAddress(mergeAddress(current, incoming)); err != nil {
		return false, fmt.Errorf("encode address: %w", err)
	}
	return string(customer.Address) != before, nil
}

// mergeAddress replaces each sub-address of current that incoming carries.
func mergeAddress(current, incoming *models.Address) *models.Address {
	merged := *current
	if !incoming.Billing.IsZero() {
		merged.Billing = incoming.Billing
	}
	if !incoming.Shipping.IsZero() {
		merged.Shipping = incoming.Shipping
	}
	return &merged
}
