package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/datatypes"

	"shopdesk/models"
	"shopdesk/store"
)

// LeadEventDetails is the snapshot stored on the lead_created event.
type LeadEventDetails struct {
	Source          string          `json:"source"`
	OrderID         uint            `json:"order_id"`
	ExternalOrderID string          `json:"external_order_id"`
	OrderTotal      decimal.Decimal `json:"order_total"`
	ProductName     string          `json:"product_name,omitempty"`
	ProductSKU      string          `json:"product_sku,omitempty"`
	ItemCount       int             `json:"item_count"`
}

// LeadSource renders the provenance string of a lead, e.g. "Shopify (My Store)".
func LeadSource(platform models.Platform, integrationName string) string {
	// A Caser is stateful, so build one per call.
	title := cases.Title(language.Und).String(string(platform))
	return fmt.Sprintf("%s (%s)", title, integrationName)
}

// CodStatusFor maps an order status to the initial cash-on-delivery status.
func CodStatusFor(orderStatus string) string {
	if orderStatus == "pending" {
		return models.CodStatusWaiting
	}
	return models.CodStatusConfirmed
}

// CreateLeadAndEvent writes the CRM lead of a newly ingested order and its
// lead_created audit event.
func CreateLeadAndEvent(ctx context.Context, tx store.Store, integration *models.Integration, order *models.Order, customer *models.Customer, canonical *CanonicalOrder) (*models.CrmLead, error) {
	source := LeadSource(integration.Type, integration.Name)

	orderID := order.ID
	lead := &models.CrmLead{
		OrderID:        &orderID,
		UserID:         integration.UserID,
		Name:           customer.Name,
		Email:          customer.Email,
		Phone:          customer.Phone,
		Source:         source,
		LogisticStatus: models.LogisticStatusPending,
		CodStatus:      CodStatusFor(canonical.Status),
		KpiStatus:      models.KpiStatusNewLead,
	}
	if err := tx.CreateLead(ctx, lead); err != nil {
		return nil, err
	}

	details := LeadEventDetails{
		Source:          source,
		OrderID:         order.ID,
		ExternalOrderID: order.ExternalOrderID,
		OrderTotal:      canonical.TotalAmount,
		ItemCount:       len(canonical.Items),
	}
	if item := canonical.PrimaryItem(); item != nil {
		details.ProductName = item.ProductName
		details.ProductSKU = item.ProductSKU
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("marshal lead event details: %w", err)
	}

	event := &models.CrmLeadEvent{
		LeadID:    lead.ID,
		UserID:    integration.UserID,
		EventType: models.LeadEventCreated,
		Details:   datatypes.JSON(raw),
	}
	if err := tx.CreateLeadEvent(ctx, event); err != nil {
		return nil, err
	}
	return lead, nil
}
