package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"shopdesk/models"
	"shopdesk/store"
	"shopdesk/utils"
	"shopdesk/worker"
)

// NotificationQueue accepts notifications without blocking. Enqueue reports
// false when the notification was dropped.
type NotificationQueue interface {
	Enqueue(n worker.Notification) bool
}

// Result identifies the rows an ingestion produced or updated.
type Result struct {
	OrderID    uint
	CustomerID uint
	CrmLeadID  *uint
	IsNewOrder bool
}

// Pipeline runs upsert and fan-out for one delivery inside a single
// transaction.
type Pipeline struct {
	store         store.Store
	notifications NotificationQueue
	logger        *logrus.Entry
}

// NewPipeline creates a pipeline. notifications may be nil.
func NewPipeline(s store.Store, notifications NotificationQueue) *Pipeline {
	return &Pipeline{
		store:         s,
		notifications: notifications,
		logger:        utils.Logger("ingest"),
	}
}

// maxAttempts bounds retries after a unique constraint violation. The second
// attempt sees the row committed by the concurrent delivery and updates it.
const maxAttempts = 2

// Ingest stores order for integration. Lead and event are only created for
// orders seen for the first time.
func (p *Pipeline) Ingest(ctx context.Context, integration *models.Integration, order *CanonicalOrder) (*Result, error) {
	var (
		result *Result
		lead   *models.CrmLead
		err    error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, lead, err = p.ingestOnce(ctx, integration, order)
		if err == nil || !errors.Is(err, store.ErrDuplicate) || attempt == maxAttempts {
			break
		}
		p.logger.WithFields(logrus.Fields{
			"integration_id":    integration.ID,
			"external_order_id": order.ExternalOrderID,
			"attempt":           attempt,
		}).Warn("Concurrent delivery detected, retrying as update")
	}
	if err != nil {
		return nil, fmt.Errorf("ingest order %s for integration %d: %w", order.ExternalOrderID, integration.ID, err)
	}

	utils.LogEvent("order_ingested", map[string]interface{}{
		"integration_id":    integration.ID,
		"external_order_id": order.ExternalOrderID,
		"order_id":          result.OrderID,
		"customer_id":       result.CustomerID,
		"new_order":         result.IsNewOrder,
	})

	if lead != nil {
		p.notify(integration, order, result, lead)
	}
	return result, nil
}

func (p *Pipeline) ingestOnce(ctx context.Context, integration *models.Integration, order *CanonicalOrder) (*Result, *models.CrmLead, error) {
	var (
		result *Result
		lead   *models.CrmLead
	)
	err := p.store.Transaction(ctx, func(tx store.Store) error {
		upserted, err := UpsertOrder(ctx, tx, integration, order)
		if err != nil {
			return err
		}

		result = &Result{
			OrderID:    upserted.Order.ID,
			CustomerID: upserted.Customer.ID,
			CrmLeadID:  upserted.ExistingLeadID,
			IsNewOrder: upserted.IsNewOrder,
		}
		if !upserted.IsNewOrder {
			return nil
		}

		lead, err = CreateLeadAndEvent(ctx, tx, integration, upserted.Order, upserted.Customer, order)
		if err != nil {
			return err
		}
		result.CrmLeadID = &lead.ID
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result, lead, nil
}

func (p *Pipeline) notify(integration *models.Integration, order *CanonicalOrder, result *Result, lead *models.CrmLead) {
	if p.notifications == nil {
		return
	}
	n := worker.NewNotification(integration.UserID, worker.NotificationNewLead, integration.Name, map[string]interface{}{
		"lead_id":           lead.ID,
		"order_id":          result.OrderID,
		"external_order_id": order.ExternalOrderID,
		"customer_name":     lead.Name,
		"customer_email":    lead.Email,
		"order_total":       order.TotalAmount.StringFixed(2),
		"currency":          order.Currency,
		"item_count":        len(order.Items),
	})
	if !p.notifications.Enqueue(n) {
		p.logger.WithField("lead_id", lead.ID).Warn("Notification queue full, dropping new_lead notification")
	}
}
