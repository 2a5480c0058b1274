package controller

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"shopdesk/ingest"
	"shopdesk/store"
	"shopdesk/utils"
)

// OrderWebhookController receives Shopify and WooCommerce order webhooks.
type OrderWebhookController struct {
	Store    store.Store
	Pipeline *ingest.Pipeline
	Logger   *logrus.Entry
}

func NewOrderWebhookController(s store.Store, pipeline *ingest.Pipeline) *OrderWebhookController {
	return &OrderWebhookController{
		Store:    s,
		Pipeline: pipeline,
		Logger:   utils.Logger("order_webhook"),
	}
}

// HandleOrderWebhook handles POST /webhook/orders?domain=<integration domain>.
func (oc *OrderWebhookController) HandleOrderWebhook(c *fiber.Ctx) error {
	ctx := c.UserContext()

	domain := strings.TrimSpace(c.Query("domain"))
	if domain == "" {
		return utils.HandleError(c, utils.NewValidationError("Missing domain parameter",
			utils.FieldError{Field: "domain", Message: "is required"}))
	}

	integration, err := oc.Store.FindIntegrationByDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.HandleError(c, &utils.NotFoundError{Message: "Integration not found"})
		}
		return utils.HandleError(c, err)
	}
	if !integration.IsActive {
		return utils.HandleError(c, &utils.AuthorizationError{Message: "Integration is not active"})
	}

	header, err := utils.SignatureHeader(integration.Type)
	if err != nil {
		return utils.HandleError(c, err)
	}

	// Raw body as received; verification must not see a re-encoded payload.
	body := c.Body()

	signature := strings.TrimSpace(c.Get(header))
	if signature == "" {
		return utils.HandleError(c, utils.NewValidationError("Missing signature header",
			utils.FieldError{Field: header, Message: "is required"}))
	}
	if integration.WebhookSecret == "" {
		oc.Logger.WithField("integration_id", integration.ID).Warn("Integration has no webhook secret")
		return utils.HandleError(c, &utils.AuthenticationError{Message: "Integration is not configured for webhooks"})
	}
	if !utils.VerifyHMACSignature(body, signature, integration.WebhookSecret) {
		utils.LogEvent("webhook_signature_rejected", map[string]interface{}{
			"integration_id": integration.ID,
			"platform":       integration.Type,
			"ip":             c.IP(),
			"request_id":     c.Locals("requestID"),
		})
		return utils.HandleError(c, &utils.AuthenticationError{Message: "Invalid signature"})
	}

	if !json.Valid(body) {
		return utils.HandleError(c, utils.NewValidationError("Invalid JSON payload",
			utils.FieldError{Field: "body", Message: "must be valid JSON"}))
	}

	order, err := ingest.Normalize(integration.Type, body)
	if err != nil {
		return utils.HandleError(c, err)
	}

	result, err := oc.Pipeline.Ingest(ctx, integration, order)
	if err != nil {
		return utils.HandleError(c, err)
	}

	message := "Order updated successfully"
	if result.IsNewOrder {
		message = "Order processed successfully"
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":    true,
		"message":    message,
		"orderId":    result.OrderID,
		"customerId": result.CustomerID,
		"crmLeadId":  result.CrmLeadID,
	})
}
