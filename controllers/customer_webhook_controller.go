package controller

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"shopdesk/ingest"
	"shopdesk/models"
	"shopdesk/store"
	"shopdesk/utils"
	"shopdesk/worker"
)

const defaultCustomerSource = "webhook"

var (
	allowedCustomerFields = map[string]struct{}{
		"name":     {},
		"email":    {},
		"phone":    {},
		"address":  {},
		"source":   {},
		"order_id": {},
	}

	phonePattern   = regexp.MustCompile(`^\+?[0-9\s\-().]{7,20}$`)
	orderIDPattern = regexp.MustCompile(`^[0-9]+$`)
)

// CustomerWebhookController creates customers pushed by external systems.
// Callers authenticate with an integration's webhook secret.
type CustomerWebhookController struct {
	Store         store.Store
	Notifications ingest.NotificationQueue
	Logger        *logrus.Entry
}

func NewCustomerWebhookController(s store.Store, notifications ingest.NotificationQueue) *CustomerWebhookController {
	return &CustomerWebhookController{
		Store:         s,
		Notifications: notifications,
		Logger:        utils.Logger("customer_webhook"),
	}
}

type customerWebhookInput struct {
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email" validate:"required,max=255"`
	Phone   string `json:"phone" validate:"omitempty,max=32"`
	Source  string `json:"source" validate:"omitempty,max=100"`
	Address *models.Address
	OrderID *int64
}

// HandleCustomerWebhook handles POST /webhooks/customer.
func (cc *CustomerWebhookController) HandleCustomerWebhook(c *fiber.Ctx) error {
	ctx := c.UserContext()

	contentType := strings.ToLower(strings.TrimSpace(c.Get(fiber.HeaderContentType)))
	if !strings.HasPrefix(contentType, fiber.MIMEApplicationJSON) {
		return utils.HandleError(c, utils.NewValidationError("Content-Type must be application/json"))
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &body); err != nil || body == nil {
		return utils.HandleError(c, utils.NewValidationError("Invalid JSON payload",
			utils.FieldError{Field: "body", Message: "must be a JSON object"}))
	}

	secret := strings.TrimSpace(utils.FirstNonEmpty(
		c.Get(utils.WebhookSecretHeader),
		c.Get(utils.LegacyWebhookSecretHeader),
	))
	if secret == "" {
		return utils.HandleError(c, &utils.AuthenticationError{Message: "Missing webhook secret"})
	}

	integration, err := cc.Store.FindIntegrationBySecret(ctx, secret)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.LogEvent("customer_webhook_secret_rejected", map[string]interface{}{
				"ip":         c.IP(),
				"request_id": c.Locals("requestID"),
			})
			return utils.HandleError(c, &utils.AuthenticationError{Message: "Invalid webhook secret"})
		}
		return utils.HandleError(c, err)
	}

	input, err := parseCustomerWebhook(body)
	if err != nil {
		return utils.HandleError(c, err)
	}

	existing, err := cc.Store.FindCustomerByEmail(ctx, integration.UserID, input.Email)
	switch {
	case err == nil:
		return utils.HandleError(c, customerConflict(existing))
	case !errors.Is(err, store.ErrNotFound):
		return utils.HandleError(c, err)
	}

	customer := &models.Customer{
		UserID:  integration.UserID,
		Name:    input.Name,
		Email:   input.Email,
		Phone:   input.Phone,
		Source:  input.Source,
		OrderID: input.OrderID,
	}
	if err := customer.EncodeAddress(input.Address); err != nil {
		return utils.HandleError(c, err)
	}
	if err := cc.Store.CreateCustomer(ctx, customer); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Lost a race against a concurrent request for the same email.
			if existing, findErr := cc.Store.FindCustomerByEmail(ctx, integration.UserID, input.Email); findErr == nil {
				return utils.HandleError(c, customerConflict(existing))
			}
		}
		return utils.HandleError(c, err)
	}

	utils.LogEvent("customer_webhook_created", map[string]interface{}{
		"integration_id": integration.ID,
		"customer_id":    customer.ID,
		"request_id":     c.Locals("requestID"),
	})
	cc.notify(integration, customer)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Customer created successfully",
		"integration": fiber.Map{
			"id":   integration.ID,
			"name": integration.Name,
			"type": integration.Type,
		},
		"data": fiber.Map{
			"id":         customer.ID,
			"name":       customer.Name,
			"email":      customer.Email,
			"phone":      customer.Phone,
			"address":    customer.Address,
			"source":     customer.Source,
			"order_id":   customer.OrderID,
			"created_at": customer.CreatedAt,
		},
	})
}

// MethodNotAllowed answers the unsupported verbs of the customer webhook.
func (cc *CustomerWebhookController) MethodNotAllowed(c *fiber.Ctx) error {
	c.Set(fiber.HeaderAllow, fiber.MethodPost)
	return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{
		"success": false,
		"error":   "Method not allowed",
		"message": "Use POST to create customers",
	})
}

func (cc *CustomerWebhookController) notify(integration *models.Integration, customer *models.Customer) {
	if cc.Notifications == nil {
		return
	}
	n := worker.NewNotification(integration.UserID, worker.NotificationNewCustomer, integration.Name, map[string]interface{}{
		"customer_id":    customer.ID,
		"customer_name":  customer.Name,
		"customer_email": customer.Email,
		"source":         customer.Source,
	})
	if !cc.Notifications.Enqueue(n) {
		cc.Logger.WithField("customer_id", customer.ID).Warn("Notification queue full, dropping new_customer notification")
	}
}

func customerConflict(existing *models.Customer) error {
	return &utils.ConflictError{
		Message:    "Customer with this email already exists",
		ExistingID: existing.ID,
	}
}

// parseCustomerWebhook checks required fields, then the field allow-list,
// then the format of each field.
func parseCustomerWebhook(body map[string]json.RawMessage) (*customerWebhookInput, error) {
	var input customerWebhookInput
	var missing []utils.FieldError

	for _, field := range []string{"name", "email"} {
		value, ok, err := stringField(body, field)
		if err != nil || !ok || strings.TrimSpace(value) == "" {
			missing = append(missing, utils.FieldError{Field: field, Message: "is required and must be a non-empty string"})
			continue
		}
		if field == "name" {
			input.Name = strings.TrimSpace(value)
		} else {
			input.Email = utils.NormalizeEmail(value)
		}
	}
	if len(missing) > 0 {
		return nil, utils.NewValidationError("Missing required fields", missing...)
	}

	var disallowed []string
	for key := range body {
		if _, ok := allowedCustomerFields[key]; !ok {
			disallowed = append(disallowed, key)
		}
	}
	if len(disallowed) > 0 {
		sort.Strings(disallowed)
		fields := make([]utils.FieldError, 0, len(disallowed))
		for _, key := range disallowed {
			fields = append(fields, utils.FieldError{Field: key, Message: "is not allowed"})
		}
		return nil, utils.NewValidationError("Invalid fields in request", fields...)
	}

	var invalid []utils.FieldError
	phone, _, err := stringField(body, "phone")
	if err != nil {
		invalid = append(invalid, utils.FieldError{Field: "phone", Message: "must be a string"})
	}
	input.Phone = strings.TrimSpace(phone)

	source, _, err := stringField(body, "source")
	if err != nil {
		invalid = append(invalid, utils.FieldError{Field: "source", Message: "must be a string"})
	}
	input.Source = strings.TrimSpace(source)
	if input.Source == "" {
		input.Source = defaultCustomerSource
	}
	if len(invalid) > 0 {
		return nil, utils.NewValidationError("Invalid field types", invalid...)
	}

	if err := utils.ValidateStruct(input, "Invalid customer payload"); err != nil {
		return nil, err
	}

	if err := checkmail.ValidateFormat(input.Email); err != nil {
		invalid = append(invalid, utils.FieldError{Field: "email", Message: "must be a valid email"})
	}
	if input.Phone != "" && !phonePattern.MatchString(input.Phone) {
		invalid = append(invalid, utils.FieldError{Field: "phone", Message: "must be a valid phone number"})
	}
	if raw, ok := body["order_id"]; ok && !isNull(raw) {
		id, err := parseOrderID(raw)
		if err != nil {
			invalid = append(invalid, utils.FieldError{Field: "order_id", Message: "must be numeric"})
		} else {
			input.OrderID = &id
		}
	}
	if raw, ok := body["address"]; ok && !isNull(raw) {
		addr, err := parseAddress(raw)
		if err != nil {
			invalid = append(invalid, utils.FieldError{Field: "address", Message: "must be a billing/shipping object, a single address object, or a string containing one"})
		} else {
			input.Address = addr
		}
	}
	if len(invalid) > 0 {
		return nil, utils.NewValidationError("Invalid field values", invalid...)
	}
	return &input, nil
}

// stringField reads body[key] as a string. Absent and null report ok=false.
func stringField(body map[string]json.RawMessage, key string) (value string, ok bool, err error) {
	raw, present := body[key]
	if !present || isNull(raw) {
		return "", false, nil
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false, err
	}
	return value, true, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// parseOrderID accepts a non-negative JSON integer or a string of digits.
func parseOrderID(raw json.RawMessage) (int64, error) {
	text := strings.TrimSpace(string(raw))
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		text = strings.TrimSpace(s)
	}
	if !orderIDPattern.MatchString(text) {
		return 0, errors.New("order_id is not numeric")
	}
	return strconv.ParseInt(text, 10, 64)
}

// parseAddress accepts {"billing": {...}, "shipping": {...}}, a single
// address object which is taken as the billing address, or a string holding
// either form. Unknown keys are rejected.
func parseAddress(raw json.RawMessage) (*models.Address, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = json.RawMessage(s)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, errors.New("address is not a JSON object")
	}

	_, hasBilling := obj["billing"]
	_, hasShipping := obj["shipping"]
	if hasBilling || hasShipping {
		var addr models.Address
		if err := decodeStrict(raw, &addr); err != nil {
			return nil, err
		}
		return &addr, nil
	}

	var detail models.AddressDetail
	if err := decodeStrict(raw, &detail); err != nil {
		return nil, err
	}
	return &models.Address{Billing: &detail}, nil
}

func decodeStrict(raw json.RawMessage, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
