package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// FieldError describes a single violated field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Message) }

// ValidationError is returned when a request or payload fails schema or
// field-level checks.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}
	return e.Message + ": " + strings.Join(parts, ", ")
}

// NewValidationError builds a ValidationError from a message and optional fields.
func NewValidationError(message string, fields ...FieldError) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// AuthenticationError covers missing or invalid signatures and secrets.
type AuthenticationError struct{ Message string }

func (e *AuthenticationError) Error() string { return e.Message }

// AuthorizationError is returned for known but inactive integrations.
type AuthorizationError struct{ Message string }

func (e *AuthorizationError) Error() string { return e.Message }

// NotFoundError is returned when the integration cannot be resolved.
type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

// ConflictError reports an already existing record.
type ConflictError struct {
	Message    string
	ExistingID uint
}

func (e *ConflictError) Error() string { return e.Message }

// UnsupportedPlatformError is returned for integrations whose platform has
// no order webhook support.
type UnsupportedPlatformError struct{ Platform string }

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform: %q", e.Platform)
}

// StatusCode maps an error to its HTTP status.
func StatusCode(err error) int {
	var (
		ve  *ValidationError
		ae  *AuthenticationError
		aze *AuthorizationError
		nfe *NotFoundError
		ce  *ConflictError
		upe *UnsupportedPlatformError
		fe  *fiber.Error
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &upe):
		return fiber.StatusBadRequest
	case errors.As(err, &ae):
		return fiber.StatusUnauthorized
	case errors.As(err, &aze):
		return fiber.StatusForbidden
	case errors.As(err, &nfe):
		return fiber.StatusNotFound
	case errors.As(err, &ce):
		return fiber.StatusConflict
	case errors.As(err, &fe):
		return fe.Code
	default:
		return fiber.StatusInternalServerError
	}
}

// HandleError writes the JSON error response for err. Unexpected errors are
// logged and reported but never echoed to the caller.
func HandleError(c *fiber.Ctx, err error) error {
	status := StatusCode(err)

	var (
		ve *ValidationError
		ce *ConflictError
		fe *fiber.Error
	)
	switch {
	case errors.As(err, &ve):
		response := fiber.Map{
			"success": false,
			"error":   "Validation failed",
			"message": ve.Message,
		}
		if len(ve.Fields) > 0 {
			response["details"] = ve.Fields
		}
		return c.Status(status).JSON(response)
	case errors.As(err, &ce):
		return c.Status(status).JSON(fiber.Map{
			"success":     false,
			"error":       "Conflict",
			"message":     ce.Message,
			"existing_id": ce.ExistingID,
		})
	case status == fiber.StatusInternalServerError:
		LogError("unhandled_request_error", err, map[string]interface{}{
			"method":     c.Method(),
			"path":       c.Path(),
			"request_id": c.Locals("requestID"),
		})
		return ErrorResponse(c, status, "Internal server error", nil)
	case errors.As(err, &fe):
		return ErrorResponse(c, status, fe.Message, nil)
	default:
		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"error":   errorTitle(status),
			"message": err.Error(),
		})
	}
}

// FiberErrorHandler routes errors returned by handlers and middleware
// through HandleError.
func FiberErrorHandler(c *fiber.Ctx, err error) error {
	return HandleError(c, err)
}

func errorTitle(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "Bad request"
	case fiber.StatusUnauthorized:
		return "Unauthorized"
	case fiber.StatusForbidden:
		return "Forbidden"
	case fiber.StatusNotFound:
		return "Not found"
	default:
		return "Request failed"
	}
}
