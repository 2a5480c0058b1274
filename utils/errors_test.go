package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewValidationError("bad"), fiber.StatusBadRequest},
		{&UnsupportedPlatformError{Platform: "custom"}, fiber.StatusBadRequest},
		{&AuthenticationError{Message: "no"}, fiber.StatusUnauthorized},
		{&AuthorizationError{Message: "inactive"}, fiber.StatusForbidden},
		{&NotFoundError{Message: "missing"}, fiber.StatusNotFound},
		{&ConflictError{Message: "dup", ExistingID: 3}, fiber.StatusConflict},
		{fmt.Errorf("wrapped: %w", &NotFoundError{Message: "missing"}), fiber.StatusNotFound},
		{fiber.NewError(fiber.StatusRequestEntityTooLarge, "too big"), fiber.StatusRequestEntityTooLarge},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusCode(tt.err), tt.err.Error())
	}
}

func serveError(t *testing.T, err error) (int, map[string]interface{}) {
	t.Helper()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return HandleError(c, err) })

	resp, testErr := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, testErr)
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestHandleErrorValidationIncludesFieldDetails(t *testing.T) {
	status, body := serveError(t, NewValidationError("Invalid payload",
		FieldError{Field: "line_items[0].quantity", Message: "must be at least 1"}))

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Validation failed", body["error"])
	details := body["details"].([]interface{})
	require.Len(t, details, 1)
	assert.Equal(t, "line_items[0].quantity", details[0].(map[string]interface{})["field"])
}

func TestHandleErrorConflictIncludesExistingID(t *testing.T) {
	status, body := serveError(t, &ConflictError{Message: "exists", ExistingID: 42})

	assert.Equal(t, fiber.StatusConflict, status)
	assert.EqualValues(t, 42, body["existing_id"])
}

func TestHandleErrorHidesInternalDetails(t *testing.T) {
	status, body := serveError(t, errors.New("pq: password authentication failed"))

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "Internal server error", body["error"])
	assert.NotContains(t, fmt.Sprint(body), "password")
}
