package routes

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopdesk/ingest"
	"shopdesk/store"
	"shopdesk/utils"
)

func newTestApp(rateLimit int) *fiber.App {
	s := store.NewMemoryStore()
	app := fiber.New(fiber.Config{ErrorHandler: utils.FiberErrorHandler})
	SetupRoutes(app, Dependencies{
		Store:     s,
		Pipeline:  ingest.NewPipeline(s, nil),
		RateLimit: rateLimit,
	})
	return app
}

func status(t *testing.T, app *fiber.App, method, target, body string) int {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestHealthAndReady(t *testing.T) {
	app := newTestApp(10)
	assert.Equal(t, fiber.StatusOK, status(t, app, "GET", "/health", ""))
	assert.Equal(t, fiber.StatusOK, status(t, app, "GET", "/ready", ""))
}

func TestUnknownRouteReturns404(t *testing.T) {
	app := newTestApp(10)
	assert.Equal(t, fiber.StatusNotFound, status(t, app, "GET", "/api/v1/orders", ""))
}

func TestCustomerWebhookMethods(t *testing.T) {
	app := newTestApp(10)
	for _, method := range []string{"GET", "PUT", "DELETE", "PATCH"} {
		assert.Equal(t, fiber.StatusMethodNotAllowed, status(t, app, method, "/webhooks/customer", ""), method)
	}
	// No secret header.
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "POST", "/webhooks/customer", `{"name":"A","email":"a@x.com"}`))
}

func TestCustomerWebhookIsRateLimited(t *testing.T) {
	app := newTestApp(2)
	body := `{"name":"A","email":"a@x.com"}`

	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "POST", "/webhooks/customer", body))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "POST", "/webhooks/customer", body))
	assert.Equal(t, fiber.StatusTooManyRequests, status(t, app, "POST", "/webhooks/customer", body))

	// Order webhooks are signed and not limited.
	assert.Equal(t, fiber.StatusBadRequest, status(t, app, "POST", "/webhook/orders", body))
}
