package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopdesk/config"
)

func TestRequestIDGeneratesAndPropagates(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("requestID").(string))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get(RequestIDHeader), 36)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(DefaultCORSConfig([]string{"https://admin.shop.test"})))
	app.Post("/webhooks/customer", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })

	req := httptest.NewRequest("OPTIONS", "/webhooks/customer", nil)
	req.Header.Set("Origin", "https://admin.shop.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://admin.shop.test", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "3600", resp.Header.Get("Access-Control-Max-Age"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "X-Webhook-Secret")

	req = httptest.NewRequest("POST", "/webhooks/customer", nil)
	req.Header.Set("Origin", "https://evil.test")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRateLimitStorageDisabled(t *testing.T) {
	assert.Nil(t, RateLimitStorage(config.RedisConfig{Enabled: false}))
}
