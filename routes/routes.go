package routes

import (
	controller "shopdesk/controllers"
	"shopdesk/ingest"
	"shopdesk/middleware"
	"shopdesk/store"
	"shopdesk/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

// Dependencies are the process-wide collaborators the handlers share.
type Dependencies struct {
	Store         store.Store
	Pipeline      *ingest.Pipeline
	Notifications ingest.NotificationQueue
	// RateLimit is the number of customer webhook requests allowed per
	// client and minute.
	RateLimit        int
	RateLimitStorage fiber.Storage
}

func SetupWebhookRoutes(app *fiber.App, deps Dependencies) {
	orderController := controller.NewOrderWebhookController(deps.Store, deps.Pipeline)
	customerController := controller.NewCustomerWebhookController(deps.Store, deps.Notifications)

	accessLog := logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path} ${locals:requestID}\n",
	})

	// Shopify / WooCommerce order webhooks
	app.Post("/webhook/orders", accessLog, orderController.HandleOrderWebhook)

	// Generic customer webhook
	customers := app.Group("/webhooks/customer", accessLog)
	customers.Post("", middleware.WebhookRateLimiter(deps.RateLimit, deps.RateLimitStorage), customerController.HandleCustomerWebhook)
	customers.Get("", customerController.MethodNotAllowed)
	customers.Put("", customerController.MethodNotAllowed)
	customers.Delete("", customerController.MethodNotAllowed)
	customers.Patch("", customerController.MethodNotAllowed)

	utils.Logger("routes").Info("Webhook routes initialized successfully")
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	// Liveness
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Readiness checks the store
	app.Get("/ready", func(c *fiber.Ctx) error {
		if err := deps.Store.Ping(c.UserContext()); err != nil {
			utils.Logger("routes").WithError(err).Warn("Readiness check failed")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
			})
		}
		return c.JSON(fiber.Map{"status": "ready"})
	})

	SetupWebhookRoutes(app, deps)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
