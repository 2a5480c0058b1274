package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CORSConfig defines the config for CORS middleware
type CORSConfig struct {
	// AllowedOrigins is a list of origins a cross-domain request can be executed from.
	// Empty allows any origin.
	AllowedOrigins []string

	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string

	// MaxAge indicates how long (in seconds) the results of a preflight request can be cached
	MaxAge int
}

// DefaultCORSConfig returns the config for the webhook endpoints. Webhooks
// carry no cookies, so credentials are never allowed.
func DefaultCORSConfig(origins []string) CORSConfig {
	return CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Origin", "Content-Type", "Accept", RequestIDHeader,
			"X-Webhook-Secret", "Webhook-Secret",
			"X-Shopify-Hmac-Sha256", "X-WC-Webhook-Signature",
		},
		ExposedHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:         3600,
	}
}

// CORS creates a new CORS middleware handler
func CORS(cfg CORSConfig) fiber.Handler {
	allowedOrigins := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	allowedMethods := strings.Join(cfg.AllowedMethods, ",")
	allowedHeaders := strings.Join(cfg.AllowedHeaders, ",")
	exposedHeaders := strings.Join(cfg.ExposedHeaders, ",")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)

		if len(allowedOrigins) > 0 {
			if _, ok := allowedOrigins[origin]; ok {
				c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
				c.Vary(fiber.HeaderOrigin)
			}
		} else {
			c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		}

		c.Set(fiber.HeaderAccessControlExposeHeaders, exposedHeaders)

		// Preflight
		if c.Method() == fiber.MethodOptions && c.Get(fiber.HeaderAccessControlRequestMethod) != "" {
			c.Set(fiber.HeaderAccessControlAllowMethods, allowedMethods)
			c.Set(fiber.HeaderAccessControlAllowHeaders, allowedHeaders)
			c.Set(fiber.HeaderAccessControlMaxAge, maxAge)
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}
