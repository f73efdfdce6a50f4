package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// CourierAuthMiddleware gates the courier status surface behind the shared
// API key exchanged with the carrier out-of-band. Requests passing this
// check are treated as authoritative for shipment-stage transitions.
func CourierAuthMiddleware(apiKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		supplied := c.Get("X-Courier-Key")
		if supplied == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(apiKey)) != 1 {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid courier credentials")
		}
		return c.Next()
	}
}
