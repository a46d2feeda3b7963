package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"leadnexus/config"
)

// AdminAuth guards operator endpoints with the shared admin token. The
// comparison is constant-time so the token cannot be probed byte by byte.
func AdminAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		expected := config.AppConfig.AdminAPIToken
		if expected == "" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Admin API is not configured",
			})
		}

		token := c.Get("X-Admin-Token")
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid admin credential",
			})
		}
		return c.Next()
	}
}
