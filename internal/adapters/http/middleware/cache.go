package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// NoStore marks responses that carry session tokens or account data as
// uncacheable. Headers are written after the handler so it cannot relax them.
func NoStore() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		c.Set(fiber.HeaderCacheControl, "no-store")
		c.Set(fiber.HeaderPragma, "no-cache")
		c.Set(fiber.HeaderExpires, "0")
		c.Vary(fiber.HeaderAuthorization)
		return err
	}
}
