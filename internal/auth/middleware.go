package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const identityLocal = "auth.identity"

// OptionalMiddleware decodes a Bearer token when one is present and
// stores the identity in the request locals. A missing or invalid
// token leaves the request anonymous; routes that require auth check
// via Require.
func OptionalMiddleware(d *Decoder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			if id, err := d.Decode(strings.TrimSpace(token)); err == nil {
				c.Locals(identityLocal, id)
			}
		}
		return c.Next()
	}
}

// FromContext returns the authenticated identity, if any.
func FromContext(c *fiber.Ctx) (Identity, bool) {
	id, ok := c.Locals(identityLocal).(Identity)
	return id, ok
}
