package rayid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// New assigns a unique request id to every request. The id is stored in the
// request locals under "ray_id" and echoed in the X-Ray-ID response header.
// An id supplied by the client in X-Ray-ID is reused so traces can span
// services.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := c.Get("X-Ray-ID")
		if rid == "" {
			rid = uuid.NewString()
		}

		c.Locals("ray_id", rid)
		c.Set("X-Ray-ID", rid)

		return c.Next()
	}
}
