package security

import (
	"github.com/gofiber/fiber/v2"

	"coinedge/internal/settlement"
)

// PlatformSignatureGuard authenticates platform-initiated requests: the
// X-Signature header must be the HMAC of the raw body under the shared
// secret, the same proof the pipeline attaches outbound.
func PlatformSignatureGuard(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !settlement.VerifySignature(secret, c.Body(), c.Get("X-Signature")) {
			return c.Status(401).JSON(fiber.Map{"error": "bad signature"})
		}
		return c.Next()
	}
}

func AdminGuard(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get("X-Admin-Token") != token {
			return c.Status(403).JSON(fiber.Map{"error": "forbidden"})
		}
		return c.Next()
	}
}
