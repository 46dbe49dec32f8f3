package round

import "github.com/gofiber/fiber/v2"

// RegisterRoutes serves the resync surface: clients joining mid-round pull
// the current snapshot instead of replaying broadcast history.
func RegisterRoutes(r fiber.Router, engine *Engine) {

	r.Get("/round/current", func(c *fiber.Ctx) error {
		return c.JSON(engine.Snapshot())
	})

	r.Get("/round/history", func(c *fiber.Ctx) error {
		return c.JSON(engine.History())
	})
}
