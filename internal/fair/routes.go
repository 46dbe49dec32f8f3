package fair

import "github.com/gofiber/fiber/v2"

// RegisterRoutes exposes the audit surface: anyone holding a finished
// round's revealed inputs can recompute its result.
func RegisterRoutes(r fiber.Router, table Table) {

	r.Get("/fair/table", func(c *fiber.Ctx) error {
		entries := make([]fiber.Map, 0, len(table.Labels()))
		for _, label := range table.Labels() {
			entries = append(entries, fiber.Map{
				"label":      label,
				"multiplier": table.Multiplier(label),
			})
		}
		return c.JSON(fiber.Map{"outcomes": entries})
	})

	r.Post("/fair/verify", func(c *fiber.Ctx) error {

		type Req struct {
			ServerSeed string `json:"server_seed"`
			ClientSeed string `json:"client_seed"`
			Nonce      int    `json:"nonce"`
		}

		var body Req
		if err := c.BodyParser(&body); err != nil {
			return c.SendStatus(400)
		}

		if body.ServerSeed == "" {
			return c.Status(400).JSON(fiber.Map{"error": "server_seed required"})
		}

		outcome := ComputeOutcome(body.ServerSeed, body.ClientSeed, body.Nonce, table)

		return c.JSON(fiber.Map{
			"outcome":   outcome,
			"seed_hash": SeedHash(body.ServerSeed),
		})
	})
}
