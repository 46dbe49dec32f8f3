package session

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"coinedge/internal/logger"
	"coinedge/internal/settlement"
)

// Balancer queries the platform for a player's funds; the settlement
// pipeline implements it.
type Balancer interface {
	Balance(ctx context.Context, t settlement.Target) settlement.Result
}

// RegisterRoutes handles platform-initiated session bootstrap. Signature
// verification happens in the guard in front of this route; the handler
// trusts its input.
func RegisterRoutes(r fiber.Router, dir *Directory, balancer Balancer, publicBase string) {

	r.Post("/session/init", func(c *fiber.Ctx) error {

		type Req struct {
			PlayerID    string `json:"player_id"`
			Currency    string `json:"currency"`
			Token       string `json:"token"`
			Timestamp   int64  `json:"timestamp"`
			CallbackURL string `json:"callback_url"`
		}

		var body Req
		if err := c.BodyParser(&body); err != nil {
			return c.SendStatus(400)
		}
		if body.PlayerID == "" || body.Currency == "" || body.CallbackURL == "" {
			return c.Status(400).JSON(fiber.Map{"error": "player_id, currency and callback_url required"})
		}

		s := dir.Create(body.PlayerID, body.Currency, body.CallbackURL)

		// Best effort: a failed balance query leaves the cache at zero
		// until the first debit refreshes it.
		if res := balancer.Balance(c.Context(), settlement.Target{
			BaseURL:  s.CallbackURL,
			PlayerID: s.PlayerID,
			Currency: s.Currency,
		}); res.OK() {
			dir.SetBalance(s.ID, res.NewBalance)
		}

		logger.Log.Info("session created",
			zap.String("session_id", s.ID),
			zap.String("player_id", s.PlayerID))

		return c.JSON(fiber.Map{
			"session_id": s.ID,
			"rounds_url": publicBase + "/ws/rounds",
			"bets_url":   publicBase + "/ws/bets?session=" + s.ID,
		})
	})

	r.Post("/session/invalidate", func(c *fiber.Ctx) error {

		type Req struct {
			SessionID string `json:"session_id"`
		}

		var body Req
		if err := c.BodyParser(&body); err != nil {
			return c.SendStatus(400)
		}
		if body.SessionID == "" {
			return c.Status(400).JSON(fiber.Map{"error": "session_id required"})
		}

		dir.Invalidate(body.SessionID)

		logger.Log.Info("session invalidated by platform",
			zap.String("session_id", body.SessionID))

		return c.JSON(fiber.Map{"status": "OK"})
	})
}
