package main

import (
	"log"
	"os"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"coinedge/internal/settlement"
)

// Stand-in for the platform's ledger authority: verifies signatures, holds
// balances in memory, dedupes by request id. For local runs and demos only.

type ledger struct {
	mu       sync.Mutex
	balances map[string]float64
	seen     map[string]settlement.Result
}

type callbackReq struct {
	RequestID    string  `json:"request_id"`
	PlayerID     string  `json:"player_id"`
	Currency     string  `json:"currency"`
	Amount       float64 `json:"amount"`
	WinAmount    float64 `json:"win_amount"`
	RoundID      string  `json:"round_id"`
	OriginalTxID string  `json:"original_tx_id"`
	Reason       string  `json:"reason"`
}

func main() {
	secret := os.Getenv("PLATFORM_SECRET")
	if secret == "" {
		log.Fatal("PLATFORM_SECRET required")
	}

	l := &ledger{
		balances: make(map[string]float64),
		seen:     make(map[string]settlement.Result),
	}

	app := fiber.New()

	verify := func(c *fiber.Ctx) error {
		if !settlement.VerifySignature(secret, c.Body(), c.Get("X-Signature")) {
			return c.Status(401).JSON(settlement.Result{
				Status: settlement.StatusError, Code: "BAD_SIGNATURE", Message: "signature mismatch",
			})
		}
		return c.Next()
	}
	app.Use(verify)

	app.Post("/debit", func(c *fiber.Ctx) error {
		var req callbackReq
		if err := c.BodyParser(&req); err != nil {
			return c.SendStatus(400)
		}

		l.mu.Lock()
		defer l.mu.Unlock()

		if res, ok := l.seen[req.RequestID]; ok {
			return c.JSON(res)
		}

		if l.balances[req.PlayerID] < req.Amount {
			res := settlement.Result{
				Status: settlement.StatusError, Code: "INSUFFICIENT_FUNDS", Message: "balance too low",
			}
			l.seen[req.RequestID] = res
			return c.JSON(res)
		}

		l.balances[req.PlayerID] -= req.Amount
		res := settlement.Result{
			Status:        settlement.StatusOK,
			TransactionID: uuid.New().String(),
			NewBalance:    l.balances[req.PlayerID],
		}
		l.seen[req.RequestID] = res
		return c.JSON(res)
	})

	credit := func(c *fiber.Ctx, amountOf func(callbackReq) float64) error {
		var req callbackReq
		if err := c.BodyParser(&req); err != nil {
			return c.SendStatus(400)
		}

		l.mu.Lock()
		defer l.mu.Unlock()

		if res, ok := l.seen[req.RequestID]; ok {
			return c.JSON(res)
		}

		l.balances[req.PlayerID] += amountOf(req)
		res := settlement.Result{
			Status:        settlement.StatusOK,
			TransactionID: uuid.New().String(),
			NewBalance:    l.balances[req.PlayerID],
		}
		l.seen[req.RequestID] = res
		return c.JSON(res)
	}

	app.Post("/credit", func(c *fiber.Ctx) error {
		return credit(c, func(r callbackReq) float64 { return r.WinAmount })
	})
	app.Post("/refund", func(c *fiber.Ctx) error {
		return credit(c, func(r callbackReq) float64 { return r.Amount })
	})

	app.Post("/balance", func(c *fiber.Ctx) error {
		var req callbackReq
		if err := c.BodyParser(&req); err != nil {
			return c.SendStatus(400)
		}

		l.mu.Lock()
		defer l.mu.Unlock()

		return c.JSON(settlement.Result{
			Status:     settlement.StatusOK,
			NewBalance: l.balances[req.PlayerID],
		})
	})

	// Seed an account for manual testing.
	app.Post("/topup", func(c *fiber.Ctx) error {
		var req callbackReq
		if err := c.BodyParser(&req); err != nil {
			return c.SendStatus(400)
		}

		l.mu.Lock()
		defer l.mu.Unlock()

		l.balances[req.PlayerID] += req.Amount
		return c.JSON(fiber.Map{"balance": l.balances[req.PlayerID]})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}
	log.Fatal(app.Listen(":" + port))
}
