package app

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"coinedge/internal/audit"
	"coinedge/internal/bets"
	"coinedge/internal/config"
	"coinedge/internal/db"
	"coinedge/internal/event"
	"coinedge/internal/fair"
	"coinedge/internal/jobs"
	"coinedge/internal/logger"
	"coinedge/internal/monitoring"
	"coinedge/internal/round"
	"coinedge/internal/scheduler"
	"coinedge/internal/security"
	"coinedge/internal/session"
	"coinedge/internal/settlement"
	"coinedge/internal/ws"
)

type Server struct {
	app  *fiber.App
	jobs *jobs.Manager
	cfg  *config.Config
}

// snapshotSource adapts the engine for the hub's resync payloads.
type snapshotSource struct {
	engine *round.Engine
}

func (s snapshotSource) Snapshot() interface{}      { return s.engine.Snapshot() }
func (s snapshotSource) RecentHistory() interface{} { return s.engine.History() }

func NewServer() *Server {
	cfg := config.Load()
	logger.Init()
	monitoring.Init()

	database := db.Init(cfg.AuditDBPath)
	auditor := audit.New(database)

	bus := event.NewBus()
	chain := fair.NewSeedChain(cfg.ChainLength)
	engine := round.NewEngine(chain, cfg.Table, bus, cfg.CurrencyPrecision, cfg.BettingDuration)

	pipeline := settlement.New(cfg.PlatformSecret, cfg.RetryAttempts, cfg.RetryBaseDelay, cfg.CallTimeout)
	sessions := session.NewDirectory(cfg.SessionTTL)

	var hub *ws.Hub
	coordinator := bets.NewCoordinator(engine, pipeline, sessions, auditor,
		notifierFunc(func(sessionID, eventType string, data interface{}) {
			hub.NotifySession(sessionID, eventType, data)
		}),
		cfg.BetMin, cfg.BetMax)
	hub = ws.NewHub(coordinator, snapshotSource{engine: engine}, sessions)

	round.RegisterConsumers(bus, hub)

	manager := jobs.New()
	manager.Register(
		scheduler.New(engine, coordinator, cfg.BettingDuration, cfg.RevealDuration, cfg.InterRoundDelay),
		session.NewSweeper(sessions, cfg.SweepInterval),
	)

	app := fiber.New()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	fair.RegisterRoutes(api, cfg.Table)
	round.RegisterRoutes(api, engine)

	platform := app.Group("/api", security.PlatformSignatureGuard(cfg.PlatformSecret))
	session.RegisterRoutes(platform, sessions, pipeline, cfg.PublicBase)

	admin := app.Group("/admin", security.AdminGuard(cfg.AdminToken))
	admin.Post("/fair/client-seed", func(c *fiber.Ctx) error {
		type Req struct {
			Seed string `json:"seed"`
		}
		var body Req
		if err := c.BodyParser(&body); err != nil || body.Seed == "" {
			return c.SendStatus(400)
		}
		chain.SetClientSeed(body.Seed)
		return c.JSON(chain.PublicData())
	})
	admin.Get("/settlements/pending", func(c *fiber.Ctx) error {
		return c.JSON(pipeline.Pending())
	})
	admin.Get("/fair/chain", func(c *fiber.Ctx) error {
		return c.JSON(chain.PublicData())
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/rounds", websocket.New(func(c *websocket.Conn) {
		hub.HandleReader(c)
	}))
	app.Get("/ws/bets", websocket.New(func(c *websocket.Conn) {
		hub.HandleBettor(c, c.Query("session"))
	}))

	return &Server{app: app, jobs: manager, cfg: cfg}
}

// Start runs the background jobs and the HTTP listener until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		s.jobs.Start(ctx)
	}()
	go func() {
		<-ctx.Done()
		s.app.Shutdown()
	}()
	return s.app.Listen(":" + s.cfg.Port)
}

type notifierFunc func(sessionID, eventType string, data interface{})

func (f notifierFunc) NotifySession(sessionID, eventType string, data interface{}) {
	f(sessionID, eventType, data)
}
