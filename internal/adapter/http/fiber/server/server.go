package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/seu-repo/talkinator/internal/adapter/http/fiber/handlers"
	"github.com/seu-repo/talkinator/internal/adapter/http/fiber/middleware"
	wsAdapter "github.com/seu-repo/talkinator/internal/adapter/websocket"
	"github.com/seu-repo/talkinator/internal/ports"
	"github.com/seu-repo/talkinator/internal/service/health"
	"github.com/seu-repo/talkinator/pkg/config"
)

// Deps are the services behind the admin API
type Deps struct {
	Config  config.Config
	Health  *health.Service
	Monitor handlers.CallMonitor
	History ports.CallHistory

	// Hub is optional; without it /ws/calls is not served
	Hub *wsAdapter.Hub
}

// NewApp builds the admin HTTP application
func NewApp(deps Deps, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               deps.Config.App.Name,
		ServerHeader:          deps.Config.App.Name,
		DisableStartupMessage: true,
		ReadTimeout:           deps.Config.HTTP.ReadTimeout,
		WriteTimeout:          deps.Config.HTTP.WriteTimeout,
		IdleTimeout:           deps.Config.HTTP.IdleTimeout,
		ErrorHandler:          middleware.ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(middleware.NewCORS(deps.Config.CORS))

	health.NewFiberHandler(deps.Health).RegisterRoutes(app)

	// Metrics endpoint for Prometheus
	metrics := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		metrics(c.Context())
		return nil
	})

	v1 := app.Group("/api/v1")
	calls := handlers.NewCallHandler(deps.Monitor, deps.History, log)
	v1.Get("/calls/active", calls.Active)
	v1.Get("/calls/:id", calls.Get)

	if deps.Hub != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws/calls", websocket.New(deps.Hub.Serve))
	}

	return app
}
