// Package main provides the Botflow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/chalique/botflow/pkg/conversation"
	"github.com/chalique/botflow/pkg/eventbus"
	"github.com/chalique/botflow/pkg/flow"
	"github.com/chalique/botflow/pkg/gateway"
	"github.com/chalique/botflow/pkg/moderation"
	"github.com/chalique/botflow/pkg/persistence"
	"github.com/chalique/botflow/pkg/services"
	"github.com/chalique/botflow/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	gateway     gateway.Gateway
	gate        *moderation.Gate
	tracer      trace.Tracer
	validate    *validator.Validate
	engine      *flow.Engine
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	gateway gateway.Gateway,
	gate *moderation.Gate,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		gateway:     gateway,
		gate:        gate,
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	flowService := services.NewFlow(a.persistence)
	botService := services.NewBot(a.persistence)

	a.engine = flow.NewEngine(a.persistence, a.gateway, a.gate, a.logger).
		WithPublisher(a.eventBus)
	driver := conversation.NewDriver(a.persistence, a.engine, a.eventBus, a.logger).
		WithTracer(a.tracer)

	handlers := web.NewAPIHandlers(flowService, botService, driver, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Botflow API")
	})

	b := app.Group("/bots")
	b.Get("/", handlers.GetBots)
	b.Post("/", handlers.CreateBot)
	b.Get("/:botId", handlers.GetBot)
	b.Patch("/:botId", handlers.UpdateBot)
	b.Delete("/:botId", handlers.DeleteBot)

	f := b.Group("/:botId/flows")
	f.Get("/", handlers.GetFlows)
	f.Post("/", handlers.CreateFlow)
	f.Post("/:flowId/default", handlers.SetDefaultFlow)

	app.Get("/flows/:flowId", handlers.GetFlow)
	app.Put("/flows/:flowId", handlers.UpdateFlow)
	app.Patch("/flows/:flowId", handlers.PatchFlow)
	app.Delete("/flows/:flowId", handlers.DeleteFlow)

	app.Post("/telegram/webhook/:token", handlers.TelegramWebhook)

	app.Get("/health", handlers.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}

func (a *API) Shutdown() {
	if a.engine != nil {
		a.engine.Close()
	}
}
