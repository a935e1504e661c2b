// Package main provides the Flowdeck API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/flowdeck/pkg/eventbus"
	"github.com/dukex/flowdeck/pkg/persistence"
	"github.com/dukex/flowdeck/pkg/services"
	"github.com/dukex/flowdeck/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		persistence: persistence,
		logger:      logger,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	workflowService := services.NewWorkflow(a.persistence, a.eventBus, a.logger)
	catalogService := services.NewCatalog(a.persistence, workflowService, a.logger)
	activityService := services.NewActivity(a.persistence)

	handlers := web.NewAPIHandlers(workflowService, catalogService, activityService, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			_, ok := workflowService.HealthCheck(c.Context())

			return ok
		},
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowdeck API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	a.logger.Info("Starting API server", "port", port)

	return app.Listen(":" + strconv.Itoa(port))
}
