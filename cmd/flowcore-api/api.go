// Package main provides the flowcore API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/skillhub/flowcore/pkg/eventbus"
	"github.com/skillhub/flowcore/pkg/execution"
	"github.com/skillhub/flowcore/pkg/persistence"
	"github.com/skillhub/flowcore/pkg/scheduler"
	"github.com/skillhub/flowcore/pkg/services"
	"github.com/skillhub/flowcore/pkg/web"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	workflows   *services.Workflow
	executions  *services.Execution
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
) *API {
	hub := execution.NewHub(logger)

	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		workflows:   services.NewWorkflow(persistence, eventBus, tracer, logger),
		executions:  services.NewExecution(persistence, services.NewEventRunner(eventBus), hub, tracer, logger),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.workflows, a.executions, a.validate)

	app := fiber.New(fiber.Config{Immutable: true})
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("flowcore API")
	})

	handlers.Register(app)

	return app
}

// Start subscribes to backend progress reports, runs the scheduler when schedulerInterval is
// positive and serves HTTP until ctx is done.
func (a *API) Start(ctx context.Context, port int, schedulerInterval time.Duration) error {
	if err := a.executions.RegisterHandlers(a.eventBus); err != nil {
		return fmt.Errorf("failed to register progress handlers: %w", err)
	}

	if err := a.eventBus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}

	if schedulerInterval > 0 {
		s := scheduler.New(a.persistence, a.executions, a.logger, scheduler.WithInterval(schedulerInterval))
		s.Start(ctx)

		defer s.Stop()
	}

	app := a.App()

	go func() {
		<-ctx.Done()

		if err := app.Shutdown(); err != nil {
			a.logger.Error("Failed to shut down HTTP server", "error", err)
		}
	}()

	return app.Listen(":" + strconv.Itoa(port))
}
