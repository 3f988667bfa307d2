package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skillhub/flowcore/pkg/cmd"
	"github.com/skillhub/flowcore/pkg/log"
	"github.com/skillhub/flowcore/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort = 9091
	serviceName = "flowcore-api"
)

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  serviceName,
		Usage:                 "Edit workflow graphs and track their executions",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Persistence URL (file path, postgres:// or redis://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.DurationFlag{
				Name:    "scheduler-interval",
				Usage:   "How often due schedules are checked (0 disables the scheduler)",
				Value:   time.Minute,
				Sources: cli.EnvVars("SCHEDULER_INTERVAL"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing flowcore API")

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			tracer, shutdownTracer, err := otelhelper.NewTracer(ctx, serviceName, command.Bool("otel-enabled"))
			if err != nil {
				return err
			}

			defer func() {
				if err := shutdownTracer(context.Background()); err != nil {
					logger.ErrorContext(ctx, "Failed to shut down tracer", "error", err)
				}
			}()

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(context.Background()); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(cmd.EventBusConfig{
				Provider:     command.String("event-bus"),
				KafkaBrokers: command.String("kafka-brokers"),
				ServiceName:  serviceName,
				OTELEnabled:  command.Bool("otel-enabled"),
			}, logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			api := NewAPI(logger, persistence, eventBus, tracer)

			return api.Start(ctx, int(command.Int("port")), command.Duration("scheduler-interval"))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		logger.Error("flowcore API stopped", "error", err)
		os.Exit(1)
	}
}
