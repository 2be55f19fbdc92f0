package main

import (
	"context"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/chalique/botflow/pkg/cmd"
	"github.com/chalique/botflow/pkg/gateway"
	"github.com/chalique/botflow/pkg/log"
	"github.com/chalique/botflow/pkg/moderation"
	"github.com/chalique/botflow/pkg/otelhelper"
	"github.com/chalique/botflow/pkg/retention"
)

const (
	defaultPort        = 9091
	defaultTelegramAPI = "https://api.telegram.org"
	defaultRetention   = 720 * time.Hour
	serviceName        = "botflow-api"
)

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "botflow-api",
		Usage:                 "Manage bots and conversation flows, and serve messaging webhooks",
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
				Usage:    "Storage root URL for flows and bots (file://...)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "sessions-url",
				Usage:   "Redis URL for session storage; empty keeps sessions on the database store",
				Sources: cli.EnvVars("SESSIONS_URL"),
			},
			&cli.StringFlag{
				Name:    "telegram-api-url",
				Usage:   "Base URL of the Telegram Bot API",
				Value:   defaultTelegramAPI,
				Sources: cli.EnvVars("TELEGRAM_API_URL"),
			},
			&cli.StringFlag{
				Name:    "moderation-url",
				Usage:   "Toxicity scoring service URL; empty disables moderation",
				Sources: cli.EnvVars("MODERATION_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.DurationFlag{
				Name:    "session-retention",
				Usage:   "Remove sessions idle for longer than this window",
				Value:   defaultRetention,
				Sources: cli.EnvVars("SESSION_RETENTION"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing for conversation turns",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Botflow API")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			persistence = cmd.WithSessionStore(ctx, persistence, command.String("sessions-url"), logger)

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			var gate *moderation.Gate
			if url := command.String("moderation-url"); url != "" {
				gate = moderation.NewGate(moderation.NewHTTPClient(url), logger)
			}

			var tracer trace.Tracer
			if command.Bool("tracing") {
				var err error

				tracer, err = otelhelper.NewTracer(ctx, serviceName)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to initialize tracer, continuing without tracing", "error", err)
				}
			}

			sweeper, err := retention.NewSweeper(
				persistence.Sessions(),
				command.Duration("session-retention"),
				"",
				logger,
			)
			if err != nil {
				return err
			}

			if err := sweeper.Start(ctx); err != nil {
				return err
			}
			defer sweeper.Stop()

			api := NewAPI(
				logger,
				persistence,
				eventBus,
				gateway.NewTelegram(command.String("telegram-api-url"), logger),
				gate,
				tracer,
			)
			defer api.Shutdown()

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
