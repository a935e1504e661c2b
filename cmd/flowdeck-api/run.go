package main

import (
	"context"
	"fmt"

	"github.com/dukex/flowdeck/pkg/channels/kafka"
	"github.com/dukex/flowdeck/pkg/cmd"
	"github.com/dukex/flowdeck/pkg/eventbus"
	"github.com/dukex/flowdeck/pkg/log"
	"github.com/dukex/flowdeck/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
)

func runAPI(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"), command.String("log-format"))

	logger := log.WithModule("api")

	logger.InfoContext(ctx, "Initializing Flowdeck API")

	if command.Bool("tracing") {
		tracerProvider, err := otelhelper.NewTracerProvider(ctx, "flowdeck-api")
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		defer func() {
			if err := tracerProvider.Shutdown(context.Background()); err != nil {
				logger.Error("Failed to shutdown tracer provider", "error", err)
			}
		}()
	}

	persistence, err := cmd.NewPersistence(ctx, logger, cmd.StoreConfig{
		URL:       command.String("store-url"),
		ProjectID: command.String("project-id"),
		PublicKey: command.String("public-key"),
		Seed:      command.Bool("seed"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}

	defer func() {
		if err := persistence.Close(context.Background()); err != nil {
			logger.Error("Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), kafka.ParseBrokers(command.String("kafka-brokers")), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize event bus: %w", err)
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.Error("Failed to close event bus", "error", err)
		}
	}()

	if _, disabled := eventBus.(eventbus.Noop); !disabled {
		err = eventbus.RegisterAudit(eventBus, logger)
		if err != nil {
			return fmt.Errorf("failed to register audit handlers: %w", err)
		}

		err = eventBus.Subscribe(ctx)
		if err != nil {
			return fmt.Errorf("failed to subscribe to workflow events: %w", err)
		}
	}

	api := NewAPI(logger, persistence, eventBus)

	return api.Start(command.Int("port"))
}
