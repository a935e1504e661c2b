package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	loadEnvFile(os.Args[1:])

	cmd := &cli.Command{
		Name:                  "flowdeck-api",
		Usage:                 "Serve the workflow automation API",
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
				Name:    "store-url",
				Usage:   "Record store URL: http(s)://, postgres://, sqlite://, redis://, file:// or memory://",
				Value:   "memory://",
				Sources: cli.EnvVars("STORE_URL"),
			},
			&cli.StringFlag{
				Name:    "project-id",
				Usage:   "Project id of the hosted record API",
				Sources: cli.EnvVars("RECORD_API_PROJECT_ID"),
			},
			&cli.StringFlag{
				Name:    "public-key",
				Usage:   "Public key of the hosted record API",
				Sources: cli.EnvVars("RECORD_API_PUBLIC_KEY"),
			},
			&cli.BoolFlag{
				Name:    "seed",
				Usage:   "Load the bundled catalog and sample history into empty tables",
				Sources: cli.EnvVars("SEED"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (none, gochannel, kafka)",
				Value:   "none",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka broker addresses",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.StringFlag{
				Name:  envFileFlag,
				Usage: "Dotenv file read before flags are resolved",
				Value: defaultEnvFile,
			},
		},
		Action: runAPI,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
