// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/flowdeck/pkg/persistence"
	"github.com/dukex/flowdeck/pkg/persistence/memory"
	"github.com/dukex/flowdeck/pkg/persistence/records"
	"github.com/dukex/flowdeck/pkg/persistence/seed"
	"github.com/dukex/flowdeck/pkg/recordstore"
	"github.com/dukex/flowdeck/pkg/recordstore/file"
	"github.com/dukex/flowdeck/pkg/recordstore/postgresql"
	"github.com/dukex/flowdeck/pkg/recordstore/redis"
	"github.com/dukex/flowdeck/pkg/recordstore/remote"
	"github.com/dukex/flowdeck/pkg/recordstore/sqlite"
)

// ErrUnsupportedStore is returned for a store URL with an unknown scheme.
var ErrUnsupportedStore = errors.New("unsupported store")

// StoreConfig selects and configures the persistence back end.
type StoreConfig struct {
	// URL picks the back end by scheme: http(s), postgres, sqlite, redis, file or memory.
	URL string

	// ProjectID and PublicKey authenticate against the hosted record API.
	ProjectID string
	PublicKey string

	// Seed loads the bundled dataset into empty tables of a record store.
	Seed bool
}

// ParseStoreProvider returns the provider named by the URL scheme. An empty URL means memory.
func ParseStoreProvider(storeURL string) (string, error) {
	if storeURL == "" {
		return "memory", nil
	}

	scheme, _, found := strings.Cut(storeURL, "://")
	if !found {
		return "", fmt.Errorf("%w: %q has no scheme", ErrUnsupportedStore, storeURL)
	}

	switch scheme {
	case "http", "https":
		return "remote", nil
	case "postgres", "postgresql":
		return "postgresql", nil
	case "sqlite", "redis", "file", "memory":
		return scheme, nil
	case "rediss":
		return "redis", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedStore, scheme)
	}
}

func NewPersistence(ctx context.Context, logger *slog.Logger, cfg StoreConfig) (persistence.Persistence, error) {
	provider, err := ParseStoreProvider(cfg.URL)
	if err != nil {
		return nil, err
	}

	logger.Info("initializing persistence", "provider", provider)

	if provider == "memory" {
		return memory.NewPersistence()
	}

	client, err := newRecordStore(ctx, logger, provider, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Seed {
		dataset, err := seed.Default()
		if err != nil {
			_ = client.Close(ctx)

			return nil, err
		}

		err = seed.Load(ctx, logger, client, dataset)
		if err != nil {
			_ = client.Close(ctx)

			return nil, fmt.Errorf("failed to seed %s store: %w", provider, err)
		}
	}

	return records.NewPersistence(logger, client), nil
}

func newRecordStore(ctx context.Context, logger *slog.Logger, provider string, cfg StoreConfig) (recordstore.Client, error) {
	switch provider {
	case "remote":
		return remote.NewClient(logger, remote.Config{
			BaseURL:   cfg.URL,
			ProjectID: cfg.ProjectID,
			PublicKey: cfg.PublicKey,
		})
	case "postgresql":
		return postgresql.NewStore(ctx, logger, cfg.URL)
	case "sqlite":
		return sqlite.NewStore(ctx, logger, sqlite.ParsePath(cfg.URL))
	case "redis":
		return redis.NewStore(ctx, logger, cfg.URL)
	case "file":
		return file.NewStore(logger, strings.TrimPrefix(cfg.URL, "file://"))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedStore, provider)
	}
}
