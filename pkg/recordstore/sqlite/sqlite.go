// Package sqlite provides a SQLite record store for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/flowdeck/pkg/recordstore/sqlbase"
	_ "modernc.org/sqlite"
)

// Store is a recordstore.Client backed by a SQLite database file.
type Store struct {
	*sqlbase.Store
}

// NewStore opens (creating if needed) the database at path and migrates it.
// The path may carry a sqlite:// prefix.
func NewStore(ctx context.Context, logger *slog.Logger, path string) (*Store, error) {
	dsn := ParsePath(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	database, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	database.SetMaxOpenConns(1)
	database.SetConnMaxLifetime(time.Hour)

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, sqlbase.SQLite, sqlbase.Migrations(sqlbase.SQLite))

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{Store: sqlbase.NewStore(database, sqlbase.SQLite, logger)}, nil
}

// ParsePath strips the sqlite:// scheme from a store URL.
func ParsePath(url string) string {
	return strings.TrimPrefix(url, "sqlite://")
}
