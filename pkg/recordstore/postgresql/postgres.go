// Package postgresql provides a PostgreSQL record store.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/flowdeck/pkg/recordstore/sqlbase"
	_ "github.com/lib/pq"
)

// Store is a recordstore.Client backed by PostgreSQL.
type Store struct {
	*sqlbase.Store
}

// NewStore connects to the database and runs pending migrations.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (*Store, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, sqlbase.Postgres, sqlbase.Migrations(sqlbase.Postgres))

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{Store: sqlbase.NewStore(database, sqlbase.Postgres, logger)}, nil
}
