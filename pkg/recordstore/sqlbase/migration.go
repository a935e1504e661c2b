package sqlbase

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dukex/flowdeck/pkg/recordstore"
)

// MigrationManager handles database schema migrations.
type MigrationManager struct {
	db         *sql.DB
	dialect    Dialect
	logger     *slog.Logger
	migrations map[int][]string
}

// NewMigrationManager creates a new migration manager. Each version holds the
// statements applied together in one transaction.
func NewMigrationManager(logger *slog.Logger, db *sql.DB, dialect Dialect, migrations map[int][]string) *MigrationManager {
	return &MigrationManager{
		db:         db,
		dialect:    dialect,
		logger:     logger,
		migrations: migrations,
	}
}

// RunMigrations applies every migration newer than the recorded schema version, in version order.
func (m *MigrationManager) RunMigrations(ctx context.Context) error {
	m.logger.InfoContext(ctx, "Starting database migrations", "dialect", m.dialect.Name)

	err := m.createMigrationsTable(ctx)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := m.CurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	m.logger.InfoContext(ctx, "Current schema version", "version", currentVersion)

	latest, err := m.applyMigrations(ctx, currentVersion)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	m.logger.InfoContext(ctx, "Database migrations completed", "version", latest)

	return nil
}

func (m *MigrationManager) createMigrationsTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, m.dialect.MigrationsTable)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	return nil
}

// CurrentVersion returns the highest applied migration version, or 0.
func (m *MigrationManager) CurrentVersion(ctx context.Context) (int, error) {
	var version int

	err := m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to query current schema version: %w", err)
	}

	return version, nil
}

func (m *MigrationManager) applyMigrations(ctx context.Context, fromVersion int) (int, error) {
	versions := make([]int, 0, len(m.migrations))
	for version := range m.migrations {
		versions = append(versions, version)
	}

	slices.Sort(versions)

	latest := fromVersion

	for _, version := range versions {
		if version <= fromVersion {
			continue
		}

		m.logger.InfoContext(ctx, "Applying migration", "version", version)

		err := m.applyMigration(ctx, version, m.migrations[version])
		if err != nil {
			return latest, err
		}

		latest = version

		m.logger.InfoContext(ctx, "Migration applied successfully", "version", version)
	}

	return latest, nil
}

func (m *MigrationManager) applyMigration(ctx context.Context, version int, statements []string) error {
	transaction, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %d: %w", version, err)
	}

	for _, statement := range statements {
		_, err = transaction.ExecContext(ctx, statement)
		if err != nil {
			_ = transaction.Rollback()

			return fmt.Errorf("failed to execute migration %d: %w", version, err)
		}
	}

	_, err = transaction.ExecContext(ctx,
		"INSERT INTO schema_migrations (version) VALUES ("+m.dialect.Placeholder(1)+")", version)
	if err != nil {
		_ = transaction.Rollback()

		return fmt.Errorf("failed to record migration %d: %w", version, err)
	}

	err = transaction.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", version, err)
	}

	return nil
}

// Migrations returns the schema history of the record tables for a dialect.
func Migrations(dialect Dialect) map[int][]string {
	tables := make([]string, 0, len(recordstore.Tables))
	for _, table := range recordstore.Tables {
		tables = append(tables, CreateTableStatement(dialect, table))
	}

	return map[int][]string{
		1: tables,
		2: {
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_execution_log_workflow ON %s (%s)",
				Quote(recordstore.TableExecutionLog), Quote(recordstore.ColWorkflowID)),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_execution_log_timestamp ON %s (%s)",
				Quote(recordstore.TableExecutionLog), Quote(recordstore.ColTimestamp)),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_template_category ON %s (%s)",
				Quote(recordstore.TableTemplate), Quote(recordstore.ColCategory)),
		},
	}
}

// CreateTableStatement renders the CREATE TABLE statement of a table.
func CreateTableStatement(dialect Dialect, table recordstore.Table) string {
	columns := make([]string, 0, len(table.Columns)+1)
	columns = append(columns, dialect.IDColumn)

	for _, column := range table.Columns {
		columns = append(columns, Quote(column.Name)+" "+dialect.Types[column.Kind])
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", Quote(table.Name), strings.Join(columns, ",\n\t"))
}
