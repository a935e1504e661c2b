// Package sqlbase provides the base functionality for SQL backed record stores.
package sqlbase

import (
	"strconv"
	"strings"

	"github.com/dukex/flowdeck/pkg/recordstore"
)

// Dialect captures the differences between the supported SQL engines.
type Dialect struct {
	Name string

	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string

	// IDColumn is the column definition of the Id primary key.
	IDColumn string

	// Types maps column kinds to SQL types.
	Types map[recordstore.ColumnKind]string

	// NoLimit is the LIMIT value meaning unbounded, used when only an offset is given.
	NoLimit string

	// MigrationsTable creates the schema_migrations bookkeeping table.
	MigrationsTable string
}

// Postgres is the PostgreSQL dialect.
var Postgres = Dialect{
	Name: "postgres",
	Placeholder: func(n int) string {
		return "$" + strconv.Itoa(n)
	},
	IDColumn: `"Id" BIGSERIAL PRIMARY KEY`,
	Types: map[recordstore.ColumnKind]string{
		recordstore.KindText:    "TEXT",
		recordstore.KindInteger: "BIGINT",
		recordstore.KindBoolean: "BOOLEAN",
	},
	NoLimit: "ALL",
	MigrationsTable: `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
}

// SQLite is the SQLite dialect. An INTEGER PRIMARY KEY without AUTOINCREMENT
// hands out one more than the current maximum Id.
var SQLite = Dialect{
	Name: "sqlite",
	Placeholder: func(int) string {
		return "?"
	},
	IDColumn: `"Id" INTEGER PRIMARY KEY`,
	Types: map[recordstore.ColumnKind]string{
		recordstore.KindText:    "TEXT",
		recordstore.KindInteger: "INTEGER",
		recordstore.KindBoolean: "INTEGER",
	},
	NoLimit: "-1",
	MigrationsTable: `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
}

// Quote quotes an identifier.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
