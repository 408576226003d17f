// Package dialect hides the SQL differences between the supported databases.
package dialect

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Dialect describes one supported database: its database/sql driver, bind
// variable style, column types and connection setup.
type Dialect struct {
	name          string
	driver        string
	bindType      int
	timestampType string
	blobType      string
	pragmas       []string
}

var (
	// SQLite uses modernc.org/sqlite.
	SQLite = &Dialect{
		name:          "sqlite",
		driver:        "sqlite",
		bindType:      sqlx.QUESTION,
		timestampType: "TIMESTAMP",
		blobType:      "BLOB",
		pragmas: []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA synchronous=NORMAL",
			"PRAGMA busy_timeout=5000",
		},
	}

	// Postgres uses the pgx stdlib driver.
	Postgres = &Dialect{
		name:          "postgres",
		driver:        "pgx",
		bindType:      sqlx.DOLLAR,
		timestampType: "TIMESTAMPTZ",
		blobType:      "BYTEA",
	}
)

// FromDriverName returns the dialect for a driver or database name.
func FromDriverName(driverName string) (*Dialect, error) {
	switch strings.ToLower(driverName) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driverName)
	}
}

// Name returns "sqlite" or "postgres".
func (d *Dialect) Name() string { return d.name }

// DriverName returns the database/sql driver name to open.
func (d *Dialect) DriverName() string { return d.driver }

// TimestampType returns the column type for timestamps.
func (d *Dialect) TimestampType() string { return d.timestampType }

// BlobType returns the column type for raw bytes.
func (d *Dialect) BlobType() string { return d.blobType }

// Rebind converts ? placeholders to the dialect's bind style.
func (d *Dialect) Rebind(query string) string {
	return sqlx.Rebind(d.bindType, query)
}

// UpsertClause returns an ON CONFLICT clause that overwrites updateColumns,
// or ignores the row when there are none.
func (d *Dialect) UpsertClause(conflictColumn string, updateColumns []string) string {
	if len(updateColumns) == 0 {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", conflictColumn)
	}
	updates := make([]string, len(updateColumns))
	for i, col := range updateColumns {
		updates[i] = fmt.Sprintf("%s = excluded.%s", col, col)
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", conflictColumn, strings.Join(updates, ", "))
}

// PragmaStatements returns statements run once after opening a connection
// pool.
func (d *Dialect) PragmaStatements() []string {
	return append([]string(nil), d.pragmas...)
}
