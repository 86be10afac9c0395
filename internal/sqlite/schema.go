package sqlite

import (
	"database/sql"
	"fmt"
)

// recordsTablePrefix prefixes every namespace table name.
const recordsTablePrefix = "records_"

// tableName returns the quoted table name for a namespace. Namespaces are
// validated before they reach here, so quoting is enough to allow '-'.
func tableName(namespace string) string {
	return `"` + recordsTablePrefix + namespace + `"`
}

// createTableDDL returns the CREATE TABLE statement for a namespace.
func createTableDDL(namespace string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    record_id TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    version INTEGER NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`, tableName(namespace))
}

// pragmas applied to every new database.
var pragmas = []string{
	"PRAGMA busy_timeout = 5000",
	"PRAGMA synchronous = NORMAL",
}

// createSchema applies pragmas and creates one table per namespace.
func createSchema(db *sql.DB, namespaces []string) error {
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("executing %q: %w", p, err)
		}
	}
	for _, ns := range namespaces {
		if _, err := db.Exec(createTableDDL(ns)); err != nil {
			return fmt.Errorf("creating table for namespace %s: %w", ns, err)
		}
	}
	return nil
}
