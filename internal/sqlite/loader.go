package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mesh-intelligence/mirrors/pkg/types"
)

// loadAllJSONL reads each namespace's JSONL file and inserts its records
// into the namespace table. Loading is transactional: all namespaces load or
// none do. Malformed lines and records are skipped; when an ID appears more
// than once the last line wins. Unknown fields are ignored.
func loadAllJSONL(db *sql.DB, dataDir string, namespaces []string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, ns := range namespaces {
		lines, err := readJSONL(jsonlPath(dataDir, ns))
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			continue
		}
		if err := insertRecords(tx, ns, lines, now); err != nil {
			return fmt.Errorf("loading namespace %s: %w", ns, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

// insertRecords inserts parsed JSONL lines into a namespace table.
// Missing timestamps fall back to now and a missing version to 1.
func insertRecords(tx *sql.Tx, namespace string, lines []json.RawMessage, now string) error {
	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (record_id, value, version, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		tableName(namespace)))
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, line := range lines {
		rj, value, ok := decodeLine(line)
		if !ok {
			continue
		}
		if rj.Version < 1 {
			rj.Version = 1
		}
		if rj.CreatedAt == "" {
			rj.CreatedAt = now
		}
		if rj.UpdatedAt == "" {
			rj.UpdatedAt = rj.CreatedAt
		}
		if _, err := stmt.Exec(rj.ID, value, rj.Version, rj.CreatedAt, rj.UpdatedAt); err != nil {
			return fmt.Errorf("inserting %s: %w", rj.ID, err)
		}
	}
	return nil
}

// decodeLine parses one JSONL line and returns the record with its value
// re-encoded as a JSON object. Lines without a valid ID or with a value
// that is not an object are rejected.
func decodeLine(line json.RawMessage) (recordJSON, string, bool) {
	var rj recordJSON
	if err := json.Unmarshal(line, &rj); err != nil {
		return rj, "", false
	}
	if rj.ID == "" {
		return rj, "", false
	}
	var value types.Value
	if len(rj.Value) > 0 {
		if err := json.Unmarshal(rj.Value, &value); err != nil {
			return rj, "", false
		}
	}
	if value == nil {
		value = types.Value{}
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return rj, "", false
	}
	return rj, string(encoded), true
}
