package sqlite

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// maxLineSize bounds a single JSONL line. Record values can be far larger
// than bufio's default token size.
const maxLineSize = 16 << 20

// jsonlPath returns the JSONL file for a namespace.
func jsonlPath(dataDir, namespace string) string {
	return filepath.Join(dataDir, namespace+".jsonl")
}

// initJSONLFiles creates an empty JSONL file for every namespace that does
// not have one yet. Existing files are left untouched.
func initJSONLFiles(dataDir string, namespaces []string) error {
	for _, ns := range namespaces {
		path := jsonlPath(dataDir, ns)
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", path, err)
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}

// readJSONL reads a JSONL file and returns each non-empty, parseable line.
// Malformed lines are skipped.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var lines []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || !json.Valid(line) {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		lines = append(lines, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return lines, nil
}

// writeJSONL replaces path with the given lines. The write goes to a temp
// file in the same directory which is synced and renamed over path, so
// readers never see a partial file.
func writeJSONL(path string, lines []json.RawMessage) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err = w.Write(line); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
		if err = w.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// persistNamespaceJSONL rewrites a namespace's JSONL file from its table,
// one record per line ordered by record ID.
func persistNamespaceJSONL(q querier, dataDir, namespace string) error {
	rows, err := q.Query(fmt.Sprintf(
		"SELECT record_id, value, version, created_at, updated_at FROM %s ORDER BY record_id",
		tableName(namespace)))
	if err != nil {
		return fmt.Errorf("querying %s: %w", namespace, err)
	}
	defer rows.Close()

	var lines []json.RawMessage
	for rows.Next() {
		var rj recordJSON
		var value string
		if err := rows.Scan(&rj.ID, &value, &rj.Version, &rj.CreatedAt, &rj.UpdatedAt); err != nil {
			return fmt.Errorf("scanning %s: %w", namespace, err)
		}
		rj.Value = json.RawMessage(value)
		line, err := json.Marshal(rj)
		if err != nil {
			return fmt.Errorf("encoding %s/%s: %w", namespace, rj.ID, err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return writeJSONL(jsonlPath(dataDir, namespace), lines)
}
