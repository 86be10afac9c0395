package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/mirrors/pkg/types"
)

const selectColumns = "record_id, value, version, created_at, updated_at"

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Get returns the record stored under namespace/id. A missing record is
// reported with ok == false and a nil error.
func (b *Backend) Get(ctx context.Context, namespace, id string) (types.Record, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.check(namespace, id); err != nil {
		return types.Record{}, false, err
	}

	row := b.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE record_id = ?", selectColumns, tableName(namespace)), id)
	rec, err := scanRecord(row, namespace)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Record{}, false, nil
	}
	if err != nil {
		return types.Record{}, false, err
	}
	return rec, true, nil
}

// Create stores a new record at version 1. Returns ErrAlreadyExists if a
// record with the same ID exists.
func (b *Backend) Create(ctx context.Context, namespace, id string, value types.Value) (types.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.check(namespace, id); err != nil {
		return types.Record{}, err
	}
	if value == nil {
		value = types.Value{}
	}
	encoded, err := encodeValue(value)
	if err != nil {
		return types.Record{}, err
	}

	now := b.now().UTC()
	ts := now.Format(time.RFC3339Nano)
	err = b.write(ctx, namespace, "create", func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			fmt.Sprintf("SELECT 1 FROM %s WHERE record_id = ?", tableName(namespace)), id).Scan(&exists)
		if err == nil {
			return types.ErrAlreadyExists
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking %s/%s: %w", namespace, id, err)
		}
		_, err = tx.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, 1, ?, ?)", tableName(namespace), selectColumns),
			id, encoded, ts, ts)
		if err != nil {
			return fmt.Errorf("inserting %s/%s: %w", namespace, id, err)
		}
		return nil
	})
	if err != nil {
		return types.Record{}, err
	}

	return types.Record{
		Namespace: namespace,
		ID:        id,
		Value:     value.Clone(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Set replaces the whole value of an existing record and increments its
// version. Returns ErrNotFound if the record does not exist.
//
// With the immediate strategy a failed JSONL rewrite rolls the update back,
// so an error means neither the table nor the file changed. The deferred
// strategies commit first; a later flush failure leaves the table ahead of
// the file until the next successful flush.
func (b *Backend) Set(ctx context.Context, namespace, id string, value types.Value) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.check(namespace, id); err != nil {
		return err
	}
	if value == nil {
		value = types.Value{}
	}
	encoded, err := encodeValue(value)
	if err != nil {
		return err
	}

	ts := b.now().UTC().Format(time.RFC3339Nano)
	return b.write(ctx, namespace, "set", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			fmt.Sprintf("UPDATE %s SET value = ?, version = version + 1, updated_at = ? WHERE record_id = ?", tableName(namespace)),
			encoded, ts, id)
		if err != nil {
			return fmt.Errorf("updating %s/%s: %w", namespace, id, err)
		}
		return requireRow(res)
	})
}

// Delete removes a record. Returns ErrNotFound if the record does not exist.
func (b *Backend) Delete(ctx context.Context, namespace, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.check(namespace, id); err != nil {
		return err
	}

	return b.write(ctx, namespace, "delete", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE record_id = ?", tableName(namespace)), id)
		if err != nil {
			return fmt.Errorf("deleting %s/%s: %w", namespace, id, err)
		}
		return requireRow(res)
	})
}

// List returns every record in a namespace ordered by ID.
func (b *Backend) List(ctx context.Context, namespace string) ([]types.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrBackendDetached
	}
	if !types.ValidNamespace(namespace) {
		return nil, types.ErrInvalidNamespace
	}
	if !b.namespaces[namespace] {
		return nil, types.ErrNamespaceNotFound
	}

	rows, err := b.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s ORDER BY record_id", selectColumns, tableName(namespace)))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", namespace, err)
	}
	defer rows.Close()

	records := []types.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows, namespace)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// write runs fn in a transaction and persists the namespace. With the
// immediate strategy the JSONL rewrite reads through the transaction and a
// failure rolls everything back; otherwise the write is queued after commit.
// The caller must hold b.mu.
func (b *Backend) write(ctx context.Context, namespace, operation string, fn func(tx *sql.Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning %s: %w", operation, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if b.shouldPersistImmediately() {
		if err := persistNamespaceJSONL(tx, b.dataDir, namespace); err != nil {
			return fmt.Errorf("persisting %s: %w", namespace, err)
		}
		return tx.Commit()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", operation, err)
	}
	if err := b.persist(namespace, operation); err != nil {
		return fmt.Errorf("persisting %s: %w", namespace, err)
	}
	return nil
}

// requireRow maps an update or delete that matched nothing to ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// encodeValue serializes a value for the value column.
func encodeValue(value types.Value) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrInvalidValue, err)
	}
	return string(data), nil
}

// scanRecord hydrates one row into a Record.
func scanRecord(row rowScanner, namespace string) (types.Record, error) {
	var (
		id, value, created, updated string
		version                     int64
	)
	if err := row.Scan(&id, &value, &version, &created, &updated); err != nil {
		return types.Record{}, err
	}

	rec := types.Record{Namespace: namespace, ID: id, Version: version}
	if err := json.Unmarshal([]byte(value), &rec.Value); err != nil {
		return types.Record{}, fmt.Errorf("decoding %s/%s: %w", namespace, id, err)
	}
	if rec.Value == nil {
		rec.Value = types.Value{}
	}
	var err error
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return types.Record{}, fmt.Errorf("parsing created_at for %s/%s: %w", namespace, id, err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return types.Record{}, fmt.Errorf("parsing updated_at for %s/%s: %w", namespace, id, err)
	}
	return rec, nil
}
