// Package sqlite implements the SQLite storage backend for mirrors.
//
// SQLite is the query engine; JSONL files in DataDir are the source of
// truth. Attach rebuilds the database from the JSONL files, one table and
// one file per declared namespace, and every mutation is written back to the
// namespace's JSONL file according to the configured sync strategy.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/mirrors/pkg/types"
)

// dbFileName is the SQLite file created in DataDir. It is rebuilt on every
// Attach and is never the source of truth.
const dbFileName = "mirrors.db"

var _ types.Backend = (*Backend)(nil)

// Backend implements types.Backend using SQLite as the query engine
// and JSONL files as the source of truth.
type Backend struct {
	mu         sync.RWMutex
	attached   bool
	config     types.Config
	dataDir    string
	db         *sql.DB
	namespaces map[string]bool

	syncStrategy  string         // immediate, on_close or batch
	batchSize     int            // number of writes before batch flush
	batchInterval time.Duration  // time between batch flushes
	pendingWrites []pendingWrite // writes waiting for JSONL persist
	batchTimer    *time.Timer    // timer for interval-based batch flush
	batchMu       sync.Mutex     // protects pendingWrites and batchTimer

	now func() time.Time
}

// pendingWrite is a deferred JSONL rewrite queued by the on_close and
// batch strategies.
type pendingWrite struct {
	namespace string
	operation string       // "create", "set" or "delete"
	persist   func() error // rewrites the namespace's JSONL file
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{now: time.Now}
}

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, rebuilds the SQLite database,
// creates one table per namespace and loads the JSONL files into it.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// The database is derived state; start from an empty file.
	dbPath := filepath.Join(dataDir, dbFileName)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db, config.Namespaces); err != nil {
		db.Close()
		return err
	}

	if err := initJSONLFiles(dataDir, config.Namespaces); err != nil {
		db.Close()
		return err
	}

	if err := loadAllJSONL(db, dataDir, config.Namespaces); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.db = db
	b.config = config
	b.dataDir = dataDir
	b.namespaces = make(map[string]bool, len(config.Namespaces))
	for _, ns := range config.Namespaces {
		b.namespaces[ns] = true
	}

	b.syncStrategy = config.SQLiteConfig.GetSyncStrategy()
	b.batchSize = config.SQLiteConfig.GetBatchSize()
	b.batchInterval = time.Duration(config.SQLiteConfig.GetBatchInterval()) * time.Second
	b.pendingWrites = nil

	b.attached = true

	if b.syncStrategy == types.SyncBatch && b.batchInterval > 0 {
		b.startBatchTimer()
	}

	return nil
}

// Detach releases all resources held by the backend. Pending JSONL writes
// are flushed before the database is closed. Detach is idempotent; after
// it, all operations return ErrBackendDetached.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	b.stopBatchTimer()

	if err := b.flushPendingWritesLocked(); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}

	b.attached = false
	b.namespaces = nil

	return nil
}

// Namespaces returns the declared namespaces in configuration order.
func (b *Backend) Namespaces() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.config.Namespaces))
	copy(out, b.config.Namespaces)
	return out
}

// DataDir returns the directory holding the JSONL files.
func (b *Backend) DataDir() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dataDir
}

// check validates a key against the attached state and declared namespaces.
// The caller must hold b.mu.
func (b *Backend) check(namespace, id string) error {
	if !b.attached {
		return types.ErrBackendDetached
	}
	if err := types.CheckKey(namespace, id); err != nil {
		return err
	}
	if !b.namespaces[namespace] {
		return types.ErrNamespaceNotFound
	}
	return nil
}

// Sync strategy methods.

// shouldPersistImmediately reports whether JSONL writes happen inline.
func (b *Backend) shouldPersistImmediately() bool {
	return b.syncStrategy == types.SyncImmediate || b.syncStrategy == ""
}

// persist rewrites the namespace's JSONL file now or queues the rewrite,
// depending on the sync strategy. The caller must hold b.mu.
func (b *Backend) persist(namespace, operation string) error {
	fn := func() error { return persistNamespaceJSONL(b.db, b.dataDir, namespace) }
	if b.shouldPersistImmediately() {
		return fn()
	}
	return b.queueWrite(namespace, operation, fn)
}

// queueWrite adds a write to the pending queue. With the batch strategy the
// queue is flushed once it reaches batchSize. The caller must hold b.mu.
func (b *Backend) queueWrite(namespace, operation string, persist func() error) error {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	b.pendingWrites = append(b.pendingWrites, pendingWrite{
		namespace: namespace,
		operation: operation,
		persist:   persist,
	})

	if b.syncStrategy == types.SyncBatch && b.batchSize > 0 && len(b.pendingWrites) >= b.batchSize {
		return b.flushPendingWritesBatchLocked()
	}
	return nil
}

// PendingWrites returns the number of queued JSONL writes.
func (b *Backend) PendingWrites() int {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()
	return len(b.pendingWrites)
}

// flushPendingWritesLocked flushes all pending writes to JSONL files.
// The caller must hold b.mu.
func (b *Backend) flushPendingWritesLocked() error {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	return b.flushPendingWritesBatchLocked()
}

// flushPendingWritesBatchLocked executes pending writes. Each namespace
// file is rewritten whole, so it is rewritten once per flush no matter how
// many writes touched it. On failure the queue is kept for the next flush.
// The caller must hold b.batchMu.
func (b *Backend) flushPendingWritesBatchLocked() error {
	if len(b.pendingWrites) == 0 {
		return nil
	}

	done := make(map[string]bool, len(b.pendingWrites))
	for _, pw := range b.pendingWrites {
		if done[pw.namespace] {
			continue
		}
		if err := pw.persist(); err != nil {
			return fmt.Errorf("flush %s %s: %w", pw.namespace, pw.operation, err)
		}
		done[pw.namespace] = true
	}

	b.pendingWrites = nil
	return nil
}

// startBatchTimer starts the periodic batch flush.
func (b *Backend) startBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		return
	}

	b.batchTimer = time.AfterFunc(b.batchInterval, func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if !b.attached {
			return
		}

		_ = b.flushPendingWritesLocked()

		b.batchMu.Lock()
		if b.batchTimer != nil && b.attached {
			b.batchTimer.Reset(b.batchInterval)
		}
		b.batchMu.Unlock()
	})
}

// stopBatchTimer stops the batch interval timer if running.
func (b *Backend) stopBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		b.batchTimer.Stop()
		b.batchTimer = nil
	}
}
