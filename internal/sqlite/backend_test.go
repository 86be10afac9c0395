// Tests for SQLite backend lifecycle and sync strategies.
package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mesh-intelligence/mirrors/pkg/types"
)

func testConfig(dir string, sc *types.SQLiteConfig) types.Config {
	return types.Config{
		Backend:      types.BackendSQLite,
		DataDir:      dir,
		Namespaces:   []string{"counters", "user-prefs"},
		SQLiteConfig: sc,
	}
}

func setupBackend(t *testing.T) (*Backend, string) {
	t.Helper()
	dir := t.TempDir()
	b := NewBackend()
	if err := b.Attach(testConfig(dir, nil)); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	t.Cleanup(func() { b.Detach() })
	return b, dir
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}

func TestBackend_Attach(t *testing.T) {
	dir := t.TempDir()
	b := NewBackend()
	config := testConfig(dir, nil)

	if err := b.Attach(config); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	defer b.Detach()

	if _, err := os.Stat(filepath.Join(dir, dbFileName)); err != nil {
		t.Errorf("%s not created: %v", dbFileName, err)
	}
	for _, ns := range config.Namespaces {
		info, err := os.Stat(jsonlPath(dir, ns))
		if err != nil {
			t.Errorf("%s.jsonl not created: %v", ns, err)
			continue
		}
		if info.Size() != 0 {
			t.Errorf("%s.jsonl should be empty, got %d bytes", ns, info.Size())
		}
	}

	if err := b.Attach(config); err != types.ErrAlreadyAttached {
		t.Errorf("expected ErrAlreadyAttached, got %v", err)
	}
	if got := b.Namespaces(); len(got) != 2 || got[0] != "counters" || got[1] != "user-prefs" {
		t.Errorf("Namespaces() = %v", got)
	}
}

func TestBackend_AttachCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	b := NewBackend()
	if err := b.Attach(testConfig(dir, nil)); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	defer b.Detach()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("data dir not created: %v", err)
	}
}

func TestBackend_AttachInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config types.Config
		want   error
	}{
		{"empty backend", types.Config{DataDir: t.TempDir()}, types.ErrBackendEmpty},
		{"bad namespace", types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir(), Namespaces: []string{"Bad"}}, types.ErrInvalidNamespace},
		{"bad strategy", types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir(), SQLiteConfig: &types.SQLiteConfig{SyncStrategy: "never"}}, types.ErrSyncStrategyUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewBackend().Attach(tt.config)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestBackend_Detach(t *testing.T) {
	b := NewBackend()
	if err := b.Attach(testConfig(t.TempDir(), nil)); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	if err := b.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}
	if err := b.Detach(); err != nil {
		t.Errorf("second Detach should be a no-op, got %v", err)
	}

	ctx := context.Background()
	if _, _, err := b.Get(ctx, "counters", "c1"); err != types.ErrBackendDetached {
		t.Errorf("Get after Detach: expected ErrBackendDetached, got %v", err)
	}
	if _, err := b.Create(ctx, "counters", "c1", nil); err != types.ErrBackendDetached {
		t.Errorf("Create after Detach: expected ErrBackendDetached, got %v", err)
	}
	if err := b.Set(ctx, "counters", "c1", nil); err != types.ErrBackendDetached {
		t.Errorf("Set after Detach: expected ErrBackendDetached, got %v", err)
	}
	if _, err := b.List(ctx, "counters"); err != types.ErrBackendDetached {
		t.Errorf("List after Detach: expected ErrBackendDetached, got %v", err)
	}
}

func TestBackend_Reattach(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	b := NewBackend()
	if err := b.Attach(testConfig(dir, nil)); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if _, err := b.Create(ctx, "counters", "c1", types.Value{"count": 0}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := b.Set(ctx, "counters", "c1", types.Value{"count": 3}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := b.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}

	// A fresh backend rebuilds the database from the JSONL files.
	b2 := NewBackend()
	if err := b2.Attach(testConfig(dir, nil)); err != nil {
		t.Fatalf("second Attach failed: %v", err)
	}
	defer b2.Detach()

	rec, ok, err := b2.Get(ctx, "counters", "c1")
	if err != nil || !ok {
		t.Fatalf("Get after reattach: ok=%v err=%v", ok, err)
	}
	if rec.Value["count"] != float64(3) {
		t.Errorf("count = %v, want 3", rec.Value["count"])
	}
	if rec.Version != 2 {
		t.Errorf("version = %d, want 2", rec.Version)
	}
}

func TestSyncStrategy_ImmediateDefault(t *testing.T) {
	b, dir := setupBackend(t)

	if b.syncStrategy != types.SyncImmediate {
		t.Errorf("default sync strategy should be %q, got %q", types.SyncImmediate, b.syncStrategy)
	}

	if _, err := b.Create(context.Background(), "counters", "c1", types.Value{"count": 0}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(readFile(t, jsonlPath(dir, "counters"))) == 0 {
		t.Error("counters.jsonl should contain data with immediate sync strategy")
	}
	if b.PendingWrites() != 0 {
		t.Errorf("immediate strategy should not queue writes, got %d", b.PendingWrites())
	}
}

func TestSyncStrategy_OnClose_DefersWrites(t *testing.T) {
	dir := t.TempDir()
	b := NewBackend()
	if err := b.Attach(testConfig(dir, &types.SQLiteConfig{SyncStrategy: types.SyncOnClose})); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	ctx := context.Background()

	if _, err := b.Create(ctx, "counters", "c1", types.Value{"count": 0}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if err := b.Set(ctx, "counters", "c1", types.Value{"count": i}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	path := jsonlPath(dir, "counters")
	if data := readFile(t, path); len(data) > 0 {
		t.Errorf("counters.jsonl should be empty before Detach, got %d bytes", len(data))
	}
	if b.PendingWrites() != 4 {
		t.Errorf("expected 4 pending writes, got %d", b.PendingWrites())
	}

	if err := b.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}

	lines, err := readJSONL(path)
	if err != nil {
		t.Fatalf("readJSONL failed: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 record after Detach, got %d", len(lines))
	}
	rj, _, ok := decodeLine(lines[0])
	if !ok || rj.Version != 4 {
		t.Errorf("expected version 4, got %+v", rj)
	}
}

func TestSyncStrategy_Batch_FlushAtThreshold(t *testing.T) {
	dir := t.TempDir()
	b := NewBackend()
	config := testConfig(dir, &types.SQLiteConfig{
		SyncStrategy:  types.SyncBatch,
		BatchSize:     2,
		BatchInterval: 3600,
	})
	if err := b.Attach(config); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	defer b.Detach()
	ctx := context.Background()
	path := jsonlPath(dir, "counters")

	if _, err := b.Create(ctx, "counters", "c1", types.Value{"count": 0}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if data := readFile(t, path); len(data) > 0 {
		t.Errorf("file should be empty below batch size, got %d bytes", len(data))
	}

	if err := b.Set(ctx, "counters", "c1", types.Value{"count": 1}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if data := readFile(t, path); len(data) == 0 {
		t.Error("file should be written once batch size is reached")
	}
	if b.PendingWrites() != 0 {
		t.Errorf("queue should be empty after batch flush, got %d", b.PendingWrites())
	}
}

func TestSyncStrategy_Batch_FlushOnInterval(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the batch timer")
	}
	dir := t.TempDir()
	b := NewBackend()
	config := testConfig(dir, &types.SQLiteConfig{
		SyncStrategy:  types.SyncBatch,
		BatchSize:     100,
		BatchInterval: 1,
	})
	if err := b.Attach(config); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	defer b.Detach()

	if _, err := b.Create(context.Background(), "counters", "c1", nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	path := jsonlPath(dir, "counters")
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Error("batch timer did not flush pending writes")
}

func TestSyncStrategy_Delete_RespectsStrategy(t *testing.T) {
	dir := t.TempDir()
	b := NewBackend()
	if err := b.Attach(testConfig(dir, nil)); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	ctx := context.Background()
	if _, err := b.Create(ctx, "counters", "c1", nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := b.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}

	b2 := NewBackend()
	if err := b2.Attach(testConfig(dir, &types.SQLiteConfig{SyncStrategy: types.SyncOnClose})); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if err := b2.Delete(ctx, "counters", "c1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	path := jsonlPath(dir, "counters")
	if data := readFile(t, path); len(data) == 0 {
		t.Error("delete should be deferred under on_close")
	}
	if err := b2.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}
	if data := readFile(t, path); len(data) != 0 {
		t.Errorf("record should be gone after Detach, got %q", data)
	}
}
