// Package memory implements an in-process types.Backend. Values are deep
// copied on the way in and out, so callers never share maps with the
// backend.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mesh-intelligence/mirrors/pkg/types"
)

var _ types.Backend = (*Backend)(nil)

// Backend keeps records in maps, one per declared namespace.
type Backend struct {
	mu         sync.RWMutex
	attached   bool
	namespaces map[string]map[string]types.Record

	// now is overridable in tests.
	now func() time.Time
}

// NewBackend creates a detached memory backend.
func NewBackend() *Backend {
	return &Backend{now: time.Now}
}

// Attach declares the namespaces listed in config. DataDir is ignored.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	b.namespaces = make(map[string]map[string]types.Record, len(config.Namespaces))
	for _, ns := range config.Namespaces {
		b.namespaces[ns] = make(map[string]types.Record)
	}
	b.attached = true
	return nil
}

// Detach drops all records. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.attached = false
	b.namespaces = nil
	return nil
}

// table returns the record map for namespace. The caller must hold b.mu.
func (b *Backend) table(namespace, id string) (map[string]types.Record, error) {
	if !b.attached {
		return nil, types.ErrBackendDetached
	}
	if err := types.CheckKey(namespace, id); err != nil {
		return nil, err
	}
	t, ok := b.namespaces[namespace]
	if !ok {
		return nil, types.ErrNamespaceNotFound
	}
	return t, nil
}

func (b *Backend) Get(_ context.Context, namespace, id string) (types.Record, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	t, err := b.table(namespace, id)
	if err != nil {
		return types.Record{}, false, err
	}
	rec, ok := t[id]
	if !ok {
		return types.Record{}, false, nil
	}
	return copyRecord(rec), true, nil
}

func (b *Backend) Create(_ context.Context, namespace, id string, value types.Value) (types.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, err := b.table(namespace, id)
	if err != nil {
		return types.Record{}, err
	}
	if _, ok := t[id]; ok {
		return types.Record{}, types.ErrAlreadyExists
	}

	if value == nil {
		value = types.Value{}
	}
	now := b.now().UTC()
	rec := types.Record{
		Namespace: namespace,
		ID:        id,
		Value:     value.Clone(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t[id] = rec
	return copyRecord(rec), nil
}

// Set replaces the whole value of an existing record.
func (b *Backend) Set(_ context.Context, namespace, id string, value types.Value) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, err := b.table(namespace, id)
	if err != nil {
		return err
	}
	rec, ok := t[id]
	if !ok {
		return types.ErrNotFound
	}
	if value == nil {
		value = types.Value{}
	}
	rec.Value = value.Clone()
	rec.Version++
	rec.UpdatedAt = b.now().UTC()
	t[id] = rec
	return nil
}

func (b *Backend) Delete(_ context.Context, namespace, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, err := b.table(namespace, id)
	if err != nil {
		return err
	}
	if _, ok := t[id]; !ok {
		return types.ErrNotFound
	}
	delete(t, id)
	return nil
}

func (b *Backend) List(_ context.Context, namespace string) ([]types.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	// Any non-empty id passes the key check; only the namespace matters here.
	t, err := b.table(namespace, "*")
	if err != nil {
		return nil, err
	}
	out := make([]types.Record, 0, len(t))
	for _, rec := range t {
		out = append(out, copyRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func copyRecord(rec types.Record) types.Record {
	rec.Value = rec.Value.Clone()
	return rec
}
