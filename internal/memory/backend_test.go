package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/mirrors/pkg/types"
)

func attached(t *testing.T, namespaces ...string) *Backend {
	t.Helper()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendMemory, Namespaces: namespaces}))
	t.Cleanup(func() { b.Detach() })
	return b
}

func TestBackend_Lifecycle(t *testing.T) {
	b := NewBackend()
	ctx := context.Background()

	_, _, err := b.Get(ctx, "counters", "c1")
	assert.ErrorIs(t, err, types.ErrBackendDetached)

	cfg := types.Config{Backend: types.BackendMemory, Namespaces: []string{"counters"}}
	require.NoError(t, b.Attach(cfg))
	assert.ErrorIs(t, b.Attach(cfg), types.ErrAlreadyAttached)

	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach(), "detach is idempotent")

	_, err = b.Create(ctx, "counters", "c1", nil)
	assert.ErrorIs(t, err, types.ErrBackendDetached)
}

func TestBackend_AttachValidatesConfig(t *testing.T) {
	b := NewBackend()
	err := b.Attach(types.Config{Backend: types.BackendMemory, Namespaces: []string{"Bad"}})
	assert.ErrorIs(t, err, types.ErrInvalidNamespace)
}

func TestBackend_GetCreateSet(t *testing.T) {
	b := attached(t, "counters")
	ctx := context.Background()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	b.now = func() time.Time { return fixed }

	_, ok, err := b.Get(ctx, "counters", "c1")
	require.NoError(t, err, "missing record is not an error")
	assert.False(t, ok)

	def := types.Value{"count": 0}
	rec, err := b.Create(ctx, "counters", "c1", def)
	require.NoError(t, err)
	assert.Equal(t, types.Record{
		Namespace: "counters",
		ID:        "c1",
		Value:     types.Value{"count": 0},
		Version:   1,
		CreatedAt: fixed,
		UpdatedAt: fixed,
	}, rec)

	_, err = b.Create(ctx, "counters", "c1", def)
	assert.ErrorIs(t, err, types.ErrAlreadyExists)

	later := fixed.Add(time.Minute)
	b.now = func() time.Time { return later }
	require.NoError(t, b.Set(ctx, "counters", "c1", types.Value{"count": 1}))

	got, ok, err := b.Get(ctx, "counters", "c1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.Value{"count": 1}, got.Value)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, fixed, got.CreatedAt)
	assert.Equal(t, later, got.UpdatedAt)

	assert.ErrorIs(t, b.Set(ctx, "counters", "nope", types.Value{}), types.ErrNotFound)
}

func TestBackend_ValuesAreCopied(t *testing.T) {
	b := attached(t, "counters")
	ctx := context.Background()

	def := types.Value{"tags": []any{"a"}}
	rec, err := b.Create(ctx, "counters", "c1", def)
	require.NoError(t, err)

	def["tags"].([]any)[0] = "mutated"
	rec.Value["tags"].([]any)[0] = "mutated"

	got, _, err := b.Get(ctx, "counters", "c1")
	require.NoError(t, err)
	assert.Equal(t, []any{"a"}, got.Value["tags"])
}

func TestBackend_NamespaceErrors(t *testing.T) {
	b := attached(t, "counters")
	ctx := context.Background()

	_, _, err := b.Get(ctx, "settings", "s1")
	assert.ErrorIs(t, err, types.ErrNamespaceNotFound)

	_, err = b.Create(ctx, "Bad", "x", nil)
	assert.ErrorIs(t, err, types.ErrInvalidNamespace)

	_, _, err = b.Get(ctx, "counters", "")
	assert.ErrorIs(t, err, types.ErrInvalidID)
}

func TestBackend_DeleteAndList(t *testing.T) {
	b := attached(t, "counters")
	ctx := context.Background()

	for _, id := range []string{"b", "a", "c"} {
		_, err := b.Create(ctx, "counters", id, types.Value{"id": id})
		require.NoError(t, err)
	}

	recs, err := b.List(ctx, "counters")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "a", recs[0].ID)
	assert.Equal(t, "b", recs[1].ID)
	assert.Equal(t, "c", recs[2].ID)

	require.NoError(t, b.Delete(ctx, "counters", "b"))
	assert.ErrorIs(t, b.Delete(ctx, "counters", "b"), types.ErrNotFound)

	recs, err = b.List(ctx, "counters")
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	_, err = b.List(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNamespaceNotFound)
}
