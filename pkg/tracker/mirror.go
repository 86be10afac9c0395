package tracker

import (
	"sort"
	"sync"

	"github.com/mesh-intelligence/mirrors/pkg/types"
)

// Mirror is a live, mutation-tracked view of a types.Value. It wraps the
// value in place: writes land in the same map the caller passed to Wrap.
// All methods are safe for concurrent use.
type Mirror struct {
	// writeMu serializes writes together with their notifications, so
	// subscribers observe writes in the order they happened.
	writeMu sync.Mutex

	// mu guards value. It is released before subscribers run, which lets
	// them read the mirror.
	mu    sync.RWMutex
	value types.Value

	subsMu sync.Mutex
	subs   []subscription
	nextID uint64
}

type subscription struct {
	id uint64
	fn func(field string)
}

// Wrap returns a Mirror over value. A nil value is replaced by an empty one.
func Wrap(value types.Value) *Mirror {
	if value == nil {
		value = types.Value{}
	}
	return &Mirror{value: value}
}

// Get returns the current value of field.
func (m *Mirror) Get(field string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.value[field]
	return v, ok
}

// GetAs returns field converted to T with a type assertion. ok is false when
// the field is missing or holds a value of another type.
func GetAs[T any](m *Mirror, field string) (T, bool) {
	v, ok := m.Get(field)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Has reports whether field is present.
func (m *Mirror) Has(field string) bool {
	_, ok := m.Get(field)
	return ok
}

// Len returns the number of fields.
func (m *Mirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.value)
}

// Fields returns the field names in sorted order.
func (m *Mirror) Fields() []string {
	m.mu.RLock()
	fields := make([]string, 0, len(m.value))
	for k := range m.value {
		fields = append(fields, k)
	}
	m.mu.RUnlock()
	sort.Strings(fields)
	return fields
}

// Snapshot returns a deep copy of the current value.
func (m *Mirror) Snapshot() types.Value {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value.Clone()
}

// Set assigns v to field and notifies every subscriber before returning.
// Subscribers must not write to m.
func (m *Mirror) Set(field string, v any) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	m.value[field] = v
	m.mu.Unlock()

	m.notify(field)
}

// Delete removes field and notifies every subscriber before returning.
// Deleting a missing field still counts as a write.
func (m *Mirror) Delete(field string) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	delete(m.value, field)
	m.mu.Unlock()

	m.notify(field)
}

// Update runs fn with direct access to the underlying value. No subscriber
// is notified. fn runs with writes blocked, so it must not call methods on
// m; it may keep using raw until it returns. The error from fn is returned
// unchanged, and whatever fn already changed stays changed.
func (m *Mirror) Update(fn func(raw types.Value) error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.value)
}
