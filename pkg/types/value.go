package types

import "time"

// Value is the structured payload of a record: a mapping from field name to
// a JSON-serializable value.
type Value map[string]any

// Clone returns a deep copy of v. Nested maps (map[string]any or Value) and
// []any slices are copied recursively; every other value is copied as is.
// Clone of a nil Value is nil.
func (v Value) Clone() Value {
	if v == nil {
		return nil
	}
	out := make(Value, len(v))
	for k, val := range v {
		out[k] = cloneAny(val)
	}
	return out
}

func cloneAny(v any) any {
	switch x := v.(type) {
	case Value:
		return x.Clone()
	case map[string]any:
		if x == nil {
			return x
		}
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = cloneAny(val)
		}
		return out
	case []any:
		if x == nil {
			return x
		}
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = cloneAny(val)
		}
		return out
	default:
		return v
	}
}

// Record is one durable value held by a Store.
type Record struct {
	// Namespace groups records; each namespace maps to its own table.
	Namespace string `json:"namespace" yaml:"namespace"`

	// ID is unique within the namespace.
	ID string `json:"id" yaml:"id"`

	// Value is the record payload.
	Value Value `json:"value" yaml:"value"`

	// Version starts at 1 on creation and increments on every Set.
	Version int64 `json:"version" yaml:"version"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}
