package types

import (
	"context"
	"errors"
)

// Store is durable key-value record storage addressed by (namespace, id).
// Each call is atomic on its own; Store makes no promise across calls.
// Values returned by a Store belong to the caller, and values passed in may
// be reused by the caller once the call returns.
type Store interface {
	// Get returns the record stored under (namespace, id). A missing record
	// is reported with ok == false and a nil error; err is reserved for
	// genuine failures (unknown namespace, I/O).
	Get(ctx context.Context, namespace, id string) (rec Record, ok bool, err error)

	// Create stores value as a new record and returns it.
	// Returns ErrAlreadyExists if a record with that id exists.
	Create(ctx context.Context, namespace, id string, value Value) (Record, error)

	// Set replaces the value of an existing record.
	// Returns ErrNotFound if the record does not exist.
	Set(ctx context.Context, namespace, id string, value Value) error
}

// Backend is a Store with an attach/detach lifecycle. Callers attach to a
// backend with a Config, use it as a Store, and detach when done.
type Backend interface {
	Store

	// Attach connects the backend to the storage described by config and
	// declares its namespaces. Returns ErrAlreadyAttached if called while
	// already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, Store operations return ErrBackendDetached.
	Detach() error

	// Delete removes a record. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, namespace, id string) error

	// List returns every record in the namespace ordered by id.
	List(ctx context.Context, namespace string) ([]Record, error)
}

// Record operation errors.
var (
	ErrNotFound          = errors.New("record not found")
	ErrAlreadyExists     = errors.New("record already exists")
	ErrInvalidID         = errors.New("invalid record ID")
	ErrInvalidValue      = errors.New("invalid record value")
	ErrInvalidNamespace  = errors.New("invalid namespace name")
	ErrNamespaceNotFound = errors.New("namespace not declared")
)

// Backend lifecycle errors.
var (
	ErrBackendDetached = errors.New("backend is detached")
	ErrAlreadyAttached = errors.New("backend is already attached")
)
