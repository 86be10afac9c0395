// Package sqlite provides the public API for the SQLite mirrors backend.
// It exposes the factory while keeping the implementation internal.
package sqlite

import (
	"github.com/mesh-intelligence/mirrors/internal/sqlite"
	"github.com/mesh-intelligence/mirrors/pkg/types"
)

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlite.NewBackend()
//	err := backend.Attach(types.Config{
//	    Backend:    types.BackendSQLite,
//	    DataDir:    ".mirrors-db",
//	    Namespaces: []string{"counters"},
//	})
//	defer backend.Detach()
func NewBackend() types.Backend {
	return sqlite.NewBackend()
}
