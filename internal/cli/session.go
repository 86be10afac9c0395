package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/mirrors/internal/memory"
	"github.com/mesh-intelligence/mirrors/pkg/mirror"
	"github.com/mesh-intelligence/mirrors/pkg/observability"
	"github.com/mesh-intelligence/mirrors/pkg/sqlite"
	"github.com/mesh-intelligence/mirrors/pkg/types"
)

// session is an attached backend plus the settings it was built from.
// The caller must Close it.
type session struct {
	settings *settings
	backend  types.Backend
	logger   *slog.Logger
}

// newBackend returns an unattached backend for the configured name.
func newBackend(name string) (types.Backend, error) {
	switch name {
	case types.BackendSQLite:
		return sqlite.NewBackend(), nil
	case types.BackendMemory:
		return memory.NewBackend(), nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, name)
	}
}

func (a *app) openSession(cmd *cobra.Command) (*session, error) {
	st, err := a.loadSettings()
	if err != nil {
		return nil, err
	}

	backend, err := newBackend(st.backend.Backend)
	if err != nil {
		return nil, classify(err)
	}
	if err := backend.Attach(st.backend); err != nil {
		return nil, classify(fmt.Errorf("attach %s backend: %w", st.backend.Backend, err))
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: st.logLevel}))
	return &session{settings: st, backend: backend, logger: logger}, nil
}

// Close detaches the backend, flushing any deferred JSONL writes.
func (s *session) Close() error {
	if err := s.backend.Detach(); err != nil {
		return sysError(fmt.Errorf("detach backend: %w", err))
	}
	return nil
}

// controller builds a mirror controller over the session's backend. The
// "slog" observer logs through the session logger so log_level applies.
func (s *session) controller() (*mirror.Controller, error) {
	cfg := s.settings.mirror
	var opts []mirror.Option
	if cfg.Observer == "slog" {
		opts = append(opts, mirror.WithObserver(observability.NewSlogObserver(s.logger)))
	}
	ctrl, err := mirror.New(s.backend, cfg, opts...)
	if err != nil {
		return nil, userError("%v", err)
	}
	return ctrl, nil
}

// storeError turns a backend error into a CLI error with a readable
// message for the common user mistakes.
func (s *session) storeError(err error, namespace, id string) error {
	switch {
	case errors.Is(err, types.ErrNamespaceNotFound):
		return userError("unknown namespace %q (declared: %s)",
			namespace, strings.Join(s.settings.backend.Namespaces, ", "))
	case errors.Is(err, types.ErrNotFound):
		return userError("record %s/%s not found", namespace, id)
	}
	return classify(err)
}
