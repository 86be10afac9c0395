package cli

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/mirrors/internal/fieldexpr"
	"github.com/mesh-intelligence/mirrors/pkg/mirror"
)

type setFlags struct {
	expr  bool
	unset []string
}

func (a *app) newSetCmd() *cobra.Command {
	var f setFlags
	cmd := &cobra.Command{
		Use:   "set <namespace> <id> [field=value...]",
		Short: "Write fields through a mirror handle",
		Long: `Set opens a handle on the record, creating it empty if it does not
exist, and writes each field through the mirror. Every field write is
persisted as its own write-back, in argument order.

Values are parsed as JSON and fall back to plain strings. With --expr each
value is an expression evaluated against the record as it stands after the
preceding assignments.`,
		Example: `  mirror set counters c1 count=0 label=first
  mirror set counters c1 'count=count + 1' --expr
  mirror set counters c1 --unset label`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSet(cmd, args, f)
		},
	}
	cmd.Flags().BoolVar(&f.expr, "expr", false, "evaluate values as expressions over the record's fields")
	cmd.Flags().StringArrayVar(&f.unset, "unset", nil, "remove a field (repeatable)")
	return cmd
}

type assignment struct {
	field string
	raw   string
}

// parseAssignments splits field=value arguments on the first '='.
func parseAssignments(args []string) ([]assignment, error) {
	out := make([]assignment, 0, len(args))
	for _, arg := range args {
		field, raw, ok := strings.Cut(arg, "=")
		if !ok || field == "" {
			return nil, userError("invalid assignment %q (expected field=value)", arg)
		}
		out = append(out, assignment{field: field, raw: raw})
	}
	return out, nil
}

// parseLiteral decodes raw as JSON, or returns it unchanged as a string.
func parseLiteral(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func (a *app) runSet(cmd *cobra.Command, args []string, f setFlags) (err error) {
	namespace, id := args[0], args[1]
	assignments, err := parseAssignments(args[2:])
	if err != nil {
		return err
	}
	if len(assignments) == 0 && len(f.unset) == 0 {
		return userError("nothing to set: give field=value arguments or --unset")
	}

	var programs []*fieldexpr.Program
	if f.expr {
		for _, as := range assignments {
			p, err := fieldexpr.Compile(as.raw)
			if err != nil {
				return userError("field %s: %v", as.field, err)
			}
			programs = append(programs, p)
		}
	}

	s, err := a.openSession(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.Close()) }()

	ctx := cmd.Context()
	err = s.withHandle(ctx, namespace, id, func(h *mirror.Handle) error {
		m := h.Mirror()
		for i, as := range assignments {
			if programs == nil {
				m.Set(as.field, parseLiteral(as.raw))
				continue
			}
			v, err := programs[i].Run(m.Snapshot())
			if err != nil {
				return userError("field %s: %v", as.field, err)
			}
			m.Set(as.field, v)
		}
		for _, field := range f.unset {
			m.Delete(field)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return a.show(cmd, s, namespace, id)
}

// withHandle opens a handle, runs fn, then closes the handle and waits for
// its write-backs. Write-back failures are reported after fn's error.
func (s *session) withHandle(ctx context.Context, namespace, id string, fn func(*mirror.Handle) error) error {
	ctrl, err := s.controller()
	if err != nil {
		return err
	}
	h, err := ctrl.Namespace(namespace).Open(ctx, id, nil)
	if err != nil {
		return s.storeError(err, namespace, id)
	}
	fnErr := fn(h)
	if err := h.Close(ctx); err != nil {
		return errors.Join(fnErr, classify(err))
	}
	return fnErr
}

// show renders the stored record after a write.
func (a *app) show(cmd *cobra.Command, s *session, namespace, id string) error {
	rec, ok, err := s.backend.Get(cmd.Context(), namespace, id)
	if err != nil {
		return s.storeError(err, namespace, id)
	}
	if !ok {
		return userError("record %s/%s not found", namespace, id)
	}
	return a.renderer(cmd).record(rec)
}
