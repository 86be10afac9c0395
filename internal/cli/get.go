package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

func (a *app) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <namespace> <id>",
		Short: "Show a record",
		Example: `  mirror get counters c1
  mirror get counters c1 --json`,
		Args: cobra.ExactArgs(2),
		RunE: a.runGet,
	}
}

func (a *app) runGet(cmd *cobra.Command, args []string) (err error) {
	namespace, id := args[0], args[1]

	s, err := a.openSession(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.Close()) }()

	rec, ok, err := s.backend.Get(cmd.Context(), namespace, id)
	if err != nil {
		return s.storeError(err, namespace, id)
	}
	if !ok {
		return userError("record %s/%s not found", namespace, id)
	}
	return a.renderer(cmd).record(rec)
}
