package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <namespace>",
		Short: "List the records in a namespace",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runList,
	}
}

func (a *app) runList(cmd *cobra.Command, args []string) (err error) {
	namespace := args[0]

	s, err := a.openSession(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.Close()) }()

	recs, err := s.backend.List(cmd.Context(), namespace)
	if err != nil {
		return s.storeError(err, namespace, "")
	}
	return a.renderer(cmd).records(namespace, recs)
}
