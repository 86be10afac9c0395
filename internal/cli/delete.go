package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <namespace> <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE:  a.runDelete,
	}
}

func (a *app) runDelete(cmd *cobra.Command, args []string) (err error) {
	namespace, id := args[0], args[1]

	s, err := a.openSession(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.Close()) }()

	if err := s.backend.Delete(cmd.Context(), namespace, id); err != nil {
		return s.storeError(err, namespace, id)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s/%s\n", namespace, id)
	return nil
}
