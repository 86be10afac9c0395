package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize mirror storage",
		Long: "Create the configuration and data directories, write a default\n" +
			"config.yaml if there is none, and initialize every declared namespace.",
		Args: cobra.NoArgs,
		RunE: a.runInit,
	}
}

func (a *app) runInit(cmd *cobra.Command, args []string) (err error) {
	s, err := a.openSession(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.Close()) }()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Mirrors initialized")
	fmt.Fprintln(out, "  config:    ", s.settings.configDir)
	fmt.Fprintln(out, "  data:      ", s.settings.backend.DataDir)
	fmt.Fprintln(out, "  namespaces:", len(s.settings.backend.Namespaces))
	return nil
}
