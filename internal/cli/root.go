// Package cli implements the mirror command-line interface.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Version is the CLI version, overridden at build time with -ldflags -X.
var Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/mirrors"

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	yamlMode  bool
}

// app carries the state shared by one command tree.
type app struct {
	flags rootFlags
	now   func() time.Time
}

func newApp(now func() time.Time) *app {
	return &app{now: now}
}

// NewRootCmd creates the top-level "mirror" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newApp(time.Now).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mirror",
		Short: "Inspect and edit mirrored records",
		Long: "mirror reads and writes the records behind live mirrors.\n" +
			"Writes go through a mirror handle, so each field write is persisted\n" +
			"the same way an application's writes are.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: .mirrors-db)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVar(&a.flags.yamlMode, "yaml", false, "output in YAML format")
	root.MarkFlagsMutuallyExclusive("json", "yaml")

	root.AddCommand(
		a.newVersionCmd(),
		a.newInitCmd(),
		a.newGetCmd(),
		a.newSetCmd(),
		a.newPatchCmd(),
		a.newListCmd(),
		a.newDeleteCmd(),
	)
	return root
}

// Execute runs the root command and exits with the matching code.
func Execute() {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "mirror:", err)
	}
	os.Exit(exitCode(err))
}
