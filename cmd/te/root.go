package main

import (
	"github.com/spf13/cobra"

	"go.te.io/tescenario/internal/cliutil"
)

// newRootCommand builds the "te" command tree, grounded on the teacher's
// newRootCommand/rootCmdPersistentFlagSet pattern (cmd/root.go): a bare
// root carrying the global -v/-q/--no-color flags, with every actual
// subcommand added underneath.
func newRootCommand(gs *cliutil.GlobalState) *cobra.Command {
	var verbose, quiet int

	root := &cobra.Command{
		Use:           "te",
		Short:         "test-orchestration scheduler",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			gs.ApplyVerbosity(verbose - quiet)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.CountVarP(&verbose, "verbose", "v", "increase logging verbosity (stackable)")
	flags.CountVarP(&quiet, "quiet", "q", "decrease logging verbosity (stackable)")
	flags.BoolVar(&gs.Flags.NoColor, "no-color", gs.Flags.NoColor, "disable colored output")

	root.AddCommand(newRunCommand(gs), newVersionCommand(gs))
	return root
}
