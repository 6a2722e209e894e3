package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"go.te.io/tescenario/internal/cliutil"
)

// version is the orchestrator binary's reported version (spec.md §6
// "--version"), grounded on the teacher's cmd/version.go fmt.Println
// pattern.
const version = "0.1.0"

func newVersionCommand(gs *cliutil.GlobalState) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "show application version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(gs.Stdout, "te v"+version)
		},
	}
}
