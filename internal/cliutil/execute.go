package cliutil

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go.te.io/tescenario/errext"
)

// Execute wires rootCmd to gs's process-external I/O, runs it, and turns
// any returned error into a process exit code: the same hint/exit-code/
// stack-trace extraction the teacher's cmd.Execute() performs (cmd/root.go),
// adapted to return the code instead of calling os.Exit directly so the
// caller's own GlobalState.OSExit stays the single os.Exit call site.
func Execute(gs *GlobalState, rootCmd *cobra.Command) int {
	rootCmd.SetArgs(gs.Args[1:])
	rootCmd.SetOut(gs.Stdout)
	rootCmd.SetErr(gs.Stderr)
	rootCmd.SetIn(gs.Stdin)

	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	exitCode := 1
	var ecerr errext.HasExitCode
	if errors.As(err, &ecerr) {
		exitCode = int(ecerr.ExitCode())
	}

	errText := err.Error()
	var xerr errext.Exception
	if errors.As(err, &xerr) {
		errText = xerr.StackTrace()
	}

	fields := logrus.Fields{}
	var herr errext.HasHint
	if errors.As(err, &herr) {
		fields["hint"] = herr.Hint()
	}
	gs.Logger.WithFields(fields).Error(errText)
	return exitCode
}

// ApplyVerbosity sets gs.Flags.Verbosity and adjusts the logger's level to
// match, the same knob the teacher's -v/-q persistent flags drive in
// rootCommand.setupLoggers.
func (gs *GlobalState) ApplyVerbosity(v int) {
	gs.Flags.Verbosity = v
	gs.Logger.SetLevel(levelForVerbosity(v))
}
