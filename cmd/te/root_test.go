package main

import (
	"testing"

	"github.com/sirupsen/logrus"

	"go.te.io/tescenario/internal/cliutil"
)

func TestVerboseFlagsAdjustLoggerLevel(t *testing.T) {
	ts := cliutil.NewTestState()
	ts.Args = []string{"te", "-vv", "version"}
	root := newRootCommand(ts.GlobalState)

	if code := cliutil.Execute(ts.GlobalState, root); code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if ts.Logger.Level != logrus.TraceLevel {
		t.Fatalf("logger level = %v, want %v", ts.Logger.Level, logrus.TraceLevel)
	}
}

func TestUnknownSubcommandFails(t *testing.T) {
	ts := cliutil.NewTestState()
	ts.Args = []string{"te", "bogus"}
	root := newRootCommand(ts.GlobalState)

	code := cliutil.Execute(ts.GlobalState, root)

	if code == 0 {
		t.Fatalf("exit code = 0, want non-zero for an unknown subcommand")
	}
}
