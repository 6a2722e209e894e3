// Package runhook implements the external run-hook collaborator spec.md
// §6 describes: an opaque "execute this script with this argv/env" call
// that returns a raw exit/signal outcome for internal/reducer to map.
package runhook

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"go.te.io/tescenario/lib"
)

// Arg is one ordered name=value argument passed on the spawned process's
// argv (session variables are filtered out before reaching here; spec.md
// §6 "Runner hook").
type Arg struct {
	Name  string
	Value string
}

// Outcome is the raw result internal/reducer consumes: either the
// process's exit code, or the signal that killed it, or a core-dump flag.
type Outcome struct {
	ExitCode   int
	Signaled   bool
	Signal     syscall.Signal
	CoreDumped bool
	// StartErr is non-nil if the process could not even be started (the
	// executable is missing, permissions, etc.) — distinct from it running
	// and exiting non-zero.
	StartErr error
}

// Hook is the opaque script-invocation collaborator the walker calls once
// per iteration; spec.md §6 "Runner hook" names exactly this contract.
type Hook interface {
	Run(ctx context.Context, script *lib.Script, runName string, execID string, args []Arg, flags lib.Flag) Outcome
}

// LocalExec is the concrete process-spawning Hook: it invokes the
// script's executable directly via os/exec, optionally prefixed with gdb
// or valgrind per the active flags (spec.md §6).
type LocalExec struct {
	// RandSeed is passed to every spawned process as te_rand_seed=<n>.
	RandSeed int64
	// GdbInitDir, if non-empty, is where per-test gdb-init files are
	// written when the Gdb flag is set.
	GdbInitDir string
	// ValgrindLogDir, if non-empty, is where per-test valgrind stderr logs
	// are written when the Valgrind flag is set.
	ValgrindLogDir string
}

// Run spawns script.Executable with argv built from args plus the
// implicit te_test_id/te_test_name/te_rand_seed triple, waits for it, and
// reduces the raw exit status into an Outcome.
func (l *LocalExec) Run(ctx context.Context, script *lib.Script, runName, execID string, args []Arg, flags lib.Flag) Outcome {
	argv := buildArgv(args, execID, runName, l.RandSeed)

	name := script.Executable
	cmdArgs := argv

	if flags.Has(lib.FlagGdb) {
		initFile, err := writeGdbInit(l.GdbInitDir, execID, name, argv)
		if err != nil {
			return Outcome{StartErr: err}
		}
		cmdArgs = []string{"-x", initFile, "--batch", name}
		name = "gdb"
	} else if flags.Has(lib.FlagValgrind) {
		logFile := valgrindLogPath(l.ValgrindLogDir, execID)
		cmdArgs = append([]string{"--log-file=" + logFile, name}, argv...)
		name = "valgrind"
	}

	cmd := exec.CommandContext(ctx, name, cmdArgs...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = os.Stdout

	err := cmd.Run()
	return outcomeFromErr(err)
}

func buildArgv(args []Arg, execID, runName string, seed int64) []string {
	argv := make([]string, 0, len(args)+3)
	for _, a := range args {
		argv = append(argv, a.Name+"="+a.Value)
	}
	argv = append(argv,
		"te_test_id="+execID,
		"te_test_name="+runName,
		"te_rand_seed="+strconv.FormatInt(seed, 10),
	)
	return argv
}

func outcomeFromErr(err error) Outcome {
	if err == nil {
		return Outcome{ExitCode: 0}
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return Outcome{StartErr: err}
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return Outcome{ExitCode: exitErr.ExitCode()}
	}
	if status.Signaled() {
		return Outcome{Signaled: true, Signal: status.Signal(), CoreDumped: status.CoreDump()}
	}
	return Outcome{ExitCode: status.ExitStatus()}
}

func writeGdbInit(dir, execID, executable string, argv []string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	path := fmt.Sprintf("%s/gdbinit-%s", dir, execID)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "file %s\n", executable)
	fmt.Fprintf(&buf, "set args %s\n", joinArgv(argv))
	fmt.Fprintln(&buf, "run")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("runhook: writing gdb init file: %w", err)
	}
	return path, nil
}

func joinArgv(argv []string) string {
	out := ""
	for i, a := range argv {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}

func valgrindLogPath(dir, execID string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return fmt.Sprintf("%s/valgrind-%s.log", dir, execID)
}
