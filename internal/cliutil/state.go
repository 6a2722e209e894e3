// Package cliutil holds the orchestrator binary's process-external state
// container, grounded on the teacher's cmd/root.go globalState /
// cmd/state.GlobalState pattern: every access to os.Stdout/Stderr/Stdin,
// os.Args, os.Environ, and the filesystem is routed through one struct so
// tests can swap in an in-memory afero.Fs and captured buffers instead of
// touching the real process environment.
package cliutil

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const defaultConfigFileName = "te-config.json"

// GlobalFlags are the global (non-subcommand-specific) CLI flags, mostly
// logging/output knobs every invocation of the orchestrator shares
// (spec.md §6's `--verbose`/`--quiet` stackable four levels live here).
type GlobalFlags struct {
	ConfigFilePath string
	// Verbosity is net verbose-minus-quiet, stored as given: negative
	// values raise the minimum logged level, positive values lower it;
	// values at or below -2 log errors only, at or above 2 log everything.
	Verbosity int
	NoColor   bool
	LogOutput string
}

// GlobalState groups the orchestrator's process-external state so the
// rest of the codebase never reaches for the os package directly.
type GlobalState struct {
	Ctx context.Context

	FS    afero.Fs
	Getwd func() (string, error)
	Args  []string
	Env   map[string]string

	DefaultFlags, Flags GlobalFlags

	OutMutex       *sync.Mutex
	Stdout, Stderr *ConsoleWriter
	Stdin          io.Reader

	OSExit       func(int)
	SignalNotify func(chan<- os.Signal, ...os.Signal)
	SignalStop   func(chan<- os.Signal)

	Logger *logrus.Logger
}

// NewGlobalState builds a GlobalState wired to the real OS: real stdio,
// a real filesystem, real signals. This is the only constructor in the
// codebase allowed to reach into the os package directly.
func NewGlobalState(ctx context.Context) *GlobalState {
	isDumbTerm := os.Getenv("TERM") == "dumb"
	stdoutTTY := !isDumbTerm && (isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))
	stderrTTY := !isDumbTerm && (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()))
	outMutex := &sync.Mutex{}

	stdout := &ConsoleWriter{Writer: colorable.NewColorable(os.Stdout), IsTTY: stdoutTTY, Mutex: outMutex}
	stderr := &ConsoleWriter{Writer: colorable.NewColorable(os.Stderr), IsTTY: stderrTTY, Mutex: outMutex}

	env := BuildEnvMap(os.Environ())
	_, noColorSet := env["NO_COLOR"]

	confDir, err := os.UserConfigDir()
	if err != nil {
		confDir = ".config"
	}
	defaultFlags := GetDefaultFlags(confDir)
	flags := getFlags(defaultFlags, env)

	logger := &logrus.Logger{
		Out: stderr,
		Formatter: &logrus.TextFormatter{
			ForceColors:   stderrTTY,
			DisableColors: !stderrTTY || noColorSet || flags.NoColor,
		},
		Hooks: make(logrus.LevelHooks),
		Level: levelForVerbosity(flags.Verbosity),
	}

	return &GlobalState{
		Ctx:          ctx,
		FS:           afero.NewOsFs(),
		Getwd:        os.Getwd,
		Args:         append([]string(nil), os.Args...),
		Env:          env,
		DefaultFlags: defaultFlags,
		Flags:        flags,
		OutMutex:     outMutex,
		Stdout:       stdout,
		Stderr:       stderr,
		Stdin:        os.Stdin,
		OSExit:       os.Exit,
		SignalNotify: signal.Notify,
		SignalStop:   signal.Stop,
		Logger:       logger,
	}
}

// GetDefaultFlags returns the defaults used before env vars/CLI flags are
// consulted.
func GetDefaultFlags(confDir string) GlobalFlags {
	return GlobalFlags{
		ConfigFilePath: filepath.Join(confDir, "te", defaultConfigFileName),
		LogOutput:      "stderr",
	}
}

func getFlags(defaultFlags GlobalFlags, env map[string]string) GlobalFlags {
	result := defaultFlags
	if val, ok := env["TE_CONFIG"]; ok {
		result.ConfigFilePath = val
	}
	if val, ok := env["TE_LOG_OUTPUT"]; ok {
		result.LogOutput = val
	}
	if _, ok := env["NO_COLOR"]; ok {
		result.NoColor = true
	}
	return result
}

func levelForVerbosity(v int) logrus.Level {
	switch {
	case v <= -2:
		return logrus.ErrorLevel
	case v == -1:
		return logrus.WarnLevel
	case v == 0:
		return logrus.InfoLevel
	case v == 1:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

func parseEnvKeyValue(kv string) (string, string) {
	if idx := strings.IndexRune(kv, '='); idx != -1 {
		return kv[:idx], kv[idx+1:]
	}
	return kv, ""
}

// BuildEnvMap turns the os.Environ()-shaped slice into a lookup map.
func BuildEnvMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v := parseEnvKeyValue(kv)
		env[k] = v
	}
	return env
}
