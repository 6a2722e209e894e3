package cliutil

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"go.te.io/tescenario/lib/testutils"
)

// TestState bundles a GlobalState wired for hermetic tests with handles
// to its captured output, mirroring the teacher's NewGlobalTestState: an
// in-memory afero.Fs, buffered stdout/stderr, a no-op OSExit, and a
// recording log hook instead of touching the real process.
type TestState struct {
	*GlobalState
	Stdout, Stderr *bytes.Buffer
	ExitCode       *int
	LoggerHook     *testutils.SimpleLogrusHook
}

// NewTestState returns a GlobalState that never touches the real OS.
func NewTestState() *TestState {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	outMutex := &sync.Mutex{}
	exitCode := new(int)
	*exitCode = -1

	hook := &testutils.SimpleLogrusHook{HookedLevels: logrus.AllLevels}
	logger := &logrus.Logger{
		Out:       stderr,
		Formatter: new(logrus.TextFormatter),
		Hooks:     logrus.LevelHooks{},
		Level:     logrus.DebugLevel,
	}
	logger.AddHook(hook)

	gs := &GlobalState{
		Ctx:          context.Background(),
		FS:           afero.NewMemMapFs(),
		Getwd:        func() (string, error) { return "/", nil },
		Args:         []string{"te"},
		Env:          map[string]string{},
		DefaultFlags: GetDefaultFlags("/config"),
		Flags:        GetDefaultFlags("/config"),
		OutMutex:     outMutex,
		Stdout:       &ConsoleWriter{Writer: stdout, Mutex: outMutex},
		Stderr:       &ConsoleWriter{Writer: stderr, Mutex: outMutex},
		Stdin:        strings.NewReader(""),
		OSExit:       func(code int) { *exitCode = code },
		SignalNotify: func(chan<- os.Signal, ...os.Signal) {},
		SignalStop:   func(chan<- os.Signal) {},
		Logger:       logger,
	}

	return &TestState{
		GlobalState: gs,
		Stdout:      stdout,
		Stderr:      stderr,
		ExitCode:    exitCode,
		LoggerHook:  hook,
	}
}
