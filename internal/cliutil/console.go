package cliutil

import (
	"bytes"
	"io"
	"sync"
)

// ConsoleWriter wraps an io.Writer shared between stdout/stderr and the
// logger, guarding concurrent writes with one mutex and, on a TTY,
// appending an erase-to-end-of-line code after every newline so a
// persistent status line never leaves garbage behind (teacher:
// cmd/ui.go's consoleWriter).
type ConsoleWriter struct {
	Writer io.Writer
	IsTTY  bool
	Mutex  *sync.Mutex

	// PersistentText, if set, is invoked after every write while still
	// holding Mutex (e.g. to redraw a progress line).
	PersistentText func()
}

func (w *ConsoleWriter) Write(p []byte) (int, error) {
	origLen := len(p)
	if w.IsTTY {
		p = bytes.ReplaceAll(p, []byte{'\n'}, []byte{'\x1b', '[', '0', 'K', '\n'})
	}

	w.Mutex.Lock()
	n, err := w.Writer.Write(p)
	if w.PersistentText != nil {
		w.PersistentText()
	}
	w.Mutex.Unlock()

	if err != nil && n < origLen {
		return n, err
	}
	return origLen, err
}
