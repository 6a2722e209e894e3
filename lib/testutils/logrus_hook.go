package testutils

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// SimpleLogrusHook implements logrus.Hook and records every entry fired at
// one of HookedLevels, so tests can assert on log output without scraping a
// formatted string.
type SimpleLogrusHook struct {
	HookedLevels []logrus.Level

	mutex   sync.Mutex
	entries []logrus.Entry
}

// Levels satisfies logrus.Hook.
func (h *SimpleLogrusHook) Levels() []logrus.Level {
	return h.HookedLevels
}

// Fire satisfies logrus.Hook.
func (h *SimpleLogrusHook) Fire(e *logrus.Entry) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.entries = append(h.entries, *e)
	return nil
}

// Drain returns and clears all entries recorded so far.
func (h *SimpleLogrusHook) Drain() []logrus.Entry {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	entries := h.entries
	h.entries = nil
	return entries
}

// LogContains reports whether any entry in entries was fired at level and
// contains msg as a substring of its message.
func LogContains(entries []logrus.Entry, level logrus.Level, msg string) bool {
	for _, e := range entries {
		if e.Level == level && strings.Contains(e.Message, msg) {
			return true
		}
	}
	return false
}
