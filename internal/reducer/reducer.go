// Package reducer maps a script's raw exit/signal outcome into the
// internal TesterStatus vocabulary the walker and group-status join
// operate on (spec.md §4.7).
package reducer

import (
	"syscall"

	"go.te.io/tescenario/internal/runhook"
	"go.te.io/tescenario/lib"
)

// Special exit codes the runner hook's wrapped executables use to signal
// non-pass/fail outcomes, named after the original tester's exit-code
// contract (spec.md §4.7).
const (
	ExitSuccess       = 0
	ExitFailure       = 1
	ExitSigusr2Sigint = 2
	ExitNotFound      = 3
	ExitError         = 4
	ExitSkip          = 5
)

// Reduce maps o into a TesterStatus per spec.md §4.7's mapping table.
// StartErr (the executable could not even be spawned) is always Error;
// it is distinct from the process running and exiting badly.
func Reduce(o runhook.Outcome) lib.TesterStatus {
	if o.StartErr != nil {
		return lib.StatusError
	}
	if o.Signaled {
		if o.CoreDumped {
			return lib.StatusCored
		}
		if o.Signal == syscall.SIGINT {
			return lib.StatusStopped
		}
		return lib.StatusKilled
	}
	switch o.ExitCode {
	case ExitSuccess:
		return lib.StatusPassed
	case ExitFailure:
		return lib.StatusFailed
	case ExitSigusr2Sigint:
		return lib.StatusStopped
	case ExitNotFound:
		return lib.StatusSearch
	case ExitError:
		return lib.StatusStopped
	case ExitSkip:
		return lib.StatusSkipped
	default:
		return lib.StatusFailed
	}
}

// OverlayDirty returns Dirty if drift was found and the policy reports it,
// otherwise returns status unchanged (spec.md §4.7 "Dirty overlays any of
// the above"). The caller (internal/walker's backup discipline) decides
// whether a given TrackConf policy reports drift at all.
func OverlayDirty(status lib.TesterStatus, driftReported bool) lib.TesterStatus {
	if driftReported {
		return lib.StatusDirty
	}
	return status
}
