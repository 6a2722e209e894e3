package lib

// Flag is a bit in the set a scenario act carries, drawn from the
// diagnostic/mixing modes a path item can request (spec.md §3, §4.2).
type Flag uint16

// Flag bits. A zero Flag value means "no diagnostic mode, run normally".
const (
	FlagFake Flag = 1 << iota
	FlagGdb
	FlagValgrind
	FlagMixValues
	FlagMixArgs
	FlagMixTests
	FlagMixIters
	FlagMixSessions
)

var flagNames = []struct {
	bit  Flag
	name string
}{
	{FlagFake, "fake"},
	{FlagGdb, "gdb"},
	{FlagValgrind, "valgrind"},
	{FlagMixValues, "mix-values"},
	{FlagMixArgs, "mix-args"},
	{FlagMixTests, "mix-tests"},
	{FlagMixIters, "mix-iters"},
	{FlagMixSessions, "mix-sessions"},
}

// Has reports whether f contains every bit set in other.
func (f Flag) Has(other Flag) bool { return f&other == other }

// String renders f as a "|"-joined list of flag names, or "none".
func (f Flag) String() string {
	if f == 0 {
		return "none"
	}
	out := ""
	for _, fn := range flagNames {
		if f.Has(fn.bit) {
			if out != "" {
				out += "|"
			}
			out += fn.name
		}
	}
	return out
}

// Handdown controls how far a session's override of an inheritable hook
// (exception, keepalive, track_conf) is visible during preparation
// (spec.md §4.1).
type Handdown int

const (
	// HanddownNone means the override applies within the session that set
	// it (including its own non-session children) and is dropped on entry
	// into the next nested session.
	HanddownNone Handdown = iota
	// HanddownChildren means the override also survives into directly
	// nested sessions and is dropped at the next session level below them;
	// the value inherited before this session is not restored.
	HanddownChildren
	// HanddownDescendants means the override is visible to every
	// descendant, until some descendant session overrides it again.
	HanddownDescendants
)

// TrackConf is the per-session/script configuration-backup drift policy
// (spec.md §3 Requirement, §4.5 Backup discipline).
type TrackConf int

const (
	// TrackConfInherit means "use whatever the enclosing session set";
	// only meaningful before preparation resolves inheritance.
	TrackConfInherit TrackConf = iota
	// TrackConfNo disables backup tracking for this subtree entirely.
	TrackConfNo
	// TrackConfYes creates/verifies/restores a backup, logging drift.
	TrackConfYes
	// TrackConfSilent restores drift without logging it.
	TrackConfSilent
	// TrackConfNohistory restores drift without recording history.
	TrackConfNohistory
	// TrackConfYesNohistory logs drift and restores without history.
	TrackConfYesNohistory
)

// TesterStatus is the internal result of one iteration, after the result
// reducer (spec.md §4.7) has mapped raw exit/signal information.
type TesterStatus int

const (
	StatusIncomplete TesterStatus = iota
	StatusEmpty
	StatusSkipped
	StatusFaked
	StatusPassed
	StatusFailed
	StatusSearch
	StatusDirty
	StatusKilled
	StatusCored
	StatusProlog
	StatusEpilog
	StatusKeepalive
	StatusException
	StatusStopped
	StatusError
)

var statusNames = [...]string{
	"incomplete", "empty", "skipped", "faked", "passed", "failed", "search",
	"dirty", "killed", "cored", "prolog", "epilog", "keepalive", "exception",
	"stopped", "error",
}

func (s TesterStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// severity ranks statuses for the monotonic group join (spec.md §4.7):
// higher is worse. Search is deliberately ranked below Failed, since
// joining a Search result into a group upgrades the group to Failed, not
// to Search.
var severity = map[TesterStatus]int{
	StatusPassed:     0,
	StatusFaked:      0,
	StatusSkipped:    1,
	StatusEmpty:      1,
	StatusIncomplete: -1,
	StatusSearch:     2,
	StatusDirty:      3,
	StatusProlog:     4,
	StatusEpilog:     4,
	StatusFailed:     5,
	StatusKeepalive:  6,
	StatusException:  6,
	StatusKilled:     7,
	StatusCored:      8,
	StatusStopped:    9,
	StatusError:      10,
}

// JoinStatus implements the group-status monotonic join: it upgrades g to
// i only if i is strictly worse, with the special case that Search always
// upgrades a group to Failed rather than to Search itself.
func JoinStatus(g, i TesterStatus) TesterStatus {
	effective := i
	if i == StatusSearch {
		effective = StatusFailed
	}
	if severity[effective] > severity[g] {
		return effective
	}
	return g
}

// WalkCtl is the control value every walker callback returns (spec.md §4.5).
type WalkCtl int

const (
	// CtlCont continues normal traversal.
	CtlCont WalkCtl = iota
	// CtlBack requests a restart from the first sibling/iteration.
	CtlBack
	// CtlBreak leaves the current repetition loop.
	CtlBreak
	// CtlSkip skips the current subtree.
	CtlSkip
	// CtlExc raises an exception, triggering the session's exception
	// handler when control returns to the session boundary.
	CtlExc
	// CtlFin means "no new work, but finish already-entered nodes".
	CtlFin
	// CtlStop is a user-interrupt (SIGINT).
	CtlStop
	// CtlIntr is a keepalive/exception handler failure.
	CtlIntr
	// CtlFault is an internal error.
	CtlFault
)

func (c WalkCtl) String() string {
	switch c {
	case CtlCont:
		return "cont"
	case CtlBack:
		return "back"
	case CtlBreak:
		return "break"
	case CtlSkip:
		return "skip"
	case CtlExc:
		return "exc"
	case CtlFin:
		return "fin"
	case CtlStop:
		return "stop"
	case CtlIntr:
		return "intr"
	case CtlFault:
		return "fault"
	default:
		return "unknown"
	}
}

// ctlRank backs the dominance rule in MergeCtl: Fault|Fin|Stop|Intr
// dominate unconditionally, everything else defers to "newest wins".
func ctlRank(c WalkCtl) int {
	switch c {
	case CtlFault:
		return 4
	case CtlFin:
		return 3
	case CtlStop:
		return 3
	case CtlIntr:
		return 3
	default:
		return 0
	}
}

// MergeCtl combines a control value from a child's end (prev) with one
// from a wrapper (next), per spec.md §4.5's merge rule: Fault|Fin|Stop|Intr
// dominate unconditionally; otherwise the newer value wins, except that
// Break and Back only survive being overwritten if the incoming value is
// Cont (i.e. prev being Break/Back is "sticky" against a plain Cont next).
func MergeCtl(prev, next WalkCtl) WalkCtl {
	pr, nr := ctlRank(prev), ctlRank(next)
	if pr > nr {
		return prev
	}
	if nr > pr {
		return next
	}
	if (prev == CtlBreak || prev == CtlBack) && next == CtlCont {
		return prev
	}
	return next
}
