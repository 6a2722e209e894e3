// Package exitcodes defines the process exit codes tescenario can return,
// mirroring the teacher's errext/exitcodes constants where the concern
// carries over, with additions for this domain's error kinds (spec.md §7).
package exitcodes

// ExitCode is a process exit status in [1, 255].
type ExitCode uint8

const (
	// InvalidConfig is returned for UserConfig errors: bad CLI flags, a
	// malformed path expression, an unparsable requirement expression.
	InvalidConfig ExitCode = 3

	// PreparationOverflow is returned when the preparation pass detects
	// n_iters/weight overflow (spec.md §4.1 error policy).
	PreparationOverflow ExitCode = 4

	// ScenarioEmpty is returned when scenario building produced no acts
	// and the run was not started in --interactive mode.
	ScenarioEmpty ExitCode = 5

	// BackupDriftUnrecoverable is returned when the configuration-backup
	// discipline detects drift that policy escalates instead of silently
	// restoring.
	BackupDriftUnrecoverable ExitCode = 6

	// TRCMismatch is returned when expected-results cross-checking finds
	// at least one unexpected status after a completed run.
	TRCMismatch ExitCode = 7

	// GenericWalker is a catch-all for internal walker faults that have
	// no more specific exit code (spec.md §7 "Internal" kind); `te run`
	// also returns it when the campaign's joined status is worse than
	// passed/faked/empty/incomplete.
	GenericWalker ExitCode = 10

	// ExternalAbort is returned when a second SIGINT forces immediate
	// termination mid-run.
	ExternalAbort ExitCode = 130

	// ScriptAborted is returned when a test script's run was aborted by
	// an unrecoverable service failure (prologue/keepalive/exception).
	ScriptAborted ExitCode = 11
)
