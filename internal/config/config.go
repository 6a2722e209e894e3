// Package config consolidates the orchestrator's run-time CLI flag
// surface (spec.md §6) into one Options struct, grounded on the teacher's
// configFlagSet/Config pattern (cmd/config.go): a pflag.FlagSet builder
// plus a plain struct the command handler reads after parsing.
package config

import (
	"github.com/spf13/pflag"

	"go.te.io/tescenario/internal/pathmatch"
)

// Options is the consolidated --run/--vg/--gdb/... flag surface spec.md
// §6 names for the orchestrator binary.
type Options struct {
	Suite string

	NoRun      bool
	NoBuild    bool
	NoTRC      bool
	NoCS       bool
	NoCfgTrack bool
	NoLogues   bool

	Req        string
	Quietskip  bool
	Fake       string
	Run        string
	RunFrom    string
	RunTo      string
	Exclude    string
	Vg         string
	Gdb        string
	RandomSeed int64
	DialPct    int

	TRCDB  string
	TRCTag string

	Interactive bool
}

// FlagSet returns a pflag.FlagSet pre-wired to populate o. SortFlags is
// disabled to keep --help output in spec.md §6's listed order (teacher
// convention: cmd/config.go's configFlagSet does the same).
func (o *Options) FlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("te", pflag.ContinueOnError)
	flags.SortFlags = false

	flags.StringVar(&o.Suite, "suite", "", "suite name:path to run")
	flags.BoolVar(&o.NoRun, "no-run", false, "build and validate only, do not execute")
	flags.BoolVar(&o.NoBuild, "no-build", false, "skip the build step")
	flags.BoolVar(&o.NoTRC, "no-trc", false, "disable expected-results cross-checking")
	flags.BoolVar(&o.NoCS, "no-cs", false, "disable the verdicts listener")
	flags.BoolVar(&o.NoCfgTrack, "no-cfg-track", false, "disable configuration-backup tracking")
	flags.BoolVar(&o.NoLogues, "no-logues", false, "skip prologue/epilogue execution")
	flags.StringVar(&o.Req, "req", "", "requirement expression filtering the run")
	flags.BoolVar(&o.Quietskip, "quietskip", false, "don't log requirement-filtered skips")
	flags.StringVar(&o.Fake, "fake", "", "path to mark as fake (scenario dry-run)")
	flags.StringVar(&o.Run, "run", "", "path to restrict the run to")
	flags.StringVar(&o.RunFrom, "run-from", "", "path to start the run from")
	flags.StringVar(&o.RunTo, "run-to", "", "path to stop the run at")
	flags.StringVar(&o.Exclude, "exclude", "", "path to exclude from the run")
	flags.StringVar(&o.Vg, "vg", "", "path to run under valgrind")
	flags.StringVar(&o.Gdb, "gdb", "", "path to run under gdb")
	flags.Int64Var(&o.RandomSeed, "random-seed", 0, "seed for the dial sampler and te_rand_seed")
	flags.IntVar(&o.DialPct, "dial", 100, "percentage of the built scenario to actually run")
	flags.StringVar(&o.TRCDB, "trc-db", "", "path to the expected-results (TRC) YAML database")
	flags.StringVar(&o.TRCTag, "trc-tag", "", "TRC tag selecting which entries apply")
	flags.BoolVar(&o.Interactive, "interactive", false, "continue past scenario-build errors instead of aborting")

	return flags
}

// PathOverlays parses every non-empty path-overlay flag into its
// pathmatch.PathItem list, keyed by mode, in the fixed precedence order
// spec.md §4.2 implies: run/run-from/run-to/exclude first (selection),
// then the diagnostic overlays (vg, gdb, fake).
func (o *Options) PathOverlays() (map[pathmatch.PathMode][]pathmatch.PathItem, error) {
	out := map[pathmatch.PathMode][]pathmatch.PathItem{}
	specs := []struct {
		mode pathmatch.PathMode
		raw  string
	}{
		{pathmatch.ModeRun, o.Run},
		{pathmatch.ModeRunFrom, o.RunFrom},
		{pathmatch.ModeRunTo, o.RunTo},
		{pathmatch.ModeExclude, o.Exclude},
		{pathmatch.ModeVg, o.Vg},
		{pathmatch.ModeGdb, o.Gdb},
		{pathmatch.ModeFake, o.Fake},
	}
	for _, s := range specs {
		if s.raw == "" {
			continue
		}
		items, err := pathmatch.ParsePath(s.raw)
		if err != nil {
			return nil, err
		}
		out[s.mode] = items
	}
	return out, nil
}
