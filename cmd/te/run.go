package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"go.te.io/tescenario/errext"
	"go.te.io/tescenario/errext/exitcodes"
	"go.te.io/tescenario/internal/cfgmanager"
	"go.te.io/tescenario/internal/cliutil"
	"go.te.io/tescenario/internal/config"
	"go.te.io/tescenario/internal/dial"
	"go.te.io/tescenario/internal/metrics"
	"go.te.io/tescenario/internal/pathmatch"
	"go.te.io/tescenario/internal/prepare"
	"go.te.io/tescenario/internal/reducer"
	"go.te.io/tescenario/internal/report"
	"go.te.io/tescenario/internal/reqeval"
	"go.te.io/tescenario/internal/runhook"
	"go.te.io/tescenario/internal/scenario"
	"go.te.io/tescenario/internal/trc"
	"go.te.io/tescenario/internal/treeio"
	"go.te.io/tescenario/internal/walker"
	"go.te.io/tescenario/lib"
)

// newRunCommand builds the "run" subcommand: load tree, build scenario,
// walk it, report (spec.md §6 is this command's exact flag surface).
func newRunCommand(gs *cliutil.GlobalState) *cobra.Command {
	var opts config.Options

	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a test campaign against a suite",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCampaign(gs, &opts)
		},
	}
	cmd.Flags().AddFlagSet(opts.FlagSet())
	return cmd
}

func runCampaign(gs *cliutil.GlobalState, opts *config.Options) error {
	name, path, err := parseSuite(opts.Suite)
	if err != nil {
		return errext.WithExitCodeIfNone(errext.WithHint(err, "pass --suite name:path"), exitcodes.InvalidConfig)
	}

	loader := treeio.YAMLLoader{}
	tree, err := loader.Load(gs.FS, path)
	if err != nil {
		return errext.WithExitCodeIfNone(fmt.Errorf("te: loading suite %q: %w", name, err), exitcodes.InvalidConfig)
	}

	if err := prepare.Prepare(tree, gs.Logger); err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.PreparationOverflow)
	}

	if opts.NoLogues {
		for _, cfg := range tree.Configs {
			stripLogues(cfg.Runs)
		}
	}

	overlays, err := opts.PathOverlays()
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}

	var reqExpr lib.ReqExpr
	if opts.Req != "" {
		reqExpr, err = reqeval.ParseExpr(opts.Req)
		if err != nil {
			return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
		}
	}

	var trcDB *trc.Database
	if opts.TRCDB != "" && !opts.NoTRC {
		trcDB, err = trc.LoadFile(opts.TRCDB)
		if err != nil {
			return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
		}
	}

	reg := metrics.New(prometheus.NewRegistry())
	rw := report.NewWriter()
	hook := &runhook.LocalExec{RandSeed: opts.RandomSeed}

	// --no-cfg-track simply withholds the configuration manager: the
	// walker's backup discipline already treats a nil CfgMgr as "tracking
	// off" (internal/walker.runOneIteration's `tracked` guard).
	var cfgMgr cfgmanager.Manager
	if !opts.NoCfgTrack {
		cfgMgr = cfgmanager.NewInMemory()
	}

	// --no-build and --no-cs have no component to gate in this core: an
	// external builder and an external verdicts listener are both named
	// non-core collaborators (spec.md §1 "Out of scope"), never
	// constructed here. The flags are still accepted so the full CLI
	// surface spec.md §6 lists parses.

	unexpected := false
	group := lib.StatusIncomplete

	for _, cfg := range tree.Configs {
		scn, err := buildScenario(cfg, overlays)
		if err != nil {
			return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
		}

		if opts.DialPct != 100 {
			sampler := dial.NewSampler(opts.RandomSeed)
			scn, err = dial.Dial(sampler, scn, opts.DialPct)
			if err != nil {
				return errext.WithExitCodeIfNone(err, exitcodes.GenericWalker)
			}
		}

		if len(scn.Acts) == 0 && !opts.Interactive {
			return errext.WithExitCodeIfNone(
				fmt.Errorf("te: scenario for suite %q maintainer %q is empty", name, cfg.Maintainer),
				exitcodes.ScenarioEmpty)
		}

		if opts.NoRun {
			continue
		}

		w := &walker.Walker{
			CfgMgr: cfgMgr,
			Logger: gs.Logger,
			Callbacks: walker.Callbacks{
				Script: scriptCallback(gs, hook, reqExpr, opts, trcDB, reg, rw, &unexpected),
			},
		}
		status := w.WalkConfig(gs.Ctx, cfg, scn)
		reg.ObserveScenario(scn.TotalIters())
		group = lib.JoinStatus(group, status)
	}

	if err := rw.WriteTextFile(gs.FS, "report.txt"); err != nil {
		gs.Logger.WithError(err).Warn("failed writing text report")
	}
	if err := rw.WriteJSONFile(gs.FS, "report.json"); err != nil {
		gs.Logger.WithError(err).Warn("failed writing json report")
	}

	if unexpected {
		return errext.WithExitCodeIfNone(
			fmt.Errorf("te: run produced results the TRC database did not expect"), exitcodes.TRCMismatch)
	}
	if group != lib.StatusPassed && group != lib.StatusIncomplete && group != lib.StatusFaked && group != lib.StatusEmpty {
		return errext.WithExitCodeIfNone(fmt.Errorf("te: campaign finished with status %s", group), exitcodes.GenericWalker)
	}
	return nil
}

// parseSuite splits spec.md §6's "--suite name:path" value.
func parseSuite(raw string) (name, path string, err error) {
	name, path, ok := strings.Cut(raw, ":")
	if !ok || name == "" || path == "" {
		return "", "", fmt.Errorf("te: --suite must be of the form name:path, got %q", raw)
	}
	return name, path, nil
}

// stripLogues clears every session's prologue/epilogue recursively, the
// effect --no-logues asks for (spec.md §6).
func stripLogues(items []lib.RunItem) {
	for _, item := range items {
		switch it := item.(type) {
		case *lib.Session:
			it.Prologue = nil
			it.Epilogue = nil
			stripLogues(it.Children)
		case *lib.Package:
			it.Sess.Prologue = nil
			it.Sess.Epilogue = nil
			stripLogues(it.Sess.Children)
		}
	}
}

// buildScenario composes one config's main scenario from its path
// overlays, in the fixed precedence order internal/config.PathOverlays
// documents: selection (run/run-from/run-to/exclude) before diagnostic
// flag overlays (vg/gdb/fake).
func buildScenario(cfg *lib.Config, overlays map[pathmatch.PathMode][]pathmatch.PathItem) (*lib.Scenario, error) {
	var main *lib.Scenario
	if items, ok := overlays[pathmatch.ModeRun]; ok {
		merged, err := scenario.Merge(&lib.Scenario{}, pathmatch.MatchConfig(cfg, items), 0)
		if err != nil {
			return nil, err
		}
		main = merged
	} else if cfg.TotalIters > 0 {
		main = &lib.Scenario{Acts: []lib.Act{scenario.NewAct(0, cfg.TotalIters-1, 0)}}
	} else {
		main = &lib.Scenario{}
	}

	if items, ok := overlays[pathmatch.ModeRunFrom]; ok {
		if matched := pathmatch.MatchConfig(cfg, items); len(matched.Acts) > 0 {
			main = scenario.ApplyFrom(main, minFirst(matched.Acts))
		}
	}
	if items, ok := overlays[pathmatch.ModeRunTo]; ok {
		if matched := pathmatch.MatchConfig(cfg, items); len(matched.Acts) > 0 {
			main = scenario.ApplyTo(main, maxLast(matched.Acts))
		}
	}
	if items, ok := overlays[pathmatch.ModeExclude]; ok {
		main = scenario.Subtract(main, pathmatch.MatchConfig(cfg, items).Acts)
	}

	for _, mode := range []pathmatch.PathMode{pathmatch.ModeVg, pathmatch.ModeGdb, pathmatch.ModeFake} {
		items, ok := overlays[mode]
		if !ok {
			continue
		}
		matched := pathmatch.MatchConfig(cfg, items)
		scenario.AddFlags(matched, pathmatch.FlagFor(mode))
		main = scenario.ApplyFlags(main, matched.Acts)
	}

	return scenario.Glue(main), nil
}

func minFirst(acts []lib.Act) uint64 {
	m := acts[0].First
	for _, a := range acts[1:] {
		if a.First < m {
			m = a.First
		}
	}
	return m
}

func maxLast(acts []lib.Act) uint64 {
	m := acts[0].Last
	for _, a := range acts[1:] {
		if a.Last > m {
			m = a.Last
		}
	}
	return m
}

// scriptCallback builds the walker.Callbacks.Script closure: requirement
// filtering, the runner hook invocation, result reduction, TRC
// cross-checking, metrics, and report recording all happen here, per
// iteration (spec.md §4.5 "Script actually executes one leaf iteration").
func scriptCallback(
	gs *cliutil.GlobalState,
	hook runhook.Hook,
	reqExpr lib.ReqExpr,
	opts *config.Options,
	trcDB *trc.Database,
	reg *metrics.Registry,
	rw *report.Writer,
	unexpected *bool,
) func(walker.Iteration) (lib.TesterStatus, lib.WalkCtl) {
	return func(it walker.Iteration) (lib.TesterStatus, lib.WalkCtl) {
		if reqExpr != nil {
			if match, _ := reqeval.Eval(reqExpr, buildReqContext(it)); !match {
				if !opts.Quietskip {
					gs.Logger.WithField("run", it.RunName).Info("skipped: requirement expression did not match")
				}
				rw.Add(report.Record{Path: it.RunName, Iteration: uint64(it.GlobalID), ExecID: it.ExecID.String(), Status: lib.StatusSkipped})
				reg.ObserveStatus(it.RunName, lib.StatusSkipped)
				return lib.StatusSkipped, lib.CtlSkip
			}
		}

		var status lib.TesterStatus
		if it.Flags.Has(lib.FlagFake) {
			status = lib.StatusFaked
		} else {
			outcome := hook.Run(gs.Ctx, it.Script, it.RunName, it.ExecID.String(), it.Args, it.Flags)
			status = reducer.Reduce(outcome)
		}

		record := report.Record{Path: it.RunName, Iteration: uint64(it.GlobalID), ExecID: it.ExecID.String(), Status: status}
		if trcDB != nil {
			verdict := trcDB.Match(it.RunName, tagsFor(it, opts.TRCTag), uint64(it.GlobalID), status)
			rw.AddFromVerdict(record, verdict)
			if verdict.Unexpected {
				*unexpected = true
			}
		} else {
			rw.Add(record)
		}
		reg.ObserveStatus(it.RunName, status)

		return status, lib.CtlCont
	}
}

// requirementID resolves one Requirement to the tag id it contributes:
// either its own ID, or (RefArg set) the current value bound to that
// argument name.
func requirementID(r lib.Requirement, args []runhook.Arg) string {
	if r.RefArg == "" {
		return r.ID
	}
	for _, a := range args {
		if a.Name == r.RefArg {
			return a.Value
		}
	}
	return ""
}

// tagsFor collects the tag set active at it: the non-empty user-supplied
// tags (--trc-tag), every sticky requirement the descent accumulated, plus
// it.Script's own requirements (spec.md GLOSSARY "Tag": "a string in a
// user-supplied set used to ... select TRC expectations").
func tagsFor(it walker.Iteration, userTags ...string) []string {
	seen := map[string]bool{}
	for _, t := range userTags {
		if t != "" {
			seen[t] = true
		}
	}
	for name, on := range it.Sticky {
		if on {
			seen[name] = true
		}
	}
	if it.Script != nil {
		for _, r := range it.Script.Reqs {
			if id := requirementID(r, it.Args); id != "" {
				seen[id] = true
			}
		}
	}
	tags := make([]string, 0, len(seen))
	for name := range seen {
		tags = append(tags, name)
	}
	sort.Strings(tags)
	return tags
}

// buildReqContext adapts an Iteration into the reqeval.Context the
// requirement evaluator consults (spec.md §4.6).
func buildReqContext(it walker.Iteration) *reqeval.Context {
	test := map[string]bool{}
	if it.Script != nil {
		for _, r := range it.Script.Reqs {
			if id := requirementID(r, it.Args); id != "" {
				test[id] = true
			}
		}
	}
	args := make([]reqeval.ArgBinding, 0, len(it.Args))
	for _, a := range it.Args {
		args = append(args, reqeval.ArgBinding{Name: a.Name, Value: a.Value})
	}
	return &reqeval.Context{Sticky: it.Sticky, Test: test, Args: args}
}
