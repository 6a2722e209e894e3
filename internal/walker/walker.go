// Package walker implements the scenario walker of spec.md §4.5: it
// re-traverses a prepared ConfigTree in lock-step with a Scenario,
// dispatching a callback table and driving the four service state
// machines (prologue, keepalive, exception, epilogue) plus the
// configuration-backup discipline around each iteration.
package walker

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go.te.io/tescenario/internal/cfgmanager"
	"go.te.io/tescenario/internal/reducer"
	"go.te.io/tescenario/internal/reqeval"
	"go.te.io/tescenario/internal/runhook"
	"go.te.io/tescenario/lib"
)

// Iteration describes one concrete binding reaching a script leaf: its
// global index, the resolved argument values, and the active flags for
// the act that covers it.
type Iteration struct {
	GlobalID int
	ExecID   uuid.UUID
	RunName  string
	Script   *lib.Script
	Args     []runhook.Arg
	Flags    lib.Flag
	Sticky   map[string]bool
}

// Callbacks is the sum-typed "optional hook" table of spec.md §4.5: any
// field left nil is treated as present but always returning Cont (spec.md
// §9 "Dynamic dispatch ... collapse to Cont by default").
type Callbacks struct {
	CfgStart, CfgEnd             func(*lib.Config) lib.WalkCtl
	PkgStart, PkgEnd             func(*lib.Package) lib.WalkCtl
	SessionStart, SessionEnd     func(*lib.Session) lib.WalkCtl
	PrologueStart, PrologueEnd   func(*lib.Script) lib.WalkCtl
	EpilogueStart, EpilogueEnd   func(*lib.Script) lib.WalkCtl
	KeepaliveStart, KeepaliveEnd func(*lib.Script) lib.WalkCtl
	ExceptionStart, ExceptionEnd func(*lib.Script) lib.WalkCtl
	RunStart, RunEnd             func(lib.RunItem) lib.WalkCtl
	IterStart, IterEnd           func(Iteration) lib.WalkCtl
	RepeatStart, RepeatEnd       func(Iteration) lib.WalkCtl
	// Script actually executes one leaf iteration and returns its raw
	// status alongside a control value.
	Script func(Iteration) (lib.TesterStatus, lib.WalkCtl)
}

func callOrCont1[T any](f func(T) lib.WalkCtl, v T) lib.WalkCtl {
	if f == nil {
		return lib.CtlCont
	}
	return f(v)
}

// runScript is the actual per-iteration script dispatch: Callbacks.Script
// takes priority when set (it may need to inspect or rewrite control
// flow, e.g. CtlExc), otherwise Hook is invoked directly and its raw
// Outcome reduced to a TesterStatus.
func (w *Walker) runScript(ctx context.Context, it Iteration) (lib.TesterStatus, lib.WalkCtl) {
	if w.Callbacks.Script != nil {
		return w.Callbacks.Script(it)
	}
	if w.Hook == nil {
		return lib.StatusIncomplete, lib.CtlCont
	}
	outcome := w.Hook.Run(ctx, it.Script, it.RunName, it.ExecID.String(), it.Args, it.Flags)
	return reducer.Reduce(outcome), lib.CtlCont
}

// hasScript reports whether any script-execution path is configured;
// runService uses it to decide whether running a service at all makes
// sense, mirroring the previous "Callbacks.Script == nil" short-circuit.
func (w *Walker) hasScript() bool {
	return w.Callbacks.Script != nil || w.Hook != nil
}

// Walker drives one ConfigTree traversal against one Scenario.
type Walker struct {
	// Hook is the default script-invocation path, used whenever
	// Callbacks.Script is left nil: the common case of "just run the
	// script and reduce its exit status" doesn't need a caller-supplied
	// closure at all (spec.md §9 "Dynamic dispatch ... collapse to Cont
	// by default" extended to the one callback that isn't WalkCtl-shaped).
	Hook      runhook.Hook
	CfgMgr    cfgmanager.Manager
	Callbacks Callbacks
	Logger    logrus.FieldLogger

	// sigintReceived is the process-wide signal flag spec.md §9 describes
	// ("Global mutable state ... a single atomic flag for the signal
	// handler"), checked at run_start/iter_start/repeat_end.
	sigintReceived atomic.Bool

	execCounter int
}

// RequestStop lets an external SIGINT handler flag a graceful stop,
// converted to CtlStop at the next checkpoint (spec.md §5 "Cancellation").
func (w *Walker) RequestStop() { w.sigintReceived.Store(true) }

// cursor tracks the scenario's current position: which act we're in and
// the global iteration id we expect next (spec.md §4.5 "Scenario
// synchronisation").
type cursor struct {
	acts   []lib.Act
	actIdx int
}

func newCursor(s *lib.Scenario) *cursor {
	return &cursor{acts: s.Acts}
}

func (c *cursor) exhausted() bool { return c.actIdx >= len(c.acts) }

// syncMode mirrors TESTING_FORWARD/BACKWARD/STOP: compares [first,last)
// against the cursor's current act to decide whether to skip, descend, or
// stop (spec.md §4.5).
type syncMode int

const (
	syncForward syncMode = iota
	syncSkip
	syncStop
)

func (c *cursor) sync(first, lastExclusive uint64) syncMode {
	if c.exhausted() {
		return syncStop
	}
	act := c.acts[c.actIdx]
	if lastExclusive <= act.First {
		return syncSkip
	}
	return syncForward
}

// actFlagsAt returns the flags of the act covering idx, advancing actIdx
// past any acts that end before idx, and false if idx is not covered by
// any remaining act (i.e. it falls in a gap the scenario doesn't select).
func (c *cursor) actFlagsAt(idx uint64) (lib.Flag, bool) {
	for c.actIdx < len(c.acts) && c.acts[c.actIdx].Last < idx {
		c.actIdx++
	}
	if c.exhausted() {
		return 0, false
	}
	act := c.acts[c.actIdx]
	if !act.Contains(idx) {
		return 0, false
	}
	return act.Flags, true
}

// WalkConfig traverses cfg's direct runs against scn, invoking callbacks
// for every iteration scn selects. It returns the config's overall joined
// TesterStatus.
func (w *Walker) WalkConfig(ctx context.Context, cfg *lib.Config, scn *lib.Scenario) lib.TesterStatus {
	if w.Logger == nil {
		w.Logger = logrus.StandardLogger()
	}
	if len(scn.Acts) == 0 {
		// Boundary case (spec.md §8): an empty scenario is legal and the
		// walker never enters anything.
		return lib.StatusEmpty
	}

	ctl := callOrCont1(w.Callbacks.CfgStart, cfg)
	if ctl == lib.CtlStop || ctl == lib.CtlFault {
		return lib.StatusStopped
	}

	c := newCursor(scn)
	group := lib.StatusIncomplete
	sticky := map[string]bool{}
	if cfg.TargetReq != nil {
		// Target requirement evaluated once per config against an empty
		// argument context; the result is discarded and the sticky set
		// starts the descent empty.
		_, _ = reqeval.Eval(cfg.TargetReq, &reqeval.Context{Sticky: sticky})
	}

	var offset uint64
	for _, run := range cfg.Runs {
		n := run.GetNumbering()
		span := n.NIters * n.Weight
		if w.sigintReceived.Load() {
			group = lib.JoinStatus(group, lib.StatusStopped)
			break
		}
		st := w.walkItem(ctx, run, offset, c, sticky)
		group = lib.JoinStatus(group, st)
		offset += span
	}

	callOrCont1(w.Callbacks.CfgEnd, cfg)
	return group
}

// walkItem dispatches on the RunItem's concrete type; offset is this
// item's starting global index within cfg's flat iteration space.
func (w *Walker) walkItem(ctx context.Context, item lib.RunItem, offset uint64, c *cursor, sticky map[string]bool) lib.TesterStatus {
	n := item.GetNumbering()
	span := n.NIters * n.Weight
	switch c.sync(offset, offset+span) {
	case syncSkip:
		return lib.StatusIncomplete
	case syncStop:
		return lib.StatusStopped
	}

	switch it := item.(type) {
	case *lib.Script:
		return w.walkScript(ctx, it, offset, c, sticky, sessionCtx{trackConf: lib.TrackConfYes})
	case *lib.Session:
		return w.walkSession(ctx, it, offset, c, sticky)
	case *lib.Package:
		ctl := callOrCont1(w.Callbacks.PkgStart, it)
		if ctl == lib.CtlStop {
			return lib.StatusStopped
		}
		st := w.walkSession(ctx, it.Sess, offset, c, sticky)
		callOrCont1(w.Callbacks.PkgEnd, it)
		return st
	default:
		return lib.StatusError
	}
}

// sessionCtx is what an enclosing session hands down to its children's
// iterations: the resolved backup-tracking policy and exception handler
// (spec.md §4.1 "Inheritance", already resolved once by internal/prepare
// onto Session.Effective*; the walker just threads the result down).
type sessionCtx struct {
	trackConf lib.TrackConf
	exception *lib.Script
}

// walkScript runs every iteration of script that the scenario selects.
func (w *Walker) walkScript(ctx context.Context, s *lib.Script, offset uint64, c *cursor, sticky map[string]bool, sc sessionCtx) lib.TesterStatus {
	if w.sigintReceived.Load() {
		return lib.StatusStopped
	}
	ctl := callOrCont1(w.Callbacks.RunStart, s)
	if ctl == lib.CtlStop {
		return lib.StatusStopped
	}
	if ctl == lib.CtlSkip {
		return lib.StatusIncomplete
	}

	group := lib.StatusIncomplete
	for local := uint64(0); local < s.NIters; local++ {
		idx := offset + local
		flags, ok := c.actFlagsAt(idx)
		if !ok {
			continue // this iteration isn't selected by the scenario
		}

		it := w.bindIteration(s, idx, local, flags, sticky)

		if ictl := callOrCont1(w.Callbacks.IterStart, it); ictl == lib.CtlStop {
			group = lib.JoinStatus(group, lib.StatusStopped)
			break
		}

		status := w.runOneIteration(ctx, it, sc)
		group = lib.JoinStatus(group, status)

		callOrCont1(w.Callbacks.IterEnd, it)

		if w.sigintReceived.Load() {
			group = lib.JoinStatus(group, lib.StatusStopped)
			break
		}
	}

	callOrCont1(w.Callbacks.RunEnd, s)
	return group
}

// runOneIteration executes the backup discipline and the script callback
// around one concrete iteration (spec.md §4.5 "Backup discipline").
func (w *Walker) runOneIteration(ctx context.Context, it Iteration, sc sessionCtx) lib.TesterStatus {
	tc := sc.trackConf

	var backup cfgmanager.Handle
	tracked := tc != lib.TrackConfNo && w.CfgMgr != nil
	if tracked {
		h, err := w.CfgMgr.CreateBackup()
		if err != nil {
			w.Logger.WithError(err).Warn("walker: backup create failed")
			tracked = false
		} else {
			backup = h
		}
	}

	callOrCont1(w.Callbacks.RepeatStart, it)

	var status lib.TesterStatus
	if w.hasScript() {
		st, ctl := w.runScript(ctx, it)
		status = st
		if ctl == lib.CtlExc && sc.exception != nil {
			if hStatus := w.runService(ctx, sc.exception, w.Callbacks.ExceptionStart, w.Callbacks.ExceptionEnd, it.Sticky, tc); hStatus != lib.StatusPassed {
				status = lib.JoinStatus(status, lib.StatusException)
			}
		}
	} else {
		status = lib.StatusIncomplete
	}

	if tracked {
		status = w.applyBackupDiscipline(backup, tc, status)
	}

	callOrCont1(w.Callbacks.RepeatEnd, it)
	return status
}

// applyBackupDiscipline verifies the backup and, on drift, restores per
// the session's drift policy, overlaying StatusDirty as spec.md §4.7
// describes ("Dirty overlays any of the above").
func (w *Walker) applyBackupDiscipline(h cfgmanager.Handle, tc lib.TrackConf, status lib.TesterStatus) lib.TesterStatus {
	defer func() {
		if err := w.CfgMgr.ReleaseBackup(h); err != nil {
			w.Logger.WithError(err).Warn("walker: backup release failed")
		}
	}()

	result, err := w.CfgMgr.VerifyBackup(h)
	if err != nil {
		w.Logger.WithError(err).Warn("walker: backup verify failed")
		return status
	}
	if result != cfgmanager.Drift {
		return status
	}

	switch tc {
	case lib.TrackConfYes:
		w.Logger.WithField("backup", h).Warn("configuration drift detected")
		_ = w.CfgMgr.RestoreBackup(h)
	case lib.TrackConfSilent:
		_ = w.CfgMgr.RestoreBackup(h)
	case lib.TrackConfNohistory:
		_ = w.CfgMgr.RestoreBackupNohistory(h)
	case lib.TrackConfYesNohistory:
		w.Logger.WithField("backup", h).Warn("configuration drift detected")
		_ = w.CfgMgr.RestoreBackupNohistory(h)
	}
	return lib.StatusDirty
}

// walkSession runs a session's service items and recurses into its
// children once per value of its own n_iters (session variables).
func (w *Walker) walkSession(ctx context.Context, s *lib.Session, offset uint64, c *cursor, parentSticky map[string]bool) lib.TesterStatus {
	sticky := mergeSticky(parentSticky, s)

	ctl := callOrCont1(w.Callbacks.SessionStart, s)
	if ctl == lib.CtlStop {
		return lib.StatusStopped
	}

	group := lib.StatusIncomplete
	tc := s.EffectiveTrackConf

	for block := uint64(0); block < s.NIters; block++ {
		blockOffset := offset + block*s.Weight

		if s.Prologue != nil {
			pStatus := w.runService(ctx, s.Prologue, w.Callbacks.PrologueStart, w.Callbacks.PrologueEnd, sticky, tc)
			if pStatus != lib.StatusPassed {
				group = lib.JoinStatus(group, lib.StatusProlog)
				w.Logger.WithField("session", s.Name).Warn("prologue failed, skipping group")
				continue
			}
		}

		// Keepalive runs around every iteration of the session's direct
		// children (spec.md §4.5 "Service state machines"): once before
		// each child, not once for the whole block.
		sc := sessionCtx{trackConf: tc, exception: s.EffectiveException}
		var childOffset uint64
		for _, child := range s.Children {
			cn := child.GetNumbering()
			if s.EffectiveKeepalive != nil {
				kStatus := w.runService(ctx, s.EffectiveKeepalive, w.Callbacks.KeepaliveStart, w.Callbacks.KeepaliveEnd, sticky, tc)
				if kStatus != lib.StatusPassed {
					group = lib.JoinStatus(group, lib.StatusKeepalive)
					w.Logger.WithField("session", s.Name).Warn("keepalive failed, aborting session")
					break
				}
			}
			st := w.walkItemWithSessionCtx(ctx, child, blockOffset+childOffset, c, sticky, sc)
			group = lib.JoinStatus(group, st)
			childOffset += cn.NIters * cn.Weight
		}

		if s.Epilogue != nil {
			w.runService(ctx, s.Epilogue, w.Callbacks.EpilogueStart, w.Callbacks.EpilogueEnd, sticky, tc)
		}
	}

	callOrCont1(w.Callbacks.SessionEnd, s)
	return group
}

// walkItemWithSessionCtx dispatches a session's child, threading down the
// enclosing session's resolved backup/exception context for a leaf
// script, or recursing structurally for a nested Session/Package (which
// resolves its own sessionCtx afresh from its own Effective* fields).
func (w *Walker) walkItemWithSessionCtx(ctx context.Context, item lib.RunItem, offset uint64, c *cursor, sticky map[string]bool, sc sessionCtx) lib.TesterStatus {
	n := item.GetNumbering()
	switch c.sync(offset, offset+n.NIters*n.Weight) {
	case syncSkip:
		return lib.StatusIncomplete
	case syncStop:
		return lib.StatusStopped
	}
	if script, ok := item.(*lib.Script); ok {
		return w.walkScript(ctx, script, offset, c, sticky, sc)
	}
	return w.walkItem(ctx, item, offset, c, sticky)
}

// runService executes a prologue/epilogue/keepalive/exception service
// script once (not iterated — services are not part of normal iteration
// counting, per the GLOSSARY).
func (w *Walker) runService(ctx context.Context, s *lib.Script, start, end func(*lib.Script) lib.WalkCtl, sticky map[string]bool, tc lib.TrackConf) lib.TesterStatus {
	callOrCont1(start, s)
	defer callOrCont1(end, s)

	if !w.hasScript() {
		return lib.StatusPassed
	}
	w.execCounter++
	it := Iteration{
		GlobalID: w.execCounter,
		ExecID:   uuid.New(),
		RunName:  s.Name,
		Script:   s,
		Sticky:   sticky,
	}
	status, _ := w.runScript(ctx, it)
	return status
}

func mergeSticky(parent map[string]bool, s *lib.Session) map[string]bool {
	// Sessions don't themselves own Requirement sets in this data model
	// (requirements are only ever attached to Values/Scripts); session
	// descent simply hands the parent's sticky set down unchanged,
	// matching invariant 5 ("monotonically non-decreasing as depth
	// increases").
	if len(parent) == 0 {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(parent))
	for k, v := range parent {
		out[k] = v
	}
	return out
}

func (w *Walker) bindIteration(s *lib.Script, globalIdx, local uint64, flags lib.Flag, sticky map[string]bool) Iteration {
	w.execCounter++
	args := make([]runhook.Arg, 0, len(s.Args))
	stride := uint64(1)
	strides := make([]uint64, len(s.Args))
	for k, a := range s.Args {
		strides[k] = stride
		stride *= a.ValueCount()
	}
	for k, a := range s.Args {
		count := a.ValueCount()
		vi := int((local / strides[k]) % count)
		val := "0"
		if vi < len(a.Values) {
			if lit, err := lib.Literal(a.Values[vi]); err == nil {
				val = lit
			}
		}
		args = append(args, runhook.Arg{Name: a.Name, Value: val})
	}
	return Iteration{
		GlobalID: int(globalIdx),
		ExecID:   uuid.New(),
		RunName:  s.Name,
		Script:   s,
		Args:     args,
		Flags:    flags,
		Sticky:   sticky,
	}
}
