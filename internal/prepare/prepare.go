// Package prepare implements the preparation pass (spec.md §4.1): it walks
// a ConfigTree bottom-up, fills n_args/n_iters/weight on every RunItem and
// total_iters on every Config, and resolves the exception/keepalive/
// track_conf inheritance state machine along each session chain.
//
// Grounded on _examples/original_source/engine/tester/config_prepare.c,
// whose config_prepare_ctx stack is mirrored here by inheritCtx.
package prepare

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"go.te.io/tescenario/lib"
)

// Error is returned for the one fatal condition spec.md §4.1 names:
// n_iters or weight overflowing the platform's unsigned limit.
type Error struct {
	Item lib.RunItem
	Msg  string
}

func (e *Error) Error() string {
	name := "<unnamed>"
	if e.Item != nil {
		name = e.Item.ItemName()
	}
	return fmt.Sprintf("preparation overflow at %q: %s", name, e.Msg)
}

// inheritCtx mirrors the teacher source's config_prepare_ctx: the
// currently-visible exception/keepalive handler and track_conf attribute,
// cloned on session entry and restored on exit.
//
// Handdown resolution (spec.md §4.1 is ambiguous about the precise decay
// rule; resolved here and recorded in DESIGN.md): HanddownNone means the
// override is visible only while descending through non-session children
// of the session that set it and disappears the moment the next nested
// Session is entered; HanddownChildren survives exactly one Session
// boundary before disappearing; HanddownDescendants never decays on its
// own, only by being overridden again.
type inheritCtx struct {
	exception      *lib.Script
	exceptionScope lib.Handdown
	keepalive      *lib.Script
	keepaliveScope lib.Handdown
	trackConf      lib.TrackConf
	trackConfScope lib.Handdown
}

// decay returns the scope a hook should carry into the next Session
// boundary, given it is currently visible under scope.
func decay(scope lib.Handdown) (nextScope lib.Handdown, stillVisible bool) {
	switch scope {
	case lib.HanddownDescendants:
		return lib.HanddownDescendants, true
	case lib.HanddownChildren:
		return lib.HanddownNone, true
	default: // HanddownNone
		return lib.HanddownNone, false
	}
}

// Prepare fills numbering fields across the whole tree. It returns the
// first overflow encountered, if any; a tree with any zero-iteration item
// is valid (spec.md §4.1 "Zero-iteration items are legal").
func Prepare(tree *lib.ConfigTree, logger logrus.FieldLogger) error {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	for _, cfg := range tree.Configs {
		var total uint64
		ctx := inheritCtx{trackConf: lib.TrackConfYes}
		for _, run := range cfg.Runs {
			if err := prepareItem(run, ctx, logger); err != nil {
				return err
			}
			n := run.GetNumbering()
			contrib, err := mulOverflow(n.NIters, n.Weight)
			if err != nil {
				return &Error{Item: run, Msg: "total_iters overflow: " + err.Error()}
			}
			newTotal, err := addOverflow(total, contrib)
			if err != nil {
				return &Error{Item: run, Msg: "total_iters overflow: " + err.Error()}
			}
			total = newTotal
		}
		cfg.TotalIters = total
	}
	return nil
}

func prepareItem(item lib.RunItem, ctx inheritCtx, logger logrus.FieldLogger) error {
	switch it := item.(type) {
	case *lib.Script:
		return prepareScript(it, ctx)
	case *lib.Session:
		return prepareSession(it, ctx, logger)
	case *lib.Package:
		if err := prepareSession(it.Sess, ctx, logger); err != nil {
			return err
		}
		// A Package is a named pass-through wrapper around one Session: it
		// contributes exactly what its Session contributes to its own
		// parent's iteration space.
		it.Numbering = it.Sess.Numbering
		return nil
	default:
		return &Error{Item: item, Msg: "unknown run item type"}
	}
}

// prepareScript fills n_iters = iterate * product(value_count(arg)) for
// ungrouped args, counting each list name's length exactly once (spec.md
// §4.1 "Numbering algorithm").
func prepareScript(s *lib.Script, ctx inheritCtx) error {
	iterate := s.Iterate
	if iterate == 0 {
		iterate = 1
	}

	total, err := argsProduct(s.Args)
	if err != nil {
		return &Error{Item: s, Msg: "n_iters overflow: " + err.Error()}
	}

	nIters, err := mulOverflow(total, iterate)
	if err != nil {
		return &Error{Item: s, Msg: "n_iters overflow: " + err.Error()}
	}

	s.NArgs = uint64(len(s.Args))
	s.NIters = nIters
	s.Weight = 1
	_ = ctx
	return nil
}

// argsProduct returns the product of each arg's value count, counting a
// lock-step list's members exactly once (spec.md §4.1 "Numbering
// algorithm"). Shared by prepareScript (over a Script's Args) and
// prepareSession (over a Session's Vars): a session's own n_iters is
// driven by its handed-down variables exactly the way a script's is
// driven by its arguments (original_source/engine/tester/config_prepare.c's
// prepare_calc_iters runs for every run item, sessions included).
func argsProduct(args []lib.VarArg) (uint64, error) {
	total := uint64(1)
	seenLists := map[string]bool{}
	for _, arg := range args {
		var count uint64
		switch {
		case arg.List != "":
			if seenLists[arg.List] {
				continue // lock-step: only the first member counts
			}
			seenLists[arg.List] = true
			count = listLength(args, arg.List)
		default:
			count = uint64(len(arg.Values)) // no values: zero iterations
		}
		var err error
		total, err = mulOverflow(total, count)
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

// listLength returns the length of the lock-step list named name: the
// maximum value count among its members (spec.md §3 invariant 4 requires
// them equal; we take the max defensively and let a validation pass catch
// mismatches rather than silently truncating).
func listLength(args []lib.VarArg, name string) uint64 {
	var max uint64
	for _, a := range args {
		if a.List == name && a.ValueCount() > max {
			max = a.ValueCount()
		}
	}
	if max == 0 {
		return 1
	}
	return max
}

// prepareSession recurses into children first (bottom-up), resolves this
// session's inheritable hooks, then fills weight = sum(child.n_iters *
// child.weight) and n_iters = iterate * ∏ value_count(var), exactly like
// prepareScript does for a script's own args — a session's variables are
// handed down to its children (spec.md §8 scenario 1: a session with
// arg x∈{a,b,c} contributes n_iters=3, not 1) (spec.md §4.1).
func prepareSession(s *lib.Session, parent inheritCtx, logger logrus.FieldLogger) error {
	ctx := resolveInheritance(s, parent)

	var weight uint64
	for _, child := range s.Children {
		if err := prepareItem(child, ctx, logger); err != nil {
			return err
		}
		n := child.GetNumbering()
		contrib, err := mulOverflow(n.NIters, n.Weight)
		if err != nil {
			return &Error{Item: child, Msg: "weight overflow: " + err.Error()}
		}
		newWeight, err := addOverflow(weight, contrib)
		if err != nil {
			return &Error{Item: s, Msg: "weight overflow: " + err.Error()}
		}
		weight = newWeight
	}

	iterate := s.Iterate
	if iterate == 0 {
		iterate = 1
	}

	varsTotal, err := argsProduct(s.Vars)
	if err != nil {
		return &Error{Item: s, Msg: "n_iters overflow: " + err.Error()}
	}
	nIters, err := mulOverflow(varsTotal, iterate)
	if err != nil {
		return &Error{Item: s, Msg: "n_iters overflow: " + err.Error()}
	}

	s.NArgs = uint64(len(s.Vars))
	s.NIters = nIters
	s.Weight = weight

	if weight == 0 {
		logger.WithField("session", s.Name).Debug("session contributes zero iterations")
	}
	return nil
}

// resolveInheritance applies the handdown state machine: an override set
// directly on s always wins within s itself; whether it remains visible to
// s's own children depends on its Handdown value, and whatever survives
// decays again before being handed to s's grandchildren (spec.md §4.1
// "Inheritance").
func resolveInheritance(s *lib.Session, parent inheritCtx) inheritCtx {
	ctx := parent

	if nextScope, visible := decay(parent.exceptionScope); !visible {
		ctx.exception, ctx.exceptionScope = nil, lib.HanddownNone
	} else {
		ctx.exceptionScope = nextScope
	}
	if nextScope, visible := decay(parent.keepaliveScope); !visible {
		ctx.keepalive, ctx.keepaliveScope = nil, lib.HanddownNone
	} else {
		ctx.keepaliveScope = nextScope
	}
	if nextScope, visible := decay(parent.trackConfScope); !visible {
		ctx.trackConfScope = lib.HanddownNone
	} else {
		ctx.trackConfScope = nextScope
	}

	if s.Exception != nil {
		ctx.exception, ctx.exceptionScope = s.Exception, s.ExceptionHanddown
	}
	if s.Keepalive != nil {
		ctx.keepalive, ctx.keepaliveScope = s.Keepalive, s.KeepaliveHanddown
	}
	if s.TrackConf != lib.TrackConfInherit {
		ctx.trackConf, ctx.trackConfScope = s.TrackConf, s.TrackConfHanddown
	}

	s.EffectiveException = ctx.exception
	s.EffectiveKeepalive = ctx.keepalive
	s.EffectiveTrackConf = ctx.trackConf
	return ctx
}

func mulOverflow(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > math.MaxUint64/b {
		return 0, fmt.Errorf("%d * %d overflows uint64", a, b)
	}
	return a * b, nil
}

func addOverflow(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, fmt.Errorf("%d + %d overflows uint64", a, b)
	}
	return sum, nil
}
