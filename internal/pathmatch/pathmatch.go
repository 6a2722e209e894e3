// Package pathmatch implements the path matcher and scenario builder of
// spec.md §4.2: it expands a TestPath's ordered PathItems into a
// per-ancestor iteration bitmask and scans that bitmask into act ranges.
package pathmatch

import (
	"go.te.io/tescenario/internal/scenario"
	"go.te.io/tescenario/lib"
)

// PathMode tags what a TestPath is used for once matched: union into the
// main scenario (with From/To trimming) or overlay as a flag region
// (spec.md §4.2 "Merge semantics").
type PathMode int

const (
	ModeRun PathMode = iota
	ModeRunFrom
	ModeRunTo
	ModeRunForce
	ModeExclude
	ModeVg
	ModeGdb
	ModeFake
	ModeMixValues
	ModeMixArgs
	ModeMixTests
	ModeMixIters
	ModeMixSessions
	ModeNoMix
)

// IsFlagOverlay reports whether m produces a flag-carrying scenario that
// must be applied to the main scenario rather than unioned into it.
func (m PathMode) IsFlagOverlay() bool {
	switch m {
	case ModeVg, ModeGdb, ModeFake, ModeMixValues, ModeMixArgs, ModeMixTests, ModeMixIters, ModeMixSessions, ModeNoMix:
		return true
	default:
		return false
	}
}

// flagFor maps the overlay modes to the Flag bit they introduce. ModeNoMix
// carries no bit of its own: flagFor returns 0 for it, and no mix flags
// are cleared.
func flagFor(m PathMode) lib.Flag {
	switch m {
	case ModeVg:
		return lib.FlagValgrind
	case ModeGdb:
		return lib.FlagGdb
	case ModeFake:
		return lib.FlagFake
	case ModeMixValues:
		return lib.FlagMixValues
	case ModeMixArgs:
		return lib.FlagMixArgs
	case ModeMixTests:
		return lib.FlagMixTests
	case ModeMixIters:
		return lib.FlagMixIters
	case ModeMixSessions:
		return lib.FlagMixSessions
	default:
		return 0
	}
}

// ArgConstraint is one `name=[v1,v2,...]` constraint on a PathItem.
type ArgConstraint struct {
	Name   string
	Values []string
}

// PathItem is one segment of a TestPath (spec.md §3).
type PathItem struct {
	Name    string
	Args    []ArgConstraint
	Select  uint64 // 1-based; 0 means "no select restriction"
	Step    uint64 // 0 means "no step restriction" (implies step=1)
	Iterate uint64 // 0 means "no repeat", i.e. iterate once
}

// TestPath is an ordered sequence of PathItems under one mode.
type TestPath struct {
	Mode  PathMode
	Items []PathItem
}

// bitset is a dense bit-per-iteration-index mask, sized to one RunItem's
// own n_iters at the point it is built.
type bitset struct {
	bits []bool
}

func newBitsetAllSet(n uint64) bitset {
	b := bitset{bits: make([]bool, n)}
	for i := range b.bits {
		b.bits[i] = true
	}
	return b
}

func newBitsetAllClear(n uint64) bitset {
	return bitset{bits: make([]bool, n)}
}

func (b bitset) and(other bitset) bitset {
	out := bitset{bits: make([]bool, len(b.bits))}
	for i := range b.bits {
		out.bits[i] = b.bits[i] && i < len(other.bits) && other.bits[i]
	}
	return out
}

// scanToActs scans a bitmask of length n (indices 0..n-1), bit i covering
// the weight global indices offset+i*weight .. offset+(i+1)*weight-1, into
// minimal contiguous act ranges (spec.md §4.2 "Algorithm").
func scanToActs(b bitset, offset, weight uint64, flags lib.Flag) []lib.Act {
	var acts []lib.Act
	var runStart int = -1
	flush := func(endExclusive int) {
		if runStart < 0 {
			return
		}
		first := offset + uint64(runStart)*weight
		last := offset + uint64(endExclusive)*weight - 1
		acts = append(acts, scenario.NewAct(first, last, flags))
		runStart = -1
	}
	for i, set := range b.bits {
		if set {
			if runStart < 0 {
				runStart = i
			}
		} else {
			flush(i)
		}
	}
	flush(len(b.bits))
	return acts
}

// Match walks item against root's children (or root itself, transparently,
// if it is an unnamed session), applying the constraints in item and every
// subsequent item in rest, and returns the resulting sub-scenario.
//
// offset is the global iteration-index offset this subtree starts at; the
// stride of one of root's own iterations is root's own Numbering.Weight.
func Match(root lib.RunItem, offset uint64, path []PathItem) *lib.Scenario {
	if len(path) == 0 {
		return &lib.Scenario{}
	}
	out := &lib.Scenario{}
	n := root.GetNumbering()
	matchItem(root, offset, n.Weight, path, out)
	return out
}

// MatchConfig matches path against every direct run of cfg, laid out
// contiguously the same way Prepare accumulated total_iters, and returns
// the union sub-scenario (unsorted — callers merge it into the main
// scenario via internal/scenario.Merge, which sorts).
func MatchConfig(cfg *lib.Config, path []PathItem) *lib.Scenario {
	out := &lib.Scenario{}
	if len(path) == 0 {
		return out
	}
	var offset uint64
	for _, run := range cfg.Runs {
		n := run.GetNumbering()
		matchItem(run, offset, n.Weight, path, out)
		offset += n.NIters * n.Weight
	}
	return out
}

func matchItem(item lib.RunItem, offset, parentWeight uint64, path []PathItem, out *lib.Scenario) {
	n := item.GetNumbering()
	cur := path[0]

	switch it := item.(type) {
	case *lib.Script:
		if !nameMatches(cur.Name, it.Name) {
			return
		}
		mask := buildArgMask(it.Args, cur.Args, n.NIters)
		mask = applySelectStep(mask, cur.Select, cur.Step)
		acts := scanToActs(mask, offset, parentWeight, 0)
		acts = repeatActs(acts, cur.Iterate)
		out.Acts = append(out.Acts, acts...)

	case *lib.Session:
		if it.Name == "" {
			// Transparent unnamed session: descend with the same PathItem,
			// once per this session's own iteration block.
			descendSessionBlocks(it, offset, parentWeight, path, out)
			return
		}
		if !nameMatches(cur.Name, it.Name) {
			return
		}
		if len(path) == 1 {
			mask := newBitsetAllSet(n.NIters)
			mask = applySelectStep(mask, cur.Select, cur.Step)
			acts := scanToActs(mask, offset, n.Weight, 0)
			acts = repeatActs(acts, cur.Iterate)
			out.Acts = append(out.Acts, acts...)
			return
		}
		descendSessionBlocks(it, offset, n.Weight, path[1:], out)

	case *lib.Package:
		if !nameMatches(cur.Name, it.Name) {
			return
		}
		if len(path) == 1 {
			mask := newBitsetAllSet(n.NIters)
			mask = applySelectStep(mask, cur.Select, cur.Step)
			acts := scanToActs(mask, offset, n.Weight, 0)
			acts = repeatActs(acts, cur.Iterate)
			out.Acts = append(out.Acts, acts...)
			return
		}
		descendSessionBlocks(it.Sess, offset, n.Weight, path[1:], out)
	}
}

// descendSessionBlocks recurses into every child of s, repeated once per
// value of s's own n_iters (the session's handed-down variables): each
// block starts blockWeight indices after the previous one, and within a
// block children are laid out contiguously in the order the numbering
// pass visited them (spec.md §3 invariant 3).
func descendSessionBlocks(s *lib.Session, offset, blockWeight uint64, path []PathItem, out *lib.Scenario) {
	for block := uint64(0); block < s.NIters; block++ {
		blockOffset := offset + block*blockWeight
		var childOffset uint64
		for _, child := range s.Children {
			cn := child.GetNumbering()
			matchItem(child, blockOffset+childOffset, cn.Weight, path, out)
			childOffset += cn.NIters * cn.Weight
		}
	}
}

// nameMatches reports whether a PathItem's name selects a RunItem with the
// given explicit name: empty itemName never matches a non-empty
// constraint (unnamed items are only transparently traversed, never
// themselves a match target for a non-empty name).
func nameMatches(want, have string) bool {
	return want == have
}

// buildArgMask ANDs each constraint's per-value bitmask into the
// iteration-index bitmask expanded by the argument's own outer/inner
// stride (spec.md §4.2 "Algorithm"). Missing constraints leave the mask
// fully set; an unsatisfiable constraint clears it to all-false ("if no
// value matches, the whole match fails silently").
func buildArgMask(args []lib.VarArg, constraints []ArgConstraint, nIters uint64) bitset {
	mask := newBitsetAllSet(nIters)
	if nIters == 0 {
		return mask
	}

	// Outer stride for each argument position: iteration index i's value
	// for arg k is (i / stride[k]) % valueCount[k], mirroring the
	// preparation pass's left-to-right product ordering.
	strides := make([]uint64, len(args))
	stride := uint64(1)
	for k, a := range args {
		strides[k] = stride
		stride *= a.ValueCount()
	}

	for _, c := range constraints {
		idx := indexOfArg(args, c.Name)
		if idx < 0 {
			// The RunItem doesn't declare this arg: whole match fails.
			return newBitsetAllClear(nIters)
		}
		arg := args[idx]
		valueIdxSet := map[int]bool{}
		for _, want := range c.Values {
			for vi, v := range arg.Values {
				if lit, err := lib.Literal(v); err == nil && lit == want {
					valueIdxSet[vi] = true
				}
			}
		}
		if len(valueIdxSet) == 0 {
			return newBitsetAllClear(nIters)
		}
		if arg.Preferred > 0 && valueIdxSet[arg.Preferred-1] {
			// Out-of-range indices (beyond this arg's own value count,
			// within a shared list's length) ride along with the
			// preferred selection.
			for vi := len(arg.Values); vi < int(nIters); vi++ {
				valueIdxSet[vi] = true
			}
		}

		perArgMask := newBitsetAllClear(nIters)
		count := arg.ValueCount()
		for i := uint64(0); i < nIters; i++ {
			vi := int((i / strides[idx]) % count)
			if valueIdxSet[vi] {
				perArgMask.bits[i] = true
			}
		}
		mask = mask.and(perArgMask)
	}
	return mask
}

func indexOfArg(args []lib.VarArg, name string) int {
	for i, a := range args {
		if a.Name == name {
			return i
		}
	}
	return -1
}

// applySelectStep restricts mask to indices select, select+step,
// select+2*step, ... (1-based), leaving mask untouched if select == 0.
func applySelectStep(mask bitset, selectN, step uint64) bitset {
	if selectN == 0 {
		return mask
	}
	if step == 0 {
		step = 1
	}
	out := newBitsetAllClear(uint64(len(mask.bits)))
	for pos := selectN; pos <= uint64(len(mask.bits)); pos += step {
		i := pos - 1
		if mask.bits[i] {
			out.bits[i] = true
		}
	}
	return out
}

// repeatActs repeats acts n times (n==0 meaning "once"), per the path
// item's `iterate` attribute (spec.md §4.2 "iterate repeats the produced
// sub-scenario that many times").
func repeatActs(acts []lib.Act, n uint64) []lib.Act {
	if n <= 1 {
		return acts
	}
	out := make([]lib.Act, 0, len(acts)*int(n))
	for i := uint64(0); i < n; i++ {
		out = append(out, acts...)
	}
	return out
}

// FlagFor exposes flagFor for callers building overlay scenarios (the
// campaign builder composing --vg/--gdb/--fake/--mix* paths).
func FlagFor(m PathMode) lib.Flag { return flagFor(m) }
