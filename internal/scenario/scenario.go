// Package scenario implements the act-list algebra of spec.md §4.4: the
// small set of operations path matching, dial sampling and the walker all
// build on to construct and combine sorted, disjoint act lists.
package scenario

import (
	"fmt"
	"sort"

	"go.te.io/tescenario/lib"
)

// ErrIntersectingActs is returned by Merge when the two inputs overlap.
// spec.md §9's Open Question resolves the source's TODO'd assertion as a
// reported precondition violation rather than a silent merge.
type ErrIntersectingActs struct {
	A, B lib.Act
}

func (e *ErrIntersectingActs) Error() string {
	return fmt.Sprintf("intersecting acts: [%d,%d] and [%d,%d]", e.A.First, e.A.Last, e.B.First, e.B.Last)
}

// NewAct builds a single act, panicking on an inverted range: callers are
// expected to validate first <= last before construction (internal
// invariant, never user input).
func NewAct(first, last uint64, flags lib.Flag) lib.Act {
	if first > last {
		panic(fmt.Sprintf("scenario: inverted act range [%d,%d]", first, last))
	}
	return lib.Act{First: first, Last: last, Flags: flags}
}

// AddAct appends act to s, preserving the sorted-disjoint invariant only if
// the caller appends in increasing order; callers that cannot guarantee
// order should use Merge instead.
func AddAct(s *lib.Scenario, act lib.Act) {
	s.Acts = append(s.Acts, act)
}

// Copy returns an independent deep copy of s.
func Copy(s *lib.Scenario) *lib.Scenario {
	out := &lib.Scenario{Acts: make([]lib.Act, len(s.Acts))}
	copy(out.Acts, s.Acts)
	return out
}

// Append appends n copies of t's acts to s, unchanged: the copies are not
// shifted, so the result is sorted and disjoint only if the caller's
// inputs make it so (spec.md §4.4 "append(S, T, n)").
func Append(s *lib.Scenario, t *lib.Scenario, n int) *lib.Scenario {
	out := Copy(s)
	if n <= 0 || len(t.Acts) == 0 {
		return out
	}
	for i := 0; i < n; i++ {
		for _, a := range t.Acts {
			out.Acts = append(out.Acts, a)
		}
	}
	return out
}

// ApplyTo truncates s to the prefix ending at to (inclusive), dropping or
// trimming any act beyond it.
func ApplyTo(s *lib.Scenario, to uint64) *lib.Scenario {
	out := &lib.Scenario{}
	for _, a := range s.Acts {
		if a.First > to {
			continue
		}
		if a.Last > to {
			a.Last = to
		}
		out.Acts = append(out.Acts, a)
	}
	return out
}

// ApplyFrom truncates s to the suffix starting at from (inclusive).
func ApplyFrom(s *lib.Scenario, from uint64) *lib.Scenario {
	out := &lib.Scenario{}
	for _, a := range s.Acts {
		if a.Last < from {
			continue
		}
		if a.First < from {
			a.First = from
		}
		out.Acts = append(out.Acts, a)
	}
	return out
}

// AddFlags ORs f into every act of s.
func AddFlags(s *lib.Scenario, f lib.Flag) {
	for i := range s.Acts {
		s.Acts[i].Flags |= f
	}
}

// Glue coalesces adjacent acts sharing identical flags, returning a new
// scenario (spec.md §4.4 "glue(S)"). Idempotent: Glue(Glue(s)) == Glue(s).
func Glue(s *lib.Scenario) *lib.Scenario {
	if len(s.Acts) == 0 {
		return &lib.Scenario{}
	}
	out := &lib.Scenario{Acts: []lib.Act{s.Acts[0]}}
	for _, a := range s.Acts[1:] {
		last := &out.Acts[len(out.Acts)-1]
		if a.Flags == last.Flags && a.First == last.Last+1 {
			last.Last = a.Last
			continue
		}
		out.Acts = append(out.Acts, a)
	}
	return out
}

// Merge inserts t's acts into sorted s, OR-ing f into each inserted act's
// flags, and returns the sorted result. It reports ErrIntersectingActs
// rather than silently merging overlapping ranges (spec.md §9).
func Merge(s *lib.Scenario, t *lib.Scenario, f lib.Flag) (*lib.Scenario, error) {
	merged := make([]lib.Act, 0, len(s.Acts)+len(t.Acts))
	merged = append(merged, s.Acts...)
	for _, a := range t.Acts {
		a.Flags |= f
		merged = append(merged, a)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].First < merged[j].First })
	for i := 1; i < len(merged); i++ {
		if merged[i].First <= merged[i-1].Last {
			return nil, &ErrIntersectingActs{A: merged[i-1], B: merged[i]}
		}
	}
	return &lib.Scenario{Acts: merged}, nil
}

// ApplyFlags ORs the flags of every act in flagActs into the portion of s
// it covers, splitting s's acts as needed so each resulting act is either
// fully inside or fully outside every flagAct's range (spec.md §4.4
// "apply_flags(S, F)"). ApplyFlags(s, nil) == s.
func ApplyFlags(s *lib.Scenario, flagActs []lib.Act) *lib.Scenario {
	out := Copy(s)
	for _, f := range flagActs {
		out = applyOneFlagAct(out, f)
	}
	return out
}

func applyOneFlagAct(s *lib.Scenario, f lib.Act) *lib.Scenario {
	out := &lib.Scenario{}
	for _, a := range s.Acts {
		if a.Last < f.First || a.First > f.Last {
			out.Acts = append(out.Acts, a)
			continue
		}
		// Split a into at most three pieces: before, inside, after.
		if a.First < f.First {
			out.Acts = append(out.Acts, lib.Act{First: a.First, Last: f.First - 1, Flags: a.Flags})
		}
		insideFirst := a.First
		if f.First > insideFirst {
			insideFirst = f.First
		}
		insideLast := a.Last
		if f.Last < insideLast {
			insideLast = f.Last
		}
		out.Acts = append(out.Acts, lib.Act{First: insideFirst, Last: insideLast, Flags: a.Flags | f.Flags})
		if a.Last > f.Last {
			out.Acts = append(out.Acts, lib.Act{First: f.Last + 1, Last: a.Last, Flags: a.Flags})
		}
	}
	return out
}

// Subtract removes, from s, every index covered by any act in excl: the
// CLI-level composition `--exclude` needs (spec.md §6), built from the
// same split-three-pieces technique ApplyFlags uses, but dropping the
// covered middle piece instead of flagging it.
func Subtract(s *lib.Scenario, excl []lib.Act) *lib.Scenario {
	out := Copy(s)
	for _, e := range excl {
		out = subtractOne(out, e)
	}
	return out
}

func subtractOne(s *lib.Scenario, e lib.Act) *lib.Scenario {
	out := &lib.Scenario{}
	for _, a := range s.Acts {
		if a.Last < e.First || a.First > e.Last {
			out.Acts = append(out.Acts, a)
			continue
		}
		if a.First < e.First {
			out.Acts = append(out.Acts, lib.Act{First: a.First, Last: e.First - 1, Flags: a.Flags})
		}
		if a.Last > e.Last {
			out.Acts = append(out.Acts, lib.Act{First: e.Last + 1, Last: a.Last, Flags: a.Flags})
		}
	}
	return out
}

// StepResult is the outcome of advancing the scenario cursor (spec.md
// §4.4 "step(act*, id*, k) → Forward | Backward | Stop").
type StepResult int

const (
	StepForward StepResult = iota
	StepBackward
	StepStop
)

// Step advances id by k within the act at actIdx if the result stays
// inside that act's range. Otherwise, for k>0 it moves to the first later
// act that contains the new id or, when the new id falls in a gap between
// acts, to the First of the next act after it; for k<0 it moves to the
// previous act that contains the new id. It reports Stop if there is no
// such act. k == 0 leaves the cursor unchanged unless it is off-act, in
// which case it snaps forward into the nearest covering act.
func Step(s *lib.Scenario, actIdx int, id uint64, k int64) (newActIdx int, newID uint64, result StepResult) {
	if actIdx < 0 || actIdx >= len(s.Acts) {
		return actIdx, id, StepStop
	}
	act := s.Acts[actIdx]

	if k == 0 {
		if act.Contains(id) {
			return actIdx, id, StepForward
		}
		return seekContaining(s, id)
	}

	var next int64
	if k > 0 {
		next = int64(id) + k
	} else {
		next = int64(id) + k
	}
	if next < 0 {
		return actIdx, id, StepStop
	}
	nid := uint64(next)

	if act.Contains(nid) {
		if k > 0 {
			return actIdx, nid, StepForward
		}
		return actIdx, nid, StepBackward
	}

	if k > 0 {
		for i := actIdx + 1; i < len(s.Acts); i++ {
			if s.Acts[i].Contains(nid) {
				return i, nid, StepForward
			}
			if s.Acts[i].First > nid {
				return i, s.Acts[i].First, StepForward
			}
		}
		return actIdx, id, StepStop
	}
	for i := actIdx - 1; i >= 0; i-- {
		if s.Acts[i].Contains(nid) {
			return i, nid, StepBackward
		}
	}
	return actIdx, id, StepStop
}

func seekContaining(s *lib.Scenario, id uint64) (int, uint64, StepResult) {
	for i, a := range s.Acts {
		if a.Contains(id) {
			return i, id, StepForward
		}
	}
	return 0, id, StepStop
}
