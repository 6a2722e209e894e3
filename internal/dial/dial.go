// Package dial implements the weighted dial sampler of spec.md §4.3: it
// reduces a scenario to a random subset of a given size while preserving
// the scenario's act order and flags.
//
// The seeded-RNG-struct-plus-weighted-choice shape is grounded in
// jhkimqd-chaos-utils's fuzz.Sampler (pkg/fuzz/sampler.go): a small struct
// wrapping a *rand.Rand, with sampling methods hung off it rather than
// free functions taking a Rand parameter each call.
package dial

import (
	"fmt"
	"math/rand"

	"go.te.io/tescenario/internal/scenario"
	"go.te.io/tescenario/lib"
)

const defaultBaseWeight = 100

// Node mirrors one node of the iteration tree for sampling purposes: a
// contiguous index range, the selection weight assigned to it, and
// whichever scenario act (if any) currently covers part of its range.
type Node struct {
	First, Last uint64 // inclusive range this node covers
	Weight      float64
	InitWeight  float64
	InitIters   uint64
	Children    []*Node
	Act         *lib.Act // set only on overlay leaves created from the input scenario
}

func (n *Node) iters() uint64 { return n.Last - n.First + 1 }

func (n *Node) isLeaf() bool { return len(n.Children) == 0 }

// Sampler draws without replacement from a Node tree built over one
// scenario, using a seeded RNG for reproducible selection (SPEC_FULL.md
// §4.3 "Random draws use math/rand ... seeded from the CLI's --random-seed").
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a Sampler seeded with seed.
func NewSampler(seed int64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(seed))} //nolint:gosec
}

// BuildTree constructs a two-level Node tree over s: one root, one child
// per act, each act-child itself a single leaf covering that act's range.
// Every leaf gets the full base weight, whatever its length; the tree does
// not follow the run-item tree, and acts belonging to the same test path
// are neither grouped nor given a divided share of one base weight.
func BuildTree(s *lib.Scenario) *Node {
	root := &Node{}
	for _, a := range s.Acts {
		act := a
		leaf := &Node{
			First:      a.First,
			Last:       a.Last,
			Weight:     defaultBaseWeight,
			InitWeight: defaultBaseWeight,
			InitIters:  a.Len(),
			Act:        &act,
		}
		root.Children = append(root.Children, leaf)
	}
	return root
}

// Sample draws exactly count indices from tree without replacement,
// respecting each node's current selection weight, and returns the chosen
// indices grouped by the act that covered them (preserving act order).
func (s *Sampler) Sample(tree *Node, count uint64) (map[*lib.Act][]uint64, error) {
	chosen := map[*lib.Act][]uint64{}
	for i := uint64(0); i < count; i++ {
		leaf, err := s.pickLeaf(tree)
		if err != nil {
			return nil, err
		}
		idx := s.pickIndex(leaf)
		chosen[leaf.Act] = append(chosen[leaf.Act], idx)
		removeIndex(leaf, idx)
	}
	return chosen, nil
}

// pickLeaf descends from node, choosing one child with probability
// proportional to its Weight at each level, until it reaches a leaf.
func (s *Sampler) pickLeaf(node *Node) (*Node, error) {
	for !node.isLeaf() {
		var total float64
		var live []*Node
		for _, c := range node.Children {
			if c.iters() == 0 {
				continue
			}
			total += c.Weight
			live = append(live, c)
		}
		if total <= 0 || len(live) == 0 {
			return nil, fmt.Errorf("dial: no sampleable iterations remain")
		}
		r := s.rng.Float64() * total
		var pick *Node
		for _, c := range live {
			r -= c.Weight
			if r <= 0 {
				pick = c
				break
			}
		}
		if pick == nil {
			pick = live[len(live)-1]
		}
		node = pick
	}
	return node, nil
}

// pickIndex returns a uniformly-random index within leaf's current range.
func (s *Sampler) pickIndex(leaf *Node) uint64 {
	n := leaf.iters()
	return leaf.First + uint64(s.rng.Int63n(int64(n)))
}

// removeStep computes the per-removal weight decrement for a node:
// init_weight/init_iters, using integer arithmetic when it divides evenly
// and floating point otherwise (spec.md §4.3 "the adjusted weight is never
// allowed to increase").
func removeStep(n *Node) float64 {
	iw := int64(n.InitWeight)
	step := n.InitWeight / float64(n.InitIters)
	if float64(iw) == n.InitWeight && iw%int64(n.InitIters) == 0 {
		step = float64(iw / int64(n.InitIters))
	}
	return step
}

// decrementedWeight returns leaf's weight after one removal, clamped so it
// never increases and never goes negative.
func decrementedWeight(leaf *Node) float64 {
	next := leaf.Weight - removeStep(leaf)
	if next > leaf.Weight {
		next = leaf.Weight
	}
	if next < 0 {
		next = 0
	}
	return next
}

// removeIndex removes idx itself from leaf without replacement (spec.md
// §4.3 "remove the index from the tree — splitting the leaf range"): an
// edge index shrinks the range from that end, an interior index splits
// leaf into two leaf children straddling idx, each inheriting leaf's
// InitWeight/InitIters (the step size is anchored to the original act,
// not whatever fragment of it currently remains) and sharing its Act
// pointer so Sample's by-act grouping still sees one logical act.
func removeIndex(leaf *Node, idx uint64) {
	next := decrementedWeight(leaf)

	switch {
	case leaf.First == leaf.Last:
		leaf.First, leaf.Last = 1, 0 // empty range, iters()==0 henceforth
		leaf.Weight = 0
	case idx == leaf.First:
		leaf.First++
		leaf.Weight = next
	case idx == leaf.Last:
		leaf.Last--
		leaf.Weight = next
	default:
		leftLen := idx - leaf.First
		rightLen := leaf.Last - idx
		leftWeight := next * float64(leftLen) / float64(leftLen+rightLen)
		rightWeight := next - leftWeight

		leaf.Children = []*Node{
			{First: leaf.First, Last: idx - 1, Weight: leftWeight, InitWeight: leaf.InitWeight, InitIters: leaf.InitIters, Act: leaf.Act},
			{First: idx + 1, Last: leaf.Last, Weight: rightWeight, InitWeight: leaf.InitWeight, InitIters: leaf.InitIters, Act: leaf.Act},
		}
		leaf.Weight = next
	}
}

// Dial reduces s to floor(len(s)*pct/100) iterations, preserving act order
// and flags, using the seeded sampler (spec.md §4.3 contract).
func Dial(s *Sampler, scn *lib.Scenario, pct int) (*lib.Scenario, error) {
	total := scn.TotalIters()
	count := total * uint64(pct) / 100
	if count == 0 {
		return &lib.Scenario{}, nil
	}
	if count == total {
		return scenario.Copy(scn), nil
	}

	tree := BuildTree(scn)
	chosen, err := s.Sample(tree, count)
	if err != nil {
		return nil, err
	}

	// Rebuild acts in original order using the Act pointers stored on the
	// tree's leaves (one leaf per original act, preserving scn.Acts order).
	out := &lib.Scenario{}
	for _, leaf := range tree.Children {
		idxs := chosen[leaf.Act]
		if len(idxs) == 0 {
			continue
		}
		sortUint64(idxs)
		acts := bitmaskToActs(idxs, leaf.Act.Flags)
		out.Acts = append(out.Acts, acts...)
	}
	return out, nil
}

func sortUint64(s []uint64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// bitmaskToActs coalesces a sorted slice of chosen indices into minimal
// contiguous acts, all carrying flags.
func bitmaskToActs(sortedIdxs []uint64, flags lib.Flag) []lib.Act {
	if len(sortedIdxs) == 0 {
		return nil
	}
	var acts []lib.Act
	start := sortedIdxs[0]
	prev := sortedIdxs[0]
	for _, idx := range sortedIdxs[1:] {
		if idx == prev+1 {
			prev = idx
			continue
		}
		acts = append(acts, scenario.NewAct(start, prev, flags))
		start, prev = idx, idx
	}
	acts = append(acts, scenario.NewAct(start, prev, flags))
	return acts
}
