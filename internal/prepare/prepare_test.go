package prepare

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.te.io/tescenario/lib"
)

func newValues(n int) []lib.Value {
	out := make([]lib.Value, n)
	for i := range out {
		out[i] = lib.NewPlainValue("v")
	}
	return out
}

func TestPrepareScriptNItersIsProductOfArgValueCounts(t *testing.T) {
	t.Parallel()
	script := &lib.Script{
		Name: "leaf",
		Args: []lib.VarArg{
			{Name: "a", Values: newValues(2)},
			{Name: "b", Values: newValues(3)},
		},
	}
	tree := &lib.ConfigTree{
		Configs: []*lib.Config{{Maintainer: "m", Runs: []lib.RunItem{script}}},
		Arena:   lib.NewItemArena(),
	}

	require.NoError(t, Prepare(tree, logrus.StandardLogger()))

	assert.Equal(t, uint64(6), script.NIters)
	assert.Equal(t, uint64(1), script.Weight)
	assert.Equal(t, uint64(6), tree.Configs[0].TotalIters)
}

func TestPrepareScriptIterateMultipliesArgProduct(t *testing.T) {
	t.Parallel()
	script := &lib.Script{
		Name:    "leaf",
		Iterate: 4,
		Args:    []lib.VarArg{{Name: "a", Values: newValues(2)}},
	}
	tree := &lib.ConfigTree{
		Configs: []*lib.Config{{Maintainer: "m", Runs: []lib.RunItem{script}}},
		Arena:   lib.NewItemArena(),
	}

	require.NoError(t, Prepare(tree, logrus.StandardLogger()))

	assert.Equal(t, uint64(8), script.NIters)
}

func TestPrepareLockStepListCountsOnce(t *testing.T) {
	t.Parallel()
	script := &lib.Script{
		Name: "leaf",
		Args: []lib.VarArg{
			{Name: "a", List: "group", Values: newValues(3)},
			{Name: "b", List: "group", Values: newValues(3)},
		},
	}
	tree := &lib.ConfigTree{
		Configs: []*lib.Config{{Maintainer: "m", Runs: []lib.RunItem{script}}},
		Arena:   lib.NewItemArena(),
	}

	require.NoError(t, Prepare(tree, logrus.StandardLogger()))

	assert.Equal(t, uint64(3), script.NIters, "lock-step list members share one multiplicative factor")
}

func TestPrepareSessionWeightSumsChildren(t *testing.T) {
	t.Parallel()
	arena := lib.NewItemArena()
	child1 := &lib.Script{Name: "c1", Args: []lib.VarArg{{Name: "a", Values: newValues(2)}}}
	child2 := &lib.Script{Name: "c2", Args: []lib.VarArg{{Name: "a", Values: newValues(5)}}}
	sess := &lib.Session{Name: "s", Children: []lib.RunItem{child1, child2}}
	arena.Add(sess)

	tree := &lib.ConfigTree{
		Configs: []*lib.Config{{Maintainer: "m", Runs: []lib.RunItem{sess}}},
		Arena:   arena,
	}

	require.NoError(t, Prepare(tree, logrus.StandardLogger()))

	assert.Equal(t, uint64(7), sess.Weight)
	assert.Equal(t, uint64(1), sess.NIters)
	assert.Equal(t, uint64(7), tree.Configs[0].TotalIters)
}

func TestPrepareSessionNItersCountsOwnVariables(t *testing.T) {
	t.Parallel()
	arena := lib.NewItemArena()
	leaf := &lib.Script{Name: "leaf"}
	sess := &lib.Session{
		Name:     "s",
		Vars:     []lib.VarArg{{Name: "x", Values: newValues(3)}},
		Children: []lib.RunItem{leaf},
	}
	arena.Add(sess)

	tree := &lib.ConfigTree{
		Configs: []*lib.Config{{Maintainer: "m", Runs: []lib.RunItem{sess}}},
		Arena:   arena,
	}

	require.NoError(t, Prepare(tree, logrus.StandardLogger()))

	assert.Equal(t, uint64(3), sess.NIters, "a session's own variables must multiply into its n_iters")
	assert.Equal(t, uint64(1), sess.Weight)
	assert.Equal(t, uint64(3*1*1), tree.Configs[0].TotalIters)
}

func TestPrepareSessionNItersMultipliesVarsAndIterate(t *testing.T) {
	t.Parallel()
	arena := lib.NewItemArena()
	leaf := &lib.Script{Name: "leaf"}
	sess := &lib.Session{
		Name:     "s",
		Iterate:  2,
		Vars:     []lib.VarArg{{Name: "x", Values: newValues(3)}},
		Children: []lib.RunItem{leaf},
	}
	arena.Add(sess)

	tree := &lib.ConfigTree{
		Configs: []*lib.Config{{Maintainer: "m", Runs: []lib.RunItem{sess}}},
		Arena:   arena,
	}

	require.NoError(t, Prepare(tree, logrus.StandardLogger()))

	assert.Equal(t, uint64(6), sess.NIters)
}

func TestPrepareSessionNItersLockStepVarsCountOnce(t *testing.T) {
	t.Parallel()
	arena := lib.NewItemArena()
	leaf := &lib.Script{Name: "leaf"}
	sess := &lib.Session{
		Name: "s",
		Vars: []lib.VarArg{
			{Name: "x", List: "group", Values: newValues(3)},
			{Name: "y", List: "group", Values: newValues(3)},
		},
		Children: []lib.RunItem{leaf},
	}
	arena.Add(sess)

	tree := &lib.ConfigTree{
		Configs: []*lib.Config{{Maintainer: "m", Runs: []lib.RunItem{sess}}},
		Arena:   arena,
	}

	require.NoError(t, Prepare(tree, logrus.StandardLogger()))

	assert.Equal(t, uint64(3), sess.NIters)
}

func TestPrepareExceptionHanddownNoneDecaysAtNextSession(t *testing.T) {
	t.Parallel()
	arena := lib.NewItemArena()
	exc := &lib.Script{Name: "exc"}
	leaf := &lib.Script{Name: "leaf"}
	inner := &lib.Session{Name: "inner", Children: []lib.RunItem{leaf}}
	outer := &lib.Session{
		Name:              "outer",
		Exception:         exc,
		ExceptionHanddown: lib.HanddownNone,
		Children:          []lib.RunItem{inner},
	}
	arena.Add(outer)
	arena.Add(inner)

	tree := &lib.ConfigTree{
		Configs: []*lib.Config{{Maintainer: "m", Runs: []lib.RunItem{outer}}},
		Arena:   arena,
	}

	require.NoError(t, Prepare(tree, logrus.StandardLogger()))

	assert.Same(t, exc, outer.EffectiveException)
	assert.Nil(t, inner.EffectiveException, "HanddownNone should not survive into a nested session")
}

func TestPrepareExceptionHanddownDescendantsNeverDecays(t *testing.T) {
	t.Parallel()
	arena := lib.NewItemArena()
	exc := &lib.Script{Name: "exc"}
	leaf := &lib.Script{Name: "leaf"}
	inner := &lib.Session{Name: "inner", Children: []lib.RunItem{leaf}}
	outer := &lib.Session{
		Name:              "outer",
		Exception:         exc,
		ExceptionHanddown: lib.HanddownDescendants,
		Children:          []lib.RunItem{inner},
	}
	arena.Add(outer)
	arena.Add(inner)

	tree := &lib.ConfigTree{
		Configs: []*lib.Config{{Maintainer: "m", Runs: []lib.RunItem{outer}}},
		Arena:   arena,
	}

	require.NoError(t, Prepare(tree, logrus.StandardLogger()))

	assert.Same(t, exc, inner.EffectiveException)
}

func TestPrepareZeroIterationItemIsLegal(t *testing.T) {
	t.Parallel()
	script := &lib.Script{Name: "leaf", Args: []lib.VarArg{{Name: "a"}}}
	tree := &lib.ConfigTree{
		Configs: []*lib.Config{{Maintainer: "m", Runs: []lib.RunItem{script}}},
		Arena:   lib.NewItemArena(),
	}

	require.NoError(t, Prepare(tree, logrus.StandardLogger()))

	assert.Equal(t, uint64(0), script.NIters)
}

func TestPrepareNItersOverflowReportsError(t *testing.T) {
	t.Parallel()
	script := &lib.Script{
		Name:    "leaf",
		Iterate: ^uint64(0), // max uint64: any further multiplication overflows.
		Args:    []lib.VarArg{{Name: "a", Values: newValues(2)}},
	}
	tree := &lib.ConfigTree{
		Configs: []*lib.Config{{Maintainer: "m", Runs: []lib.RunItem{script}}},
		Arena:   lib.NewItemArena(),
	}

	err := Prepare(tree, logrus.StandardLogger())

	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
}
