package walker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.te.io/tescenario/internal/prepare"
	"go.te.io/tescenario/internal/runhook"
	"go.te.io/tescenario/internal/scenario"
	"go.te.io/tescenario/lib"
)

// stubHook is a minimal runhook.Hook that records the run names it was
// asked to execute and always reports a clean exit.
type stubHook struct {
	calls []string
}

func (h *stubHook) Run(_ context.Context, _ *lib.Script, runName, _ string, _ []runhook.Arg, _ lib.Flag) runhook.Outcome {
	h.calls = append(h.calls, runName)
	return runhook.Outcome{ExitCode: 0}
}

func TestHookFallbackUsedWhenScriptCallbackNil(t *testing.T) {
	t.Parallel()
	mk := func(name string) *lib.Script { return &lib.Script{Name: name} }
	cfg := &lib.Config{Runs: []lib.RunItem{mk("solo")}}
	require.NoError(t, prepare.Prepare(&lib.ConfigTree{Configs: []*lib.Config{cfg}}, nil))
	scn := &lib.Scenario{Acts: []lib.Act{scenario.NewAct(0, cfg.TotalIters-1, 0)}}

	hook := &stubHook{}
	w := &Walker{Hook: hook}
	status := w.WalkConfig(context.Background(), cfg, scn)

	assert.Equal(t, []string{"solo"}, hook.calls)
	assert.Equal(t, lib.StatusPassed, status)
}

// threeScriptSession builds a session with three direct scripts, each one
// iteration, for the prologue/keepalive failure scenarios (spec.md §8
// scenarios 5 and 6).
func threeScriptSession(t *testing.T, prologue, keepalive *lib.Script) *lib.Session {
	t.Helper()
	mk := func(name string) *lib.Script { return &lib.Script{Name: name} }
	sess := &lib.Session{
		Name:      "Group",
		Children:  []lib.RunItem{mk("s1"), mk("s2"), mk("s3")},
		Prologue:  prologue,
		Keepalive: keepalive,
	}
	tree := &lib.ConfigTree{Arena: lib.NewItemArena(), Configs: []*lib.Config{{Runs: []lib.RunItem{sess}}}}
	require.NoError(t, prepare.Prepare(tree, nil))
	return sess
}

func TestPrologueFailSkipsGroup(t *testing.T) {
	t.Parallel()
	sess := threeScriptSession(t, &lib.Script{Name: "prologue"}, nil)
	cfg := &lib.Config{Runs: []lib.RunItem{sess}}
	require.NoError(t, prepare.Prepare(&lib.ConfigTree{Configs: []*lib.Config{cfg}}, nil))

	fullScenario := &lib.Scenario{Acts: []lib.Act{scenario.NewAct(0, cfg.TotalIters-1, 0)}}

	var started []string
	w := &Walker{
		Callbacks: Callbacks{
			Script: func(it Iteration) (lib.TesterStatus, lib.WalkCtl) {
				if it.RunName == "prologue" {
					return lib.StatusFailed, lib.CtlCont
				}
				started = append(started, it.RunName)
				return lib.StatusPassed, lib.CtlCont
			},
		},
	}

	status := w.WalkConfig(context.Background(), cfg, fullScenario)

	assert.Empty(t, started, "scripts must not run after prologue fails")
	assert.Equal(t, lib.StatusProlog, status)
}

func TestKeepaliveFailStopsRemainingScripts(t *testing.T) {
	t.Parallel()
	sess := threeScriptSession(t, nil, &lib.Script{Name: "keepalive"})
	cfg := &lib.Config{Runs: []lib.RunItem{sess}}
	require.NoError(t, prepare.Prepare(&lib.ConfigTree{Configs: []*lib.Config{cfg}}, nil))

	fullScenario := &lib.Scenario{Acts: []lib.Act{scenario.NewAct(0, cfg.TotalIters-1, 0)}}

	keepaliveCalls := 0
	var ran []string
	w := &Walker{
		Callbacks: Callbacks{
			Script: func(it Iteration) (lib.TesterStatus, lib.WalkCtl) {
				if it.RunName == "keepalive" {
					keepaliveCalls++
					if keepaliveCalls == 2 {
						return lib.StatusFailed, lib.CtlCont
					}
					return lib.StatusPassed, lib.CtlCont
				}
				ran = append(ran, it.RunName)
				return lib.StatusPassed, lib.CtlCont
			},
		},
	}

	status := w.WalkConfig(context.Background(), cfg, fullScenario)

	assert.Equal(t, []string{"s1"}, ran, "only s1 should run before keepalive fails on its second call")
	assert.Equal(t, lib.StatusKeepalive, status)
}

func TestEmptyScenarioNeverEntersWalker(t *testing.T) {
	t.Parallel()
	sess := threeScriptSession(t, nil, nil)
	cfg := &lib.Config{Runs: []lib.RunItem{sess}}
	require.NoError(t, prepare.Prepare(&lib.ConfigTree{Configs: []*lib.Config{cfg}}, nil))

	called := false
	w := &Walker{
		Callbacks: Callbacks{
			Script: func(it Iteration) (lib.TesterStatus, lib.WalkCtl) {
				called = true
				return lib.StatusPassed, lib.CtlCont
			},
		},
	}
	status := w.WalkConfig(context.Background(), cfg, &lib.Scenario{})
	assert.False(t, called)
	assert.Equal(t, lib.StatusEmpty, status)
}
