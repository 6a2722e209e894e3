// Command te runs a test-orchestration campaign: it loads a run-item
// tree, builds a scenario from the selection flags, walks it, and
// reports per-iteration results (spec.md §6).
package main

import (
	"context"

	"go.te.io/tescenario/internal/cliutil"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gs := cliutil.NewGlobalState(ctx)
	root := newRootCommand(gs)
	code := cliutil.Execute(gs, root)
	gs.OSExit(code)
}
