package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.te.io/tescenario/internal/pathmatch"
)

func TestFlagSetParsesKnownFlags(t *testing.T) {
	t.Parallel()
	var o Options
	fs := o.FlagSet()
	require.NoError(t, fs.Parse([]string{
		"--suite", "mysuite:/path/to/suite",
		"--run", "/Session/P:y=1",
		"--gdb", "/Session/Q",
		"--random-seed", "42",
		"--dial", "50",
		"--no-trc",
	}))

	assert.Equal(t, "mysuite:/path/to/suite", o.Suite)
	assert.Equal(t, "/Session/P:y=1", o.Run)
	assert.Equal(t, "/Session/Q", o.Gdb)
	assert.Equal(t, int64(42), o.RandomSeed)
	assert.Equal(t, 50, o.DialPct)
	assert.True(t, o.NoTRC)
}

func TestPathOverlaysParsesEachMode(t *testing.T) {
	t.Parallel()
	o := Options{Run: "/Session/P:y=1", Gdb: "/Session/Q"}
	overlays, err := o.PathOverlays()
	require.NoError(t, err)

	require.Contains(t, overlays, pathmatch.ModeRun)
	require.Contains(t, overlays, pathmatch.ModeGdb)
	assert.Len(t, overlays[pathmatch.ModeRun], 2)
	assert.Len(t, overlays[pathmatch.ModeGdb], 2)
}

func TestPathOverlaysPropagatesParseError(t *testing.T) {
	t.Parallel()
	o := Options{Run: "not-a-path-missing-leading-slash-but-thats-ok-actually"}
	// A bare word with no "/" prefix is still one valid segment; force a
	// real parse error instead via a malformed constraint.
	o.Run = "/Session:badconstraint"
	_, err := o.PathOverlays()
	assert.Error(t, err)
}
