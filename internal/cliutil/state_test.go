package cliutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildEnvMap(t *testing.T) {
	t.Parallel()
	env := BuildEnvMap([]string{"A=1", "B=", "C"})
	assert.Equal(t, "1", env["A"])
	assert.Equal(t, "", env["B"])
	assert.Equal(t, "", env["C"])
}

func TestGetFlagsHonorsEnv(t *testing.T) {
	t.Parallel()
	def := GetDefaultFlags("/home")
	flags := getFlags(def, map[string]string{"TE_CONFIG": "/other/config.json", "NO_COLOR": ""})
	assert.Equal(t, "/other/config.json", flags.ConfigFilePath)
	assert.True(t, flags.NoColor)
}

func TestLevelForVerbosity(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "info", levelForVerbosity(0).String())
	assert.Equal(t, "debug", levelForVerbosity(1).String())
	assert.Equal(t, "warning", levelForVerbosity(-1).String())
}

func TestNewTestStateIsHermetic(t *testing.T) {
	t.Parallel()
	ts := NewTestState()
	_, err := ts.FS.Stat("/")
	assert.NoError(t, err)
	assert.Equal(t, -1, *ts.ExitCode)

	ts.Logger.Warn("hello")
	assert.Len(t, ts.LoggerHook.Drain(), 1)
}
