package trc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.te.io/tescenario/lib"
)

func TestLoadAndLookup(t *testing.T) {
	t.Parallel()
	doc := []byte(`
entries:
  - path: /Suite/Group/script1
    tags: [linux, x86_64]
    status: passed
  - path: /Suite/Group/script2
    tags: []
    status: failed
    mixed: true
`)
	db, err := Load(doc)
	require.NoError(t, err)

	exp, ok := db.Lookup("/Suite/Group/script1", []string{"x86_64", "linux"})
	require.True(t, ok, "tag order must not matter")
	assert.Equal(t, lib.StatusPassed, exp.Status)
	assert.False(t, exp.Mixed)

	_, ok = db.Lookup("/Suite/Group/script1", []string{"arm64"})
	assert.False(t, ok, "different tag set is a different key")
}

func TestMatchUnexpected(t *testing.T) {
	t.Parallel()
	db := NewDatabase("")
	db.Put("/Suite/s1", nil, Expectation{Status: lib.StatusPassed})

	v := db.Match("/Suite/s1", nil, 3, lib.StatusFailed)
	assert.True(t, v.Unexpected)
	assert.Equal(t, lib.StatusPassed, v.Expected)
	assert.Equal(t, lib.StatusFailed, v.Got)
}

func TestMatchMixedNeverUnexpected(t *testing.T) {
	t.Parallel()
	db := NewDatabase("")
	db.Put("/Suite/s1", nil, Expectation{Status: lib.StatusPassed, Mixed: true})

	v := db.Match("/Suite/s1", nil, 0, lib.StatusFailed)
	assert.False(t, v.Unexpected)
	assert.True(t, v.Mixed)
}

func TestMatchNoExpectation(t *testing.T) {
	t.Parallel()
	db := NewDatabase("")
	v := db.Match("/Suite/unknown", nil, 0, lib.StatusPassed)
	assert.False(t, v.Unexpected)
}

func TestJoinExpectedMixedNeverUpgrades(t *testing.T) {
	t.Parallel()
	group := Expectation{Status: lib.StatusPassed}
	next := Expectation{Status: lib.StatusFailed, Mixed: true}
	assert.Equal(t, group, JoinExpected(group, next))
}

func TestJoinExpectedUpgrades(t *testing.T) {
	t.Parallel()
	group := Expectation{Status: lib.StatusPassed}
	next := Expectation{Status: lib.StatusFailed}
	got := JoinExpected(group, next)
	assert.Equal(t, lib.StatusFailed, got.Status)
}
