package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.te.io/tescenario/internal/trc"
	"go.te.io/tescenario/lib"
)

func TestWriteTextSummary(t *testing.T) {
	t.Parallel()
	w := NewWriter()
	w.Add(Record{Path: "/Suite/s1", Iteration: 0, Status: lib.StatusPassed})
	w.AddFromVerdict(
		Record{Path: "/Suite/s2", Iteration: 0, Status: lib.StatusFailed},
		trc.Verdict{Expected: lib.StatusPassed, Unexpected: true},
	)

	var buf bytes.Buffer
	require.NoError(t, w.WriteText(&buf))

	out := buf.String()
	assert.Contains(t, out, "2 iterations, 1 unexpected")
	assert.Contains(t, out, "expected passed")
}

func TestWriteJSONRoundTrip(t *testing.T) {
	t.Parallel()
	w := NewWriter()
	w.Add(Record{Path: "/Suite/s1", Iteration: 5, Status: lib.StatusCored})

	var buf bytes.Buffer
	require.NoError(t, w.WriteJSON(&buf))

	var out []Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, uint64(5), out[0].Iteration)
	assert.Equal(t, lib.StatusCored, out[0].Status)
}

func TestWriteFilesThroughAfero(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	w := NewWriter()
	w.Add(Record{Path: "/Suite/s1", Status: lib.StatusPassed})

	require.NoError(t, w.WriteJSONFile(fs, "/out.json"))
	require.NoError(t, w.WriteTextFile(fs, "/out.txt"))

	exists, err := afero.Exists(fs, "/out.json")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = afero.Exists(fs, "/out.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}
