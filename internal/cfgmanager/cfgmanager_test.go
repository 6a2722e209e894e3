package cfgmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCreateVerifyRelease(t *testing.T) {
	t.Parallel()
	m := NewInMemory()

	h, err := m.CreateBackup()
	require.NoError(t, err)

	result, err := m.VerifyBackup(h)
	require.NoError(t, err)
	assert.Equal(t, Ok, result)

	require.NoError(t, m.ReleaseBackup(h))
	assert.Equal(t, []string{"create:" + string(h), "verify:" + string(h), "release:" + string(h)}, m.Events)
}

func TestInMemoryVerifyReportsProgrammedDrift(t *testing.T) {
	t.Parallel()
	m := NewInMemory()
	h, err := m.CreateBackup()
	require.NoError(t, err)

	m.SetDrift(h, true)
	result, err := m.VerifyBackup(h)
	require.NoError(t, err)
	assert.Equal(t, Drift, result)

	require.NoError(t, m.RestoreBackup(h))
	result, err = m.VerifyBackup(h)
	require.NoError(t, err)
	assert.Equal(t, Ok, result, "RestoreBackup clears recorded drift")
}

func TestInMemoryVerifyUnknownHandleErrors(t *testing.T) {
	t.Parallel()
	m := NewInMemory()

	_, err := m.VerifyBackup(Handle("never-created"))
	assert.Error(t, err)
}

func TestInMemoryReleaseUnknownHandleErrors(t *testing.T) {
	t.Parallel()
	m := NewInMemory()

	err := m.ReleaseBackup(Handle("never-created"))
	assert.Error(t, err)
}
