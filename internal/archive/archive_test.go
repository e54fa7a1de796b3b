package archive

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestSessionLifecycle(t *testing.T) {
	a := openTemp(t)

	id, err := a.StartSession("rehearsal")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, a.AppendRow(id, 11, "11: 1.0: 2.0: "))
	require.NoError(t, a.AppendRow(id, 22, "22: 3.0: 4.0: "))
	require.NoError(t, a.EndSession(id))

	rows, err := a.SessionRows(id)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "11: 1.0: 2.0: ", rows[0])
	assert.Equal(t, "22: 3.0: 4.0: ", rows[1])
}

func TestSessionsAreIsolated(t *testing.T) {
	a := openTemp(t)

	first, err := a.StartSession("")
	require.NoError(t, err)
	second, err := a.StartSession("")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	require.NoError(t, a.AppendRow(first, 11, "only-first"))

	rows, err := a.SessionRows(second)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
