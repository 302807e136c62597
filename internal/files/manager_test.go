package files

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_WriteFile(t *testing.T) {
	base := filepath.Join(t.TempDir(), "cache")
	m := NewManager(base, nil)

	require.NoError(t, m.EnsureDirectory())
	require.NoError(t, m.WriteFile("snapshot.sig", []byte("abc")))

	assert.True(t, m.FileExists("snapshot.sig"))
	data, err := m.ReadFile("snapshot.sig")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))

	require.NoError(t, m.WriteFile("snapshot.sig", []byte("def")))
	data, err = m.ReadFile("snapshot.sig")
	require.NoError(t, err)
	assert.Equal(t, "def", string(data))
}

func TestManager_WriteFileAtomic_FailureKeepsOldFile(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base, nil)
	require.NoError(t, m.WriteFile("data.bin", []byte("old")))

	err := m.WriteFileAtomic("data.bin", func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("boom")
	})
	require.Error(t, err)

	data, err := m.ReadFile("data.bin")
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be removed")
}

func TestManager_DeleteFile(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	require.NoError(t, m.WriteFile("a.txt", []byte("x")))

	require.NoError(t, m.DeleteFile("a.txt"))
	assert.False(t, m.FileExists("a.txt"))
	assert.NoError(t, m.DeleteFile("a.txt"))
}

func TestManager_Path(t *testing.T) {
	m := NewManager("/base", nil)
	assert.Equal(t, filepath.Join("/base", "x.csv"), m.Path("x.csv"))
	assert.Equal(t, "/abs/x.csv", m.Path("/abs/x.csv"))
}
