package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "rooms", "room.json")

	require.NoError(t, WriteFileAtomic(path, []byte("first"), 0o600))
	require.NoError(t, WriteFileAtomic(path, []byte("second"), 0o600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files are cleaned up")
	assert.Equal(t, "room.json", entries[0].Name())
}

func TestWriteFileAtomicIntoFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := WriteFileAtomic(filepath.Join(blocker, "x.json"), []byte("data"), 0o644)
	require.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()
	type balance struct {
		User  string `json:"user"`
		Coins int    `json:"coins"`
	}
	path := filepath.Join(t.TempDir(), "coins.json")

	var missing []balance
	ok, err := ReadJSON(path, &missing)
	require.NoError(t, err)
	assert.False(t, ok)

	in := []balance{{"alice", 15}, {"bob", -15}}
	require.NoError(t, WriteJSONAtomic(path, in))

	var out []balance
	ok, err = ReadJSON(path, &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, in, out)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err = ReadJSON(path, &out)
	require.Error(t, err)

	require.NoError(t, Remove(path))
	require.NoError(t, Remove(path))
}
