package uploads

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSaveReadRemove(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	path, err := store.Save("abc123", "answer.MP3", strings.NewReader("audio"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "abc123-"))
	assert.Equal(t, ".mp3", filepath.Ext(path))

	data, err := store.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "audio", string(data))

	require.NoError(t, store.Remove(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// removing again is fine
	assert.NoError(t, store.Remove(path))
}

func TestStoreSaveSanitisesNames(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	path, err := store.Save("../../etc/abc", "blob", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, store.Dir(), filepath.Dir(path))
	assert.Equal(t, ".webm", filepath.Ext(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "abc-"))
}

func TestStoreRejectsPathsOutsideDir(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	outside := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	_, err = store.Read(outside)
	assert.ErrorIs(t, err, ErrOutsideStore)
	assert.ErrorIs(t, store.Remove(outside), ErrOutsideStore)
	assert.ErrorIs(t, store.Remove(filepath.Join(store.Dir(), "..", "x")), ErrOutsideStore)
}

func TestStoreCleanupOlderThan(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	oldPath, err := store.Save("old", "a.webm", strings.NewReader("x"))
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, past, past))

	freshPath, err := store.Save("fresh", "a.webm", strings.NewReader("x"))
	require.NoError(t, err)

	removed, err := store.CleanupOlderThan(time.Hour, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(freshPath)
	assert.NoError(t, err)
}

func TestStoreCleanupKeepsReferencedUploads(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	keptPath, err := store.Save("queued", "a.webm", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(keptPath, past, past))
	orphanPath, err := store.Save("orphan", "a.webm", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(orphanPath, past, past))

	removed, err := store.CleanupOlderThan(time.Hour, func(path string) bool { return path == keptPath })
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(keptPath)
	assert.NoError(t, err)
	_, err = os.Stat(orphanPath)
	assert.True(t, os.IsNotExist(err))
}
