package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStoreSaveAndOpen(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	key, err := store.Save(ctx, "image", "sunset.jpg", strings.NewReader("payload-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "image-"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload-bytes", string(data))
}

func TestDiskStoreKeysNeverCollide(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		key, err := store.Save(ctx, "file", "clip.mp4", strings.NewReader("x"))
		require.NoError(t, err)
		require.False(t, seen[key], "duplicate key %s", key)
		seen[key] = true
	}
}

func TestDiskStoreOpenMissing(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "file-nope.mp4")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiskStoreDeleteIdempotent(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	key, err := store.Save(ctx, "file", "song.mp3", strings.NewReader("abc"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, key))

	// Second delete of the same key succeeds
	require.NoError(t, store.Delete(ctx, key))

	_, err = store.Open(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiskStoreRefusesTraversal(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir)
	require.NoError(t, err)

	outside := filepath.Join(filepath.Dir(dir), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o600))

	_, err = store.Open(context.Background(), "../secret.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiskStoreNoPartialFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir)
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "file", "clip.mp4", strings.NewReader("bytes"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".part-"), "leftover temp file %s", e.Name())
	}
}

func TestNewKeyExtension(t *testing.T) {
	key := NewKey("image", "archive.tar.gz")
	assert.True(t, strings.HasSuffix(key, ".gz"))

	key = NewKey("file", "noext")
	assert.False(t, strings.Contains(key, "."))
}
