package storage

import (
	"context"
	"imagio/internal/core/domain"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemPutGetRoundTrip(t *testing.T) {
	fs, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, fs.Put(ctx, "avatar/abc.png", []byte("pixels")))

	data, err := fs.Get(ctx, "avatar/abc.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("pixels"), data)
}

func TestFilesystemOverwrite(t *testing.T) {
	fs, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, fs.Put(ctx, "k", []byte("one")))
	require.NoError(t, fs.Put(ctx, "k", []byte("two")))

	data, err := fs.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)
}

func TestFilesystemGetMissing(t *testing.T) {
	fs, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)

	_, err = fs.Get(context.Background(), "avatar/missing.png")
	assert.ErrorIs(t, err, domain.ErrBlobNotFound)
}

func TestFilesystemRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	fs, err := NewFilesystem(root)
	require.NoError(t, err)

	ctx := context.Background()
	for _, key := range []string{
		"../escape",
		"avatar/../../escape",
		"/etc/passwd",
		"..",
		"",
	} {
		_, err := fs.Get(ctx, key)
		assert.Error(t, err, "key %q", key)
		assert.NotErrorIs(t, err, domain.ErrBlobNotFound, "key %q", key)

		assert.Error(t, fs.Put(ctx, key, []byte("x")), "key %q", key)
	}

	// Nothing may have landed next to the root.
	entries, err := os.ReadDir(filepath.Dir(root))
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotEqual(t, "escape", entry.Name())
	}
}

func TestFilesystemInternalDotsAllowed(t *testing.T) {
	fs, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, fs.Put(ctx, "avatar/a..b.png", []byte("x")))

	data, err := fs.Get(ctx, "avatar/a..b.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}

func TestFilesystemDelete(t *testing.T) {
	fs, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, fs.Put(ctx, "k", []byte("x")))
	require.NoError(t, fs.Delete(ctx, "k"))

	_, err = fs.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrBlobNotFound)

	// Deleting again is not an error.
	assert.NoError(t, fs.Delete(ctx, "k"))
}

func TestFilesystemLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	fs, err := NewFilesystem(root)
	require.NoError(t, err)

	require.NoError(t, fs.Put(context.Background(), "avatar/a.png", []byte("x")))

	entries, err := os.ReadDir(filepath.Join(root, "avatar"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.png", entries[0].Name())
}
