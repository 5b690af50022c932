package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thiremani/safec/config"
	"github.com/thiremani/safec/diag"
)

func TestIsHashDir(t *testing.T) {
	assert.True(t, isHashDir("0a1b2c3d"))
	assert.False(t, isHashDir("0a1b2c3"))
	assert.False(t, isHashDir("0a1b2c3g"))
	assert.False(t, isHashDir("runtime!"))
}

func TestCacheKey(t *testing.T) {
	src := []byte("int main(void) { return 0; }")
	opts := config.Default()

	short, full, err := cacheKey("a.c", src, opts, EMIT_LLVM, diag.FormatText)
	require.NoError(t, err)
	assert.Len(t, short, 8)
	assert.Len(t, full, 64)
	assert.Equal(t, full[:8], short)
	assert.True(t, isHashDir(short))

	_, again, err := cacheKey("a.c", src, opts, EMIT_LLVM, diag.FormatText)
	require.NoError(t, err)
	assert.Equal(t, full, again, "key is deterministic")

	changed := opts
	changed.BoundaryCheck = true
	variants := []struct {
		name string
		file string
		src  []byte
		opts config.Options
		emit string
	}{
		{"file", "b.c", src, opts, EMIT_LLVM},
		{"source", "a.c", []byte("int x;"), opts, EMIT_LLVM},
		{"policy", "a.c", src, changed, EMIT_LLVM},
		{"emit", "a.c", src, opts, EMIT_IR},
	}
	for _, v := range variants {
		_, other, err := cacheKey(v.file, v.src, v.opts, v.emit, diag.FormatText)
		require.NoError(t, err)
		assert.NotEqual(t, full, other, v.name)
	}
}

func TestCachePutGet(t *testing.T) {
	c, err := OpenCache(t.TempDir())
	require.NoError(t, err)

	_, ok := c.Get("0a1b2c3d", "0a1b2c3d-full")
	assert.False(t, ok)

	want := &Entry{Output: []byte("define i32 @main()"), Report: []byte("1 warning(s)\n"), Errors: 2}
	require.NoError(t, c.Put("0a1b2c3d", "0a1b2c3d-full", want))

	got, ok := c.Get("0a1b2c3d", "0a1b2c3d-full")
	require.True(t, ok)
	assert.Equal(t, want, got)

	// same directory, different full hash
	_, ok = c.Get("0a1b2c3d", "0a1b2c3d-other")
	assert.False(t, ok)
}

func TestCacheIncompleteEntry(t *testing.T) {
	c, err := OpenCache(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, c.Put("11111111", "full", &Entry{Output: []byte("x")}))
	require.NoError(t, os.Remove(filepath.Join(c.dir, "11111111", HASH_FILE)))

	_, ok := c.Get("11111111", "full")
	assert.False(t, ok, "an entry without its hash marker is ignored")
}

func TestCacheClean(t *testing.T) {
	c, err := OpenCache(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, c.Put("22222222", "a", &Entry{}))
	require.NoError(t, c.Put("33333333", "b", &Entry{}))
	other := filepath.Join(c.dir, "keep-me")
	require.NoError(t, os.Mkdir(other, 0755))

	require.NoError(t, c.Clean())
	_, ok := c.Get("22222222", "a")
	assert.False(t, ok)
	assert.DirExists(t, other, "only hash directories are removed")
}

func TestCleanupOldEntries(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-30 * 24 * time.Hour)
	names := []string{"00000001", "00000002", "00000003", "00000004"}
	for i, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.Mkdir(path, 0755))
		mtime := old.Add(time.Duration(i) * time.Hour)
		if i == len(names)-1 {
			mtime = time.Now()
		}
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}

	cleanupOldEntries(dir, 2, 7*24*60*60)

	assert.NoDirExists(t, filepath.Join(dir, "00000001"))
	assert.NoDirExists(t, filepath.Join(dir, "00000002"))
	assert.DirExists(t, filepath.Join(dir, "00000003"))
	assert.DirExists(t, filepath.Join(dir, "00000004"))

	// recent entries survive even beyond the keep count
	cleanupOldEntries(dir, 1, 7*24*60*60*100)
	assert.DirExists(t, filepath.Join(dir, "00000003"))
}

func TestDefaultCacheEnv(t *testing.T) {
	t.Setenv("SAFECCACHE", "/tmp/safec-test-cache")
	assert.Equal(t, "/tmp/safec-test-cache", defaultCache())
}
