package substrate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCache_PutGetRoundTrip(t *testing.T) {
	fc := NewFileCache(time.Minute, 0)
	defer fc.Close()

	mtime := time.Now()
	fc.Put("a.go", mtime, []byte("package main"))

	got, ok := fc.Get("a.go", mtime)
	require.True(t, ok)
	assert.Equal(t, []byte("package main"), got)
}

func TestFileCache_MissOnModTimeChange(t *testing.T) {
	fc := NewFileCache(time.Minute, 0)
	defer fc.Close()

	mtime := time.Now()
	fc.Put("a.go", mtime, []byte("v1"))

	_, ok := fc.Get("a.go", mtime.Add(time.Second))
	assert.False(t, ok, "a changed mtime must be treated as a cache miss")
}

func TestFileCache_MissOnExpiry(t *testing.T) {
	fc := NewFileCache(time.Millisecond, 0)
	defer fc.Close()

	mtime := time.Now()
	fc.Put("a.go", mtime, []byte("v1"))
	time.Sleep(5 * time.Millisecond)

	_, ok := fc.Get("a.go", mtime)
	assert.False(t, ok)
}

func TestFileCache_EvictsOldestOverByteCap(t *testing.T) {
	fc := NewFileCache(time.Minute, 10)
	defer fc.Close()

	mtime := time.Now()
	fc.Put("a.go", mtime, []byte("12345"))
	fc.Put("b.go", mtime, []byte("12345"))
	fc.Put("c.go", mtime, []byte("12345")) // pushes total past the 10-byte cap

	_, aOK := fc.Get("a.go", mtime)
	_, cOK := fc.Get("c.go", mtime)
	assert.False(t, aOK, "oldest entry should have been evicted")
	assert.True(t, cOK)
}

func TestFileCache_InvalidateOnExternalWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watched.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	fc := NewFileCache(time.Minute, 0)
	defer fc.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	fc.Put(path, info.ModTime(), []byte("v1"))

	require.NoError(t, os.WriteFile(path, []byte("v2 longer"), 0o644))

	require.Eventually(t, func() bool {
		_, ok := fc.Get(path, info.ModTime())
		return !ok
	}, time.Second, 10*time.Millisecond, "external write should invalidate the cache entry")
}
