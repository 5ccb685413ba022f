package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileProvider_LoadReadsFileContents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: test\n"), 0o644))

	p, err := NewFileProvider(path)
	require.NoError(t, err)
	defer p.Close()

	data, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "name: test\n", string(data))
}

func TestFileProvider_WatchSignalsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: test\n"), 0o644))

	p, err := NewFileProvider(path)
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := p.Watch(ctx)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("name: updated\n"), 0o644))

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change notification after writing to the watched file")
	}
}

func TestFileProvider_LoadUnknownFileErrors(t *testing.T) {
	p, err := NewFileProvider(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Load(context.Background())
	assert.Error(t, err)
}

func TestNew_UnknownTypeErrors(t *testing.T) {
	_, err := New(ProviderConfig{Type: "bogus", Path: "x"})
	assert.Error(t, err)
}
