package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_EmitsDebouncedEvent(t *testing.T) {
	dir := t.TempDir()
	events := make(chan FileEvent, 1)

	w, err := NewWatcher("S1", func(name string) bool { return strings.HasSuffix(name, ".xml") }, 50*time.Millisecond, events)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background(), dir))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.xml"), []byte("<a/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.xml"), []byte("<b/>"), 0o644))

	select {
	case ev := <-events:
		assert.Equal(t, "S1", ev.StoreID)
		assert.Equal(t, dir, ev.Path)
	case <-time.After(5 * time.Second):
		t.Fatal("expected a debounced event")
	}
}

func TestWatcher_IgnoresNonMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	events := make(chan FileEvent, 1)

	w, err := NewWatcher("S1", func(name string) bool { return strings.HasSuffix(name, ".xml") }, 20*time.Millisecond, events)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background(), dir))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_StartMissingDirectory(t *testing.T) {
	w, err := NewWatcher("S1", nil, 0, make(chan FileEvent, 1))
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background(), filepath.Join(t.TempDir(), "missing")))
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := NewWatcher("S1", nil, 0, make(chan FileEvent, 1))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background(), t.TempDir()))
	w.Stop()
	w.Stop()
}
