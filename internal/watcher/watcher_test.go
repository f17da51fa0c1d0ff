package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flint-note/flint/internal/writequeue"
)

func startWatcher(t *testing.T, root string, queue expectedHasher) *Watcher {
	t.Helper()
	w, err := New(root, queue, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background(), []string{root}))
	t.Cleanup(func() { w.Close() })
	// Clear the startup ignore window before the test drives any real
	// filesystem changes.
	time.Sleep(startupIgnoreWin + 50*time.Millisecond)
	return w
}

func waitForEvent(t *testing.T, events <-chan Event, timeout time.Duration) (Event, bool) {
	t.Helper()
	select {
	case ev := <-events:
		return ev, true
	case <-time.After(timeout):
		return Event{}, false
	}
}

func drainNoEvent(t *testing.T, events <-chan Event, timeout time.Duration) {
	t.Helper()
	select {
	case ev := <-events:
		t.Fatalf("expected no event, got %+v", ev)
	case <-time.After(timeout):
	}
}

// TestWatcher_InternalWriteIsSuppressed covers the "rapid typing, no
// false external" guarantee: a write performed through the queue must
// never surface as an external-* event for that path.
func TestWatcher_InternalWriteIsSuppressed(t *testing.T) {
	root := t.TempDir()
	q := writequeue.New(root, 5*time.Millisecond, 2*time.Second, nil, nil)
	defer q.Destroy()

	w := startWatcher(t, root, q)

	q.QueueWrite("note.md", "hello from the app")
	path := filepath.Join(root, "note.md")

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(path); err == nil && string(data) == "hello from the app" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	drainNoEvent(t, w.Events(), 500*time.Millisecond)
}

// TestWatcher_ExternalEditIsDetected covers the "external edit
// detected" scenario: a write made outside the queue (no matching
// expected hash) must surface as external-change.
func TestWatcher_ExternalEditIsDetected(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "note.md")
	require.NoError(t, os.WriteFile(path, []byte("initial"), 0o644))

	q := writequeue.New(root, 5*time.Millisecond, 2*time.Second, nil, nil)
	defer q.Destroy()

	w := startWatcher(t, root, q)

	require.NoError(t, os.WriteFile(path, []byte("edited by hand"), 0o644))

	ev, ok := waitForEvent(t, w.Events(), time.Second)
	require.True(t, ok, "expected an external-change event")
	assert.Equal(t, ExternalChange, ev.Kind)
	assert.Equal(t, "note.md", ev.Path)
}

func TestWatcher_ExternalAddIsDetected(t *testing.T) {
	root := t.TempDir()
	q := writequeue.New(root, 5*time.Millisecond, 2*time.Second, nil, nil)
	defer q.Destroy()

	w := startWatcher(t, root, q)

	path := filepath.Join(root, "new-note.md")
	require.NoError(t, os.WriteFile(path, []byte("brand new"), 0o644))

	ev, ok := waitForEvent(t, w.Events(), time.Second)
	require.True(t, ok, "expected an external-add event")
	assert.Equal(t, ExternalAdd, ev.Kind)
	assert.Equal(t, "new-note.md", ev.Path)
}

func TestWatcher_DeleteIsDetected(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "gone.md")
	require.NoError(t, os.WriteFile(path, []byte("will be deleted"), 0o644))

	q := writequeue.New(root, 5*time.Millisecond, 2*time.Second, nil, nil)
	defer q.Destroy()

	w := startWatcher(t, root, q)

	require.NoError(t, os.Remove(path))

	ev, ok := waitForEvent(t, w.Events(), time.Second)
	require.True(t, ok, "expected a delete event")
	assert.Equal(t, Delete, ev.Kind)
	assert.Equal(t, "gone.md", ev.Path)
}

func TestWatcher_NonMarkdownFilesAreIgnored(t *testing.T) {
	root := t.TempDir()
	q := writequeue.New(root, 5*time.Millisecond, 2*time.Second, nil, nil)
	defer q.Destroy()

	w := startWatcher(t, root, q)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("irrelevant"), 0o644))
	drainNoEvent(t, w.Events(), 400*time.Millisecond)
}
