package writequeue

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestNew_DefaultsBackoffsWhenNilOrEmpty(t *testing.T) {
	root := t.TempDir()
	q := New(root, time.Millisecond, time.Millisecond, nil, nil)
	defer q.Destroy()
	assert.Equal(t, defaultBackoff, q.backoffs)

	q2 := New(root, time.Millisecond, time.Millisecond, []time.Duration{}, nil)
	defer q2.Destroy()
	assert.Equal(t, defaultBackoff, q2.backoffs)
}

func TestNew_UsesProvidedBackoffsOverDefault(t *testing.T) {
	root := t.TempDir()
	custom := []time.Duration{time.Millisecond, 2 * time.Millisecond}
	q := New(root, time.Millisecond, time.Millisecond, custom, nil)
	defer q.Destroy()
	assert.Equal(t, custom, q.backoffs)
}

func TestQueueWrite_CoalescesRapidEditsIntoOneWrite(t *testing.T) {
	root := t.TempDir()
	q := New(root, 20*time.Millisecond, 200*time.Millisecond, nil, nil)
	defer q.Destroy()

	// Rapid "typing": each call replaces the pending content before the
	// debounce timer fires. Only the last version should ever land on
	// disk — §5's "most recently queued content wins".
	q.QueueWrite("note.md", "v1")
	q.QueueWrite("note.md", "v1 v2")
	q.QueueWrite("note.md", "v1 v2 v3")

	path := filepath.Join(root, "note.md")
	waitUntil(t, time.Second, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && string(data) == "v1 v2 v3"
	})
}

func TestQueueWrite_AtomicWriteLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	q := New(root, 5*time.Millisecond, 200*time.Millisecond, nil, nil)
	defer q.Destroy()

	q.QueueWrite("a/b/note.md", "hello")
	path := filepath.Join(root, "a", "b", "note.md")
	waitUntil(t, time.Second, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && string(data) == "hello"
	})

	entries, err := os.ReadDir(filepath.Join(root, "a", "b"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestIsExpected_MatchesWrittenHashThenExpires(t *testing.T) {
	root := t.TempDir()
	q := New(root, 5*time.Millisecond, 50*time.Millisecond, nil, nil)
	defer q.Destroy()

	q.QueueWrite("note.md", "content")
	path := filepath.Join(root, "note.md")
	waitUntil(t, time.Second, func() bool {
		_, err := os.Stat(path)
		return err == nil
	})

	hash, err := HashFile(context.Background(), path)
	require.NoError(t, err)

	// The queue's own write must be recognized as expected so the
	// watcher suppresses it rather than reporting an external change —
	// the "rapid typing, no false external" guarantee.
	assert.True(t, q.IsExpected("note.md", hash))

	waitUntil(t, time.Second, func() bool {
		return !q.IsExpected("note.md", hash)
	})
}

func TestIsExpected_FalseForUnrelatedHash(t *testing.T) {
	root := t.TempDir()
	q := New(root, 5*time.Millisecond, time.Second, nil, nil)
	defer q.Destroy()

	q.QueueWrite("note.md", "content")
	waitUntil(t, time.Second, func() bool {
		_, err := os.Stat(filepath.Join(root, "note.md"))
		return err == nil
	})

	assert.False(t, q.IsExpected("note.md", "not-a-real-hash"))
	assert.False(t, q.IsExpected("other.md", "not-a-real-hash"))
}

func TestFlushWrite_ForcesImmediateWrite(t *testing.T) {
	root := t.TempDir()
	q := New(root, time.Hour, time.Second, nil, nil) // long delay: only a flush should write
	defer q.Destroy()

	q.QueueWrite("note.md", "flush me")
	q.FlushWrite("note.md")

	data, err := os.ReadFile(filepath.Join(root, "note.md"))
	require.NoError(t, err)
	assert.Equal(t, "flush me", string(data))
}

func TestPending_CountsUnflushedPaths(t *testing.T) {
	root := t.TempDir()
	q := New(root, time.Hour, time.Second, nil, nil)
	defer q.Destroy()

	assert.Equal(t, 0, q.Pending())
	q.QueueWrite("a.md", "x")
	q.QueueWrite("b.md", "y")
	assert.Equal(t, 2, q.Pending())
}

func TestHashFile_MatchesQueueWriteHash(t *testing.T) {
	root := t.TempDir()
	q := New(root, 5*time.Millisecond, time.Second, nil, nil)
	defer q.Destroy()

	q.QueueWrite("note.md", "same bytes")
	path := filepath.Join(root, "note.md")
	waitUntil(t, time.Second, func() bool {
		_, err := os.Stat(path)
		return err == nil
	})

	hash, err := HashFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, q.IsExpected("note.md", hash))
}
