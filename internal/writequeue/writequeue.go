// Package writequeue coalesces rapid writes to the same vault-relative
// path and records the content hash of every write it performs so the
// filesystem watcher can tell its own writes apart from an editor's,
// per §4.4.
package writequeue

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/flint-note/flint/internal/logging"
)

var defaultBackoff = []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second}

// entry is the per-path pending-write state.
type entry struct {
	pendingContent string
	timer          *time.Timer
	expectedHashes map[string]time.Time // hash -> expiry
	attemptsLeft   int
}

// Queue is the per-vault write-coalescing file queue.
type Queue struct {
	root        string
	writeDelay  time.Duration
	expectedTTL time.Duration
	backoffs    []time.Duration
	log         logging.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

// New builds a queue rooted at vaultRoot. writeDelay is how long a
// queueWrite call waits before flushing to disk; expectedTTL is how
// much longer a written hash stays in the expected set afterward, to
// absorb the watcher's own notification latency. backoffs configures
// the retry delays after a failed write (internal/config's
// Queue.RetryBackoffs); a nil or empty slice falls back to
// defaultBackoff.
func New(vaultRoot string, writeDelay, expectedTTL time.Duration, backoffs []time.Duration, log logging.Logger) *Queue {
	if log == nil {
		log = logging.Noop
	}
	if len(backoffs) == 0 {
		backoffs = defaultBackoff
	}
	return &Queue{
		root:        vaultRoot,
		writeDelay:  writeDelay,
		expectedTTL: expectedTTL,
		backoffs:    backoffs,
		log:         log,
		entries:     map[string]*entry{},
	}
}

// QueueWrite replaces any pending content for path and (re)arms the
// debounce timer. Calling it repeatedly for the same path before the
// timer fires means only the last content ever reaches disk: "most
// recently queued content wins" from §5.
func (q *Queue) QueueWrite(path, content string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[path]
	if !ok {
		e = &entry{expectedHashes: map[string]time.Time{}, attemptsLeft: len(q.backoffs)}
		q.entries[path] = e
	}
	e.pendingContent = content
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(q.writeDelay, func() { q.fire(path) })
}

// FlushWrite forces immediate emission of path's pending content, if any.
func (q *Queue) FlushWrite(path string) {
	q.mu.Lock()
	e, ok := q.entries[path]
	if ok && e.timer != nil {
		e.timer.Stop()
	}
	q.mu.Unlock()
	if ok {
		q.fire(path)
	}
}

// FlushAll forces emission of every pending path.
func (q *Queue) FlushAll() {
	q.mu.Lock()
	paths := make([]string, 0, len(q.entries))
	for p := range q.entries {
		paths = append(paths, p)
	}
	q.mu.Unlock()
	for _, p := range paths {
		q.FlushWrite(p)
	}
}

// Destroy cancels every pending timer and drops all state.
func (q *Queue) Destroy() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	q.entries = map[string]*entry{}
}

func (q *Queue) fire(path string) {
	q.mu.Lock()
	e, ok := q.entries[path]
	if !ok {
		q.mu.Unlock()
		return
	}
	content := e.pendingContent
	e.pendingContent = ""
	q.mu.Unlock()
	if content == "" {
		return
	}

	q.writeWithRetry(path, content, len(q.backoffs))
}

func (q *Queue) writeWithRetry(path, content string, attempt int) {
	err := q.writeAtomic(path, content)
	if err == nil {
		hash := contentHash(content)
		q.mu.Lock()
		if e, ok := q.entries[path]; ok {
			e.expectedHashes[hash] = time.Now().Add(q.expectedTTL)
		}
		q.mu.Unlock()
		time.AfterFunc(q.expectedTTL, func() { q.evictExpired(path, hash) })
		return
	}

	attemptsMade := len(q.backoffs) - attempt
	if attemptsMade >= len(q.backoffs) {
		q.log.Errorf("write queue: giving up on %s after %d retries: %v", path, len(q.backoffs), err)
		q.mu.Lock()
		delete(q.entries, path)
		q.mu.Unlock()
		return
	}
	delay := q.backoffs[attemptsMade]
	time.AfterFunc(delay, func() { q.writeWithRetry(path, content, attempt-1) })
}

func (q *Queue) evictExpired(path, hash string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if e, ok := q.entries[path]; ok {
		delete(e.expectedHashes, hash)
		if len(e.expectedHashes) == 0 {
			delete(q.entries, path)
		}
	}
}

// writeAtomic writes content to a temp file in the same directory and
// renames it into place, so a concurrent reader never observes a
// partial write.
func (q *Queue) writeAtomic(relPath, content string) error {
	abs := filepath.Join(q.root, filepath.FromSlash(relPath))
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".flint-write-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, abs)
}

// IsExpected reports whether hash is currently in path's expected set,
// the test the watcher uses to classify an event as internal.
func (q *Queue) IsExpected(path, hash string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[path]
	if !ok {
		return false
	}
	expiry, ok := e.expectedHashes[hash]
	return ok && time.Now().Before(expiry)
}

// Pending reports the number of paths with unflushed content, for
// observability per §4.4.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, e := range q.entries {
		if e.pendingContent != "" {
			n++
		}
	}
	return n
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// HashFile hashes the on-disk content at path, used by the watcher to
// compare a just-noticed file against the expected set.
func HashFile(ctx context.Context, absPath string) (string, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return "", err
	}
	return contentHash(string(data)), nil
}
