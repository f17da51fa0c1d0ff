// Package watcher observes the vault tree and classifies each
// filesystem notification as internal (produced by this process's own
// write queue) or external (an editor or other tool), per §4.5.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/flint-note/flint/internal/logging"
	"github.com/flint-note/flint/internal/writequeue"
)

// EventKind is the classified, debounced event the watcher emits.
// Internal events (matched against the write queue's expected-hash
// set) are suppressed entirely, never reaching this channel — only
// external-* and delete notifications are surfaced, per §4.5.
type EventKind string

const (
	Delete         EventKind = "delete"
	ExternalAdd    EventKind = "external-add"
	ExternalChange EventKind = "external-change"
	ExternalDelete EventKind = "external-delete"
)

// Event is one classified, debounced filesystem notification.
type Event struct {
	Kind EventKind
	Path string // vault-relative, forward-slash separated
}

// expectedHasher reports whether a hash is currently expected for path,
// satisfied by *writequeue.Queue.
type expectedHasher interface {
	IsExpected(path, hash string) bool
}

// Watcher wraps an fsnotify.Watcher with vault-relative paths,
// per-path debouncing and internal/external classification.
type Watcher struct {
	root    string
	queue   expectedHasher
	log     logging.Logger
	fsw     *fsnotify.Watcher
	events  chan Event
	done    chan struct{}
	startAt time.Time

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]fsnotify.Op
}

const (
	perPathDebounce  = 100 * time.Millisecond
	startupIgnoreWin = 500 * time.Millisecond
)

// New creates a watcher rooted at vaultRoot. queue supplies the
// expected-hash set used to tell internal writes from external edits.
func New(vaultRoot string, queue expectedHasher, log logging.Logger) (*Watcher, error) {
	if log == nil {
		log = logging.Noop
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:    vaultRoot,
		queue:   queue,
		log:     log,
		fsw:     fsw,
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
		timers:  map[string]*time.Timer{},
		pending: map[string]fsnotify.Op{},
	}
	return w, nil
}

// Events returns the channel classified events are published on.
func (w *Watcher) Events() <-chan Event { return w.events }

// Start begins watching vaultRoot recursively and runs until ctx is
// canceled or Close is called. The first startupIgnoreWin of raw
// notifications are dropped to avoid an initialization storm from
// fsnotify's own directory registration.
func (w *Watcher) Start(ctx context.Context, dirs []string) error {
	for _, d := range dirs {
		if err := w.fsw.Add(d); err != nil {
			return err
		}
	}
	w.startAt = time.Now()
	go w.loop(ctx)
	return nil
}

// AddDir registers a new directory (e.g. a newly created note type
// directory) with the underlying watcher.
func (w *Watcher) AddDir(dir string) error {
	return w.fsw.Add(dir)
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if time.Since(w.startAt) < startupIgnoreWin {
				continue
			}
			w.debounce(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Errorf("watcher: %v", err)
		}
	}
}

// debounce coalesces rapid-fire notifications for the same absolute
// path into a single classify-and-emit call ~100ms after the last one.
func (w *Watcher) debounce(ev fsnotify.Event) {
	if filepath.Ext(ev.Name) != ".md" {
		return
	}

	w.mu.Lock()
	w.pending[ev.Name] |= ev.Op
	if t, ok := w.timers[ev.Name]; ok {
		t.Stop()
	}
	w.timers[ev.Name] = time.AfterFunc(perPathDebounce, func() { w.flush(ev.Name) })
	w.mu.Unlock()
}

func (w *Watcher) flush(absPath string) {
	w.mu.Lock()
	op := w.pending[absPath]
	delete(w.pending, absPath)
	delete(w.timers, absPath)
	w.mu.Unlock()

	rel, err := filepath.Rel(w.root, absPath)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	switch {
	case op&fsnotify.Remove != 0 || op&fsnotify.Rename != 0:
		w.emit(Event{Kind: Delete, Path: rel})
		return
	case op&fsnotify.Create != 0:
		w.classifyAndEmit(absPath, rel, ExternalAdd)
	case op&fsnotify.Write != 0:
		w.classifyAndEmit(absPath, rel, ExternalChange)
	}
}

// classifyAndEmit surfaces externalKind unless the file's current
// content hash is in the write queue's expected set for rel, in which
// case the notification is this process's own write and is dropped.
func (w *Watcher) classifyAndEmit(absPath, rel string, externalKind EventKind) {
	hash, err := writequeue.HashFile(context.Background(), absPath)
	if err != nil {
		// File vanished between the notification and our read; treat as a
		// delete rather than dropping the event silently.
		w.emit(Event{Kind: Delete, Path: rel})
		return
	}
	if w.queue != nil && w.queue.IsExpected(rel, hash) {
		return
	}
	w.emit(Event{Kind: externalKind, Path: rel})
}

func (w *Watcher) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
		w.log.Warnf("watcher: event channel full, dropping %s %s", ev.Kind, ev.Path)
	}
}

// Close stops the watcher and releases its file descriptors.
func (w *Watcher) Close() error {
	close(w.done)
	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}
