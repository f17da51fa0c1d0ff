// Package vault ties every subsystem together into the single
// per-process context object described in Design Notes §9: config, the
// index store, the write queue, the watcher, the sync reconciler and
// the review/hierarchy/workflow/suggestion managers all hang off one
// *Vault, so nothing reaches for global mutable state.
package vault

import (
	"context"
	"os"
	"path/filepath"

	"github.com/flint-note/flint/internal/config"
	"github.com/flint-note/flint/internal/hierarchy"
	"github.com/flint-note/flint/internal/logging"
	"github.com/flint-note/flint/internal/review"
	"github.com/flint-note/flint/internal/store"
	"github.com/flint-note/flint/internal/suggestion"
	"github.com/flint-note/flint/internal/sync"
	"github.com/flint-note/flint/internal/watcher"
	"github.com/flint-note/flint/internal/workflow"
	"github.com/flint-note/flint/internal/writequeue"
)

// Vault is the single entry point into a note engine instance rooted
// at a directory on disk.
type Vault struct {
	root   string
	config *config.Settings
	store  *store.Store
	queue  *writequeue.Queue
	watch  *watcher.Watcher
	log    logging.Logger

	reconciler *sync.Reconciler
	reviews    *review.Scheduler
	hier       *hierarchy.Manager
	workflows  *workflow.Manager
	suggest    *suggestion.Manager
}

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	log logging.Logger
}

// WithLogger overrides the default stderr logger.
func WithLogger(l logging.Logger) Option {
	return func(o *openOptions) { o.log = l }
}

// Open loads the vault's config, opens its index store, runs any
// pending migrations, starts the write queue and filesystem watcher,
// and performs one initial sync pass so the index reflects the tree
// before returning.
func Open(ctx context.Context, root string, opts ...Option) (*Vault, error) {
	o := &openOptions{log: logging.NewStderr(false)}
	for _, opt := range opts {
		opt(o)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	dbPath := filepath.Join(root, ".flint-note", "search.db")
	st, err := store.Open(ctx, dbPath, o.log)
	if err != nil {
		return nil, err
	}

	if _, err := st.Migrate(ctx, root); err != nil {
		_ = st.Close()
		return nil, err
	}

	queue := writequeue.New(root, cfg.Queue.WriteDelay, cfg.Queue.ExpectedTTL, cfg.Queue.RetryBackoffs, o.log)

	v := &Vault{
		root: root, config: cfg, store: st, queue: queue, log: o.log,
		reviews:   review.New(st),
		hier:      hierarchy.New(st),
		workflows: workflow.New(st),
		suggest:   suggestion.New(st),
	}
	v.reconciler = sync.New(root, st, queue, o.log)

	if err := v.hier.Load(ctx); err != nil {
		_ = v.Close()
		return nil, err
	}

	if _, err := v.reconciler.Run(ctx); err != nil {
		_ = v.Close()
		return nil, err
	}

	w, err := watcher.New(root, queue, o.log)
	if err != nil {
		_ = v.Close()
		return nil, err
	}
	v.watch = w

	typeDirs, err := noteTypeDirs(root)
	if err != nil {
		_ = v.Close()
		return nil, err
	}
	if err := v.watch.Start(ctx, typeDirs); err != nil {
		_ = v.Close()
		return nil, err
	}
	go v.consumeWatcherEvents(ctx)

	return v, nil
}

// consumeWatcherEvents re-runs the reconciler whenever the watcher
// surfaces an external change, so the index never drifts from a file
// an editor touched directly.
func (v *Vault) consumeWatcherEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-v.watch.Events():
			if !ok {
				return
			}
			if _, err := v.reconciler.Run(ctx); err != nil {
				v.log.Errorf("vault: reconcile after external event failed: %v", err)
			}
		}
	}
}

func noteTypeDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	dirs := []string{root}
	for _, e := range entries {
		if e.IsDir() && e.Name()[0] != '.' {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	return dirs, nil
}

// Close stops the watcher, flushes any pending writes, and releases
// the store's advisory lock.
func (v *Vault) Close() error {
	if v.watch != nil {
		_ = v.watch.Close()
	}
	if v.queue != nil {
		v.queue.FlushAll()
		v.queue.Destroy()
	}
	if v.store != nil {
		return v.store.Close()
	}
	return nil
}

// Sync forces an immediate reconciliation pass, used by the `flint
// sync` CLI command and tests.
func (v *Vault) Sync(ctx context.Context) (*sync.Result, error) {
	return v.reconciler.Run(ctx)
}

// Store exposes the underlying index store for operations that don't
// yet have a dedicated sub-manager (direct note CRUD, link queries,
// note-type descriptions).
func (v *Vault) Store() *store.Store { return v.store }

// Reviews returns the spaced-repetition scheduler.
func (v *Vault) Reviews() *review.Scheduler { return v.reviews }

// Hierarchy returns the in-memory parent/child graph manager.
func (v *Vault) Hierarchy() *hierarchy.Manager { return v.hier }

// Workflows returns the due-date/recurring workflow manager.
func (v *Vault) Workflows() *workflow.Manager { return v.workflows }

// Suggestions returns the suggestion persistence layer.
func (v *Vault) Suggestions() *suggestion.Manager { return v.suggest }

// Config returns the loaded vault configuration.
func (v *Vault) Config() *config.Settings { return v.config }
