// Package hierarchy maintains the in-memory parent/child DAG backing
// note nesting, mirroring it to internal/store's note_hierarchy table.
// The graph lives in memory so cycle detection and path derivation
// never need a recursive SQL query; it is rebuilt from the store at
// startup and kept in sync on every edit, per Design Notes §9.
package hierarchy

import (
	"context"
	"sort"
	"sync"

	"github.com/flint-note/flint/internal/ferr"
	"github.com/flint-note/flint/internal/store"
)

// Manager owns the adjacency graph and persists edits through store.
type Manager struct {
	store *store.Store

	mu       sync.RWMutex
	children map[string][]string // parent -> ordered children
	parents  map[string][]string // child -> parents (multiple parents allowed)
}

func New(s *store.Store) *Manager {
	return &Manager{
		store:    s,
		children: map[string][]string{},
		parents:  map[string][]string{},
	}
}

// Load rebuilds the in-memory graph from the store. Call once at vault
// open and after any out-of-band schema change (e.g. a migration).
func (m *Manager) Load(ctx context.Context) error {
	edges, err := m.store.AllHierarchyEdges(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.children = map[string][]string{}
	m.parents = map[string][]string{}
	for _, e := range edges {
		m.children[e.ParentID] = append(m.children[e.ParentID], e.ChildID)
		m.parents[e.ChildID] = append(m.parents[e.ChildID], e.ParentID)
	}
	return nil
}

// AddSubnote links childID under parentID at the end of parentID's
// children, rejecting self-edges and edges that would create a cycle.
func (m *Manager) AddSubnote(ctx context.Context, parentID, childID string) error {
	if parentID == childID {
		return ferr.New(ferr.Validation, "a note cannot be its own parent")
	}

	m.mu.Lock()
	if m.wouldCycle(parentID, childID) {
		m.mu.Unlock()
		return ferr.New(ferr.Validation, "linking would create a hierarchy cycle")
	}
	position := len(m.children[parentID])
	m.mu.Unlock()

	if err := m.store.AddHierarchyEdge(ctx, parentID, childID, position); err != nil {
		return err
	}

	m.mu.Lock()
	m.children[parentID] = append(m.children[parentID], childID)
	m.parents[childID] = append(m.parents[childID], parentID)
	m.mu.Unlock()
	return nil
}

// wouldCycle reports whether adding parentID -> childID would let
// childID reach parentID through its existing descendants. Callers must
// hold m.mu.
func (m *Manager) wouldCycle(parentID, childID string) bool {
	if parentID == childID {
		return true
	}
	visited := map[string]bool{}
	var dfs func(node string) bool
	dfs = func(node string) bool {
		if node == parentID {
			return true
		}
		if visited[node] {
			return false
		}
		visited[node] = true
		for _, c := range m.children[node] {
			if dfs(c) {
				return true
			}
		}
		return false
	}
	return dfs(childID)
}

// RemoveSubnote unlinks childID from parentID and closes the position
// gap among parentID's remaining children.
func (m *Manager) RemoveSubnote(ctx context.Context, parentID, childID string) error {
	if err := m.store.RemoveHierarchyEdge(ctx, parentID, childID); err != nil {
		return err
	}

	m.mu.Lock()
	m.children[parentID] = removeOne(m.children[parentID], childID)
	m.parents[childID] = removeOne(m.parents[childID], parentID)
	remaining := append([]string(nil), m.children[parentID]...)
	m.mu.Unlock()

	return m.store.ReorderChildren(ctx, parentID, remaining)
}

func removeOne(list []string, target string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}

// ReorderChildren writes a new explicit order for parentID's children.
// The caller must supply exactly the current child set; extra or
// missing IDs are a validation error so a stale client can't silently
// drop a note from the hierarchy.
func (m *Manager) ReorderChildren(ctx context.Context, parentID string, newOrder []string) error {
	m.mu.RLock()
	current := append([]string(nil), m.children[parentID]...)
	m.mu.RUnlock()

	if !sameSet(current, newOrder) {
		return ferr.New(ferr.Validation, "reorder must supply exactly the current child set")
	}

	if err := m.store.ReorderChildren(ctx, parentID, newOrder); err != nil {
		return err
	}
	m.mu.Lock()
	m.children[parentID] = append([]string(nil), newOrder...)
	m.mu.Unlock()
	return nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

// Children returns the ordered children of parentID.
func (m *Manager) Children(parentID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.children[parentID]...)
}

// Path returns the chain of ancestors from the root down to noteID,
// excluding noteID itself. When a note has more than one parent, the
// one with the earliest created timestamp wins at each step, per
// Design Notes §9's "first parent by creation time" rule.
func (m *Manager) Path(ctx context.Context, noteID string) ([]string, error) {
	var chain []string
	current := noteID
	visited := map[string]bool{}
	for {
		m.mu.RLock()
		parents := append([]string(nil), m.parents[current]...)
		m.mu.RUnlock()
		if len(parents) == 0 {
			break
		}
		if len(parents) > 1 {
			created, err := m.store.CreatedTimes(ctx, parents)
			if err != nil {
				return nil, err
			}
			sort.Slice(parents, func(i, j int) bool {
				return created[parents[i]] < created[parents[j]]
			})
		}
		next := parents[0]
		if visited[next] {
			break // defensive: a cycle should never exist, but never loop forever
		}
		visited[next] = true
		chain = append([]string{next}, chain...)
		current = next
	}
	return chain, nil
}
