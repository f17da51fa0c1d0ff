package store

import (
	"context"
	"database/sql"

	"github.com/flint-note/flint/internal/ferr"
)

// AddHierarchyEdge inserts a (parent, child, position) row. Cycle and
// self-edge checks happen in internal/hierarchy, which owns the
// in-memory graph; the store layer only persists what it's told.
func (s *Store) AddHierarchyEdge(ctx context.Context, parentID, childID string, position int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO note_hierarchy (parent_id, child_id, position) VALUES (?, ?, ?)
		ON CONFLICT(parent_id, child_id) DO UPDATE SET position = excluded.position`,
		parentID, childID, position)
	if err != nil {
		return ferr.Wrap(ferr.IO, "add hierarchy edge", err)
	}
	return nil
}

// RemoveHierarchyEdge deletes a (parent, child) edge. Idempotent.
func (s *Store) RemoveHierarchyEdge(ctx context.Context, parentID, childID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM note_hierarchy WHERE parent_id = ? AND child_id = ?`, parentID, childID)
	if err != nil {
		return ferr.Wrap(ferr.IO, "remove hierarchy edge", err)
	}
	return nil
}

// AllHierarchyEdges returns every edge, used to build the in-memory
// adjacency graph at startup and after each edit per Design Notes §9.
func (s *Store) AllHierarchyEdges(ctx context.Context) ([]HierarchyEdge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT parent_id, child_id, position FROM note_hierarchy ORDER BY parent_id, position`)
	if err != nil {
		return nil, ferr.Wrap(ferr.IO, "list hierarchy edges", err)
	}
	defer rows.Close()
	var out []HierarchyEdge
	for rows.Next() {
		var e HierarchyEdge
		if err := rows.Scan(&e.ParentID, &e.ChildID, &e.Position); err != nil {
			return nil, ferr.Wrap(ferr.IO, "scan hierarchy edge", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ChildrenOf returns the ordered (by position) children of parentID.
func (s *Store) ChildrenOf(ctx context.Context, parentID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT child_id FROM note_hierarchy WHERE parent_id = ? ORDER BY position`, parentID)
	if err != nil {
		return nil, ferr.Wrap(ferr.IO, "list children", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, ferr.Wrap(ferr.IO, "scan child id", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ReorderChildren writes dense positions 0..n-1 for parentID atomically.
// Callers must supply the complete current child set; internal/hierarchy
// validates that before calling this.
func (s *Store) ReorderChildren(ctx context.Context, parentID string, orderedChildren []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for i, childID := range orderedChildren {
			if _, err := tx.ExecContext(ctx, `
				UPDATE note_hierarchy SET position = ? WHERE parent_id = ? AND child_id = ?`,
				i, parentID, childID); err != nil {
				return ferr.Wrap(ferr.IO, "reorder child", err)
			}
		}
		return nil
	})
}

// CreatedTimes returns the created timestamp for each requested note ID,
// used by getHierarchyPath's "first parent by creation time" rule.
func (s *Store) CreatedTimes(ctx context.Context, ids []string) (map[string]string, error) {
	out := map[string]string{}
	for _, id := range ids {
		var created string
		err := s.db.QueryRowContext(ctx, `SELECT created FROM notes WHERE id = ?`, id).Scan(&created)
		if err != nil {
			continue
		}
		out[id] = created
	}
	return out, nil
}
