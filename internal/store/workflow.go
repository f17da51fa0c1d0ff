package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/flint-note/flint/internal/ferr"
)

// CreateWorkflow inserts a new workflow row.
func (s *Store) CreateWorkflow(ctx context.Context, w *Workflow) error {
	if w.Created == "" {
		w.Created = nowISO()
	}
	w.Updated = w.Created
	materials, _ := json.Marshal(w.Materials)
	var recurring []byte
	if w.Recurring != nil {
		recurring, _ = json.Marshal(w.Recurring)
	}
	var dueDate, recurringVal interface{}
	if w.DueDate != "" {
		dueDate = w.DueDate
	}
	if recurring != nil {
		recurringVal = string(recurring)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workflows (id, name, status, due_date, recurring_spec, last_completed,
			materials, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Name, w.Status, dueDate, recurringVal, nullIfEmpty(w.LastCompleted),
		string(materials), w.Created, w.Updated)
	if err != nil {
		return ferr.Wrap(ferr.IO, "insert workflow", err)
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// GetWorkflow fetches a workflow by ID.
func (s *Store) GetWorkflow(ctx context.Context, id string) (*Workflow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, status, COALESCE(due_date, ''), COALESCE(recurring_spec, ''),
			COALESCE(last_completed, ''), materials, created, updated
		FROM workflows WHERE id = ?`, id)

	var w Workflow
	var recurring, materials string
	err := row.Scan(&w.ID, &w.Name, &w.Status, &w.DueDate, &recurring, &w.LastCompleted,
		&materials, &w.Created, &w.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ferr.New(ferr.NotFound, "workflow not found")
	}
	if err != nil {
		return nil, ferr.Wrap(ferr.IO, "scan workflow", err)
	}
	if recurring != "" {
		var rs RecurringSpec
		if err := json.Unmarshal([]byte(recurring), &rs); err == nil {
			w.Recurring = &rs
		}
	}
	_ = json.Unmarshal([]byte(materials), &w.Materials)
	return &w, nil
}

// ListWorkflows returns every workflow.
func (s *Store) ListWorkflows(ctx context.Context) ([]*Workflow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM workflows ORDER BY created`)
	if err != nil {
		return nil, ferr.Wrap(ferr.IO, "list workflows", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, ferr.Wrap(ferr.IO, "scan workflow id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]*Workflow, 0, len(ids))
	for _, id := range ids {
		w, err := s.GetWorkflow(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// SaveWorkflowMaterials rewrites a workflow's materials list.
func (s *Store) SaveWorkflowMaterials(ctx context.Context, id string, materials []WorkflowMaterial) error {
	data, err := json.Marshal(materials)
	if err != nil {
		return ferr.Wrap(ferr.IO, "marshal workflow materials", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE workflows SET materials = ?, updated = ? WHERE id = ?`, string(data), nowISO(), id)
	if err != nil {
		return ferr.Wrap(ferr.IO, "save workflow materials", err)
	}
	return nil
}

// CompleteWorkflow writes a completion row and updates status/last_completed.
func (s *Store) CompleteWorkflow(ctx context.Context, id, completedAt, note, newStatus string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO workflow_completions (workflow_id, completed_at, note) VALUES (?, ?, ?)`,
			id, completedAt, note); err != nil {
			return ferr.Wrap(ferr.IO, "insert workflow completion", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE workflows SET last_completed = ?, status = ?, updated = ? WHERE id = ?`,
			completedAt, newStatus, nowISO(), id); err != nil {
			return ferr.Wrap(ferr.IO, "update workflow after completion", err)
		}
		return nil
	})
}
