// Package workflow implements the due-date and recurring-schedule logic
// for checklist-style workflows, layered on internal/store's workflows
// and workflow_completions tables.
package workflow

import (
	"context"
	"time"

	"github.com/flint-note/flint/internal/ferr"
	"github.com/flint-note/flint/internal/store"
)

const (
	maxMaterialBytes      = 50 * 1024
	maxTotalMaterialBytes = 500 * 1024
)

// Manager layers scheduling rules on top of a *store.Store.
type Manager struct {
	store *store.Store
}

func New(s *store.Store) *Manager {
	return &Manager{store: s}
}

// Create inserts a new workflow in the "active" status.
func (m *Manager) Create(ctx context.Context, w *store.Workflow) error {
	if w.Status == "" {
		w.Status = "active"
	}
	for _, mat := range w.Materials {
		if len(mat.Content) > maxMaterialBytes {
			return materialSizeError(len(mat.Content), maxMaterialBytes)
		}
	}
	return m.store.CreateWorkflow(ctx, w)
}

// AddMaterial appends a material to a workflow after validating its
// size against the per-material and per-workflow caps from §4.11.
func (m *Manager) AddMaterial(ctx context.Context, workflowID string, material store.WorkflowMaterial) error {
	if len(material.Content) > maxMaterialBytes {
		return materialSizeError(len(material.Content), maxMaterialBytes)
	}

	wf, err := m.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return err
	}
	var current int
	for _, existing := range wf.Materials {
		current += len(existing.Content)
	}
	newBytes := len(material.Content)
	if current+newBytes > maxTotalMaterialBytes {
		return totalMaterialSizeError(current, newBytes, maxTotalMaterialBytes)
	}

	wf.Materials = append(wf.Materials, material)
	return m.store.SaveWorkflowMaterials(ctx, workflowID, wf.Materials)
}

func toKB(bytes int) float64 {
	return float64(bytes) / 1024
}

// materialSizeError reports a single material exceeding the per-material
// cap, per spec's "Material size X KB exceeds maximum allowed size of Y
// KB" shape.
func materialSizeError(currentBytes, limitBytes int) error {
	return ferr.Newf(ferr.Validation,
		"Material size %.2f KB exceeds maximum allowed size of %.2f KB",
		toKB(currentBytes), toKB(limitBytes))
}

// totalMaterialSizeError reports the aggregate cap being exceeded,
// breaking out the existing total, the incoming material, and the
// limit, per spec's "Total materials size: Current X KB; New material Y
// KB; Limit Z KB" shape.
func totalMaterialSizeError(currentBytes, newBytes, limitBytes int) error {
	return ferr.Newf(ferr.Validation,
		"Total materials size: Current %.2f KB; New material %.2f KB; Limit %.2f KB",
		toKB(currentBytes), toKB(newBytes), toKB(limitBytes))
}

// IsDue reports whether w should surface as due at the given instant,
// applying the §4.11 recurrence rules:
//
//	one-time:  due date has passed and the workflow has never completed
//	daily:     24h have elapsed since lastCompleted
//	weekly:    7 days have elapsed since lastCompleted AND today matches dayOfWeek
//	monthly:   28 days have elapsed since lastCompleted AND today matches dayOfMonth
func IsDue(w *store.Workflow, now time.Time) bool {
	if w.Status != "active" {
		return false
	}
	if w.Recurring == nil {
		if w.DueDate == "" {
			return false
		}
		due, err := time.Parse("2006-01-02", w.DueDate)
		if err != nil {
			return false
		}
		return !now.Before(due) && w.LastCompleted == ""
	}

	last, err := time.Parse(time.RFC3339, w.LastCompleted)
	if err != nil {
		return true // never completed: a recurring workflow is due immediately
	}

	switch w.Recurring.Frequency {
	case "daily":
		return now.Sub(last) >= 24*time.Hour
	case "weekly":
		if now.Sub(last) < 7*24*time.Hour {
			return false
		}
		return w.Recurring.DayOfWeek != nil && int(now.Weekday()) == *w.Recurring.DayOfWeek
	case "monthly":
		if now.Sub(last) < 28*24*time.Hour {
			return false
		}
		return w.Recurring.DayOfMonth != nil && now.Day() == *w.Recurring.DayOfMonth
	default:
		return false
	}
}

// Complete records a completion and, for recurring workflows, leaves
// the status "active" so it reappears on its next occurrence; one-time
// workflows move to "completed".
func (m *Manager) Complete(ctx context.Context, workflowID, completedAt, note string) error {
	wf, err := m.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return err
	}
	newStatus := "completed"
	if wf.Recurring != nil {
		newStatus = "active"
	}
	return m.store.CompleteWorkflow(ctx, workflowID, completedAt, note, newStatus)
}

// Due returns every active workflow due at now.
func (m *Manager) Due(ctx context.Context, now time.Time) ([]*store.Workflow, error) {
	all, err := m.store.ListWorkflows(ctx)
	if err != nil {
		return nil, err
	}
	var due []*store.Workflow
	for _, w := range all {
		if IsDue(w, now) {
			due = append(due, w)
		}
	}
	return due, nil
}
