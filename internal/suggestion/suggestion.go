// Package suggestion provides the thin persistence-facing API for
// AI-generated note suggestions. Generation itself is an external
// collaborator (§1 non-goals); this package only stores, dismisses and
// filters the suggestion sets the generator produces, per §3 and the
// suggestions_disabled metadata flag.
package suggestion

import (
	"context"

	"github.com/flint-note/flint/internal/store"
)

type Manager struct {
	store *store.Store
}

func New(s *store.Store) *Manager {
	return &Manager{store: s}
}

// Replace stores a freshly generated suggestion set, preserving
// previously dismissed IDs so a regenerated suggestion carrying the
// same ID stays dismissed.
func (m *Manager) Replace(ctx context.Context, noteID string, suggestions []store.Suggestion, modelVersion string) error {
	disabled, err := m.store.SuggestionsDisabledFor(ctx, noteID)
	if err != nil {
		return err
	}
	if disabled {
		suggestions = nil
	}
	return m.store.ReplaceSuggestions(ctx, noteID, suggestions, modelVersion)
}

// Dismiss marks a suggestion as dismissed; idempotent.
func (m *Manager) Dismiss(ctx context.Context, noteID, suggestionID string) error {
	return m.store.DismissSuggestion(ctx, noteID, suggestionID)
}

// Active returns the suggestion record for a note with dismissed
// entries filtered out, the shape a UI actually wants to render.
func (m *Manager) Active(ctx context.Context, noteID string) ([]store.Suggestion, error) {
	rec, err := m.store.GetSuggestions(ctx, noteID)
	if err != nil {
		return nil, err
	}
	dismissed := make(map[string]bool, len(rec.DismissedIDs))
	for _, id := range rec.DismissedIDs {
		dismissed[id] = true
	}
	out := make([]store.Suggestion, 0, len(rec.Suggestions))
	for _, s := range rec.Suggestions {
		if !dismissed[s.ID] {
			out = append(out, s)
		}
	}
	return out, nil
}
