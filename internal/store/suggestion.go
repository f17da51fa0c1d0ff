package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/flint-note/flint/internal/ferr"
)

// ReplaceSuggestions atomically replaces the suggestion list for a note
// while preserving the existing dismissed-id set, so a regenerated
// suggestion carrying the same id stays dismissed.
func (s *Store) ReplaceSuggestions(ctx context.Context, noteID string, suggestions []Suggestion, modelVersion string) error {
	existing, err := s.GetSuggestions(ctx, noteID)
	if err != nil && !isNotFound(err) {
		return err
	}
	dismissed := []string{}
	if existing != nil {
		dismissed = existing.DismissedIDs
	}

	sJSON, _ := json.Marshal(suggestions)
	dJSON, _ := json.Marshal(dismissed)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO note_suggestions (note_id, suggestions, dismissed_ids, generated_at, model_version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(note_id) DO UPDATE SET
			suggestions = excluded.suggestions,
			generated_at = excluded.generated_at,
			model_version = excluded.model_version`,
		noteID, string(sJSON), string(dJSON), nowISO(), modelVersion)
	if err != nil {
		return ferr.Wrap(ferr.IO, "replace suggestions", err)
	}
	return nil
}

// DismissSuggestion adds suggestionID to the dismissed set. Idempotent.
func (s *Store) DismissSuggestion(ctx context.Context, noteID, suggestionID string) error {
	rec, err := s.GetSuggestions(ctx, noteID)
	if err != nil {
		return err
	}
	for _, id := range rec.DismissedIDs {
		if id == suggestionID {
			return nil
		}
	}
	rec.DismissedIDs = append(rec.DismissedIDs, suggestionID)
	dJSON, _ := json.Marshal(rec.DismissedIDs)
	_, err = s.db.ExecContext(ctx,
		`UPDATE note_suggestions SET dismissed_ids = ? WHERE note_id = ?`, string(dJSON), noteID)
	if err != nil {
		return ferr.Wrap(ferr.IO, "dismiss suggestion", err)
	}
	return nil
}

// GetSuggestions fetches the suggestion record for a note.
func (s *Store) GetSuggestions(ctx context.Context, noteID string) (*SuggestionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT note_id, suggestions, dismissed_ids, generated_at, model_version
		FROM note_suggestions WHERE note_id = ?`, noteID)

	var rec SuggestionRecord
	var sJSON, dJSON string
	err := row.Scan(&rec.NoteID, &sJSON, &dJSON, &rec.GeneratedAt, &rec.ModelVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ferr.New(ferr.NotFound, "no suggestions for note")
	}
	if err != nil {
		return nil, ferr.Wrap(ferr.IO, "scan suggestions", err)
	}
	_ = json.Unmarshal([]byte(sJSON), &rec.Suggestions)
	_ = json.Unmarshal([]byte(dJSON), &rec.DismissedIDs)
	return &rec, nil
}

func isNotFound(err error) bool {
	kind, ok := ferr.KindOf(err)
	return ok && kind == ferr.NotFound
}

// SuggestionsDisabledFor reports the _suggestions_disabled metadata flag.
func (s *Store) SuggestionsDisabledFor(ctx context.Context, noteID string) (bool, error) {
	meta, err := s.getMetadata(ctx, noteID)
	if err != nil {
		return false, err
	}
	mv, ok := meta["_suggestions_disabled"]
	if !ok {
		return false, nil
	}
	return mv.Raw == "true", nil
}
