package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/flint-note/flint/internal/ferr"
)

// EnableReview creates a review item for a note, or sets enabled=1 on an
// existing one while keeping its schedule and history.
// Idempotent: calling it twice yields the same row with the same
// identity, per the round-trip law in §8.
func (s *Store) EnableReview(ctx context.Context, noteID string, nextSession, interval int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_items (note_id, enabled, next_session_number, current_interval, status)
		VALUES (?, 1, ?, ?, 'active')
		ON CONFLICT(note_id) DO UPDATE SET enabled = 1`,
		noteID, nextSession, interval)
	if err != nil {
		return ferr.Wrap(ferr.IO, "enable review", err)
	}
	return nil
}

// DisableReview marks a review item disabled without deleting its history.
func (s *Store) DisableReview(ctx context.Context, noteID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE review_items SET enabled = 0 WHERE note_id = ?`, noteID)
	if err != nil {
		return ferr.Wrap(ferr.IO, "disable review", err)
	}
	return nil
}

// GetReviewItem fetches a review item, decoding its JSON history.
// Malformed history JSON degrades to an empty list per §7.
func (s *Store) GetReviewItem(ctx context.Context, noteID string) (*ReviewItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT note_id, enabled, COALESCE(last_reviewed, ''), next_session_number,
			current_interval, status, review_count, review_history
		FROM review_items WHERE note_id = ?`, noteID)

	var ri ReviewItem
	var enabled int
	var history string
	err := row.Scan(&ri.NoteID, &enabled, &ri.LastReviewed, &ri.NextSessionNumber,
		&ri.CurrentInterval, &ri.Status, &ri.ReviewCount, &history)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ferr.New(ferr.NotFound, "review item not found")
	}
	if err != nil {
		return nil, ferr.Wrap(ferr.IO, "scan review item", err)
	}
	ri.Enabled = enabled != 0
	ri.ReviewHistory = decodeHistory(history)
	return &ri, nil
}

// decodeHistory unmarshals the review history JSON, coercing legacy
// {"passed": true/false} entries to rating 2/1 per §4.9.
func decodeHistory(raw string) []ReviewHistoryEntry {
	var generic []map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return nil
	}
	out := make([]ReviewHistoryEntry, 0, len(generic))
	for _, g := range generic {
		var e ReviewHistoryEntry
		if v, ok := g["date"].(string); ok {
			e.Date = v
		}
		if v, ok := g["sessionNumber"].(float64); ok {
			e.SessionNumber = int(v)
		}
		if v, ok := g["rating"].(float64); ok {
			e.Rating = int(v)
		} else if passed, ok := g["passed"].(bool); ok {
			if passed {
				e.Rating = 2
			} else {
				e.Rating = 1
			}
		}
		if v, ok := g["prompt"].(string); ok {
			e.Prompt = v
		}
		if v, ok := g["response"].(string); ok {
			e.Response = v
		}
		if v, ok := g["feedback"].(string); ok {
			e.Feedback = v
		}
		out = append(out, e)
	}
	return out
}

// GetNotesForReview returns note IDs due for review: enabled=1 AND
// status='active' AND next_session_number <= currentSessionNumber.
func (s *Store) GetNotesForReview(ctx context.Context, currentSessionNumber int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT note_id FROM review_items
		WHERE enabled = 1 AND status = 'active' AND next_session_number <= ?
		ORDER BY next_session_number ASC`, currentSessionNumber)
	if err != nil {
		return nil, ferr.Wrap(ferr.IO, "query notes for review", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, ferr.Wrap(ferr.IO, "scan review note id", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// SaveReviewResult persists the outcome of completeReview: appended
// history, bumped count, new interval/next-session/status, last_reviewed.
func (s *Store) SaveReviewResult(ctx context.Context, ri *ReviewItem) error {
	history, err := json.Marshal(ri.ReviewHistory)
	if err != nil {
		return ferr.Wrap(ferr.IO, "marshal review history", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE review_items SET last_reviewed = ?, next_session_number = ?,
			current_interval = ?, status = ?, review_count = ?, review_history = ?
		WHERE note_id = ?`,
		ri.LastReviewed, ri.NextSessionNumber, ri.CurrentInterval, ri.Status,
		ri.ReviewCount, string(history), ri.NoteID)
	if err != nil {
		return ferr.Wrap(ferr.IO, "save review result", err)
	}
	return nil
}

// CurrentSessionNumber reads the shared session counter.
func (s *Store) CurrentSessionNumber(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT current_session_number FROM review_state WHERE id = 1`).Scan(&n)
	if err != nil {
		return 0, ferr.Wrap(ferr.IO, "read session number", err)
	}
	return n, nil
}

// IncrementSessionNumber advances the shared session counter and
// returns the new value.
func (s *Store) IncrementSessionNumber(ctx context.Context) (int, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE review_state SET current_session_number = current_session_number + 1 WHERE id = 1`)
	if err != nil {
		return 0, ferr.Wrap(ferr.IO, "increment session number", err)
	}
	return s.CurrentSessionNumber(ctx)
}

// SchedulerConfig mirrors §6's scheduler config rows.
type SchedulerConfig struct {
	SessionSize         int
	SessionsPerWeek     int
	MaxIntervalSessions int
	MinIntervalDays     int
}

// GetSchedulerConfig reads the singleton review_config row.
func (s *Store) GetSchedulerConfig(ctx context.Context) (*SchedulerConfig, error) {
	var c SchedulerConfig
	err := s.db.QueryRowContext(ctx, `
		SELECT session_size, sessions_per_week, max_interval_sessions, min_interval_days
		FROM review_config WHERE id = 1`).Scan(
		&c.SessionSize, &c.SessionsPerWeek, &c.MaxIntervalSessions, &c.MinIntervalDays)
	if err != nil {
		return nil, ferr.Wrap(ferr.IO, "read scheduler config", err)
	}
	return &c, nil
}

// SetSchedulerConfig writes the singleton review_config row.
func (s *Store) SetSchedulerConfig(ctx context.Context, c *SchedulerConfig) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE review_config SET session_size = ?, sessions_per_week = ?,
			max_interval_sessions = ?, min_interval_days = ? WHERE id = 1`,
		c.SessionSize, c.SessionsPerWeek, c.MaxIntervalSessions, c.MinIntervalDays)
	if err != nil {
		return ferr.Wrap(ferr.IO, "write scheduler config", err)
	}
	return nil
}
