package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/flint-note/flint/internal/ferr"
)

func (s *Store) getMetadata(ctx context.Context, noteID string) (map[string]MetaValue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, value_type FROM note_metadata WHERE note_id = ?`, noteID)
	if err != nil {
		return nil, ferr.Wrap(ferr.IO, "query note metadata", err)
	}
	defer rows.Close()

	out := map[string]MetaValue{}
	for rows.Next() {
		var key, value, vtype string
		if err := rows.Scan(&key, &value, &vtype); err != nil {
			return nil, ferr.Wrap(ferr.IO, "scan note metadata row", err)
		}
		mv := MetaValue{Type: vtype, Raw: value}
		if vtype == "array" {
			if value == "" {
				mv.Array = nil
			} else {
				mv.Array = strings.Split(value, "\x1f")
			}
		}
		out[key] = mv
	}
	return out, rows.Err()
}

// replaceMetadataTx deletes and reinserts all metadata rows for a note,
// the same delete-then-insert atomicity shape used for link rewrites.
func replaceMetadataTx(ctx context.Context, tx *sql.Tx, noteID string, meta map[string]MetaValue) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM note_metadata WHERE note_id = ?`, noteID); err != nil {
		return ferr.Wrap(ferr.IO, "clear note metadata", err)
	}
	for key, mv := range meta {
		raw := mv.Raw
		if mv.Type == "array" {
			raw = strings.Join(mv.Array, "\x1f")
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO note_metadata (note_id, key, value, value_type) VALUES (?, ?, ?, ?)`,
			noteID, key, raw, mv.Type); err != nil {
			return ferr.Wrap(ferr.IO, "insert note metadata", err)
		}
	}
	return nil
}
