package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/flint-note/flint/internal/ferr"
)

// RecordIDMapping writes oldIdentifier -> newID. Write-once per old
// identifier, per §4.2; a second write for the same key is a no-op if
// it maps to the same newID, and a Conflict otherwise.
func (s *Store) RecordIDMapping(ctx context.Context, oldIdentifier, newID string) error {
	existing, ok, err := s.LookupIDMapping(ctx, oldIdentifier)
	if err != nil {
		return err
	}
	if ok {
		if existing == newID {
			return nil
		}
		return ferr.Newf(ferr.Conflict, "identifier %q already mapped to %q", oldIdentifier, existing)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO note_id_migration (old_identifier, new_id) VALUES (?, ?)`, oldIdentifier, newID)
	if err != nil {
		return ferr.Wrap(ferr.IO, "record id mapping", err)
	}
	return nil
}

// LookupIDMapping reads the mapped new ID for an old identifier.
func (s *Store) LookupIDMapping(ctx context.Context, oldIdentifier string) (string, bool, error) {
	var newID string
	err := s.db.QueryRowContext(ctx,
		`SELECT new_id FROM note_id_migration WHERE old_identifier = ?`, oldIdentifier).Scan(&newID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, ferr.Wrap(ferr.IO, "lookup id mapping", err)
	}
	return newID, true, nil
}

// AllIDMappings returns the full old->new map, used by migration
// partial-recovery (§4.8 step 3).
func (s *Store) AllIDMappings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT old_identifier, new_id FROM note_id_migration`)
	if err != nil {
		return nil, ferr.Wrap(ferr.IO, "list id mappings", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var o, n string
		if err := rows.Scan(&o, &n); err != nil {
			return nil, ferr.Wrap(ferr.IO, "scan id mapping row", err)
		}
		out[o] = n
	}
	return out, rows.Err()
}
