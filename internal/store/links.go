package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/flint-note/flint/internal/ferr"
)

// StoreLinks replaces all outgoing internal links for sourceNoteID
// atomically (delete-then-insert within one transaction), per §4.3.
func (s *Store) StoreLinks(ctx context.Context, sourceNoteID string, links []Link) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM note_links WHERE source_note_id = ?`, sourceNoteID); err != nil {
			return ferr.Wrap(ferr.IO, "clear outgoing links", err)
		}
		for _, l := range links {
			var target interface{}
			if l.TargetNoteID != "" {
				target = l.TargetNoteID
			}
			created := l.Created
			if created == "" {
				created = nowISO()
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO note_links (source_note_id, target_note_id, target_title,
					link_text, line_number, created)
				VALUES (?, ?, ?, ?, ?, ?)`,
				sourceNoteID, target, l.TargetTitle, l.LinkText, l.LineNumber, created); err != nil {
				return ferr.Wrap(ferr.IO, "insert link", err)
			}
		}
		return nil
	})
}

// StoreExternalLinks replaces all outgoing external links for a note.
func (s *Store) StoreExternalLinks(ctx context.Context, noteID string, links []ExternalLink) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM external_links WHERE note_id = ?`, noteID); err != nil {
			return ferr.Wrap(ferr.IO, "clear external links", err)
		}
		for _, l := range links {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO external_links (note_id, url, title, line_number, link_type)
				VALUES (?, ?, ?, ?, ?)`,
				noteID, l.URL, l.Title, l.LineNumber, l.LinkType); err != nil {
				return ferr.Wrap(ferr.IO, "insert external link", err)
			}
		}
		return nil
	})
}

// GetBacklinks reads every link row whose target is id.
func (s *Store) GetBacklinks(ctx context.Context, id string) ([]Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_note_id, COALESCE(target_note_id, ''), target_title,
			COALESCE(link_text, ''), line_number, created
		FROM note_links WHERE target_note_id = ?`, id)
	if err != nil {
		return nil, ferr.Wrap(ferr.IO, "query backlinks", err)
	}
	defer rows.Close()
	return scanLinks(rows)
}

// GetOutgoingLinks reads every outgoing link row for sourceNoteID.
func (s *Store) GetOutgoingLinks(ctx context.Context, sourceNoteID string) ([]Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_note_id, COALESCE(target_note_id, ''), target_title,
			COALESCE(link_text, ''), line_number, created
		FROM note_links WHERE source_note_id = ?`, sourceNoteID)
	if err != nil {
		return nil, ferr.Wrap(ferr.IO, "query outgoing links", err)
	}
	defer rows.Close()
	return scanLinks(rows)
}

func scanLinks(rows *sql.Rows) ([]Link, error) {
	var out []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.ID, &l.SourceNoteID, &l.TargetNoteID, &l.TargetTitle,
			&l.LinkText, &l.LineNumber, &l.Created); err != nil {
			return nil, ferr.Wrap(ferr.IO, "scan link row", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpdateBrokenLinks sets target_note_id on rows where it is currently
// NULL and target_title equals newTitle, or equals the "type/filename"
// form of the new note's own location (wikilink.KindTypeFilename links
// store that raw string as target_title too). Returns the number of
// rows updated, per §4.3.
func (s *Store) UpdateBrokenLinks(ctx context.Context, newID, newTitle, newType, newFilename string) (int, error) {
	typeFilename := newType + "/" + strings.TrimSuffix(newFilename, ".md")
	res, err := s.db.ExecContext(ctx, `
		UPDATE note_links SET target_note_id = ?
		WHERE target_note_id IS NULL AND (target_title = ? OR target_title = ?)`,
		newID, newTitle, typeFilename)
	if err != nil {
		return 0, ferr.Wrap(ferr.IO, "update broken links", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, ferr.Wrap(ferr.IO, "count updated broken links", err)
	}
	return int(n), nil
}
