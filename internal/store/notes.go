package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/flint-note/flint/internal/ferr"
)

// CreateNote inserts a new note row plus its metadata atomically.
func (s *Store) CreateNote(ctx context.Context, n *Note) error {
	if n.Created == "" {
		n.Created = nowISO()
	}
	if n.Updated == "" {
		n.Updated = n.Created
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO notes (id, type, filename, path, title, body, created, updated,
				file_mtime, size_bytes, content_hash, archived)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			n.ID, n.Type, n.Filename, n.Path, n.Title, n.Body, n.Created, n.Updated,
			n.FileMtimeMs, n.SizeBytes, n.ContentHash, boolToInt(n.Archived))
		if err != nil {
			if isUniqueConstraint(err) {
				return ferr.Wrap(ferr.Conflict, "note (type, filename) or id already exists", err)
			}
			return ferr.Wrap(ferr.IO, "insert note", err)
		}
		return replaceMetadataTx(ctx, tx, n.ID, n.Metadata)
	})
}

// GetNote fetches a note by ID, including its metadata.
func (s *Store) GetNote(ctx context.Context, id string) (*Note, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, filename, path, title, body, created, updated,
			file_mtime, size_bytes, content_hash, archived
		FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if err != nil {
		return nil, err
	}
	n.Metadata, err = s.getMetadata(ctx, id)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// GetNoteByPath fetches a note by its vault-relative path.
func (s *Store) GetNoteByPath(ctx context.Context, path string) (*Note, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, filename, path, title, body, created, updated,
			file_mtime, size_bytes, content_hash, archived
		FROM notes WHERE path = ?`, path)
	n, err := scanNote(row)
	if err != nil {
		return nil, err
	}
	n.Metadata, err = s.getMetadata(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// GetNoteByTypeFilename fetches a note by (type, filename stem).
func (s *Store) GetNoteByTypeFilename(ctx context.Context, typeName, filenameStem string) (*Note, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, filename, path, title, body, created, updated,
			file_mtime, size_bytes, content_hash, archived
		FROM notes WHERE type = ? AND (filename = ? OR filename = ?)`,
		typeName, filenameStem, filenameStem+".md")
	n, err := scanNote(row)
	if err != nil {
		return nil, err
	}
	n.Metadata, err = s.getMetadata(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// NoteExists reports whether id refers to a live note. Implements
// wikilink.Resolver and idgen.Exists.
func (s *Store) NoteExists(id string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM notes WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, ferr.Wrap(ferr.IO, "check note existence", err)
	}
	return count > 0, nil
}

// ResolveByTitle implements wikilink.Resolver: exact title match,
// ties broken by earliest creation time.
func (s *Store) ResolveByTitle(title string) (string, bool, error) {
	var id string
	err := s.db.QueryRow(`
		SELECT id FROM notes WHERE title = ? ORDER BY created ASC LIMIT 1`, title).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, ferr.Wrap(ferr.IO, "resolve by title", err)
	}
	return id, true, nil
}

// ResolveByTypeFilename implements wikilink.Resolver.
func (s *Store) ResolveByTypeFilename(typeName, filenameStem string) (string, bool, error) {
	var id string
	err := s.db.QueryRow(`
		SELECT id FROM notes WHERE type = ? AND (filename = ? OR filename = ?)
		ORDER BY created ASC LIMIT 1`, typeName, filenameStem, filenameStem+".md").Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, ferr.Wrap(ferr.IO, "resolve by type/filename", err)
	}
	return id, true, nil
}

// UpdateNote performs an optimistic-locked update keyed on
// expectedContentHash. If the row's current content_hash does not match,
// zero rows are affected and a Conflict error is returned per §7.
func (s *Store) UpdateNote(ctx context.Context, n *Note, expectedContentHash string) error {
	n.Updated = nowISO()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE notes SET title = ?, body = ?, updated = ?, file_mtime = ?,
				size_bytes = ?, content_hash = ?, archived = ?
			WHERE id = ? AND content_hash = ?`,
			n.Title, n.Body, n.Updated, n.FileMtimeMs, n.SizeBytes, n.ContentHash,
			boolToInt(n.Archived), n.ID, expectedContentHash)
		if err != nil {
			return ferr.Wrap(ferr.IO, "update note", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return ferr.Wrap(ferr.IO, "check update result", err)
		}
		if affected == 0 {
			return ferr.New(ferr.Conflict, "note content_hash mismatch, concurrent modification")
		}
		return replaceMetadataTx(ctx, tx, n.ID, n.Metadata)
	})
}

// ForceUpdateNote updates a note row unconditionally, used by the sync
// reconciler when reconciling an externally-edited file (there is no
// caller-held content_hash to assert against; the filesystem is taken
// as ground truth for that path).
func (s *Store) ForceUpdateNote(ctx context.Context, n *Note) error {
	n.Updated = nowISO()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE notes SET title = ?, body = ?, updated = ?, file_mtime = ?,
				size_bytes = ?, content_hash = ?, archived = ?
			WHERE id = ?`,
			n.Title, n.Body, n.Updated, n.FileMtimeMs, n.SizeBytes, n.ContentHash,
			boolToInt(n.Archived), n.ID)
		if err != nil {
			return ferr.Wrap(ferr.IO, "force update note", err)
		}
		return replaceMetadataTx(ctx, tx, n.ID, n.Metadata)
	})
}

// TouchMtime updates only the stored mtime, used by the sync
// reconciler's skip-optimization path (content unchanged, mtime bumped).
func (s *Store) TouchMtime(ctx context.Context, id string, mtimeMs int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE notes SET file_mtime = ? WHERE id = ?`, mtimeMs, id)
	if err != nil {
		return ferr.Wrap(ferr.IO, "touch note mtime", err)
	}
	return nil
}

// DeleteNote removes a note and, via ON DELETE CASCADE / SET NULL,
// its owned rows (metadata, links as source, review item, suggestions,
// hierarchy edges) and nulls out incoming link targets.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return ferr.Wrap(ferr.IO, "delete note", err)
	}
	return nil
}

// ListNotePaths returns every tracked path mapped to its (id, mtime,
// content_hash), for the sync reconciler's tree-walk comparison.
type IndexedFile struct {
	ID          string
	FileMtimeMs int64
	ContentHash string
}

func (s *Store) ListNotePaths(ctx context.Context) (map[string]IndexedFile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, id, file_mtime, content_hash FROM notes`)
	if err != nil {
		return nil, ferr.Wrap(ferr.IO, "list note paths", err)
	}
	defer rows.Close()

	out := map[string]IndexedFile{}
	for rows.Next() {
		var path string
		var f IndexedFile
		if err := rows.Scan(&path, &f.ID, &f.FileMtimeMs, &f.ContentHash); err != nil {
			return nil, ferr.Wrap(ferr.IO, "scan note path row", err)
		}
		out[path] = f
	}
	return out, rows.Err()
}

func scanNote(row *sql.Row) (*Note, error) {
	var n Note
	var archived int
	err := row.Scan(&n.ID, &n.Type, &n.Filename, &n.Path, &n.Title, &n.Body,
		&n.Created, &n.Updated, &n.FileMtimeMs, &n.SizeBytes, &n.ContentHash, &archived)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ferr.New(ferr.NotFound, "note not found")
	}
	if err != nil {
		return nil, ferr.Wrap(ferr.IO, "scan note", err)
	}
	n.Archived = archived != 0
	return &n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraint(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint") ||
		strings.Contains(err.Error(), "constraint failed"))
}
