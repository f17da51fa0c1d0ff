package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flint-note/flint/internal/frontmatter"
	"github.com/flint-note/flint/internal/idgen"
)

// ToV200 stamps every note with an immutable ID, records the
// old-identifier -> new-ID mapping, remaps link endpoints, and rewrites
// each note's on-disk frontmatter to carry the new id. Per §4.8 step 3,
// if notes is empty but notes_backup and note_id_migration already
// exist (a prior run died after the backup/rename but before finishing),
// it replays from the backup using the existing mapping instead of
// minting new IDs. A notes table that already has the modern shape (no
// old_identifier column), such as a freshly opened store's, is left as
// it is.
func ToV200(ctx context.Context, db *sql.DB, vaultRoot string) error {
	recovering, err := needsPartialRecovery(db)
	if err != nil {
		return fmt.Errorf("check partial migration state: %w", err)
	}

	if !recovering {
		var legacyCols int
		if err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM pragma_table_info('notes') WHERE name = 'old_identifier'`).Scan(&legacyCols); err != nil {
			return fmt.Errorf("inspect notes table: %w", err)
		}
		if legacyCols == 0 {
			return nil
		}
		if err := backupAndRecreate(ctx, db); err != nil {
			return err
		}
		if err := mintMappings(ctx, db); err != nil {
			return err
		}
	}

	if err := copyNotesFromBackup(ctx, db); err != nil {
		return err
	}
	if err := remapLinks(ctx, db); err != nil {
		return err
	}
	if err := rewriteFrontmatterOnDisk(ctx, db, vaultRoot); err != nil {
		return err
	}
	return nil
}

func needsPartialRecovery(db *sql.DB) (bool, error) {
	var notesCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM notes`).Scan(&notesCount); err != nil {
		// notes table may not exist yet in the legacy shape under its new
		// name; that's the normal (non-recovering) path.
		return false, nil
	}
	if notesCount != 0 {
		return false, nil
	}
	var backupExists, mappingExists int
	_ = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='notes_backup'`).Scan(&backupExists)
	_ = db.QueryRow(`SELECT COUNT(*) FROM note_id_migration`).Scan(&mappingExists)
	return backupExists > 0 && mappingExists > 0, nil
}

func backupAndRecreate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `ALTER TABLE notes RENAME TO notes_backup`); err != nil {
		return fmt.Errorf("backup notes table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE notes (
			id            TEXT PRIMARY KEY,
			type          TEXT NOT NULL,
			filename      TEXT NOT NULL,
			path          TEXT NOT NULL UNIQUE,
			title         TEXT NOT NULL DEFAULT '',
			body          TEXT NOT NULL DEFAULT '',
			created       TEXT NOT NULL,
			updated       TEXT NOT NULL,
			file_mtime    INTEGER NOT NULL DEFAULT 0,
			size_bytes    INTEGER NOT NULL DEFAULT 0,
			content_hash  TEXT NOT NULL DEFAULT '',
			archived      INTEGER NOT NULL DEFAULT 0,
			UNIQUE(type, filename)
		)`); err != nil {
		return fmt.Errorf("create new notes table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS note_id_migration (
			old_identifier TEXT PRIMARY KEY,
			new_id         TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("create note_id_migration table: %w", err)
	}
	return nil
}

func mintMappings(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `SELECT old_identifier FROM notes_backup`)
	if err != nil {
		return fmt.Errorf("list legacy identifiers: %w", err)
	}
	var identifiers []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		identifiers = append(identifiers, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, oldID := range identifiers {
		newID, err := idgen.GenerateUnique(func(candidate string) (bool, error) {
			var n int
			err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM note_id_migration WHERE new_id = ?`, candidate).Scan(&n)
			return n > 0, err
		})
		if err != nil {
			return fmt.Errorf("generate id for %s: %w", oldID, err)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO note_id_migration (old_identifier, new_id) VALUES (?, ?)`, oldID, newID); err != nil {
			return fmt.Errorf("record id mapping for %s: %w", oldID, err)
		}
	}
	return nil
}

func copyNotesFromBackup(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		INSERT OR IGNORE INTO notes (id, type, filename, path, title, body, created, updated,
			file_mtime, size_bytes, content_hash, archived)
		SELECT m.new_id, b.type, b.filename, b.path, b.title, b.body, b.created, b.updated,
			b.file_mtime, b.size_bytes, b.content_hash, 0
		FROM notes_backup b
		JOIN note_id_migration m ON m.old_identifier = b.old_identifier`)
	if err != nil {
		return fmt.Errorf("copy notes from backup: %w", err)
	}
	return nil
}

func remapLinks(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `
		SELECT id, source_identifier, COALESCE(target_identifier, ''), target_title,
			COALESCE(link_text, ''), line_number, created
		FROM note_links`)
	if err != nil {
		// note_links may already be in its post-migration shape if this is
		// a re-run; that's fine, nothing to remap.
		return nil
	}
	type oldLink struct {
		id                           int64
		source, target, title, text string
		line                         int
		created                      string
	}
	var links []oldLink
	for rows.Next() {
		var l oldLink
		if err := rows.Scan(&l.id, &l.source, &l.target, &l.title, &l.text, &l.line, &l.created); err != nil {
			rows.Close()
			return err
		}
		links = append(links, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(links) == 0 {
		return nil
	}

	if _, err := db.ExecContext(ctx, `ALTER TABLE note_links RENAME TO note_links_legacy`); err != nil {
		return fmt.Errorf("rename legacy note_links: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE note_links (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			source_note_id  TEXT NOT NULL,
			target_note_id  TEXT,
			target_title    TEXT NOT NULL DEFAULT '',
			link_text       TEXT,
			line_number     INTEGER NOT NULL DEFAULT 0,
			created         TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("create new note_links: %w", err)
	}

	mapID := func(oldIdentifier string) (string, bool) {
		if oldIdentifier == "" {
			return "", false
		}
		var newID string
		err := db.QueryRowContext(ctx,
			`SELECT new_id FROM note_id_migration WHERE old_identifier = ?`, oldIdentifier).Scan(&newID)
		return newID, err == nil
	}

	for _, l := range links {
		source, ok := mapID(l.source)
		if !ok {
			continue
		}
		var target interface{}
		if newTarget, ok := mapID(l.target); ok {
			target = newTarget
		}
		if _, err := db.ExecContext(ctx, `
			INSERT INTO note_links (source_note_id, target_note_id, target_title, link_text, line_number, created)
			VALUES (?, ?, ?, ?, ?, ?)`,
			source, target, l.title, l.text, l.line, l.created); err != nil {
			return fmt.Errorf("insert remapped link: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, `DROP TABLE note_links_legacy`); err != nil {
		return fmt.Errorf("drop legacy note_links: %w", err)
	}
	return nil
}

// rewriteFrontmatterOnDisk stamps `id` (and type, if missing) into every
// migrated note's file. Frontmatter edits preserve all existing keys,
// only inserting id when missing, per §4.8 step 5.
func rewriteFrontmatterOnDisk(ctx context.Context, db *sql.DB, vaultRoot string) error {
	if vaultRoot == "" {
		return nil
	}
	rows, err := db.QueryContext(ctx, `SELECT id, path, type FROM notes`)
	if err != nil {
		return fmt.Errorf("list migrated notes: %w", err)
	}
	type noteRef struct{ id, path, typ string }
	var refs []noteRef
	for rows.Next() {
		var r noteRef
		if err := rows.Scan(&r.id, &r.path, &r.typ); err != nil {
			rows.Close()
			return err
		}
		refs = append(refs, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range refs {
		abs := filepath.Join(vaultRoot, filepath.FromSlash(r.path))
		content, err := os.ReadFile(abs)
		if err != nil {
			continue // file missing on disk; DB row stands, nothing to stamp
		}
		doc := frontmatter.Parse(string(content), nil)
		if _, hasID := doc.GetString("id"); hasID {
			continue
		}
		doc.Fields["id"] = r.id
		if _, hasType := doc.Fields["type"]; !hasType {
			doc.Fields["type"] = r.typ
		}
		rewritten, err := frontmatter.Format(doc.Fields, doc.Body, frontmatter.EmitOptions{})
		if err != nil {
			continue
		}
		if strings.TrimSpace(rewritten) == "" {
			continue
		}
		_ = os.WriteFile(abs, []byte(rewritten), 0o644)
	}
	return nil
}
