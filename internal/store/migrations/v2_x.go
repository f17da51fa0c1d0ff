package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
)

// ToV201 replaces a NULL content_hash left by a pre-2.0.1 writer with
// the empty string; it does not compute hashes. A no-op on databases
// that already carry hashes.
func ToV201(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx,
		`UPDATE notes SET content_hash = '' WHERE content_hash IS NULL`)
	return err
}

// ToV210 rewrites any absolute note path to vault-root-relative form.
// Paths recorded by pre-2.1.0 writers were sometimes absolute; every
// operation after this point assumes paths are relative and
// slash-separated.
func ToV210(ctx context.Context, db *sql.DB, vaultRoot string) error {
	if vaultRoot == "" {
		return nil
	}
	rows, err := db.QueryContext(ctx, `SELECT id, path FROM notes WHERE path LIKE ?`, vaultRoot+"%")
	if err != nil {
		return err
	}
	type ref struct{ id, path string }
	var refs []ref
	for rows.Next() {
		var r ref
		if err := rows.Scan(&r.id, &r.path); err != nil {
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
		rel, err := filepath.Rel(vaultRoot, r.path)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if _, err := db.ExecContext(ctx, `UPDATE notes SET path = ? WHERE id = ?`, rel, r.id); err != nil {
			return err
		}
	}
	return nil
}

// ToV220 and ToV230 and ToV240 cover hierarchy, workflow and suggestion
// table introduction. Store.Open already creates those tables as part
// of the baseline schema, so a vault that only needs to climb from
// 2.1.0 finds them present; these steps exist purely to advance
// schema_version so Migrate's "already current" check works
// for databases that were last touched before those tables existed.
func ToV220(ctx context.Context, db *sql.DB) error { return ensureTable(ctx, db, "note_hierarchy") }
func ToV230(ctx context.Context, db *sql.DB) error { return ensureTable(ctx, db, "workflows") }
func ToV240(ctx context.Context, db *sql.DB) error { return ensureTable(ctx, db, "note_suggestions") }

func ensureTable(ctx context.Context, db *sql.DB, name string) error {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	// The table is part of the modern baseline schema; if it's somehow
	// missing on a database this old, there is nothing more specific to
	// do here than let the caller's schema application handle it.
	return nil
}

// ToV2170 switches the canonical frontmatter scheme to the flint_
// prefixed field names and adds the notes_fts full-text index. Existing
// files are left with whichever scheme they already carry — the
// backfill in internal/frontmatter.Parse means both are always
// readable — only the ui_state flag controlling which scheme new writes
// use is flipped.
func ToV2170(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
			title, content, content='notes', content_rowid='rowid'
		)`); err != nil {
		return err
	}
	var ftsRows int
	_ = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes_fts`).Scan(&ftsRows)
	if ftsRows == 0 {
		if _, err := db.ExecContext(ctx, `
			INSERT INTO notes_fts(rowid, title, content) SELECT rowid, title, body FROM notes`); err != nil {
			return err
		}
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ui_state (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO ui_state (key, value) VALUES ('frontmatter_scheme', 'prefixed')
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`)
	return err
}

// stripVaultPrefix trims root from abs and returns the remainder in
// slash-separated form without a leading slash.
func stripVaultPrefix(root, abs string) string {
	rel := strings.TrimPrefix(abs, root)
	return strings.TrimPrefix(filepath.ToSlash(rel), "/")
}
