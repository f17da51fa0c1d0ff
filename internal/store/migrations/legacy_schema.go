// Package migrations holds the ordered, idempotent schema migrations
// applied by internal/store's runner. Each file implements one version
// step, the same one-file-per-migration layout as the teacher's
// internal/storage/sqlite/migrations package.
package migrations

import "database/sql"

// legacySchema is the v1.0.0 baseline shape: notes are keyed by their
// "old identifier" (type/filename), before the identifier service
// existed. Only used to seed test fixtures and to recognize a database
// that still needs the 1.1.0 -> 2.0.0 migration.
const legacySchema = `
CREATE TABLE IF NOT EXISTS notes (
	old_identifier TEXT PRIMARY KEY,
	type           TEXT NOT NULL,
	filename       TEXT NOT NULL,
	path           TEXT NOT NULL,
	title          TEXT NOT NULL DEFAULT '',
	body           TEXT NOT NULL DEFAULT '',
	created        TEXT NOT NULL,
	updated        TEXT NOT NULL,
	file_mtime     INTEGER NOT NULL DEFAULT 0,
	size_bytes     INTEGER NOT NULL DEFAULT 0,
	content_hash   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS note_links (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	source_identifier TEXT NOT NULL,
	target_identifier TEXT,
	target_title      TEXT NOT NULL DEFAULT '',
	link_text         TEXT,
	line_number       INTEGER NOT NULL DEFAULT 0,
	created           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
	version    TEXT PRIMARY KEY,
	applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SeedLegacyV110 creates a v1.1.0-shaped database for tests that need
// to exercise the 1.1.0 -> 2.0.0 migration from scratch (scenario 4/5
// in §8). Production opens never call this — Store.Open always creates
// the modern schema directly.
func SeedLegacyV110(db *sql.DB) error {
	if _, err := db.Exec(legacySchema); err != nil {
		return err
	}
	_, err := db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES ('1.1.0')`)
	return err
}

