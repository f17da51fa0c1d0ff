package store

// schema is the modern baseline. Open executes it on every open; each
// statement is IF NOT EXISTS, so only missing tables, indexes and
// triggers are created. Older databases are converted by the steps in
// internal/store/migrations, which do not alter this baseline.
const schema = `
CREATE TABLE IF NOT EXISTS notes (
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
);
CREATE INDEX IF NOT EXISTS idx_notes_path ON notes(path);

CREATE TABLE IF NOT EXISTS note_metadata (
	note_id    TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	value_type TEXT NOT NULL DEFAULT 'string',
	PRIMARY KEY (note_id, key)
);

CREATE TABLE IF NOT EXISTS note_links (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	source_note_id  TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	target_note_id  TEXT REFERENCES notes(id) ON DELETE SET NULL,
	target_title    TEXT NOT NULL DEFAULT '',
	link_text       TEXT,
	line_number     INTEGER NOT NULL DEFAULT 0,
	created         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_note_links_source ON note_links(source_note_id);
CREATE INDEX IF NOT EXISTS idx_note_links_target ON note_links(target_note_id);

CREATE TABLE IF NOT EXISTS external_links (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	note_id     TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	url         TEXT NOT NULL,
	title       TEXT,
	line_number INTEGER NOT NULL DEFAULT 0,
	link_type   TEXT NOT NULL DEFAULT 'url'
);
CREATE INDEX IF NOT EXISTS idx_external_links_note ON external_links(note_id);

CREATE TABLE IF NOT EXISTS note_type_descriptions (
	name                TEXT PRIMARY KEY,
	purpose             TEXT NOT NULL DEFAULT '',
	agent_instructions  TEXT NOT NULL DEFAULT '[]',
	metadata_schema     TEXT NOT NULL DEFAULT '{}',
	icon                TEXT NOT NULL DEFAULT '',
	editor_chips        TEXT NOT NULL DEFAULT '[]',
	suggestions_config  TEXT NOT NULL DEFAULT '{}',
	default_review_mode TEXT NOT NULL DEFAULT '',
	content_hash        TEXT NOT NULL DEFAULT '',
	created             TEXT NOT NULL,
	updated             TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS note_id_migration (
	old_identifier TEXT PRIMARY KEY,
	new_id         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS review_items (
	note_id              TEXT PRIMARY KEY REFERENCES notes(id) ON DELETE CASCADE,
	enabled              INTEGER NOT NULL DEFAULT 1,
	last_reviewed        TEXT,
	next_session_number  INTEGER NOT NULL DEFAULT 0,
	current_interval     INTEGER NOT NULL DEFAULT 1,
	status               TEXT NOT NULL DEFAULT 'active',
	review_count         INTEGER NOT NULL DEFAULT 0,
	review_history       TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_review_items_due
	ON review_items(next_session_number) WHERE enabled = 1;

CREATE TABLE IF NOT EXISTS review_state (
	id                    INTEGER PRIMARY KEY CHECK (id = 1),
	current_session_number INTEGER NOT NULL DEFAULT 0
);
INSERT OR IGNORE INTO review_state (id, current_session_number) VALUES (1, 0);

CREATE TABLE IF NOT EXISTS review_config (
	id                     INTEGER PRIMARY KEY CHECK (id = 1),
	session_size           INTEGER NOT NULL DEFAULT 5,
	sessions_per_week      INTEGER NOT NULL DEFAULT 7,
	max_interval_sessions  INTEGER NOT NULL DEFAULT 15,
	min_interval_days      INTEGER NOT NULL DEFAULT 1
);
INSERT OR IGNORE INTO review_config (id) VALUES (1);

CREATE TABLE IF NOT EXISTS note_hierarchy (
	parent_id TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	child_id  TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	position  INTEGER NOT NULL,
	PRIMARY KEY (parent_id, child_id)
);
CREATE INDEX IF NOT EXISTS idx_hierarchy_parent_pos ON note_hierarchy(parent_id, position);
CREATE INDEX IF NOT EXISTS idx_hierarchy_child ON note_hierarchy(child_id);

CREATE TABLE IF NOT EXISTS workflows (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'active',
	due_date        TEXT,
	recurring_spec  TEXT,
	last_completed  TEXT,
	materials       TEXT NOT NULL DEFAULT '[]',
	created         TEXT NOT NULL,
	updated         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS workflow_completions (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	workflow_id   TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
	completed_at  TEXT NOT NULL,
	note          TEXT
);
CREATE INDEX IF NOT EXISTS idx_workflow_completions_wf ON workflow_completions(workflow_id);

CREATE TABLE IF NOT EXISTS note_suggestions (
	note_id        TEXT PRIMARY KEY REFERENCES notes(id) ON DELETE CASCADE,
	suggestions    TEXT NOT NULL DEFAULT '[]',
	dismissed_ids  TEXT NOT NULL DEFAULT '[]',
	generated_at   TEXT NOT NULL,
	model_version  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS ui_state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
	version     TEXT PRIMARY KEY,
	applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
	title, content, content='notes', content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS notes_fts_insert AFTER INSERT ON notes BEGIN
	INSERT INTO notes_fts(rowid, title, content) VALUES (new.rowid, new.title, new.body);
END;
CREATE TRIGGER IF NOT EXISTS notes_fts_delete AFTER DELETE ON notes BEGIN
	INSERT INTO notes_fts(notes_fts, rowid, title, content) VALUES ('delete', old.rowid, old.title, old.body);
END;
CREATE TRIGGER IF NOT EXISTS notes_fts_update AFTER UPDATE ON notes BEGIN
	INSERT INTO notes_fts(notes_fts, rowid, title, content) VALUES ('delete', old.rowid, old.title, old.body);
	INSERT INTO notes_fts(rowid, title, content) VALUES (new.rowid, new.title, new.body);
END;
`
