package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flint-note/flint/internal/logging"
	"github.com/flint-note/flint/internal/store/migrations"
)

func openLegacyStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.SeedLegacyV110(db))
	return &Store{db: db, log: logging.Noop}
}

func TestMigrate_WalksFullChainFromLegacyV110(t *testing.T) {
	ctx := context.Background()
	s := openLegacyStore(t)
	vaultRoot := t.TempDir()

	applied, err := s.Migrate(ctx, vaultRoot)
	require.NoError(t, err)
	assert.Equal(t, []string{"2.0.0", "2.0.1", "2.1.0", "2.2.0", "2.3.0", "2.4.0", "2.17.0"}, applied)

	current, err := s.currentSchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2.17.0", current)
}

func TestMigrate_IsANoOpOnAFreshlyOpenedStore(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(ctx, dbPath, nil)
	require.NoError(t, err)
	defer s.Close()

	applied, err := s.Migrate(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, applied, "a brand-new store starts at 1.0.0 and walks the no-op tail of the chain")

	again, err := s.Migrate(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, again, "migrating an already-current database applies nothing")
}

func TestMigrate_ResumesFromLastAppliedVersionAfterPartialRun(t *testing.T) {
	ctx := context.Background()
	s := openLegacyStore(t)
	vaultRoot := t.TempDir()

	// Simulate a prior partial run that stopped after 2.1.0 by recording
	// schema_version rows directly, the same thing Migrate itself would
	// have left behind had a later step failed.
	for _, v := range []string{"2.0.0", "2.0.1", "2.1.0"} {
		_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, v)
		require.NoError(t, err)
	}

	applied, err := s.Migrate(ctx, vaultRoot)
	require.NoError(t, err)
	assert.Equal(t, []string{"2.2.0", "2.3.0", "2.4.0", "2.17.0"}, applied)
}
