package vault

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVaultRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".flint-note"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "general"), 0o755))
	return root
}

func TestOpen_RunsInitialSyncAndExposesSubManagers(t *testing.T) {
	ctx := context.Background()
	root := newTestVaultRoot(t)
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "general", "hello.md"),
		[]byte("---\ntitle: Hello\n---\nFirst note.\n"), 0o644))

	v, err := Open(ctx, root)
	require.NoError(t, err)
	defer v.Close()

	note, err := v.Store().GetNoteByPath(ctx, "general/hello.md")
	require.NoError(t, err)
	assert.Equal(t, "Hello", note.Title)

	assert.NotNil(t, v.Reviews())
	assert.NotNil(t, v.Hierarchy())
	assert.NotNil(t, v.Workflows())
	assert.NotNil(t, v.Suggestions())
	assert.NotNil(t, v.Config())
}

func TestOpen_SecondProcessIsRejectedByAdvisoryLock(t *testing.T) {
	ctx := context.Background()
	root := newTestVaultRoot(t)

	v, err := Open(ctx, root)
	require.NoError(t, err)
	defer v.Close()

	_, err = Open(ctx, root)
	assert.Error(t, err, "a second Open against the same vault must fail while the first is live")
}

func TestSync_PicksUpFilesAddedAfterOpen(t *testing.T) {
	ctx := context.Background()
	root := newTestVaultRoot(t)

	v, err := Open(ctx, root)
	require.NoError(t, err)
	defer v.Close()

	require.NoError(t, os.WriteFile(
		filepath.Join(root, "general", "later.md"),
		[]byte("---\ntitle: Later\n---\nAdded after open.\n"), 0o644))

	result, err := v.Sync(ctx)
	require.NoError(t, err)
	assert.Contains(t, result.Added, "general/later.md")
}

func TestClose_ReleasesLockForSubsequentOpen(t *testing.T) {
	ctx := context.Background()
	root := newTestVaultRoot(t)

	v, err := Open(ctx, root)
	require.NoError(t, err)
	require.NoError(t, v.Close())

	v2, err := Open(ctx, root)
	require.NoError(t, err)
	defer v2.Close()
}
