package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flint-note/flint/internal/ferr"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(context.Background(), dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleNote(id string) *Note {
	return &Note{
		ID:          id,
		Type:        "general",
		Filename:    id + ".md",
		Path:        "general/" + id + ".md",
		Title:       "Sample " + id,
		Body:        "body text",
		ContentHash: "hash-v1",
	}
}

func TestCreateAndGetNote(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	n := sampleNote("n-aaaaaaaa")
	require.NoError(t, s.CreateNote(ctx, n))

	got, err := s.GetNote(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.Title, got.Title)
	assert.Equal(t, n.Path, got.Path)
	assert.NotEmpty(t, got.Created)
	assert.Equal(t, got.Created, got.Updated)
}

func TestCreateNote_DuplicateIDIsConflict(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	n := sampleNote("n-aaaaaaaa")
	require.NoError(t, s.CreateNote(ctx, n))

	dup := sampleNote("n-aaaaaaaa")
	dup.Path = "general/other.md"
	err := s.CreateNote(ctx, dup)
	require.Error(t, err)
	kind, ok := ferr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ferr.Conflict, kind)
}

func TestGetNote_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetNote(context.Background(), "n-00000000")
	kind, ok := ferr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ferr.NotFound, kind)
}

func TestUpdateNote_OptimisticLockRejectsStaleHash(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	n := sampleNote("n-aaaaaaaa")
	require.NoError(t, s.CreateNote(ctx, n))

	n.Body = "edited body"
	n.ContentHash = "hash-v2"
	require.NoError(t, s.UpdateNote(ctx, n, "hash-v1"))

	// Retrying with the now-stale expected hash must report a conflict,
	// never silently overwrite a concurrent edit.
	n.Body = "edited again"
	n.ContentHash = "hash-v3"
	err := s.UpdateNote(ctx, n, "hash-v1")
	require.Error(t, err)
	kind, ok := ferr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ferr.Conflict, kind)

	got, err := s.GetNote(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited body", got.Body)
}

func TestForceUpdateNote_IgnoresContentHash(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	n := sampleNote("n-aaaaaaaa")
	require.NoError(t, s.CreateNote(ctx, n))

	n.Body = "externally edited"
	n.ContentHash = "whatever"
	require.NoError(t, s.ForceUpdateNote(ctx, n))

	got, err := s.GetNote(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "externally edited", got.Body)
}

func TestDeleteNote_RemovesRow(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	n := sampleNote("n-aaaaaaaa")
	require.NoError(t, s.CreateNote(ctx, n))
	require.NoError(t, s.DeleteNote(ctx, n.ID))

	_, err := s.GetNote(ctx, n.ID)
	kind, _ := ferr.KindOf(err)
	assert.Equal(t, ferr.NotFound, kind)
}

func TestResolveByTitle_BreaksTiesByEarliestCreated(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first := sampleNote("n-aaaaaaaa")
	first.Title = "Shared Title"
	first.Created = "2026-01-01T00:00:00Z"
	first.Updated = first.Created
	require.NoError(t, s.CreateNote(ctx, first))

	second := sampleNote("n-bbbbbbbb")
	second.Title = "Shared Title"
	second.Path = "general/n-bbbbbbbb.md"
	second.Filename = "n-bbbbbbbb.md"
	second.Created = "2026-02-01T00:00:00Z"
	second.Updated = second.Created
	require.NoError(t, s.CreateNote(ctx, second))

	id, ok, err := s.ResolveByTitle("Shared Title")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.ID, id)
}

func TestNote_MetadataRoundTripsIncludingArrays(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	n := sampleNote("n-aaaaaaaa")
	n.Metadata = map[string]MetaValue{
		"priority": {Type: "number", Raw: "3"},
		"tags":     {Type: "array", Array: []string{"work", "urgent"}},
	}
	require.NoError(t, s.CreateNote(ctx, n))

	got, err := s.GetNote(ctx, n.ID)
	require.NoError(t, err)
	require.Contains(t, got.Metadata, "priority")
	assert.Equal(t, "3", got.Metadata["priority"].Raw)
	require.Contains(t, got.Metadata, "tags")
	assert.Equal(t, []string{"work", "urgent"}, got.Metadata["tags"].Array)

	// UpdateNote must fully replace metadata, not merge it.
	n.Metadata = map[string]MetaValue{"priority": {Type: "number", Raw: "5"}}
	n.ContentHash = "hash-v2"
	require.NoError(t, s.UpdateNote(ctx, n, "hash-v1"))

	got, err = s.GetNote(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "5", got.Metadata["priority"].Raw)
	assert.NotContains(t, got.Metadata, "tags")
}

func TestListNotePaths_ReflectsAllIndexedFiles(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.CreateNote(ctx, sampleNote("n-aaaaaaaa")))
	require.NoError(t, s.CreateNote(ctx, sampleNote("n-bbbbbbbb")))

	paths, err := s.ListNotePaths(ctx)
	require.NoError(t, err)
	assert.Len(t, paths, 2)
	assert.Contains(t, paths, "general/n-aaaaaaaa.md")
}
