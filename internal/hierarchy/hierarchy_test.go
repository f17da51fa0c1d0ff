package hierarchy

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flint-note/flint/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	s, err := store.Open(context.Background(), dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedNote(t *testing.T, s *store.Store, id, created string) {
	t.Helper()
	require.NoError(t, s.CreateNote(context.Background(), &store.Note{
		ID: id, Type: "general", Filename: id + ".md", Path: "general/" + id + ".md",
		Title: id, ContentHash: "h1", Created: created, Updated: created,
	}))
}

func TestAddSubnote_RejectsSelfEdge(t *testing.T) {
	s := openTestStore(t)
	seedNote(t, s, "n-aaaaaaaa", "2026-01-01T00:00:00Z")
	m := New(s)

	err := m.AddSubnote(context.Background(), "n-aaaaaaaa", "n-aaaaaaaa")
	assert.Error(t, err)
}

func TestAddSubnote_RejectsCycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seedNote(t, s, "n-aaaaaaaa", "2026-01-01T00:00:00Z")
	seedNote(t, s, "n-bbbbbbbb", "2026-01-02T00:00:00Z")
	seedNote(t, s, "n-cccccccc", "2026-01-03T00:00:00Z")
	m := New(s)

	require.NoError(t, m.AddSubnote(ctx, "n-aaaaaaaa", "n-bbbbbbbb"))
	require.NoError(t, m.AddSubnote(ctx, "n-bbbbbbbb", "n-cccccccc"))

	err := m.AddSubnote(ctx, "n-cccccccc", "n-aaaaaaaa")
	assert.Error(t, err)
}

func TestAddSubnote_OrdersChildrenByInsertion(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seedNote(t, s, "n-parent00", "2026-01-01T00:00:00Z")
	seedNote(t, s, "n-childa00", "2026-01-02T00:00:00Z")
	seedNote(t, s, "n-childb00", "2026-01-03T00:00:00Z")
	m := New(s)

	require.NoError(t, m.AddSubnote(ctx, "n-parent00", "n-childa00"))
	require.NoError(t, m.AddSubnote(ctx, "n-parent00", "n-childb00"))

	assert.Equal(t, []string{"n-childa00", "n-childb00"}, m.Children("n-parent00"))
}

func TestReorderChildren_RejectsPartialSet(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seedNote(t, s, "n-parent00", "2026-01-01T00:00:00Z")
	seedNote(t, s, "n-childa00", "2026-01-02T00:00:00Z")
	seedNote(t, s, "n-childb00", "2026-01-03T00:00:00Z")
	m := New(s)
	require.NoError(t, m.AddSubnote(ctx, "n-parent00", "n-childa00"))
	require.NoError(t, m.AddSubnote(ctx, "n-parent00", "n-childb00"))

	err := m.ReorderChildren(ctx, "n-parent00", []string{"n-childa00"})
	assert.Error(t, err)

	require.NoError(t, m.ReorderChildren(ctx, "n-parent00", []string{"n-childb00", "n-childa00"}))
	assert.Equal(t, []string{"n-childb00", "n-childa00"}, m.Children("n-parent00"))
}

func TestPath_MultiParentBreaksTieByEarliestCreated(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seedNote(t, s, "n-child000", "2026-03-01T00:00:00Z")
	seedNote(t, s, "n-parentA0", "2026-01-01T00:00:00Z")
	seedNote(t, s, "n-parentB0", "2026-02-01T00:00:00Z")
	m := New(s)

	require.NoError(t, m.AddSubnote(ctx, "n-parentA0", "n-child000"))
	require.NoError(t, m.AddSubnote(ctx, "n-parentB0", "n-child000"))

	path, err := m.Path(ctx, "n-child000")
	require.NoError(t, err)
	assert.Equal(t, []string{"n-parentA0"}, path)
}

func TestLoad_RebuildsGraphFromStore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seedNote(t, s, "n-parent00", "2026-01-01T00:00:00Z")
	seedNote(t, s, "n-childa00", "2026-01-02T00:00:00Z")
	require.NoError(t, s.AddHierarchyEdge(ctx, "n-parent00", "n-childa00", 0))

	m := New(s)
	require.NoError(t, m.Load(ctx))
	assert.Equal(t, []string{"n-childa00"}, m.Children("n-parent00"))
}

func TestRemoveSubnote_ClosesPositionGap(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seedNote(t, s, "n-parent00", "2026-01-01T00:00:00Z")
	seedNote(t, s, "n-childa00", "2026-01-02T00:00:00Z")
	seedNote(t, s, "n-childb00", "2026-01-03T00:00:00Z")
	m := New(s)
	require.NoError(t, m.AddSubnote(ctx, "n-parent00", "n-childa00"))
	require.NoError(t, m.AddSubnote(ctx, "n-parent00", "n-childb00"))

	require.NoError(t, m.RemoveSubnote(ctx, "n-parent00", "n-childa00"))
	assert.Equal(t, []string{"n-childb00"}, m.Children("n-parent00"))
}
