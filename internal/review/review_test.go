package review

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

func seedNote(t *testing.T, s *store.Store, id string) {
	t.Helper()
	require.NoError(t, s.CreateNote(context.Background(), &store.Note{
		ID: id, Type: "general", Filename: id + ".md", Path: "general/" + id + ".md",
		Title: id, ContentHash: "h1",
	}))
}

func TestEnable_SchedulesFirstReviewAtNextSession(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seedNote(t, s, "n-aaaaaaaa")
	sched := New(s)

	require.NoError(t, sched.Enable(ctx, "n-aaaaaaaa"))

	item, err := s.GetReviewItem(ctx, "n-aaaaaaaa")
	require.NoError(t, err)
	assert.True(t, item.Enabled)
	assert.Equal(t, 1, item.NextSessionNumber)
	assert.Equal(t, "active", item.Status)
}

func TestDue_ReturnsNotesAtOrBeforeCurrentSession(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seedNote(t, s, "n-aaaaaaaa")
	sched := New(s)
	require.NoError(t, sched.Enable(ctx, "n-aaaaaaaa"))

	due, err := sched.Due(ctx)
	require.NoError(t, err)
	assert.Empty(t, due, "nothing due before the session counter advances")

	_, err = sched.AdvanceSession(ctx)
	require.NoError(t, err)

	due, err = sched.Due(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"n-aaaaaaaa"}, due)
}

func TestRate_RetiresOnFour(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seedNote(t, s, "n-aaaaaaaa")
	sched := New(s)
	require.NoError(t, sched.Enable(ctx, "n-aaaaaaaa"))

	require.NoError(t, sched.Rate(ctx, "n-aaaaaaaa", 4, "", "", "", "2026-08-01T00:00:00Z"))

	item, err := s.GetReviewItem(ctx, "n-aaaaaaaa")
	require.NoError(t, err)
	assert.Equal(t, "retired", item.Status)
	assert.False(t, item.Enabled)

	due, err := sched.Due(ctx)
	require.NoError(t, err)
	assert.NotContains(t, due, "n-aaaaaaaa")
}

func TestRate_RejectsOutOfRangeRating(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seedNote(t, s, "n-aaaaaaaa")
	sched := New(s)
	require.NoError(t, sched.Enable(ctx, "n-aaaaaaaa"))

	err := sched.Rate(ctx, "n-aaaaaaaa", 0, "", "", "", "2026-08-01T00:00:00Z")
	assert.Error(t, err)
	err = sched.Rate(ctx, "n-aaaaaaaa", 5, "", "", "", "2026-08-01T00:00:00Z")
	assert.Error(t, err)
}

func TestNextInterval_AppliesMultiplierAndClamps(t *testing.T) {
	assert.Equal(t, 1, nextInterval(1, 1, 15))  // round(0.5) clamps to min 1
	assert.Equal(t, 2, nextInterval(1, 2, 15))  // round(1.5) = 2
	assert.Equal(t, 5, nextInterval(2, 3, 15))  // round(5.0) = 5
	assert.Equal(t, 15, nextInterval(10, 3, 15)) // clamps to max
}

func TestRate_AppendsReviewHistoryAndBumpsCount(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seedNote(t, s, "n-aaaaaaaa")
	sched := New(s)
	require.NoError(t, sched.Enable(ctx, "n-aaaaaaaa"))

	require.NoError(t, sched.Rate(ctx, "n-aaaaaaaa", 2, "what is X?", "X is Y", "good", "2026-08-01T00:00:00Z"))

	item, err := s.GetReviewItem(ctx, "n-aaaaaaaa")
	require.NoError(t, err)
	require.Len(t, item.ReviewHistory, 1)
	assert.Equal(t, 2, item.ReviewHistory[0].Rating)
	assert.Equal(t, 1, item.ReviewCount)
	assert.Equal(t, "active", item.Status)
}
