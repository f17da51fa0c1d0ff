package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flint-note/flint/internal/ferr"
)

func TestRecordAndLookupIDMapping(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.RecordIDMapping(ctx, "legacy-note-1", "n-aaaaaaaa"))

	newID, ok, err := s.LookupIDMapping(ctx, "legacy-note-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "n-aaaaaaaa", newID)
}

func TestLookupIDMapping_MissingReturnsFalse(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.LookupIDMapping(context.Background(), "never-recorded")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordIDMapping_SameMappingTwiceIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.RecordIDMapping(ctx, "legacy-note-1", "n-aaaaaaaa"))
	require.NoError(t, s.RecordIDMapping(ctx, "legacy-note-1", "n-aaaaaaaa"))
}

func TestRecordIDMapping_ConflictingRemapIsRejected(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.RecordIDMapping(ctx, "legacy-note-1", "n-aaaaaaaa"))

	err := s.RecordIDMapping(ctx, "legacy-note-1", "n-bbbbbbbb")
	require.Error(t, err)
	kind, ok := ferr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ferr.Conflict, kind)
}

func TestAllIDMappings_ReturnsEveryRecordedPair(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.RecordIDMapping(ctx, "legacy-1", "n-aaaaaaaa"))
	require.NoError(t, s.RecordIDMapping(ctx, "legacy-2", "n-bbbbbbbb"))

	all, err := s.AllIDMappings(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"legacy-1": "n-aaaaaaaa",
		"legacy-2": "n-bbbbbbbb",
	}, all)
}
