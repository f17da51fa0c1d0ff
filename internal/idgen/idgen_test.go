package idgen

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNoteID(t *testing.T) {
	cases := map[string]bool{
		"n-deadbeef":  true,
		"n-DEADBEEF":  false,
		"n-deadbee":   false,
		"n-deadbeef0": false,
		"x-deadbeef":  false,
		"":            false,
	}
	for in, want := range cases {
		assert.Equal(t, want, IsNoteID(in), "input %q", in)
	}
}

func TestGenerate_ProducesValidID(t *testing.T) {
	for i := 0; i < 50; i++ {
		id, err := Generate()
		require.NoError(t, err)
		assert.True(t, IsNoteID(id))
	}
}

func TestGenerateUnique_RetriesUntilFree(t *testing.T) {
	calls := 0
	exists := func(id string) (bool, error) {
		calls++
		return calls == 1, nil // first draw always "taken" to force a retry
	}

	id, err := GenerateUnique(exists)
	require.NoError(t, err)
	assert.True(t, IsNoteID(id))
	assert.Equal(t, 2, calls)
}

func TestGenerateUnique_PropagatesExistsError(t *testing.T) {
	boom := errors.New("store unavailable")
	_, err := GenerateUnique(func(string) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}
