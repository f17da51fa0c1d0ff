package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_BackfillsAliasesBothDirections(t *testing.T) {
	doc := Parse("---\nid: n-deadbeef\nflint_title: Hello\n---\nbody text\n", nil)

	require.True(t, doc.HadBlock)
	assert.Equal(t, "n-deadbeef", doc.Fields["id"])
	assert.Equal(t, "n-deadbeef", doc.Fields["flint_id"])
	assert.Equal(t, "Hello", doc.Fields["title"])
	assert.Equal(t, "Hello", doc.Fields["flint_title"])
	assert.Equal(t, "body text\n", doc.Body)
}

func TestParse_NoBlock(t *testing.T) {
	doc := Parse("just a body, no frontmatter", nil)
	assert.False(t, doc.HadBlock)
	assert.Empty(t, doc.Fields)
	assert.Equal(t, "just a body, no frontmatter", doc.Body)
}

type recordingWarner struct{ warned bool }

func (w *recordingWarner) Warnf(string, ...interface{}) { w.warned = true }

func TestParse_MalformedYAMLDegradesToEmpty(t *testing.T) {
	w := &recordingWarner{}
	doc := Parse("---\nid: [unterminated\n---\nbody\n", w)

	assert.True(t, w.warned)
	assert.Empty(t, doc.Fields)
	assert.Equal(t, "body\n", doc.Body)
}

func TestFormat_DropsNonCanonicalAliasAndRoundTrips(t *testing.T) {
	fields := map[string]interface{}{"id": "n-abc12345", "type": "general", "custom": "value"}
	out, err := Format(fields, "body\n", EmitOptions{})
	require.NoError(t, err)

	doc := Parse(out, nil)
	assert.Equal(t, "n-abc12345", doc.Fields["id"])
	assert.Equal(t, "general", doc.Fields["type"])
	assert.Equal(t, "value", doc.Fields["custom"])
	assert.Equal(t, "body\n", doc.Body)
}

func TestFormat_UsePrefixedDropsLegacyNames(t *testing.T) {
	fields := map[string]interface{}{"id": "n-abc12345"}
	out, err := Format(fields, "body\n", EmitOptions{UsePrefixed: true})
	require.NoError(t, err)
	assert.Contains(t, out, "flint_id")
	assert.NotContains(t, out, "\nid:")
}

func TestFormat_EmptyFieldsReturnsBareBody(t *testing.T) {
	out, err := Format(map[string]interface{}{}, "body only\n", EmitOptions{})
	require.NoError(t, err)
	assert.Equal(t, "body only\n", out)
}

func TestGetString_PrefersLegacyFallsBackToPrefixed(t *testing.T) {
	doc := &Document{Fields: map[string]interface{}{"flint_type": "person"}}
	v, ok := doc.GetString("type")
	assert.True(t, ok)
	assert.Equal(t, "person", v)

	_, ok = doc.GetString("missing")
	assert.False(t, ok)
}
