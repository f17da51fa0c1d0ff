// Package frontmatter parses and emits the YAML frontmatter block that
// precedes a note's markdown body. It maintains two parallel
// field-name schemes — legacy (id, type, title, ...) and prefixed
// (flint_id, flint_type, ...) — back-filling whichever side is missing
// on read, so callers never have to think about which scheme a given
// file was written with.
package frontmatter

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Legacy and prefixed field name pairs that alias one another.
var aliasPairs = [][2]string{
	{"id", "flint_id"},
	{"type", "flint_type"},
	{"title", "flint_title"},
	{"filename", "flint_filename"},
	{"created", "flint_created"},
	{"updated", "flint_updated"},
}

// Document is a parsed frontmatter block plus body.
type Document struct {
	Fields map[string]interface{}
	Body   string
	// HadBlock reports whether a --- delimited block was present at all,
	// distinguishing "no frontmatter" from "empty frontmatter".
	HadBlock bool
}

// Warner receives a message when frontmatter fails to parse. Malformed
// YAML never aborts the caller — it degrades to an empty mapping.
type Warner interface {
	Warnf(format string, args ...interface{})
}

type noopWarner struct{}

func (noopWarner) Warnf(string, ...interface{}) {}

// Parse splits content into frontmatter fields and body. If the leading
// --- block is present but fails to parse as YAML, it returns an empty
// field map and the warner (if non-nil) is notified; it never returns
// an error for malformed YAML, only for structurally nonsensical input
// that callers cannot reasonably recover from (there is none today).
func Parse(content string, warn Warner) *Document {
	if warn == nil {
		warn = noopWarner{}
	}

	block, body, found := splitBlock(content)
	if !found {
		return &Document{Fields: map[string]interface{}{}, Body: content, HadBlock: false}
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal([]byte(block), &raw); err != nil || raw == nil {
		if err != nil {
			warn.Warnf("malformed frontmatter YAML, treating as empty: %v", err)
		}
		return &Document{Fields: map[string]interface{}{}, Body: body, HadBlock: true}
	}

	backfillAliases(raw)
	return &Document{Fields: raw, Body: body, HadBlock: true}
}

// splitBlock finds a leading "---" CRLF/LF delimited block. Returns the
// YAML text between delimiters, the remaining body, and whether a block
// was found at all.
func splitBlock(content string) (block, body string, found bool) {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(normalized, "---\n") && normalized != "---" {
		return "", content, false
	}
	rest := strings.TrimPrefix(normalized, "---\n")
	idx := strings.Index(rest, "\n---\n")
	if idx == -1 {
		// Allow a trailing "---" with no further content (file ends
		// right after the closing delimiter).
		if strings.HasSuffix(rest, "\n---") {
			return rest[:len(rest)-len("\n---")], "", true
		}
		return "", content, false
	}
	block = rest[:idx]
	body = rest[idx+len("\n---\n"):]
	return block, body, true
}

// backfillAliases ensures that for every legacy/prefixed pair, whichever
// side is missing is populated from the side that is present. If both
// are present, both are left untouched (no forced agreement).
func backfillAliases(fields map[string]interface{}) {
	for _, pair := range aliasPairs {
		legacy, prefixed := pair[0], pair[1]
		lv, lok := fields[legacy]
		pv, pok := fields[prefixed]
		switch {
		case lok && !pok:
			fields[prefixed] = lv
		case pok && !lok:
			fields[legacy] = pv
		}
	}
}

// EmitOptions controls which field-name scheme Format writes back to disk.
type EmitOptions struct {
	// UsePrefixed writes flint_* names as canonical; legacy names are
	// dropped from the emitted block. Post-v2.17 migration vaults use
	// this. Pre-migration vaults keep UsePrefixed=false.
	UsePrefixed bool
}

// Format serializes fields and body back into "---\n<yaml>\n---\n<body>".
// Arbitrary user keys are preserved verbatim; only the alias pair for the
// non-canonical scheme is dropped, keeping exactly one spelling on disk.
func Format(fields map[string]interface{}, body string, opts EmitOptions) (string, error) {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	drop := 1
	keep := 0
	if opts.UsePrefixed {
		drop, keep = 0, 1
	}
	for _, pair := range aliasPairs {
		dropped := pair[drop]
		canonical := pair[keep]
		if v, ok := out[dropped]; ok {
			if _, hasCanonical := out[canonical]; !hasCanonical {
				out[canonical] = v
			}
			delete(out, dropped)
		}
	}

	if len(out) == 0 {
		return body, nil
	}

	yamlBytes, err := marshalOrdered(out, opts)
	if err != nil {
		return "", fmt.Errorf("marshal frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(yamlBytes)
	b.WriteString("---\n")
	b.WriteString(body)
	return b.String(), nil
}

// canonicalOrder lists the well-known keys in the order they should be
// written, with arbitrary user keys following in the order yaml.v3's
// map marshaling naturally produces (sorted) to keep output stable.
var canonicalOrder = []string{
	"id", "flint_id", "type", "flint_type", "title", "flint_title",
	"filename", "flint_filename", "created", "flint_created",
	"updated", "flint_updated",
}

func marshalOrdered(fields map[string]interface{}, opts EmitOptions) ([]byte, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	written := map[string]bool{}

	appendKV := func(k string, v interface{}) error {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
		valNode := &yaml.Node{}
		if err := valNode.Encode(v); err != nil {
			return err
		}
		node.Content = append(node.Content, keyNode, valNode)
		return nil
	}

	for _, k := range canonicalOrder {
		if v, ok := fields[k]; ok {
			if err := appendKV(k, v); err != nil {
				return nil, err
			}
			written[k] = true
		}
	}
	for _, k := range sortedKeys(fields) {
		if written[k] {
			continue
		}
		if err := appendKV(k, fields[k]); err != nil {
			return nil, err
		}
	}

	var buf strings.Builder
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, err
	}
	enc.Close()
	return []byte(buf.String()), nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// GetString reads a field, preferring the legacy name, falling back to
// the prefixed one, coercing non-string scalars to their string form.
func (d *Document) GetString(legacyKey string) (string, bool) {
	prefixed := "flint_" + legacyKey
	if v, ok := d.Fields[legacyKey]; ok {
		return toString(v), true
	}
	if v, ok := d.Fields[prefixed]; ok {
		return toString(v), true
	}
	return "", false
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
