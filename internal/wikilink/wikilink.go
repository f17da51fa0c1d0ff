// Package wikilink extracts and classifies [[TARGET]] / [[TARGET|DISPLAY]]
// references from note bodies, resolves them against an index lookup,
// and rewrites resolvable title/type-filename links into ID links.
package wikilink

import (
	"regexp"
	"strings"

	"github.com/flint-note/flint/internal/idgen"
)

// Kind classifies a wikilink target.
type Kind int

const (
	KindID Kind = iota
	KindTypeFilename
	KindTitle
)

// wikiLinkPattern matches [[TARGET]] and [[TARGET|DISPLAY]].
var wikiLinkPattern = regexp.MustCompile(`\[\[([^\]|]+)(?:\|([^\]]*))?\]\]`)

// markdownLinkPattern matches standard [text](url) markdown links, used
// to scan for external URLs.
var markdownLinkPattern = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)\)`)

// imagePattern matches ![alt](url).
var imagePattern = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)\)`)

// Link is a single extracted [[...]] reference.
type Link struct {
	Kind    Kind
	Target  string // raw TARGET text
	Display string // DISPLAY text, empty if none given
	Line    int    // 1-based line number
	Raw     string // full matched text, e.g. "[[Target|Display]]"
}

// ExternalLink is a scanned [text](url) / ![alt](url) reference.
type ExternalLink struct {
	URL   string
	Title string
	Line  int
	Type  string // "url" | "image"
}

// Classify determines the Kind of a wikilink TARGET.
func Classify(target string) Kind {
	if idgen.IsNoteID(target) {
		return KindID
	}
	if strings.Count(target, "/") == 1 {
		return KindTypeFilename
	}
	return KindTitle
}

// Extract scans body for wikilinks, recording 1-based line numbers.
func Extract(body string) []Link {
	var links []Link
	for lineNo, line := range strings.Split(body, "\n") {
		matches := wikiLinkPattern.FindAllStringSubmatchIndex(line, -1)
		for _, m := range matches {
			target := line[m[2]:m[3]]
			display := ""
			if m[4] != -1 {
				display = line[m[4]:m[5]]
			}
			raw := line[m[0]:m[1]]
			links = append(links, Link{
				Kind:    Classify(target),
				Target:  target,
				Display: display,
				Line:    lineNo + 1,
				Raw:     raw,
			})
		}
	}
	return links
}

// ExtractExternal scans body for standard markdown [text](url) and
// ![alt](url) references. Wikilinks are ignored by construction since
// they use a different bracket shape.
func ExtractExternal(body string) []ExternalLink {
	var out []ExternalLink
	for lineNo, line := range strings.Split(body, "\n") {
		for _, m := range imagePattern.FindAllStringSubmatch(line, -1) {
			out = append(out, ExternalLink{Title: m[1], URL: m[2], Line: lineNo + 1, Type: "image"})
		}
		stripped := imagePattern.ReplaceAllString(line, "")
		for _, m := range markdownLinkPattern.FindAllStringSubmatch(stripped, -1) {
			out = append(out, ExternalLink{Title: m[1], URL: m[2], Line: lineNo + 1, Type: "url"})
		}
	}
	return out
}

// Resolver looks up resolution targets for non-ID links. Implemented by
// the index store.
type Resolver interface {
	// ResolveByTitle returns the note ID whose title exactly matches
	// title, breaking ties by earliest creation time, or ok=false if
	// no note has that title.
	ResolveByTitle(title string) (id string, ok bool, err error)
	// ResolveByTypeFilename returns the note ID for (type, filenameStem),
	// or ok=false if none exists.
	ResolveByTypeFilename(typeName, filenameStem string) (id string, ok bool, err error)
	// NoteExists reports whether id refers to a live note.
	NoteExists(id string) (bool, error)
}

// Resolve determines the target note ID for a link, or ok=false if the
// link is broken (and should be stored with a NULL target).
func Resolve(l Link, r Resolver) (id string, ok bool, err error) {
	switch l.Kind {
	case KindID:
		exists, err := r.NoteExists(l.Target)
		if err != nil {
			return "", false, err
		}
		return l.Target, exists, nil
	case KindTypeFilename:
		parts := strings.SplitN(l.Target, "/", 2)
		return r.ResolveByTypeFilename(parts[0], parts[1])
	default:
		return r.ResolveByTitle(l.Target)
	}
}

// ConvertTitleLinksToIdLinks rewrites resolvable non-ID links into
// [[<id>|<original_target>]] (no display given) or [[<id>|<display>]]
// (display given). Already-ID links and broken links are left verbatim.
// Idempotent: running it twice produces the same text as running it once.
func ConvertTitleLinksToIdLinks(body string, r Resolver) (string, error) {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		var rewriteErr error
		newLine := wikiLinkPattern.ReplaceAllStringFunc(line, func(raw string) string {
			if rewriteErr != nil {
				return raw
			}
			sub := wikiLinkPattern.FindStringSubmatch(raw)
			target := sub[1]
			display := sub[2]

			kind := Classify(target)
			if kind == KindID {
				return raw
			}

			var id string
			var ok bool
			var err error
			if kind == KindTypeFilename {
				parts := strings.SplitN(target, "/", 2)
				if len(parts) != 2 {
					return raw
				}
				id, ok, err = r.ResolveByTypeFilename(parts[0], parts[1])
			} else {
				id, ok, err = r.ResolveByTitle(target)
			}
			if err != nil {
				rewriteErr = err
				return raw
			}
			if !ok {
				return raw
			}
			if display == "" {
				return "[[" + id + "|" + target + "]]"
			}
			return "[[" + id + "|" + display + "]]"
		})
		if rewriteErr != nil {
			return "", rewriteErr
		}
		lines[i] = newLine
	}
	return strings.Join(lines, "\n"), nil
}
