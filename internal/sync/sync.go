// Package sync implements the reconciler that makes the index reflect
// the on-disk note tree: discovers new files, detects external edits
// and deletions, stamps missing IDs, and keeps the wikilink graph in
// step, per §4.7.
package sync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flint-note/flint/internal/ferr"
	"github.com/flint-note/flint/internal/frontmatter"
	"github.com/flint-note/flint/internal/idgen"
	"github.com/flint-note/flint/internal/logging"
	"github.com/flint-note/flint/internal/store"
	"github.com/flint-note/flint/internal/wikilink"
)

// Queue is the subset of *writequeue.Queue the reconciler needs to
// write rewritten bodies back through, so the watcher classifies the
// resulting notification as internal.
type Queue interface {
	QueueWrite(path, content string)
}

// Reconciler owns one full sync pass over a vault.
type Reconciler struct {
	root  string
	store *store.Store
	queue Queue
	log   logging.Logger
}

func New(root string, s *store.Store, q Queue, log logging.Logger) *Reconciler {
	if log == nil {
		log = logging.Noop
	}
	return &Reconciler{root: root, store: s, queue: q, log: log}
}

// Result summarizes one Run.
type Result struct {
	Added   []string
	Updated []string
	Deleted []string
}

// Run walks the vault tree and reconciles it against the index,
// following the seven-step algorithm in §4.7.
func (r *Reconciler) Run(ctx context.Context) (*Result, error) {
	indexed, err := r.store.ListNotePaths(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	result := &Result{}

	if err := r.walkTree(ctx, indexed, seen, result); err != nil {
		return nil, err
	}

	for path, f := range indexed {
		if seen[path] {
			continue
		}
		if err := r.store.DeleteNote(ctx, f.ID); err != nil {
			return nil, err
		}
		result.Deleted = append(result.Deleted, path)
	}

	return result, nil
}

func (r *Reconciler) walkTree(ctx context.Context, indexed map[string]store.IndexedFile, seen map[string]bool, result *Result) error {
	typeDirs, err := os.ReadDir(r.root)
	if err != nil {
		return ferr.Wrap(ferr.IO, "read vault root", err)
	}

	for _, typeDir := range typeDirs {
		if !typeDir.IsDir() || strings.HasPrefix(typeDir.Name(), ".") {
			continue
		}
		typeName := typeDir.Name()
		typeAbs := filepath.Join(r.root, typeName)

		files, err := os.ReadDir(typeAbs)
		if err != nil {
			return ferr.Wrap(ferr.IO, "read note type directory "+typeName, err)
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".md") {
				continue
			}
			relPath := filepath.ToSlash(filepath.Join(typeName, f.Name()))
			seen[relPath] = true

			info, err := f.Info()
			if err != nil {
				return ferr.Wrap(ferr.IO, "stat "+relPath, err)
			}
			mtimeMs := info.ModTime().UnixMilli()

			existing, isIndexed := indexed[relPath]
			if !isIndexed {
				if err := r.add(ctx, typeName, relPath, mtimeMs); err != nil {
					return err
				}
				result.Added = append(result.Added, relPath)
				continue
			}
			if mtimeMs <= existing.FileMtimeMs {
				continue
			}

			content, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(relPath)))
			if err != nil {
				return ferr.Wrap(ferr.IO, "read "+relPath, err)
			}
			hash := hashContent(string(content))
			if hash == existing.ContentHash {
				if err := r.store.TouchMtime(ctx, existing.ID, mtimeMs); err != nil {
					return err
				}
				continue
			}
			if err := r.update(ctx, existing.ID, typeName, relPath, string(content), mtimeMs, hash); err != nil {
				return err
			}
			result.Updated = append(result.Updated, relPath)
		}
	}
	return nil
}

// add handles a path discovered on disk with no index row: parse
// frontmatter, stamp an ID if missing, and insert.
func (r *Reconciler) add(ctx context.Context, typeName, relPath string, mtimeMs int64) error {
	absPath := filepath.Join(r.root, filepath.FromSlash(relPath))
	raw, err := os.ReadFile(absPath)
	if err != nil {
		return ferr.Wrap(ferr.IO, "read "+relPath, err)
	}
	content := string(raw)
	doc := frontmatter.Parse(content, r.log)

	filename := strings.TrimSuffix(filepath.Base(relPath), ".md")

	id, hadID := doc.GetString("id")
	if hadID && idgen.IsNoteID(id) {
		existingOwner, err := r.store.GetNote(ctx, id)
		if err == nil && existingOwner.Path != relPath {
			// This ID already belongs to a note at a different path: the
			// import is reusing someone else's identity, mint a fresh one.
			hadID = false
		}
	}
	if !hadID || !idgen.IsNoteID(id) {
		id, err = idgen.GenerateUnique(r.store.NoteExists)
		if err != nil {
			return ferr.Wrap(ferr.IO, "mint note id", err)
		}
		doc.Fields["id"] = id
		doc.Fields["type"] = typeName
		rewritten, fmtErr := frontmatter.Format(doc.Fields, doc.Body, frontmatter.EmitOptions{})
		if fmtErr == nil {
			content = rewritten
			if err := os.WriteFile(absPath, []byte(content), 0o644); err != nil {
				return ferr.Wrap(ferr.IO, "stamp id into "+relPath, err)
			}
		}
	}

	title, _ := doc.GetString("title")

	// A (type, filename) collision with a different ID means the prior
	// occupant's file is gone from this path; replace it.
	if stale, err := r.store.GetNoteByTypeFilename(ctx, typeName, filename); err == nil && stale.ID != id {
		if err := r.store.DeleteNote(ctx, stale.ID); err != nil {
			return err
		}
		if _, err := r.store.UpdateBrokenLinks(ctx, id, title, typeName, filename); err != nil {
			return err
		}
	}

	hash := hashContent(content)
	note := &store.Note{
		ID: id, Type: typeName, Filename: filename + ".md", Path: relPath,
		Title: title, Body: doc.Body, FileMtimeMs: mtimeMs,
		SizeBytes: int64(len(content)), ContentHash: hash,
	}
	if err := r.store.CreateNote(ctx, note); err != nil {
		return err
	}
	if _, err := r.store.UpdateBrokenLinks(ctx, id, title, typeName, filename); err != nil {
		return err
	}
	return r.reextractLinks(ctx, note, relPath)
}

// update handles a path whose mtime advanced and whose content hash
// changed: the filesystem is ground truth, so this is a force-update.
func (r *Reconciler) update(ctx context.Context, id, typeName, relPath, content string, mtimeMs int64, hash string) error {
	doc := frontmatter.Parse(content, r.log)
	title, _ := doc.GetString("title")
	filename := strings.TrimSuffix(filepath.Base(relPath), ".md")

	note := &store.Note{
		ID: id, Type: typeName, Filename: filename + ".md", Path: relPath,
		Title: title, Body: doc.Body, FileMtimeMs: mtimeMs,
		SizeBytes: int64(len(content)), ContentHash: hash,
	}
	if err := r.store.ForceUpdateNote(ctx, note); err != nil {
		return err
	}
	return r.reextractLinks(ctx, note, relPath)
}

// reextractLinks re-derives internal/external links for note and
// rewrites resolvable title/type-filename references into ID links. If
// that rewrite changes the body, it is written back through the queue
// (so the watcher sees it as internal) only if the file's on-disk ID
// still matches — a concurrent external edit mid-reconcile must win.
func (r *Reconciler) reextractLinks(ctx context.Context, note *store.Note, relPath string) error {
	rewrittenBody, err := wikilink.ConvertTitleLinksToIdLinks(note.Body, r.store)
	if err != nil {
		return err
	}

	links := wikilink.Extract(rewrittenBody)
	storeLinks := make([]store.Link, 0, len(links))
	for _, l := range links {
		targetID, resolved, err := wikilink.Resolve(l, r.store)
		if err != nil {
			return err
		}
		sl := store.Link{
			SourceNoteID: note.ID, TargetTitle: l.Target,
			LinkText: l.Display, LineNumber: l.Line, Created: time.Now().UTC().Format(time.RFC3339),
		}
		if resolved {
			sl.TargetNoteID = targetID
		}
		storeLinks = append(storeLinks, sl)
	}
	if err := r.store.StoreLinks(ctx, note.ID, storeLinks); err != nil {
		return err
	}

	external := wikilink.ExtractExternal(rewrittenBody)
	extRows := make([]store.ExternalLink, 0, len(external))
	for _, e := range external {
		extRows = append(extRows, store.ExternalLink{
			NoteID: note.ID, URL: e.URL, Title: e.Title, LineNumber: e.Line, LinkType: e.Type,
		})
	}
	if err := r.store.StoreExternalLinks(ctx, note.ID, extRows); err != nil {
		return err
	}

	if rewrittenBody == note.Body {
		return nil
	}

	current, err := r.store.GetNote(ctx, note.ID)
	if err != nil || current.Path != relPath {
		return err
	}
	fields := map[string]interface{}{"id": note.ID, "type": note.Type}
	if note.Title != "" {
		fields["title"] = note.Title
	}
	rewrittenFile, err := frontmatter.Format(fields, rewrittenBody, frontmatter.EmitOptions{})
	if err != nil {
		return nil
	}
	if r.queue != nil {
		r.queue.QueueWrite(relPath, rewrittenFile)
	}
	note.Body = rewrittenBody
	note.ContentHash = hashContent(rewrittenFile)
	return r.store.ForceUpdateNote(ctx, note)
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
