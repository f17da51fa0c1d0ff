package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/flint-note/flint/internal/ferr"
	"gopkg.in/yaml.v3"
)

// ValidateMetadataSchema enforces the §3 invariant that a select field
// declares non-empty constraints.options.
func ValidateMetadataSchema(schema MetadataSchema) error {
	for _, f := range schema.Fields {
		if f.Type == "select" && len(f.Options) == 0 {
			return ferr.Newf(ferr.Validation, "Select field '%s' has no options defined", f.Name)
		}
	}
	return nil
}

func hashNoteType(nt *NoteType) string {
	h := sha256.New()
	h.Write([]byte(nt.Name))
	h.Write([]byte(nt.Purpose))
	for _, a := range nt.AgentInstructions {
		h.Write([]byte(a))
	}
	b, _ := json.Marshal(nt.MetadataSchema)
	h.Write(b)
	h.Write([]byte(nt.Icon))
	for _, c := range nt.EditorChips {
		h.Write([]byte(c))
	}
	cfg, _ := json.Marshal(nt.SuggestionsConfig)
	h.Write(cfg)
	h.Write([]byte(nt.DefaultReviewMode))
	return hex.EncodeToString(h.Sum(nil))
}

// CreateNoteType inserts a new note-type description row.
func (s *Store) CreateNoteType(ctx context.Context, nt *NoteType) error {
	if err := ValidateMetadataSchema(nt.MetadataSchema); err != nil {
		return err
	}
	if nt.Created == "" {
		nt.Created = nowISO()
	}
	nt.Updated = nt.Created
	nt.ContentHash = hashNoteType(nt)

	instr, _ := json.Marshal(nt.AgentInstructions)
	schemaJSON, _ := json.Marshal(nt.MetadataSchema)
	chips, _ := json.Marshal(nt.EditorChips)
	sugg, _ := json.Marshal(nt.SuggestionsConfig)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO note_type_descriptions
			(name, purpose, agent_instructions, metadata_schema, icon, editor_chips,
			 suggestions_config, default_review_mode, content_hash, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nt.Name, nt.Purpose, string(instr), string(schemaJSON), nt.Icon, string(chips),
		string(sugg), nt.DefaultReviewMode, nt.ContentHash, nt.Created, nt.Updated)
	if err != nil {
		if isUniqueConstraint(err) {
			return ferr.Wrap(ferr.Conflict, "note type already exists", err)
		}
		return ferr.Wrap(ferr.IO, "insert note type", err)
	}
	return nil
}

// GetNoteType fetches a note-type description by name. Malformed JSON
// columns degrade to empty defaults per §7's propagation policy.
func (s *Store) GetNoteType(ctx context.Context, name string) (*NoteType, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, purpose, agent_instructions, metadata_schema, icon, editor_chips,
			suggestions_config, default_review_mode, content_hash, created, updated
		FROM note_type_descriptions WHERE name = ?`, name)

	var nt NoteType
	var instr, schemaJSON, chips, sugg string
	err := row.Scan(&nt.Name, &nt.Purpose, &instr, &schemaJSON, &nt.Icon, &chips,
		&sugg, &nt.DefaultReviewMode, &nt.ContentHash, &nt.Created, &nt.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ferr.New(ferr.NotFound, "note type not found: "+name)
	}
	if err != nil {
		return nil, ferr.Wrap(ferr.IO, "scan note type", err)
	}

	_ = json.Unmarshal([]byte(instr), &nt.AgentInstructions)
	_ = json.Unmarshal([]byte(schemaJSON), &nt.MetadataSchema)
	_ = json.Unmarshal([]byte(chips), &nt.EditorChips)
	nt.SuggestionsConfig = map[string]interface{}{}
	_ = json.Unmarshal([]byte(sugg), &nt.SuggestionsConfig)
	return &nt, nil
}

// ListNoteTypes returns all note-type description names.
func (s *Store) ListNoteTypes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM note_type_descriptions ORDER BY name`)
	if err != nil {
		return nil, ferr.Wrap(ferr.IO, "list note types", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, ferr.Wrap(ferr.IO, "scan note type name", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UpdateNoteType performs an optimistic-locked update keyed on content_hash.
func (s *Store) UpdateNoteType(ctx context.Context, nt *NoteType, expectedHash string) error {
	if err := ValidateMetadataSchema(nt.MetadataSchema); err != nil {
		return err
	}
	nt.Updated = nowISO()
	nt.ContentHash = hashNoteType(nt)

	instr, _ := json.Marshal(nt.AgentInstructions)
	schemaJSON, _ := json.Marshal(nt.MetadataSchema)
	chips, _ := json.Marshal(nt.EditorChips)
	sugg, _ := json.Marshal(nt.SuggestionsConfig)

	res, err := s.db.ExecContext(ctx, `
		UPDATE note_type_descriptions SET purpose = ?, agent_instructions = ?,
			metadata_schema = ?, icon = ?, editor_chips = ?, suggestions_config = ?,
			default_review_mode = ?, content_hash = ?, updated = ?
		WHERE name = ? AND content_hash = ?`,
		nt.Purpose, string(instr), string(schemaJSON), nt.Icon, string(chips), string(sugg),
		nt.DefaultReviewMode, nt.ContentHash, nt.Updated, nt.Name, expectedHash)
	if err != nil {
		return ferr.Wrap(ferr.IO, "update note type", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return ferr.Wrap(ferr.IO, "check note type update result", err)
	}
	if affected == 0 {
		return ferr.New(ferr.Conflict, "note type content_hash mismatch, concurrent modification")
	}
	return nil
}

// DeleteNoteType removes a note-type description. Rejected with
// Conflict while notes of that type still exist.
func (s *Store) DeleteNoteType(ctx context.Context, name string) error {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notes WHERE type = ?`, name).Scan(&count); err != nil {
		return ferr.Wrap(ferr.IO, "count notes of type", err)
	}
	if count > 0 {
		return ferr.Newf(ferr.Conflict, "cannot delete note type %q: %d notes still use it", name, count)
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM note_type_descriptions WHERE name = ?`, name)
	if err != nil {
		return ferr.Wrap(ferr.IO, "delete note type", err)
	}
	return nil
}

// legacyDescription is the on-disk YAML shape of a legacy
// _description.md type-description file, per §6.
type legacyDescription struct {
	Name               string                 `yaml:"name"`
	Purpose            string                 `yaml:"purpose"`
	AgentInstructions  []string               `yaml:"agent_instructions"`
	MetadataSchema     legacyMetadataSchema   `yaml:"metadata_schema"`
	Icon               string                 `yaml:"icon"`
	EditorChips        []string               `yaml:"editor_chips"`
	SuggestionsConfig  map[string]interface{} `yaml:"suggestions_config"`
	DefaultReviewMode  string                 `yaml:"default_review_mode"`
}

type legacyMetadataSchema struct {
	Fields []legacySchemaField `yaml:"fields"`
}

type legacySchemaField struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Required    bool     `yaml:"required"`
	Description string   `yaml:"description"`
	Constraints struct {
		Options []string `yaml:"options"`
	} `yaml:"constraints"`
}

// ImportLegacyDescription parses a legacy _description.md YAML file,
// inserts it as a DB row, and renames the file so the sync reconciler
// does not re-import it on the next walk.
func (s *Store) ImportLegacyDescription(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return ferr.Wrap(ferr.IO, "read legacy description file", err)
	}

	body := string(data)
	body = strings.TrimPrefix(body, "---\n")
	if idx := strings.Index(body, "\n---"); idx != -1 {
		body = body[:idx]
	}

	var ld legacyDescription
	if err := yaml.Unmarshal([]byte(body), &ld); err != nil {
		return ferr.Wrap(ferr.Parse, "parse legacy description YAML", err)
	}

	fields := make([]SchemaField, 0, len(ld.MetadataSchema.Fields))
	for _, f := range ld.MetadataSchema.Fields {
		fields = append(fields, SchemaField{
			Name: f.Name, Type: f.Type, Required: f.Required,
			Description: f.Description, Options: f.Constraints.Options,
		})
	}

	nt := &NoteType{
		Name:              ld.Name,
		Purpose:           ld.Purpose,
		AgentInstructions: ld.AgentInstructions,
		MetadataSchema:    MetadataSchema{Fields: fields},
		Icon:              ld.Icon,
		EditorChips:       ld.EditorChips,
		SuggestionsConfig: ld.SuggestionsConfig,
		DefaultReviewMode: ld.DefaultReviewMode,
	}
	if err := s.CreateNoteType(ctx, nt); err != nil {
		return err
	}

	return os.Rename(path, path+".migrated")
}
