package store

import "time"

// MetaValue is the tagged-sum representation of an arbitrary frontmatter
// scalar, per Design Notes §9: dynamic YAML values are modeled as a sum
// type rather than left as interface{} all the way to the database.
type MetaValue struct {
	Type  string // "string" | "number" | "boolean" | "array" | "date"
	Raw   string // string-encoded value as stored
	Array []string
}

// Note is the persistent note entity from §3.
type Note struct {
	ID          string
	Type        string
	Filename    string
	Path        string
	Title       string
	Body        string
	Created     string
	Updated     string
	FileMtimeMs int64
	SizeBytes   int64
	ContentHash string
	Archived    bool
	Metadata    map[string]MetaValue
}

// Link is an internal note-to-note edge from §3.
type Link struct {
	ID           int64
	SourceNoteID string
	TargetNoteID string // empty if broken (NULL in DB)
	TargetTitle  string
	LinkText     string
	LineNumber   int
	Created      string
}

// ExternalLink is a note-to-URL reference from §3.
type ExternalLink struct {
	ID         int64
	NoteID     string
	URL        string
	Title      string
	LineNumber int
	LinkType   string // "url" | "image" | "embed"
}

// SchemaField describes one field of a note type's metadata schema.
type SchemaField struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Required    bool     `json:"required,omitempty"`
	Description string   `json:"description,omitempty"`
	Options     []string `json:"-"`
}

// MetadataSchema is the ordered field list for a note type.
type MetadataSchema struct {
	Fields []SchemaField `json:"fields"`
}

// NoteType is the per-vault note-type description from §3.
type NoteType struct {
	Name               string
	Purpose            string
	AgentInstructions  []string
	MetadataSchema     MetadataSchema
	Icon               string
	EditorChips        []string
	SuggestionsConfig  map[string]interface{}
	DefaultReviewMode  string
	ContentHash        string
	Created            string
	Updated            string
}

// ReviewHistoryEntry is one entry in a review item's history JSON list.
type ReviewHistoryEntry struct {
	Date          string `json:"date"`
	SessionNumber int    `json:"sessionNumber"`
	Rating        int    `json:"rating"`
	Prompt        string `json:"prompt,omitempty"`
	Response      string `json:"response,omitempty"`
	Feedback      string `json:"feedback,omitempty"`
}

// ReviewItem tracks a note's spaced-engagement schedule, §3/§4.9.
type ReviewItem struct {
	NoteID             string
	Enabled            bool
	LastReviewed       string
	NextSessionNumber  int
	CurrentInterval    int
	Status             string // "active" | "retired"
	ReviewCount        int
	ReviewHistory      []ReviewHistoryEntry
}

// HierarchyEdge is a (parent, child, position) row from §3.
type HierarchyEdge struct {
	ParentID string
	ChildID  string
	Position int
}

// WorkflowMaterial is an ordered supplementary material on a workflow.
type WorkflowMaterial struct {
	Type    string `json:"type"` // "text" | "code" | "note_reference"
	Content string `json:"content"`
}

// RecurringSpec describes a recurring workflow schedule.
type RecurringSpec struct {
	Frequency  string `json:"frequency"` // "daily" | "weekly" | "monthly"
	DayOfWeek  *int   `json:"dayOfWeek,omitempty"`
	DayOfMonth *int   `json:"dayOfMonth,omitempty"`
}

// WorkflowCompletion is one append-only completion log row.
type WorkflowCompletion struct {
	CompletedAt string
	Note        string
}

// Workflow is the named task-like entity from §3.
type Workflow struct {
	ID            string
	Name          string
	Status        string // "active" | "paused" | "completed"
	DueDate       string
	Recurring     *RecurringSpec
	LastCompleted string
	Materials     []WorkflowMaterial
	Created       string
	Updated       string
}

// Suggestion is a single suggested action for a note.
type Suggestion struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Text      string `json:"text"`
	Priority  string `json:"priority,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
}

// SuggestionRecord is the persisted suggestion set for a note, §3.
type SuggestionRecord struct {
	NoteID       string
	Suggestions  []Suggestion
	DismissedIDs []string
	GeneratedAt  string
	ModelVersion string
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
