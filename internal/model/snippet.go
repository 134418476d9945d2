package model

import "time"

// Defaults applied when a snippet payload omits rendering options.
const (
	DefaultLanguage = "python"
	DefaultStyle    = "friendly"
)

// Snippet is the rendered presentation of a SourceCode under a chosen
// language/style/line-number configuration, plus its tags.
//
// Highlighted is DERIVED state: it is recomputed from (source code, language,
// style, linenos) on every create and update, and is never client-authored.
//
// SourceCodeID is nullable — a snippet created without a nested source payload
// gets a synthesized placeholder SourceCode, but the schema allows the
// reference to be cleared (ON DELETE SET NULL) if the row vanishes through
// another path. Deleting the snippet itself also deletes the referenced
// SourceCode row; the foreign key points snippet → source, so that cascade is
// explicit application logic, not a schema rule.
type Snippet struct {
	ID           string    `json:"id"            db:"id"`
	UserID       string    `json:"-"             db:"user_id"`
	LanguageName string    `json:"language_name" db:"language_name"`
	Style        string    `json:"style"         db:"style"`
	Linenos      bool      `json:"linenos"       db:"linenos"`
	Highlighted  string    `json:"highlighted"   db:"highlighted"`
	SourceCodeID *string   `json:"-"             db:"source_code_id"`
	CreatedAt    time.Time `json:"created_at"    db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"    db:"updated_at"`

	// Tags is populated by the repository on reads; it is not a column.
	Tags []Tag `json:"tags" db:"-"`
}
