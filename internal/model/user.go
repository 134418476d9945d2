// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account. Every other entity (tags, source codes,
// snippets) hangs off a user via a non-null foreign key, and deleting a user
// cascades to everything it owns.
//
// Two ways in:
//   - email + password registration (PasswordHash holds the bcrypt hash)
//   - GitHub OAuth (GitHubID is set; PasswordHash stays empty)
//
// WHY GitHubID *int64?
// Password-registered users have no GitHub identity at all, so the column is
// nullable. A pointer maps cleanly to SQL NULL, and SQLite's UNIQUE constraint
// ignores NULLs — so any number of password users can coexist while each
// GitHub account still maps to exactly one row.
type User struct {
	ID           string    `json:"id"         db:"id"`
	Email        string    `json:"email"      db:"email"` // unique, domain part lower-cased
	PasswordHash string    `json:"-"          db:"password_hash"`
	Name         string    `json:"name"       db:"name"`
	IsActive     bool      `json:"is_active"  db:"is_active"`
	IsStaff      bool      `json:"is_staff"   db:"is_staff"`
	GitHubID     *int64    `json:"-"          db:"github_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
