package model

import "time"

// SourceCode status values. Two states, no transition rules — any owner may
// flip freely via update.
const (
	StatusChecked   = "C"
	StatusUnchecked = "U"
)

// Rating bounds for SourceCode.Rating.
const (
	MinRating     = 1
	MaxRating     = 5
	DefaultRating = 3
)

// SourceCode stores raw code text plus its bibliographic and status metadata,
// independent of any rendering. Snippets reference it one-to-one.
//
// INVARIANTS:
//   - Code is non-empty and globally unique (across ALL users, enforced by a
//     UNIQUE constraint — a second row with identical code text is rejected).
//   - UpdateCounter increments on every save; ModifiedAt refreshes on every
//     save; CreatedAt is set only on the first save.
//   - A blank Title is auto-filled at creation time ("title {n}" from the
//     owner's sequence counter).
type SourceCode struct {
	ID            string    `json:"id"            db:"id"`
	UserID        string    `json:"-"             db:"user_id"`
	Title         string    `json:"title"         db:"title"`
	Author        string    `json:"author"        db:"author"`
	Code          string    `json:"code"          db:"code"`
	Notes         string    `json:"notes"         db:"notes"`
	URL           string    `json:"url"           db:"url"`
	Status        string    `json:"status"        db:"status"` // "C" or "U"
	Rating        int       `json:"rating"        db:"rating"` // 1..5
	IsFavorite    bool      `json:"is_favorite"   db:"is_favorite"`
	UpdateCounter int       `json:"count_updated" db:"update_counter"`
	CreatedAt     time.Time `json:"created"       db:"created_at"`
	ModifiedAt    time.Time `json:"modified"      db:"modified_at"`
}

// ValidStatus reports whether s is one of the two allowed status codes.
func ValidStatus(s string) bool {
	return s == StatusChecked || s == StatusUnchecked
}

// ValidRating reports whether r is within the 1..5 rating scale.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
