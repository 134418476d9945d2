package model

// Tag is a user-scoped label attachable to snippets (many-to-many).
//
// There is deliberately no unique constraint on (user_id, name): the
// repository's get-or-create is what keeps names de-duplicated per owner,
// matching the lookup key used when tags arrive inside a snippet payload.
type Tag struct {
	ID     string `json:"id"   db:"id"`
	UserID string `json:"-"    db:"user_id"`
	Name   string `json:"name" db:"name"`
}
