package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/snippet-hub/internal/apperror"
	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/repository"
)

// compile-time check that *DB implements repository.TagRepository
var _ repository.TagRepository = (*DB)(nil)

// GetOrCreateTag finds the owner's tag by name, inserting it if absent.
//
// There is intentionally NO unique constraint on (user_id, name) — this
// find-then-insert is the only de-duplication, keyed exactly like the lookup
// the snippet composer performs. The index on (user_id, name) keeps the probe
// cheap.
func (db *DB) GetOrCreateTag(ctx context.Context, userID, name string) (*model.Tag, error) {
	var tag model.Tag
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, name FROM tags WHERE user_id = ? AND name = ? LIMIT 1`,
		userID, name,
	).Scan(&tag.ID, &tag.UserID, &tag.Name)

	if err == nil {
		return &tag, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("sqlite: looking up tag %q: %w", name, err)
	}

	tag = model.Tag{
		ID:     xid.New().String(),
		UserID: userID,
		Name:   name,
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO tags (id, user_id, name) VALUES (?, ?, ?)`,
		tag.ID, tag.UserID, tag.Name,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: inserting tag %q: %w", name, err)
	}

	return &tag, nil
}

// GetTagByID retrieves one of the owner's tags. Another user's tag comes back
// as not found.
func (db *DB) GetTagByID(ctx context.Context, userID, id string) (*model.Tag, error) {
	var tag model.Tag
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, name FROM tags WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(&tag.ID, &tag.UserID, &tag.Name)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("tag", id)
		}
		return nil, fmt.Errorf("sqlite: getting tag %s: %w", id, err)
	}

	return &tag, nil
}

// ListTags returns the owner's tags newest first (xid primary keys sort by
// creation time). With assignedOnly, only tags linked to at least one of the
// owner's snippets are returned; DISTINCT collapses tags attached to several
// snippets into one row.
func (db *DB) ListTags(ctx context.Context, userID string, assignedOnly bool, opts repository.ListOptions) ([]model.Tag, error) {
	limit, offset := clampListOptions(opts)

	query := `SELECT id, user_id, name FROM tags
		 WHERE user_id = ? ORDER BY id DESC LIMIT ? OFFSET ?`
	if assignedOnly {
		query = `SELECT DISTINCT t.id, t.user_id, t.name
			 FROM tags t
			 JOIN snippet_tags st ON st.tag_id = t.id
			 JOIN snippets s ON s.id = st.snippet_id
			 WHERE t.user_id = ? AND s.user_id = t.user_id
			 ORDER BY t.id DESC LIMIT ? OFFSET ?`
	}

	rows, err := db.conn.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags: %w", err)
	}
	defer rows.Close()

	tags := make([]model.Tag, 0, limit)
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tags: %w", err)
	}

	return tags, nil
}

// UpdateTag renames one of the owner's tags.
func (db *DB) UpdateTag(ctx context.Context, userID string, tag *model.Tag) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE tags SET name = ? WHERE id = ? AND user_id = ?`,
		tag.Name, tag.ID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating tag %s: %w", tag.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("tag", tag.ID)
	}

	return nil
}

// DeleteTag removes one of the owner's tags. Links in snippet_tags go with it
// via the FK cascade.
func (db *DB) DeleteTag(ctx context.Context, userID, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM tags WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting tag %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("tag", id)
	}

	return nil
}
