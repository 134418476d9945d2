package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/snippet-hub/internal/apperror"
	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/repository"
)

// compile-time check that *DB implements repository.SnippetRepository
var _ repository.SnippetRepository = (*DB)(nil)

const snippetColumns = `id, user_id, language_name, style, linenos, highlighted, source_code_id, created_at, updated_at`

func scanSnippet(row interface{ Scan(...any) error }) (*model.Snippet, error) {
	var s model.Snippet
	var sourceCodeID sql.NullString
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.LanguageName,
		&s.Style,
		&s.Linenos,
		&s.Highlighted,
		&sourceCodeID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if sourceCodeID.Valid {
		s.SourceCodeID = &sourceCodeID.String
	}
	return &s, nil
}

// CreateSnippet inserts a new snippet. ID and timestamps are generated here;
// Highlighted arrives already computed by the service.
func (db *DB) CreateSnippet(ctx context.Context, snippet *model.Snippet) error {
	now := time.Now()
	snippet.ID = xid.New().String()
	snippet.CreatedAt = now
	snippet.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO snippets (`+snippetColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snippet.ID,
		snippet.UserID,
		snippet.LanguageName,
		snippet.Style,
		snippet.Linenos,
		snippet.Highlighted,
		snippet.SourceCodeID,
		snippet.CreatedAt,
		snippet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting snippet: %w", err)
	}

	return nil
}

// GetSnippetByID retrieves one of the owner's snippets with Tags populated.
func (db *DB) GetSnippetByID(ctx context.Context, userID, id string) (*model.Snippet, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+snippetColumns+` FROM snippets WHERE id = ? AND user_id = ?`,
		id, userID,
	)

	s, err := scanSnippet(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}

	if s.Tags, err = db.snippetTags(ctx, s.ID); err != nil {
		return nil, err
	}
	return s, nil
}

// ListSnippets returns the owner's snippets newest first. A non-empty tagIDs
// restricts the result to snippets carrying ANY of the given tags (OR match).
func (db *DB) ListSnippets(ctx context.Context, userID string, tagIDs []string, opts repository.ListOptions) ([]model.Snippet, error) {
	limit, offset := clampListOptions(opts)

	query := `SELECT ` + snippetColumns + ` FROM snippets WHERE user_id = ?`
	args := []any{userID}

	if len(tagIDs) > 0 {
		// One placeholder per tag ID; IN does the OR-matching.
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(tagIDs)), ", ")
		query += ` AND id IN (SELECT snippet_id FROM snippet_tags WHERE tag_id IN (` + placeholders + `))`
		for _, tagID := range tagIDs {
			args = append(args, tagID)
		}
	}

	query += ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets: %w", err)
	}
	defer rows.Close()

	snippets := make([]model.Snippet, 0, limit)
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		snippets = append(snippets, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}

	for i := range snippets {
		if snippets[i].Tags, err = db.snippetTags(ctx, snippets[i].ID); err != nil {
			return nil, err
		}
	}

	return snippets, nil
}

// UpdateSnippet saves the snippet's mutable fields. The owner cannot change;
// user_id participates in the WHERE clause, never the SET list.
func (db *DB) UpdateSnippet(ctx context.Context, snippet *model.Snippet) error {
	snippet.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets
		 SET language_name = ?, style = ?, linenos = ?, highlighted = ?, source_code_id = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		snippet.LanguageName,
		snippet.Style,
		snippet.Linenos,
		snippet.Highlighted,
		snippet.SourceCodeID,
		snippet.UpdatedAt,
		snippet.ID,
		snippet.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %s: %w", snippet.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", snippet.ID)
	}

	return nil
}

// DeleteSnippet removes the snippet and its referenced source code row in a
// single transaction, so a failure partway never leaves a snippet pointing at
// a deleted source. The source row having already vanished through another
// path is fine — the snippet still goes.
func (db *DB) DeleteSnippet(ctx context.Context, userID, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	var sourceCodeID sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT source_code_id FROM snippets WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(&sourceCodeID)
	if err != nil {
		if err == sql.ErrNoRows {
			return apperror.NotFound("snippet", id)
		}
		return fmt.Errorf("sqlite: looking up snippet %s: %w", id, err)
	}

	if sourceCodeID.Valid {
		// No rows-affected check: a missing source row is not an error here.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM source_codes WHERE id = ?`, sourceCodeID.String,
		); err != nil {
			return fmt.Errorf("sqlite: deleting source code %s: %w", sourceCodeID.String, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snippets WHERE id = ?`, id,
	); err != nil {
		return fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing snippet delete: %w", err)
	}
	return nil
}

// AttachTag links a tag to a snippet. The composite primary key on
// snippet_tags plus INSERT OR IGNORE makes a second attach a no-op.
func (db *DB) AttachTag(ctx context.Context, snippetID, tagID string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO snippet_tags (snippet_id, tag_id) VALUES (?, ?)`,
		snippetID, tagID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: attaching tag %s to snippet %s: %w", tagID, snippetID, err)
	}
	return nil
}

// ClearSnippetTags unlinks every tag from the snippet (the tags themselves
// survive).
func (db *DB) ClearSnippetTags(ctx context.Context, snippetID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM snippet_tags WHERE snippet_id = ?`, snippetID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: clearing tags for snippet %s: %w", snippetID, err)
	}
	return nil
}

// GetSnippetIDBySource returns the snippet referencing the given source code
// row, or "" when none does. Used by the brief source-code listing.
func (db *DB) GetSnippetIDBySource(ctx context.Context, sourceCodeID string) (string, error) {
	var id string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM snippets WHERE source_code_id = ? LIMIT 1`, sourceCodeID,
	).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("sqlite: looking up snippet for source %s: %w", sourceCodeID, err)
	}
	return id, nil
}

// snippetTags loads the tags attached to a snippet, oldest attachment first.
func (db *DB) snippetTags(ctx context.Context, snippetID string) ([]model.Tag, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT t.id, t.user_id, t.name
		 FROM tags t
		 JOIN snippet_tags st ON st.tag_id = t.id
		 WHERE st.snippet_id = ?
		 ORDER BY t.id`,
		snippetID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading tags for snippet %s: %w", snippetID, err)
	}
	defer rows.Close()

	tags := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippet tags: %w", err)
	}

	return tags, nil
}
