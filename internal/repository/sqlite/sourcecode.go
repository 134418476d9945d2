package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/snippet-hub/internal/apperror"
	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/repository"
)

// compile-time check that *DB implements repository.SourceCodeRepository
var _ repository.SourceCodeRepository = (*DB)(nil)

const sourceCodeColumns = `id, user_id, title, author, code, notes, url, status, rating, is_favorite, update_counter, created_at, modified_at`

func scanSourceCode(row interface{ Scan(...any) error }) (*model.SourceCode, error) {
	var sc model.SourceCode
	err := row.Scan(
		&sc.ID,
		&sc.UserID,
		&sc.Title,
		&sc.Author,
		&sc.Code,
		&sc.Notes,
		&sc.URL,
		&sc.Status,
		&sc.Rating,
		&sc.IsFavorite,
		&sc.UpdateCounter,
		&sc.CreatedAt,
		&sc.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

// CreateSourceCode inserts a new row. ID, CreatedAt and ModifiedAt are set
// here; UpdateCounter starts at 1 because an insert counts as the first save.
//
// The UNIQUE constraint on code does the global duplicate check — a second
// row with identical code text is rejected no matter which user owns it.
func (db *DB) CreateSourceCode(ctx context.Context, sc *model.SourceCode) error {
	now := time.Now()
	sc.ID = xid.New().String()
	sc.CreatedAt = now
	sc.ModifiedAt = now
	sc.UpdateCounter = 1

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO source_codes (`+sourceCodeColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.ID,
		sc.UserID,
		sc.Title,
		sc.Author,
		sc.Code,
		sc.Notes,
		sc.URL,
		sc.Status,
		sc.Rating,
		sc.IsFavorite,
		sc.UpdateCounter,
		sc.CreatedAt,
		sc.ModifiedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("code", "source code with this code already exists")
		}
		return fmt.Errorf("sqlite: inserting source code: %w", err)
	}

	return nil
}

// FindSourceCodeMatch looks for an owner's row matching the FULL field set —
// not just the code text. This is the get-or-create key: a payload that
// differs in any field produces a new row (which the code uniqueness check
// may then reject). Returns (nil, nil) when nothing matches.
func (db *DB) FindSourceCodeMatch(ctx context.Context, sc *model.SourceCode) (*model.SourceCode, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+sourceCodeColumns+` FROM source_codes
		 WHERE user_id = ? AND title = ? AND author = ? AND code = ? AND notes = ?
		   AND url = ? AND status = ? AND rating = ? AND is_favorite = ?
		 LIMIT 1`,
		sc.UserID,
		sc.Title,
		sc.Author,
		sc.Code,
		sc.Notes,
		sc.URL,
		sc.Status,
		sc.Rating,
		sc.IsFavorite,
	)

	found, err := scanSourceCode(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: matching source code: %w", err)
	}
	return found, nil
}

// GetSourceCodeByID retrieves one of the owner's source code rows.
func (db *DB) GetSourceCodeByID(ctx context.Context, userID, id string) (*model.SourceCode, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+sourceCodeColumns+` FROM source_codes WHERE id = ? AND user_id = ?`,
		id, userID,
	)

	sc, err := scanSourceCode(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("source code", id)
		}
		return nil, fmt.Errorf("sqlite: getting source code %s: %w", id, err)
	}
	return sc, nil
}

// ListSourceCodes returns the owner's rows, newest first.
func (db *DB) ListSourceCodes(ctx context.Context, userID string, opts repository.ListOptions) ([]model.SourceCode, error) {
	limit, offset := clampListOptions(opts)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+sourceCodeColumns+` FROM source_codes
		 WHERE user_id = ? ORDER BY id DESC LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing source codes: %w", err)
	}
	defer rows.Close()

	codes := make([]model.SourceCode, 0, limit)
	for rows.Next() {
		sc, err := scanSourceCode(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning source code row: %w", err)
		}
		codes = append(codes, *sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating source codes: %w", err)
	}

	return codes, nil
}

// UpdateSourceCode saves the row's content fields. Every save bumps
// update_counter and refreshes modified_at — that happens in the UPDATE
// itself so concurrent savers can't lose increments.
func (db *DB) UpdateSourceCode(ctx context.Context, sc *model.SourceCode) error {
	now := time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE source_codes
		 SET title = ?, author = ?, code = ?, notes = ?, url = ?, status = ?,
		     rating = ?, is_favorite = ?, update_counter = update_counter + 1, modified_at = ?
		 WHERE id = ? AND user_id = ?`,
		sc.Title,
		sc.Author,
		sc.Code,
		sc.Notes,
		sc.URL,
		sc.Status,
		sc.Rating,
		sc.IsFavorite,
		now,
		sc.ID,
		sc.UserID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("code", "source code with this code already exists")
		}
		return fmt.Errorf("sqlite: updating source code %s: %w", sc.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("source code", sc.ID)
	}

	sc.UpdateCounter++
	sc.ModifiedAt = now
	return nil
}

// TouchSourceCode re-saves a row without changing content. Get-or-create
// reuse still counts as a save: the counter bumps and modified_at refreshes.
func (db *DB) TouchSourceCode(ctx context.Context, sc *model.SourceCode) error {
	now := time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE source_codes SET update_counter = update_counter + 1, modified_at = ? WHERE id = ?`,
		now, sc.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: touching source code %s: %w", sc.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("source code", sc.ID)
	}

	sc.UpdateCounter++
	sc.ModifiedAt = now
	return nil
}

// DeleteSourceCode removes one of the owner's rows. Snippets referencing it
// keep existing with their source_code_id nulled by the FK.
func (db *DB) DeleteSourceCode(ctx context.Context, userID, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM source_codes WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting source code %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("source code", id)
	}

	return nil
}

// NextTitleNumber atomically increments and returns the owner's counter for
// the given scope. The single upsert statement is what makes two concurrent
// auto-titled creations impossible to number identically — unlike the
// row-count-plus-one scheme this replaces.
func (db *DB) NextTitleNumber(ctx context.Context, userID, scope string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO title_counters (user_id, scope, n) VALUES (?, ?, 1)
		 ON CONFLICT (user_id, scope) DO UPDATE SET n = n + 1
		 RETURNING n`,
		userID, scope,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: advancing %s title counter: %w", scope, err)
	}
	return n, nil
}
