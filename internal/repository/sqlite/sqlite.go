// Package sqlite implements the repository interfaces on SQLite.
//
// WHY modernc.org/sqlite?
// It is a pure-Go translation of the SQLite C sources — no CGo, no C
// compiler, cross-compiles anywhere Go does. The driver registers itself as
// "sqlite" with database/sql via the blank import below.
//
// The connection is opened in WAL mode so reads proceed concurrently with a
// writer, and foreign keys are switched on (SQLite defaults them off) because
// the schema relies on ON DELETE CASCADE from users and the snippet_tags join
// table.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements every repository interface
// (user, tag, source code, snippet). One type for all of them keeps
// cross-entity operations — like the snippet delete that also removes its
// source code row — inside a single transaction on a single pool.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Force an actual connection now — a bad path surfaces here instead of
	// on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Defer it wherever New() is called.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it idempotent.
//
// Schema notes:
//   - users.github_id is nullable UNIQUE: SQLite ignores NULLs in unique
//     indexes, so password-only accounts don't collide.
//   - source_codes.code is UNIQUE across the WHOLE table, not per user —
//     identical code text is rejected even for different owners.
//   - snippets.source_code_id is ON DELETE SET NULL: the snippet→source
//     cascade on snippet deletion is application logic (the FK points the
//     other way), but a source row vanishing independently must not strand
//     the snippet.
//   - title_counters holds the per-owner auto-title sequences; incrementing
//     a row is atomic, which is what fixes the count+1 numbering race.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			name          TEXT NOT NULL DEFAULT '',
			is_active     INTEGER NOT NULL DEFAULT 1,
			is_staff      INTEGER NOT NULL DEFAULT 0,
			github_id     INTEGER UNIQUE,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS tags (
			id      TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name    TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_tags_user_name ON tags(user_id, name);

		CREATE TABLE IF NOT EXISTS source_codes (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title          TEXT NOT NULL DEFAULT '',
			author         TEXT NOT NULL DEFAULT '',
			code           TEXT NOT NULL UNIQUE,
			notes          TEXT NOT NULL DEFAULT '',
			url            TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL DEFAULT 'U',
			rating         INTEGER NOT NULL DEFAULT 3,
			is_favorite    INTEGER NOT NULL DEFAULT 0,
			update_counter INTEGER NOT NULL DEFAULT 0,
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			modified_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_source_codes_user_id ON source_codes(user_id);

		CREATE TABLE IF NOT EXISTS snippets (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			language_name  TEXT NOT NULL DEFAULT 'python',
			style          TEXT NOT NULL DEFAULT 'friendly',
			linenos        INTEGER NOT NULL DEFAULT 0,
			highlighted    TEXT NOT NULL DEFAULT '',
			source_code_id TEXT REFERENCES source_codes(id) ON DELETE SET NULL,
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_snippets_user_id ON snippets(user_id);
		CREATE INDEX IF NOT EXISTS idx_snippets_source_code_id ON snippets(source_code_id);

		CREATE TABLE IF NOT EXISTS snippet_tags (
			snippet_id TEXT NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
			tag_id     TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
			PRIMARY KEY (snippet_id, tag_id)
		);

		CREATE TABLE IF NOT EXISTS title_counters (
			user_id TEXT NOT NULL,
			scope   TEXT NOT NULL,
			n       INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, scope)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// modernc.org/sqlite surfaces SQLITE_CONSTRAINT_UNIQUE (2067) with this
// message; matching the text avoids importing the driver's error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
