// Package sqlite implements the repository interfaces on an embedded
// SQLite database via the pure-Go driver modernc.org/sqlite.
//
// A single file on disk (or ":memory:" in tests) holds users and the
// execution audit trail. WAL mode keeps reads concurrent with the
// writes every /api/execute request produces.
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements the repository
// interfaces against it.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for throwaway databases in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// sql.Open is lazy; Ping forces a real connection so a bad path
	// surfaces here instead of on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed while an execution record is being written.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite; executions reference users.
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

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates or updates the schema. All statements are idempotent,
// so migrate is safe to run on every startup.
func (db *DB) migrate() error {
	// Users carry either a GitHub identity (github_id != 0) or a local
	// email/password identity (password_hash != ''), or both once linked.
	// Uniqueness is enforced only on real values: partial indexes skip
	// the zero github_id and empty email that mark an absent identity.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			github_id  INTEGER NOT NULL DEFAULT 0,
			login      TEXT NOT NULL,
			email      TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_github_id
			ON users(github_id) WHERE github_id != 0;
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email
			ON users(email) WHERE email != '';
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// password_hash arrived with local accounts; ALTER TABLE errors if
	// the column exists, so the helper checks pragma_table_info first.
	if err := db.addColumnIfNotExists("users", "password_hash",
		"TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding password_hash to users: %w", err)
	}

	// The execution audit trail: one row per run, append-only. Code is
	// truncated by the service before it gets here, so rows stay small.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS executions (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES users(id),
			language     TEXT NOT NULL,
			code_snippet TEXT NOT NULL DEFAULT '',
			outcome      TEXT NOT NULL,
			success      INTEGER NOT NULL DEFAULT 0,
			exit_code    INTEGER NOT NULL DEFAULT -1,
			elapsed_ms   INTEGER NOT NULL DEFAULT 0,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_executions_user_created
			ON executions(user_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating executions table: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already
// exist, making ALTER TABLE migrations safe to run multiple times.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}
