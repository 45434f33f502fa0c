// Package sqlite implements repository.ScriptRepository on top of
// modernc.org/sqlite (pure Go, no CGo). The database is a single file, or
// ":memory:" for tests.
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps the sql.DB pool and carries the repository methods.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath, applies pragmas, and runs
// migrations. SQLite performs best with a single write connection; WAL mode
// keeps readers concurrent with the writer.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// modernc.org/sqlite takes pragmas as SQL statements, not DSN params.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: exec %q: %w", p, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Callers should defer this right after New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps this idempotent.
//
// characters and lines hold JSON arrays; title is nullable (the service
// writes the "Untitled" sentinel, but the storage model permits NULL).
// Timestamps are declared TEXT, not DATETIME: the driver converts DATETIME
// columns to time.Time on read, which would bypass the fixed-width layout
// the ORDER BY clauses depend on. TEXT hands back the stored string as-is.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS scripts (
			id         TEXT PRIMARY KEY,
			title      TEXT,
			characters TEXT NOT NULL DEFAULT '[]',
			lines      TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_scripts_created_at ON scripts(created_at);
		CREATE INDEX IF NOT EXISTS idx_scripts_title ON scripts(title COLLATE NOCASE);
	`)
	if err != nil {
		return fmt.Errorf("creating scripts table: %w", err)
	}
	return nil
}
