// Package ledger provides the SQLite-backed record of generated items,
// generation runs and signed journal entries.
package ledger

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS items (
	item_id              INTEGER PRIMARY KEY,
	name                 TEXT NOT NULL DEFAULT '',
	file                 TEXT NOT NULL UNIQUE,
	checksum             TEXT NOT NULL DEFAULT '',
	description          TEXT NOT NULL DEFAULT '',
	attributes           TEXT NOT NULL DEFAULT '[]',
	metadata_cid         TEXT NOT NULL DEFAULT '',
	image_cid            TEXT NOT NULL DEFAULT '',
	run_id               TEXT NOT NULL DEFAULT '',
	tx_handle            TEXT NOT NULL DEFAULT '',
	submitted_checksum   TEXT NOT NULL DEFAULT '',
	submitted_target     TEXT NOT NULL DEFAULT '',
	submitted_collection INTEGER NOT NULL DEFAULT 0,
	submitted_at         DATETIME,
	updated_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS collections (
	target      TEXT NOT NULL,
	collection  INTEGER NOT NULL,
	handle      TEXT NOT NULL DEFAULT '',
	ref         TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL,
	PRIMARY KEY (target, collection)
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	requested   INTEGER NOT NULL,
	generated   INTEGER NOT NULL DEFAULT 0,
	seed        INTEGER NOT NULL DEFAULT 0,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS journal (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	hash        TEXT NOT NULL,
	op          TEXT NOT NULL,
	collection  INTEGER NOT NULL,
	item_id     INTEGER NOT NULL,
	payload     BLOB NOT NULL,
	signature   TEXT NOT NULL,
	public_key  TEXT NOT NULL,
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_run ON items(run_id);
CREATE INDEX IF NOT EXISTS idx_journal_item ON journal(collection, item_id);
`

// columnMigrations add columns introduced after the first schema version.
// Re-running them on an up-to-date database fails with "duplicate column",
// which is ignored.
var columnMigrations = []string{
	`ALTER TABLE items ADD COLUMN submitted_target TEXT NOT NULL DEFAULT ''`,
	`ALTER TABLE items ADD COLUMN submitted_collection INTEGER NOT NULL DEFAULT 0`,
}

func migrate(conn *sql.DB) error {
	for _, stmt := range columnMigrations {
		if _, err := conn.Exec(stmt); err != nil && !strings.Contains(err.Error(), "duplicate column") {
			return fmt.Errorf("ledger: migrate: %w", err)
		}
	}
	return nil
}

// DB wraps a sql.DB with ledger-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: apply schema: %w", err)
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: init fts: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
