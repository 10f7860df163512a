//go:build !sqlite_fts5

package ledger

import (
	"database/sql"
	"fmt"

	"github.com/starford/brewmint/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on the items table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _ int, _, _ string, _ []models.Attribute) error { return nil }

func ftsRelease(_ *sql.Tx, _ string, _ int) error { return nil }

// Search performs a LIKE match over name, description and attributes
// (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]models.Item, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`SELECT `+itemColumns+` FROM items
		WHERE name LIKE ? OR description LIKE ? OR attributes LIKE ?
		ORDER BY item_id LIMIT ?`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: search: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}
