//go:build sqlite_fts5

package ledger

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/brewmint/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS items_fts USING fts5(
			item_id UNINDEXED,
			name,
			description,
			attributes,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, itemID int, name, description string, attrs []models.Attribute) error {
	words := make([]string, 0, 2*len(attrs))
	for _, a := range attrs {
		words = append(words, a.TraitType, a.Value)
	}
	_, _ = tx.Exec(`DELETE FROM items_fts WHERE item_id = ?`, itemID)
	_, err := tx.Exec(`INSERT INTO items_fts (item_id, name, description, attributes) VALUES (?, ?, ?, ?)`,
		itemID, name, description, strings.Join(words, " "))
	if err != nil {
		return fmt.Errorf("ledger: upsert fts: %w", err)
	}
	return nil
}

// ftsRelease drops the index rows of items recorded for file, except keep.
func ftsRelease(tx *sql.Tx, file string, keep int) error {
	_, err := tx.Exec(`DELETE FROM items_fts WHERE item_id IN (
		SELECT item_id FROM items WHERE file = ? AND item_id != ?)`, file, keep)
	if err != nil {
		return fmt.Errorf("ledger: release fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 phrase search over name, description and
// attributes.
func (db *DB) Search(query string, limit int) ([]models.Item, error) {
	if limit <= 0 {
		limit = 20
	}
	phrase := `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
	rows, err := db.conn.Query(`SELECT `+itemColumns+` FROM items
		WHERE item_id IN (SELECT item_id FROM items_fts WHERE items_fts MATCH ? ORDER BY rank LIMIT ?)
		ORDER BY item_id`, phrase, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: search: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}
