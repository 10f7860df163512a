package ledger

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/brewmint/internal/apperr"
	"github.com/starford/brewmint/internal/models"
)

// List filters accepted by ListItems.
const (
	FilterAll       = ""
	FilterSubmitted = "submitted"
	FilterPending   = "pending"
)

const itemColumns = `item_id, name, file, checksum, description, attributes, metadata_cid,
	image_cid, run_id, tx_handle, submitted_checksum, submitted_target, submitted_collection,
	submitted_at, updated_at`

// UpsertItem inserts or replaces the generated fields of an item. Submission
// state is preserved, and empty identifiers never overwrite known ones.
func (db *DB) UpsertItem(it models.Item) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	attrs := it.Attributes
	if attrs == nil {
		attrs = []models.Attribute{}
	}
	attrsJSON, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("ledger: encode attributes: %w", err)
	}
	updated := it.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	// A file belongs to exactly one item.
	if err := ftsRelease(tx, it.File, it.ItemID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM items WHERE file = ? AND item_id != ?`, it.File, it.ItemID); err != nil {
		return fmt.Errorf("ledger: release file: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO items (item_id, name, file, checksum, description, attributes,
			metadata_cid, image_cid, run_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			name         = excluded.name,
			file         = excluded.file,
			checksum     = excluded.checksum,
			description  = excluded.description,
			attributes   = excluded.attributes,
			metadata_cid = CASE WHEN excluded.metadata_cid = '' THEN items.metadata_cid ELSE excluded.metadata_cid END,
			image_cid    = CASE WHEN excluded.image_cid = '' THEN items.image_cid ELSE excluded.image_cid END,
			run_id       = CASE WHEN excluded.run_id = '' THEN items.run_id ELSE excluded.run_id END,
			updated_at   = excluded.updated_at
	`, it.ItemID, it.Name, it.File, it.Checksum, it.Description, string(attrsJSON),
		it.MetadataCID, it.ImageCID, it.RunID, updated)
	if err != nil {
		return fmt.Errorf("ledger: upsert item: %w", err)
	}
	if err := ftsUpsert(tx, it.ItemID, it.Name, it.Description, attrs); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteFile removes the item recorded for file, if any.
func (db *DB) DeleteFile(file string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := ftsRelease(tx, file, -1); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM items WHERE file = ?`, file); err != nil {
		return fmt.Errorf("ledger: delete item: %w", err)
	}
	return tx.Commit()
}

// GetItem returns the item with the given id.
func (db *DB) GetItem(itemID int) (*models.Item, error) {
	row := db.conn.QueryRow(`SELECT `+itemColumns+` FROM items WHERE item_id = ?`, itemID)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ledger: item %d: %w", itemID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: get item: %w", err)
	}
	return it, nil
}

// GetItemByFile returns the item recorded for a metadata file.
func (db *DB) GetItemByFile(file string) (*models.Item, error) {
	row := db.conn.QueryRow(`SELECT `+itemColumns+` FROM items WHERE file = ?`, file)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ledger: file %s: %w", file, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: get item by file: %w", err)
	}
	return it, nil
}

// ListItems returns a page of items ordered by id, plus the total count
// matching filter.
func (db *DB) ListItems(limit, offset int, filter string) ([]models.Item, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var where string
	switch filter {
	case FilterAll:
	case FilterSubmitted:
		where = ` WHERE submitted_at IS NOT NULL AND submitted_checksum = checksum`
	case FilterPending:
		where = ` WHERE submitted_at IS NULL OR submitted_checksum != checksum`
	default:
		return nil, 0, fmt.Errorf("ledger: unknown filter %q", filter)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM items` + where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ledger: count items: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+itemColumns+` FROM items`+where+` ORDER BY item_id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ledger: list items: %w", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Submission describes one accepted chain submission of an item.
type Submission struct {
	// Target names the chain the calls went to, e.g. "journal" or
	// "hedera:testnet:0.0.5678".
	Target      string
	Collection  uint32
	Checksum    string
	MetadataCID string
	Handle      string
}

// MarkSubmitted records a successful submission of the item.
func (db *DB) MarkSubmitted(itemID int, sub Submission) error {
	res, err := db.conn.Exec(`
		UPDATE items SET
			submitted_checksum   = ?,
			submitted_target     = ?,
			submitted_collection = ?,
			metadata_cid         = CASE WHEN ? = '' THEN metadata_cid ELSE ? END,
			tx_handle            = ?,
			submitted_at         = ?
		WHERE item_id = ?
	`, sub.Checksum, sub.Target, sub.Collection, sub.MetadataCID, sub.MetadataCID, sub.Handle,
		time.Now().UTC(), itemID)
	if err != nil {
		return fmt.Errorf("ledger: mark submitted: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ledger: item %d: %w", itemID, apperr.ErrNotFound)
	}
	return nil
}

// AllChecksums returns file → checksum for every recorded item.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT file, checksum FROM items`)
	if err != nil {
		return nil, fmt.Errorf("ledger: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var file, cs string
		if err := rows.Scan(&file, &cs); err != nil {
			return nil, err
		}
		out[file] = cs
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*models.Item, error) {
	var (
		it          models.Item
		attrsJSON   string
		submittedAt sql.NullTime
	)
	err := s.Scan(&it.ItemID, &it.Name, &it.File, &it.Checksum, &it.Description, &attrsJSON,
		&it.MetadataCID, &it.ImageCID, &it.RunID, &it.TxHandle, &it.SubmittedChecksum,
		&it.SubmittedTarget, &it.SubmittedCollection, &submittedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(attrsJSON), &it.Attributes); err != nil {
		return nil, fmt.Errorf("ledger: decode attributes of item %d: %w", it.ItemID, err)
	}
	if submittedAt.Valid {
		t := submittedAt.Time
		it.SubmittedAt = &t
	}
	return &it, nil
}

func scanItems(rows *sql.Rows) ([]models.Item, error) {
	var out []models.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}
