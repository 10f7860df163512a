package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/brewmint/internal/apperr"
)

// Collection is a collection created on a chain target. Ref is the address
// the client assigned to it (a Hedera topic id), empty when the collection
// id alone addresses it.
type Collection struct {
	Target     string    `json:"target"`
	Collection uint32    `json:"collection"`
	Handle     string    `json:"handle"`
	Ref        string    `json:"ref,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// RecordCollection stores c, replacing an earlier record for the same
// target and collection id.
func (db *DB) RecordCollection(c Collection) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := db.conn.Exec(`
		INSERT INTO collections (target, collection, handle, ref, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(target, collection) DO UPDATE SET
			handle     = excluded.handle,
			ref        = excluded.ref,
			created_at = excluded.created_at
	`, c.Target, c.Collection, c.Handle, c.Ref, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("ledger: record collection: %w", err)
	}
	return nil
}

// GetCollection returns the collection recorded for target.
func (db *DB) GetCollection(target string, collection uint32) (*Collection, error) {
	var c Collection
	err := db.conn.QueryRow(`
		SELECT target, collection, handle, ref, created_at
		FROM collections WHERE target = ? AND collection = ?
	`, target, collection).Scan(&c.Target, &c.Collection, &c.Handle, &c.Ref, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ledger: collection %d on %q: %w", collection, target, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: get collection: %w", err)
	}
	return &c, nil
}
