package ledger

import (
	"context"
	"fmt"

	"github.com/starford/brewmint/internal/chain"
)

// AppendJournal implements chain.Recorder.
func (db *DB) AppendJournal(ctx context.Context, e chain.JournalEntry) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO journal (hash, op, collection, item_id, payload, signature, public_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Hash, e.Op, e.Collection, e.ItemID, e.Payload, e.Signature, e.PublicKey, e.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("ledger: append journal: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ledger: journal seq: %w", err)
	}
	return seq, nil
}

// Journal returns up to limit entries with a sequence greater than afterSeq,
// in sequence order.
func (db *DB) Journal(afterSeq int64, limit int) ([]chain.JournalEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.conn.Query(`
		SELECT seq, hash, op, collection, item_id, payload, signature, public_key, created_at
		FROM journal WHERE seq > ? ORDER BY seq LIMIT ?
	`, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: journal: %w", err)
	}
	defer rows.Close()

	var out []chain.JournalEntry
	for rows.Next() {
		var e chain.JournalEntry
		if err := rows.Scan(&e.Seq, &e.Hash, &e.Op, &e.Collection, &e.ItemID, &e.Payload,
			&e.Signature, &e.PublicKey, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
