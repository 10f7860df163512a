package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one generation run.
type Run struct {
	ID         string     `json:"id"`
	Requested  int        `json:"requested"`
	Generated  int        `json:"generated"`
	Seed       uint64     `json:"seed"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// StartRun records the start of a generation run and returns its id.
func (db *DB) StartRun(requested int, seed uint64) (string, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(`INSERT INTO runs (id, requested, seed, started_at) VALUES (?, ?, ?, ?)`,
		id, requested, int64(seed), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("ledger: start run: %w", err)
	}
	return id, nil
}

// FinishRun records how many items a run produced.
func (db *DB) FinishRun(runID string, generated int) error {
	_, err := db.conn.Exec(`UPDATE runs SET generated = ?, finished_at = ? WHERE id = ?`,
		generated, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("ledger: finish run: %w", err)
	}
	return nil
}

// LatestRun returns the most recently started run, or nil if none exist.
func (db *DB) LatestRun() (*Run, error) {
	var (
		r        Run
		seed     int64
		finished sql.NullTime
	)
	err := db.conn.QueryRow(`SELECT id, requested, generated, seed, started_at, finished_at
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`).
		Scan(&r.ID, &r.Requested, &r.Generated, &seed, &r.StartedAt, &finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: latest run: %w", err)
	}
	r.Seed = uint64(seed)
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}
