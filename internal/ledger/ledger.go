package ledger

import (
	"context"

	"github.com/starford/brewmint/internal/chain"
	"github.com/starford/brewmint/internal/models"
)

// ItemLedger defines the item bookkeeping operations used by the drivers
// and read surfaces. Consumers depend on this interface rather than *DB.
type ItemLedger interface {
	UpsertItem(it models.Item) error
	DeleteFile(file string) error
	GetItem(itemID int) (*models.Item, error)
	GetItemByFile(file string) (*models.Item, error)
	ListItems(limit, offset int, filter string) ([]models.Item, int, error)
	Search(query string, limit int) ([]models.Item, error)
	MarkSubmitted(itemID int, sub Submission) error
	AllChecksums() (map[string]string, error)
	RecordCollection(c Collection) error
	GetCollection(target string, collection uint32) (*Collection, error)
	StartRun(requested int, seed uint64) (string, error)
	FinishRun(runID string, generated int) error
	AppendJournal(ctx context.Context, entry chain.JournalEntry) (int64, error)
	Journal(afterSeq int64, limit int) ([]chain.JournalEntry, error)
	Close() error
}

// Verify *DB satisfies ItemLedger and chain.Recorder at compile time.
var (
	_ ItemLedger     = (*DB)(nil)
	_ chain.Recorder = (*DB)(nil)
)
