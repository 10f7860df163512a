package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starford/brewmint/internal/cid"
	"github.com/starford/brewmint/internal/models"
	"github.com/starford/brewmint/internal/storage"
)

// MetadataPattern matches metadata documents in the metadata directory.
const MetadataPattern = "*.json"

// Sync walks the metadata directory and brings the ledger up to date:
//   - new/changed records are parsed and upserted
//   - records removed from disk are deleted from the ledger
func Sync(db ItemLedger, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("", MetadataPattern)
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if _, err := RecordFile(db, m.Path, data, ""); err != nil {
			logger.Warn("sync: record failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: recorded", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteFile(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// RecordFile parses a metadata document and upserts it as the item stored
// in file. runID may be empty when the producing run is unknown.
func RecordFile(db ItemLedger, file string, data []byte, runID string) (models.Item, error) {
	var rec models.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.Item{}, fmt.Errorf("ledger: parse %s: %w", file, err)
	}
	metadataCID, err := cid.Compute(data)
	if err != nil {
		return models.Item{}, fmt.Errorf("ledger: identify %s: %w", file, err)
	}

	it := models.Item{
		ItemID:      rec.ItemID,
		Name:        rec.Name,
		File:        file,
		Checksum:    cid.Checksum(data),
		Description: rec.Description,
		Attributes:  rec.Attributes,
		MetadataCID: metadataCID.String(),
		RunID:       runID,
	}
	if id, err := cid.Parse(rec.Image); err == nil {
		it.ImageCID = id.String()
	}
	if err := db.UpsertItem(it); err != nil {
		return models.Item{}, err
	}
	return it, nil
}
