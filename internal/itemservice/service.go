// Package itemservice serves read access to generated items, their metadata
// documents and retained content.
package itemservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/starford/brewmint/internal/apperr"
	"github.com/starford/brewmint/internal/cid"
	"github.com/starford/brewmint/internal/ledger"
	"github.com/starford/brewmint/internal/models"
	"github.com/starford/brewmint/internal/storage"
)

// BlobSource returns content retained under its identifier.
type BlobSource interface {
	Open(id cid.ID) ([]byte, error)
}

// ItemDetail is the full representation of an item.
type ItemDetail struct {
	Item   models.Item   `json:"item"`
	Record models.Record `json:"record"`
}

// Content is a retained blob with its media type.
type Content struct {
	ID          cid.ID
	Data        []byte
	ContentType string
}

// Service coordinates the ledger, the metadata directory and the blob store.
type Service struct {
	records storage.Provider
	db      ledger.ItemLedger
	blobs   BlobSource
}

// NewService creates a new item service. blobs may be nil when no content is
// retained locally.
func NewService(records storage.Provider, db ledger.ItemLedger, blobs BlobSource) *Service {
	return &Service{records: records, db: db, blobs: blobs}
}

// ListItems returns a page of items.
func (s *Service) ListItems(_ context.Context, limit, offset int, filter string) ([]models.Item, int, error) {
	items, total, err := s.db.ListItems(limit, offset, filter)
	if err != nil {
		return nil, 0, err
	}
	return nonNilSlice(items), total, nil
}

// GetItem returns an item together with its metadata document.
func (s *Service) GetItem(_ context.Context, itemID int) (*ItemDetail, error) {
	it, err := s.db.GetItem(itemID)
	if err != nil {
		return nil, err
	}
	data, err := s.records.Read(it.File)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	var rec models.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("itemservice: parse %s: %w", it.File, err)
	}
	return &ItemDetail{Item: *it, Record: rec}, nil
}

// Search delegates to the ledger.
func (s *Service) Search(_ context.Context, query string, limit int) ([]models.Item, error) {
	items, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(items), nil
}

// Content returns a retained blob. Unknown or malformed identifiers and a
// missing blob store all report apperr.ErrNotFound.
func (s *Service) Content(_ context.Context, raw string) (*Content, error) {
	id, err := cid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("itemservice: %w: %w", apperr.ErrNotFound, err)
	}
	if s.blobs == nil {
		return nil, apperr.ErrNotFound
	}
	data, err := s.blobs.Open(id)
	if err != nil {
		return nil, err
	}

	contentType := http.DetectContentType(data)
	if codec, err := id.Codec(); err == nil && codec == cid.CodecJSON {
		contentType = "application/json"
	}
	return &Content{ID: id, Data: data, ContentType: contentType}, nil
}

// Ready reports whether the ledger answers queries.
func (s *Service) Ready(_ context.Context) error {
	_, _, err := s.db.ListItems(1, 0, ledger.FilterAll)
	return err
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
