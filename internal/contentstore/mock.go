package contentstore

import (
	"context"
	"fmt"

	"github.com/starford/brewmint/internal/apperr"
	"github.com/starford/brewmint/internal/cid"
	"github.com/starford/brewmint/internal/storage"
)

// Mock computes identifiers locally without transmitting anything. When
// created with a blob directory it keeps a copy of every upload keyed by
// identifier so the gateway can serve it.
type Mock struct {
	blobs *storage.FS
}

// NewMock creates a mock store. An empty blobDir disables retention.
func NewMock(blobDir string) (*Mock, error) {
	if blobDir == "" {
		return &Mock{}, nil
	}
	if err := storage.Reset(blobDir, false); err != nil {
		return nil, err
	}
	blobs, err := storage.NewFS(blobDir)
	if err != nil {
		return nil, err
	}
	return &Mock{blobs: blobs}, nil
}

// UploadContent implements Store.
func (m *Mock) UploadContent(_ context.Context, data []byte) (cid.ID, error) {
	id, err := cid.Compute(data)
	if err != nil {
		return "", fmt.Errorf("contentstore: %w: %w", apperr.ErrContentUpload, err)
	}
	if m.blobs != nil {
		if err := m.blobs.Write(id.String(), data); err != nil {
			return "", fmt.Errorf("contentstore: keep blob: %w: %w", apperr.ErrContentUpload, err)
		}
	}
	return id, nil
}

// UploadFile implements Store.
func (m *Mock) UploadFile(ctx context.Context, path string) (cid.ID, error) {
	data, err := readFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperr.ErrContentUpload, err)
	}
	return m.UploadContent(ctx, data)
}

// Open returns a retained blob.
func (m *Mock) Open(id cid.ID) ([]byte, error) {
	if m.blobs == nil {
		return nil, apperr.ErrNotFound
	}
	data, err := m.blobs.Read(id.String())
	if err != nil {
		return nil, fmt.Errorf("contentstore: %s: %w", id, apperr.ErrNotFound)
	}
	return data, nil
}
