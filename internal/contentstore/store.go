// Package contentstore uploads content to a content-addressed store.
package contentstore

import (
	"context"
	"fmt"
	"os"

	"github.com/starford/brewmint/internal/cid"
)

// Store modes.
const (
	ModeMock = "mock"
	ModeHTTP = "http"
)

// Store is the capability the generation and submission drivers need from a
// content-addressed store.
type Store interface {
	// UploadFile uploads the file at path and returns its identifier.
	UploadFile(ctx context.Context, path string) (cid.ID, error)
	// UploadContent uploads data and returns its identifier.
	UploadContent(ctx context.Context, data []byte) (cid.ID, error)
}

// New returns the store for mode. apiURL is used by the HTTP store, blobDir
// by the mock store (empty disables retention).
func New(mode, apiURL, blobDir string) (Store, error) {
	switch mode {
	case ModeMock, "":
		return NewMock(blobDir)
	case ModeHTTP:
		return NewHTTP(apiURL, nil)
	default:
		return nil, fmt.Errorf("contentstore: unknown mode %q", mode)
	}
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("contentstore: read %s: %w", path, err)
	}
	return data, nil
}
