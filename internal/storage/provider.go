// Package storage defines the output directory abstraction used for
// metadata documents and rendered images.
package storage

import "github.com/starford/brewmint/internal/models"

// Provider is the interface for output file operations.
type Provider interface {
	// Root returns the absolute directory the provider is rooted at.
	Root() string
	// List returns metadata for every file under dir whose base name matches pattern.
	List(dir, pattern string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
}
