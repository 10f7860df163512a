// Package testutil provides shared test helpers for trait trees, output
// directories and ledgers.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/starford/brewmint/internal/ledger"
	"github.com/starford/brewmint/internal/storage"
)

// LayerSize is the edge length of the PNGs written by TraitTree.
const LayerSize = 4

// TestLedger creates a temporary SQLite ledger that is automatically cleaned up.
func TestLedger(t *testing.T) *ledger.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "brewmint-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := ledger.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDir creates a temporary directory with a storage.Provider.
func TestDir(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TraitTree writes one directory per category with a small opaque PNG for
// every candidate file name, and returns the root. Non-PNG names are written
// as plain text.
func TraitTree(t *testing.T, categories map[string][]string) string {
	t.Helper()
	root := t.TempDir()

	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)

	for ci, name := range names {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		for fi, file := range categories[name] {
			data := []byte(file)
			if filepath.Ext(file) == ".png" {
				data = solidPNG(t, color.NRGBA{R: uint8(40 * ci), G: uint8(40 * fi), B: 128, A: 255})
			}
			if err := os.WriteFile(filepath.Join(dir, file), data, 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
	return root
}

func solidPNG(t *testing.T, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, LayerSize, LayerSize))
	for y := range LayerSize {
		for x := range LayerSize {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
