// Package traits loads trait categories from a directory tree: one
// subdirectory per category, one candidate image per matching file.
package traits

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/starford/brewmint/internal/models"
)

// DefaultPattern selects the candidate images of a category.
const DefaultPattern = "*.png"

var ordinalRe = regexp.MustCompile(`^\d+-`)

// TraitType strips a leading ordinal prefix ("00-", "12-") from a category name.
func TraitType(category string) string {
	return ordinalRe.ReplaceAllString(category, "")
}

// StripExtension removes the final extension from a file name.
func StripExtension(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Load reads the categories under root in directory-listing order. Files at
// the top level are ignored; categories without matching files are returned
// with an empty candidate list.
func Load(root, pattern string) ([]models.TraitCategory, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("traits: invalid pattern %q", pattern)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("traits: read root: %w", err)
	}

	var out []models.TraitCategory
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		candidates, err := candidatesIn(dir, pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, models.TraitCategory{
			Name:       e.Name(),
			Dir:        dir,
			Candidates: candidates,
		})
	}
	return out, nil
}

func candidatesIn(dir, pattern string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("traits: read category %s: %w", filepath.Base(dir), err)
	}
	candidates := []string{}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		ok, err := doublestar.Match(pattern, f.Name())
		if err != nil {
			return nil, fmt.Errorf("traits: match %s: %w", f.Name(), err)
		}
		if ok {
			candidates = append(candidates, f.Name())
		}
	}
	return candidates, nil
}

// Paths returns the image path of every candidate chosen by sel.
func Paths(categories []models.TraitCategory, sel models.Selection) ([]string, error) {
	if len(sel) != len(categories) {
		return nil, fmt.Errorf("traits: selection has %d indices for %d categories", len(sel), len(categories))
	}
	paths := make([]string, len(sel))
	for i, idx := range sel {
		c := categories[i]
		if idx < 0 || idx >= len(c.Candidates) {
			return nil, fmt.Errorf("traits: index %d out of range for %s", idx, c.Name)
		}
		paths[i] = filepath.Join(c.Dir, c.Candidates[idx])
	}
	return paths, nil
}
