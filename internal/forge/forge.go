// Package forge drives a generation run: it draws unique trait selections,
// assembles their records, renders the layered images and persists both.
package forge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/starford/brewmint/internal/cid"
	"github.com/starford/brewmint/internal/compose"
	"github.com/starford/brewmint/internal/contentstore"
	"github.com/starford/brewmint/internal/generator"
	"github.com/starford/brewmint/internal/ledger"
	"github.com/starford/brewmint/internal/metadata"
	"github.com/starford/brewmint/internal/models"
	"github.com/starford/brewmint/internal/storage"
	"github.com/starford/brewmint/internal/traits"
)

// Config holds the run parameters.
type Config struct {
	TraitsDir    string
	Pattern      string
	Count        int
	FirstItemID  int
	ImageWidth   int
	// Seed makes the selection sequence reproducible; 0 draws a random seed.
	Seed         uint64
	MetadataDir  string
	ImageDir     string
	Wipe         bool
	UploadImages bool
}

// Result summarizes a finished run.
type Result struct {
	RunID           string        `json:"run_id,omitempty"`
	Requested       int           `json:"requested"`
	MaxCombinations int           `json:"max_combinations"`
	Items           []models.Item `json:"items"`
}

// Forge generates items. The content store and ledger are optional.
type Forge struct {
	cfg       Config
	assembler *metadata.Assembler
	store     contentstore.Store
	ledger    ledger.ItemLedger
	logger    *slog.Logger
}

// New creates a Forge.
func New(cfg Config, assembler *metadata.Assembler, store contentstore.Store, led ledger.ItemLedger, logger *slog.Logger) *Forge {
	if cfg.Pattern == "" {
		cfg.Pattern = traits.DefaultPattern
	}
	return &Forge{cfg: cfg, assembler: assembler, store: store, ledger: led, logger: logger}
}

// Run resets the output directories and generates up to cfg.Count items.
// Items are fully persisted one at a time in generation order; the first
// failing item aborts the run.
func (f *Forge) Run(ctx context.Context) (Result, error) {
	if err := storage.Reset(f.cfg.ImageDir, f.cfg.Wipe); err != nil {
		return Result{}, err
	}
	if err := storage.Reset(f.cfg.MetadataDir, f.cfg.Wipe); err != nil {
		return Result{}, err
	}
	images, err := storage.NewFS(f.cfg.ImageDir)
	if err != nil {
		return Result{}, err
	}
	records, err := storage.NewFS(f.cfg.MetadataDir)
	if err != nil {
		return Result{}, err
	}

	categories, err := traits.Load(f.cfg.TraitsDir, f.cfg.Pattern)
	if err != nil {
		return Result{}, err
	}
	if err := generator.CheckCategories(categories); err != nil {
		var empty *generator.EmptyCategoryError
		if errors.As(err, &empty) {
			f.logger.Warn("forge: empty trait category, nothing can be generated",
				slog.String("category", empty.Category),
				slog.String("error", err.Error()))
		}
	}

	maxComb := generator.MaxCombinations(categories)
	expected := min(f.cfg.Count, maxComb)
	if maxComb < f.cfg.Count {
		f.logger.Info("forge: fewer combinations than requested",
			slog.Int("requested", f.cfg.Count),
			slog.Int("max_combinations", maxComb))
	}

	res := Result{Requested: f.cfg.Count, MaxCombinations: maxComb}
	if f.ledger != nil {
		res.RunID, err = f.ledger.StartRun(f.cfg.Count, f.cfg.Seed)
		if err != nil {
			return Result{}, err
		}
	}

	var opts []generator.Option
	if f.cfg.Seed != 0 {
		opts = append(opts, generator.WithSeed(f.cfg.Seed))
	}
	width := padWidth(f.cfg.FirstItemID + max(expected-1, 0))
	layered := compose.Layered{Width: f.cfg.ImageWidth}

	i := 0
	for sel := range generator.Generate(categories, f.cfg.Count, opts...) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		itemID := f.cfg.FirstItemID + i
		it, err := f.forgeItem(ctx, categories, sel, itemID, width, layered, images, records, res.RunID)
		if err != nil {
			return res, fmt.Errorf("forge: item %d: %w", itemID, err)
		}
		res.Items = append(res.Items, it)
		f.logger.Info("forge: generated item",
			slog.Int("item_id", itemID),
			slog.String("name", it.Name),
			slog.String("file", it.File))
		i++
	}

	if f.ledger != nil {
		if err := f.ledger.FinishRun(res.RunID, len(res.Items)); err != nil {
			return res, err
		}
	}
	f.logger.Info("forge: run complete",
		slog.String("run_id", res.RunID),
		slog.Int("generated", len(res.Items)))
	return res, nil
}

func (f *Forge) forgeItem(
	ctx context.Context,
	categories []models.TraitCategory,
	sel models.Selection,
	itemID, width int,
	layered compose.Layered,
	images, records storage.Provider,
	runID string,
) (models.Item, error) {
	rec, err := f.assembler.Assemble(categories, sel, itemID)
	if err != nil {
		return models.Item{}, err
	}
	stem := FileStem(itemID, width, rec.Name)

	paths, err := traits.Paths(categories, sel)
	if err != nil {
		return models.Item{}, err
	}
	img, err := layered.Compose(paths)
	if err != nil {
		return models.Item{}, err
	}
	png, err := compose.Encode(img)
	if err != nil {
		return models.Item{}, err
	}
	if err := images.Write(stem+".png", png); err != nil {
		return models.Item{}, err
	}

	file := stem + ".json"
	data, err := writeRecord(records, file, rec)
	if err != nil {
		return models.Item{}, err
	}

	if f.cfg.UploadImages && f.store != nil {
		id, err := f.store.UploadContent(ctx, png)
		if err != nil {
			return models.Item{}, err
		}
		rec.Image = id.String()
		if data, err = writeRecord(records, file, rec); err != nil {
			return models.Item{}, err
		}
	}

	if f.ledger == nil {
		return models.Item{
			ItemID:      rec.ItemID,
			Name:        rec.Name,
			File:        file,
			Checksum:    cid.Checksum(data),
			Description: rec.Description,
			Attributes:  rec.Attributes,
			ImageCID:    rec.Image,
			RunID:       runID,
		}, nil
	}
	return ledger.RecordFile(f.ledger, file, data, runID)
}

func writeRecord(records storage.Provider, file string, rec models.Record) ([]byte, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("forge: encode record: %w", err)
	}
	if err := records.Write(file, data); err != nil {
		return nil, err
	}
	return data, nil
}

// FileStem returns the output file stem for an item: the id zero padded to
// width, an underscore and the name with path separators replaced.
func FileStem(itemID, width int, name string) string {
	safe := strings.NewReplacer("/", "-", `\`, "-").Replace(name)
	return fmt.Sprintf("%0*d_%s", width, itemID, safe)
}

// padWidth returns the number of digits of the largest item id.
func padWidth(largest int) int {
	return len(strconv.Itoa(max(largest, 0)))
}
