package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/starford/brewmint/internal/chain"
	"github.com/starford/brewmint/internal/cid"
	"github.com/starford/brewmint/internal/contentstore"
	"github.com/starford/brewmint/internal/forge"
	"github.com/starford/brewmint/internal/generator"
	"github.com/starford/brewmint/internal/ledger"
	"github.com/starford/brewmint/internal/mcpserver"
	"github.com/starford/brewmint/internal/metadata"
	"github.com/starford/brewmint/internal/minter"
	"github.com/starford/brewmint/internal/storage"
	"github.com/starford/brewmint/internal/traits"
)

// Generate runs one generation: unique trait selections are drawn, their
// records and layered images written, and every item recorded in the ledger.
func Generate(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	db, err := openLedger(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := contentstore.New(cfg.Content.Mode, cfg.Content.APIURL, cfg.Content.BlobDir)
	if err != nil {
		return err
	}
	assembler, err := newAssembler(cfg.Generator)
	if err != nil {
		return err
	}

	f := forge.New(forge.Config{
		TraitsDir:    cfg.Generator.TraitsDir,
		Pattern:      cfg.Generator.Extension,
		Count:        cfg.Generator.Count,
		FirstItemID:  cfg.Generator.FirstItemID,
		ImageWidth:   cfg.Generator.ImageWidth,
		Seed:         cfg.Generator.Seed,
		MetadataDir:  cfg.Output.MetadataDir,
		ImageDir:     cfg.Output.ImageDir,
		Wipe:         cfg.Output.Wipe,
		UploadImages: cfg.Content.UploadImages,
	}, assembler, store, db, app.logger)

	res, err := f.Run(ctx)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	fmt.Fprintf(app.out, "run %s: %d of %d requested items (%d combinations available)\n",
		res.RunID, len(res.Items), res.Requested, res.MaxCombinations)
	tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
	for _, it := range res.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", it.ItemID, it.MetadataCID, it.File)
	}
	return tw.Flush()
}

// newAssembler builds the record assembler for the configured strategy.
// A non-zero seed also makes the flavor text reproducible.
func newAssembler(cfg GeneratorConfig) (*metadata.Assembler, error) {
	var rng *rand.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewPCG(cfg.Seed, ^cfg.Seed))
	}
	name, description, err := metadata.NewStrategy(cfg.Strategy, cfg.LabelTrait, metadata.NewWords(rng))
	if err != nil {
		return nil, err
	}
	return metadata.NewAssembler(name, description), nil
}

// Submit pushes the metadata directory to the configured chain. With follow
// enabled it keeps watching the directory until interrupted.
func Submit(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	records, err := storage.NewFS(cfg.Output.MetadataDir)
	if err != nil {
		return fmt.Errorf("submit: metadata dir %s: %w", cfg.Output.MetadataDir, err)
	}

	db, err := openLedger(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := contentstore.New(cfg.Content.Mode, cfg.Content.APIURL, cfg.Content.BlobDir)
	if err != nil {
		return err
	}
	client, closeClient, err := newChainClient(cfg.Chain, db)
	if err != nil {
		return err
	}
	defer closeClient()

	if j, ok := client.(*chain.Journal); ok {
		logger.Info("Journal signer", slog.String("public_key", j.PublicKey()))
	}

	m := minter.New(minterConfig(cfg.Chain, app.max), records, store, client, db, logger)
	res, err := m.Run(ctx)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	switch {
	case res.CollectionReused:
		fmt.Fprintf(app.out, "collection %d: %s (existing)\n", cfg.Chain.CollectionID, res.Collection)
	case res.Collection.ID != "":
		fmt.Fprintf(app.out, "collection %d: %s\n", cfg.Chain.CollectionID, res.Collection)
	}
	fmt.Fprintf(app.out, "submitted %d of %d items\n", res.Submitted(), len(res.Submissions))
	tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
	for _, s := range res.Submissions {
		status := s.Handle
		if s.Skipped {
			status = "unchanged"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", s.ItemID, s.MetadataCID, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !app.follow {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger.Info("Following metadata directory", slog.String("dir", records.Root()))
	if err := m.Follow(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("submit: follow: %w", err)
	}
	return nil
}

// ServeMCP runs the MCP server on stdio until the client disconnects.
func ServeMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	records, err := openRecords(cfg.Output.MetadataDir)
	if err != nil {
		return err
	}
	db, err := openLedger(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := ledger.Sync(db, records, app.logger); err != nil {
		app.logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return mcpserver.New(records, db, cfg.Generator.TraitsDir, cfg.Generator.Extension).ServeStdio()
}

// ListTraits prints the trait categories found under the traits directory.
func ListTraits(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	categories, err := traits.Load(cfg.Generator.TraitsDir, cfg.Generator.Extension)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tTRAIT\tCANDIDATES")
	for _, c := range categories {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Name, traits.TraitType(c.Name), len(c.Candidates))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(app.out, "max combinations: %d\n", generator.MaxCombinations(categories))
	return err
}

// ComputeCIDs prints the content identifier of each file. Without raw,
// JSON documents are identified by their canonical form.
func ComputeCIDs(w io.Writer, raw bool, paths ...string) error {
	if len(paths) == 0 {
		return fmt.Errorf("at least one file is required")
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var id cid.ID
		if raw {
			id, err = cid.FromBytes(data)
		} else {
			id, err = cid.Compute(data)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if _, err := fmt.Fprintf(w, "%s  %s\n", id, path); err != nil {
			return err
		}
	}
	return nil
}
