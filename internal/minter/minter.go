// Package minter pushes generated metadata records to a chain client.
package minter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/starford/brewmint/internal/apperr"
	"github.com/starford/brewmint/internal/chain"
	"github.com/starford/brewmint/internal/cid"
	"github.com/starford/brewmint/internal/contentstore"
	"github.com/starford/brewmint/internal/ledger"
	"github.com/starford/brewmint/internal/models"
	"github.com/starford/brewmint/internal/storage"
)

// Config holds the submission parameters.
type Config struct {
	// Target names the chain the client writes to. Submissions and created
	// collections are recorded per target.
	Target           string
	Collection       uint32
	// CreateCollection registers the collection before the first item.
	CreateCollection bool
	// BatchAttributes sets all attributes of an item in one call.
	BatchAttributes  bool
	// Max caps the number of metadata files considered; 0 means all.
	Max              int
}

// Submission is the outcome for one item.
type Submission struct {
	ItemID      int    `json:"item_id"`
	File        string `json:"file"`
	MetadataCID string `json:"metadata_cid,omitempty"`
	Handle      string `json:"handle,omitempty"`
	Skipped     bool   `json:"skipped,omitempty"`
}

// Result summarizes a bulk submission.
type Result struct {
	Collection       chain.TxHandle `json:"collection"`
	// CollectionReused is set when the collection was created by an
	// earlier run and only reattached.
	CollectionReused bool           `json:"collection_reused,omitempty"`
	Submissions      []Submission   `json:"submissions"`
}

// Submitted returns the number of items sent to the chain.
func (r Result) Submitted() int {
	n := 0
	for _, s := range r.Submissions {
		if !s.Skipped {
			n++
		}
	}
	return n
}

// Minter submits records. The ledger is optional for Run and required for
// Follow; without it every record is submitted.
type Minter struct {
	cfg     Config
	records storage.Provider
	store   contentstore.Store
	client  chain.Client
	ledger  ledger.ItemLedger
	logger  *slog.Logger
	notify  func(Submission)
}

// New creates a Minter reading records from the metadata directory provider.
func New(cfg Config, records storage.Provider, store contentstore.Store, client chain.Client, led ledger.ItemLedger, logger *slog.Logger) *Minter {
	return &Minter{cfg: cfg, records: records, store: store, client: client, ledger: led, logger: logger}
}

// Notify registers fn to be called after every item sent to the chain.
// Skipped items are not reported.
func (m *Minter) Notify(fn func(Submission)) {
	m.notify = fn
}

// Run creates the collection when configured and submits metadata files in
// directory order, up to cfg.Max. The first failure aborts the run.
func (m *Minter) Run(ctx context.Context) (Result, error) {
	var res Result
	h, reused, err := m.openCollection(ctx)
	if err != nil {
		return res, err
	}
	res.Collection, res.CollectionReused = h, reused

	metas, err := m.records.List("", ledger.MetadataPattern)
	if err != nil {
		return res, err
	}
	for i, meta := range metas {
		if m.cfg.Max > 0 && i >= m.cfg.Max {
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		sub, err := m.SubmitFile(ctx, meta.Path)
		if err != nil {
			return res, err
		}
		res.Submissions = append(res.Submissions, sub)
	}

	m.logger.Info("minter: submission complete",
		slog.Int("considered", len(res.Submissions)),
		slog.Int("submitted", res.Submitted()))
	return res, nil
}

// openCollection attaches the client to the collection recorded in the
// ledger for the target, or creates it when cfg.CreateCollection is set.
// A recorded collection is never created twice.
func (m *Minter) openCollection(ctx context.Context) (chain.TxHandle, bool, error) {
	if m.ledger != nil {
		known, err := m.ledger.GetCollection(m.cfg.Target, m.cfg.Collection)
		switch {
		case err == nil:
			if b, ok := m.client.(chain.Binder); ok && known.Ref != "" {
				if err := b.BindCollection(m.cfg.Collection, known.Ref); err != nil {
					return chain.TxHandle{}, false, err
				}
			}
			m.logger.Info("minter: collection reused",
				slog.Int("collection", int(m.cfg.Collection)),
				slog.String("target", m.cfg.Target),
				slog.String("tx", known.Handle))
			return chain.TxHandle{ID: known.Handle}, true, nil
		case !errors.Is(err, apperr.ErrNotFound):
			return chain.TxHandle{}, false, err
		}
	}
	if !m.cfg.CreateCollection {
		return chain.TxHandle{}, false, nil
	}

	h, err := m.client.CreateCollection(ctx, m.cfg.Collection)
	if err != nil {
		return chain.TxHandle{}, false, err
	}
	m.logger.Info("minter: collection created",
		slog.Int("collection", int(m.cfg.Collection)),
		slog.String("target", m.cfg.Target),
		slog.String("tx", h.String()))
	if m.ledger != nil {
		rec := ledger.Collection{Target: m.cfg.Target, Collection: m.cfg.Collection, Handle: h.String()}
		if b, ok := m.client.(chain.Binder); ok {
			rec.Ref, _ = b.CollectionRef(m.cfg.Collection)
		}
		if err := m.ledger.RecordCollection(rec); err != nil {
			return h, false, err
		}
	}
	return h, false, nil
}

// SubmitFile uploads one metadata document, points its item at the
// resulting identifier and sets the item attributes. Items the ledger
// already holds as submitted at the same checksum to the same target and
// collection are skipped.
func (m *Minter) SubmitFile(ctx context.Context, file string) (Submission, error) {
	data, err := m.records.Read(file)
	if err != nil {
		return Submission{}, err
	}
	var rec models.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Submission{}, fmt.Errorf("minter: parse %s: %w", file, err)
	}
	sub := Submission{ItemID: rec.ItemID, File: file}
	checksum := cid.Checksum(data)

	if m.ledger != nil {
		prev, err := m.ledger.GetItemByFile(file)
		switch {
		case err == nil && prev.ItemID == rec.ItemID && prev.SubmittedAs(m.cfg.Target, m.cfg.Collection, checksum):
			sub.MetadataCID = prev.MetadataCID
			sub.Handle = prev.TxHandle
			sub.Skipped = true
			m.logger.Debug("minter: unchanged, skipping", slog.String("file", file), slog.Int("item_id", rec.ItemID))
			return sub, nil
		case err != nil && !errors.Is(err, apperr.ErrNotFound):
			return Submission{}, err
		}
		if _, err := ledger.RecordFile(m.ledger, file, data, ""); err != nil {
			return Submission{}, err
		}
	}

	id, err := m.store.UploadContent(ctx, data)
	if err != nil {
		return Submission{}, fmt.Errorf("minter: item %d: %w", rec.ItemID, err)
	}
	sub.MetadataCID = id.String()

	h, err := m.client.SetMetadata(ctx, m.cfg.Collection, rec.ItemID, sub.MetadataCID, false)
	if err != nil {
		return Submission{}, fmt.Errorf("minter: item %d: %w", rec.ItemID, err)
	}
	if len(rec.Attributes) > 0 {
		if h, err = m.setAttributes(ctx, rec); err != nil {
			return Submission{}, fmt.Errorf("minter: item %d: %w", rec.ItemID, err)
		}
	}
	sub.Handle = h.String()

	if m.ledger != nil {
		err := m.ledger.MarkSubmitted(rec.ItemID, ledger.Submission{
			Target:      m.cfg.Target,
			Collection:  m.cfg.Collection,
			Checksum:    checksum,
			MetadataCID: sub.MetadataCID,
			Handle:      sub.Handle,
		})
		if err != nil {
			return Submission{}, err
		}
	}
	m.logger.Info("minter: item submitted",
		slog.Int("item_id", rec.ItemID),
		slog.String("file", file),
		slog.String("metadata_cid", sub.MetadataCID),
		slog.String("tx", sub.Handle))
	if m.notify != nil {
		m.notify(sub)
	}
	return sub, nil
}

// setAttributes returns the handle of the last attribute call.
func (m *Minter) setAttributes(ctx context.Context, rec models.Record) (chain.TxHandle, error) {
	if m.cfg.BatchAttributes {
		return m.client.SetAttributes(ctx, m.cfg.Collection, rec.ItemID, rec.Attributes)
	}
	var last chain.TxHandle
	for _, attr := range rec.Attributes {
		h, err := m.client.SetAttribute(ctx, m.cfg.Collection, rec.ItemID, attr)
		if err != nil {
			return chain.TxHandle{}, err
		}
		last = h
	}
	return last, nil
}

// Follow opens the collection, then watches the metadata directory and
// submits records as they are created or changed, until ctx is cancelled.
// Submission failures are logged and the follower keeps running.
func (m *Minter) Follow(ctx context.Context) error {
	if m.ledger == nil {
		return fmt.Errorf("minter: follow requires a ledger")
	}
	if _, _, err := m.openCollection(ctx); err != nil {
		return err
	}

	files := make(chan string, 64)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(files)
		return ledger.Watch(ctx, m.ledger, m.records, m.logger, func(ev ledger.Event) {
			if ev.Kind == ledger.EventDeleted {
				return
			}
			select {
			case files <- ev.File:
			case <-ctx.Done():
			}
		})
	})

	g.Go(func() error {
		for file := range files {
			if _, err := m.SubmitFile(ctx, file); err != nil {
				m.logger.Error("minter: follow submission failed",
					slog.String("file", file),
					slog.String("error", err.Error()))
			}
		}
		return nil
	})

	return g.Wait()
}
