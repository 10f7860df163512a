// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/brewmint/internal/api"
	"github.com/starford/brewmint/internal/chain"
	"github.com/starford/brewmint/internal/contentstore"
	"github.com/starford/brewmint/internal/itemservice"
	"github.com/starford/brewmint/internal/ledger"
	"github.com/starford/brewmint/internal/minter"
	"github.com/starford/brewmint/internal/sse"
	"github.com/starford/brewmint/internal/storage"
)

// Serve starts the read API, the content gateway and the metadata watcher.
// With auto-submit enabled, new records are also pushed to the chain.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("metadata_dir", cfg.Output.MetadataDir),
		slog.String("ledger_path", cfg.Ledger.Path),
		slog.String("content_mode", cfg.Content.Mode),
		slog.Bool("auto_submit", app.autoSubmit),
		slog.String("log_level", cfg.App.LogLevel.String()))

	records, err := openRecords(cfg.Output.MetadataDir)
	if err != nil {
		return err
	}

	db, err := openLedger(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	// Run initial sync.
	if err := ledger.Sync(db, records, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	store, err := contentstore.New(cfg.Content.Mode, cfg.Content.APIURL, cfg.Content.BlobDir)
	if err != nil {
		return err
	}

	// Blobs are only retained locally by the mock store.
	var blobs itemservice.BlobSource
	if mock, ok := store.(*contentstore.Mock); ok && cfg.Content.BlobDir != "" {
		blobs = mock
	}

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := itemservice.NewService(records, db, blobs)
	router := api.NewRouter(svc, cfg.Auth.BearerToken(), broker, logger)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// The minter is built before any goroutine starts so a chain client
	// error cannot leave the watcher running against a closed ledger.
	var follower *minter.Minter
	if app.autoSubmit {
		client, closeClient, err := newChainClient(cfg.Chain, db)
		if err != nil {
			return err
		}
		defer closeClient()

		follower = minter.New(minterConfig(cfg.Chain, 0), records, store, client, db, logger)
		follower.Notify(func(s minter.Submission) {
			broker.PublishItemEvent(sse.KindSubmitted, sse.ItemEvent{
				Collection:  cfg.Chain.CollectionID,
				File:        s.File,
				ItemID:      s.ItemID,
				MetadataCID: s.MetadataCID,
				Handle:      s.Handle,
			})
		})
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start metadata watcher with SSE callback.
	g.Go(func() error {
		return ledger.Watch(gCtx, db, records, logger, func(ev ledger.Event) {
			out := sse.ItemEvent{Collection: cfg.Chain.CollectionID, File: ev.File, ItemID: -1}
			if ev.Kind != ledger.EventDeleted {
				item := ev.Item
				out.ItemID, out.Item = item.ItemID, &item
			}
			broker.PublishItemEvent(ev.Kind, out)
		})
	})

	if follower != nil {
		g.Go(func() error {
			return follower.Follow(gCtx)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group context so the watchers stop with the server.
var errShutdown = errors.New("shutdown")

// openRecords returns the metadata directory provider, creating the
// directory when needed.
func openRecords(dir string) (*storage.FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create metadata dir: %w", err)
	}
	records, err := storage.NewFS(dir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return records, nil
}

func openLedger(path string) (*ledger.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}
	db, err := ledger.Open(path)
	if err != nil {
		return nil, fmt.Errorf("init ledger: %w", err)
	}
	return db, nil
}

// newChainClient builds the configured client. The returned func releases
// its resources.
func newChainClient(cfg ChainConfig, db *ledger.DB) (chain.Client, func() error, error) {
	switch cfg.Mode {
	case chain.ModeHedera:
		h, err := chain.NewHedera(chain.HederaConfig{
			Network:           cfg.Network,
			TopicID:           cfg.TopicID,
			OperatorAccountID: cfg.OperatorAccountID,
			OperatorKey:       cfg.OperatorKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return h, h.Close, nil
	case chain.ModeJournal, "":
		j, err := chain.NewJournal(db, cfg.SignerKey)
		if err != nil {
			return nil, nil, err
		}
		return j, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown chain mode %q", cfg.Mode)
	}
}

// chainTarget names the chain a configuration writes to. Ledger records of
// submissions and collections are kept per target.
func chainTarget(cfg ChainConfig) string {
	if cfg.Mode != chain.ModeHedera {
		return chain.ModeJournal
	}
	network, err := chain.NormalizeNetwork(cfg.Network)
	if err != nil {
		network = cfg.Network
	}
	target := chain.ModeHedera + ":" + network
	if cfg.TopicID != "" {
		target += ":" + cfg.TopicID
	}
	return target
}

func minterConfig(cfg ChainConfig, max int) minter.Config {
	return minter.Config{
		Target:           chainTarget(cfg),
		Collection:       cfg.CollectionID,
		CreateCollection: cfg.CreateCollection,
		BatchAttributes:  cfg.BatchAttributes,
		Max:              max,
	}
}
