package ledger

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/starford/brewmint/internal/models"
	"github.com/starford/brewmint/internal/storage"
)

// Event kinds delivered to an EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Event describes a watcher-driven ledger change. Item is zero for deletions.
type Event struct {
	Kind string      `json:"kind"`
	File string      `json:"file"`
	Item models.Item `json:"item"`
}

// EventCallback is called after a watcher-driven ledger change.
type EventCallback func(ev Event)

const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the metadata directory and records
// file changes until ctx is cancelled. It calls cb (if non-nil) after each
// successful ledger mutation.
//
// Rename events trigger a reconciliation pass that removes stale entries
// whose files no longer exist on disk.
func Watch(ctx context.Context, db ItemLedger, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	if err := w.Add(root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	emit := func(ev Event) {
		if cb != nil {
			cb(ev)
		}
	}

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, logger, emit)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			name := filepath.Base(ev.Name)
			if strings.HasPrefix(name, ".") {
				continue
			}
			if match, _ := doublestar.Match(MetadataPattern, name); !match {
				continue
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(rel)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					continue
				}
				kind := EventUpdated
				if _, getErr := db.GetItemByFile(rel); getErr != nil {
					kind = EventCreated
				}
				it, recErr := RecordFile(db, rel, data, "")
				if recErr != nil {
					logger.Warn("watcher: record failed", slog.String("path", rel), slog.String("error", recErr.Error()))
					continue
				}
				logger.Debug("watcher: recorded", slog.String("path", rel), slog.String("op", kind))
				emit(Event{Kind: kind, File: rel, Item: it})

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteFile(rel); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", rel))
				emit(Event{Kind: EventDeleted, File: rel})

			case ev.Op&fsnotify.Rename != 0:
				// Rename fires on the old path only; the new path arrives as
				// a Create if it stays inside the directory.
				if delErr := db.DeleteFile(rel); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
				} else {
					emit(Event{Kind: EventDeleted, File: rel})
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile removes entries without a file on disk and records files whose
// checksum differs from the ledger.
func reconcile(db ItemLedger, store storage.Provider, logger *slog.Logger, emit func(Event)) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List("", MetadataPattern)
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if delErr := db.DeleteFile(p); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("path", p))
				emit(Event{Kind: EventDeleted, File: p})
			}
		}
	}

	for p, cs := range disk {
		prev, known := checksums[p]
		if known && prev == cs {
			continue
		}
		data, readErr := store.Read(p)
		if readErr != nil {
			continue
		}
		it, recErr := RecordFile(db, p, data, "")
		if recErr != nil {
			continue
		}
		kind := EventCreated
		if known {
			kind = EventUpdated
		}
		logger.Debug("reconcile: recorded", slog.String("path", p))
		emit(Event{Kind: kind, File: p, Item: it})
	}
}
