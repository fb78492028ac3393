package source

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultMergeDelay = 200 * time.Millisecond

// Watcher reloads a seed file whenever it changes. Each reload upserts the
// file's documents and removes those that were in the previous version of
// the file but no longer are; documents from other sources are untouched.
type Watcher struct {
	file       File
	idx        Indexer
	mergeDelay time.Duration
	loaded     map[string]struct{}
	reloaded   func(ids []string, err error)
	logger     *slog.Logger
}

// NewWatcher creates a Watcher for f. initial holds the ids already loaded
// from f. Bursts of filesystem events within mergeDelay collapse into one
// reload; zero uses 200ms.
func NewWatcher(f File, idx Indexer, initial []string, mergeDelay time.Duration) *Watcher {
	if mergeDelay <= 0 {
		mergeDelay = defaultMergeDelay
	}
	loaded := make(map[string]struct{}, len(initial))
	for _, id := range initial {
		loaded[id] = struct{}{}
	}
	return &Watcher{
		file:       f,
		idx:        idx,
		mergeDelay: mergeDelay,
		loaded:     loaded,
		logger:     slog.Default().With("component", "seed-watcher", "path", f.Path),
	}
}

// OnReload registers a callback run after every reload attempt. Must be
// called before Run.
func (w *Watcher) OnReload(fn func(ids []string, err error)) {
	w.reloaded = fn
}

// Run watches until ctx is cancelled. The parent directory is watched
// rather than the file so editors that save by rename keep working.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	target, err := filepath.Abs(w.file.Path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", w.file.Path, err)
	}
	if err := fw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(target), err)
	}
	w.logger.Info("watching seed file")

	timer := time.NewTimer(w.mergeDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("seed watcher stopped")
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(w.mergeDelay)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		case <-timer.C:
			ids, err := w.reload(ctx)
			if w.reloaded != nil {
				w.reloaded(ids, err)
			}
		}
	}
}

func (w *Watcher) reload(ctx context.Context) ([]string, error) {
	docs, err := w.file.Load(ctx)
	if err != nil {
		w.logger.Error("seed reload failed, keeping previous documents", "error", err)
		return nil, err
	}
	if err := w.idx.AddDocuments(docs); err != nil {
		w.logger.Error("seed reload partially applied", "error", err)
		return nil, err
	}

	current := make(map[string]struct{}, len(docs))
	ids := make([]string, len(docs))
	for i, d := range docs {
		current[d.ID] = struct{}{}
		ids[i] = d.ID
	}
	removed := 0
	for id := range w.loaded {
		if _, ok := current[id]; !ok {
			w.idx.RemoveDocument(id)
			removed++
		}
	}
	w.loaded = current

	w.logger.Info("seed file reloaded",
		"documents", len(docs),
		"removed", removed,
	)
	return ids, nil
}
