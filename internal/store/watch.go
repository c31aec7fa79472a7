package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch starts an fsnotify watcher on a Dir store's tenant root and turns
// external file edits into snapshot notifications until ctx is cancelled.
// The store's own writes already notify, so watcher-driven re-broadcasts of
// those are harmless duplicates of an identical snapshot.
//
// Events are debounced per collection: editors often produce several events
// per save, and one broadcast with the final contents is all subscribers need.
func (d *Dir) Watch(ctx context.Context, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(d.root); err != nil {
		return err
	}
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := w.Add(filepath.Join(d.root, e.Name())); err != nil {
				logger.Warn("watch: add collection dir failed",
					slog.String("dir", e.Name()),
					slog.String("error", err.Error()))
			}
		}
	}

	logger.Info("watch: started", slog.String("root", d.root))

	const debounce = 200 * time.Millisecond
	pending := make(map[string]struct{})
	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	scheduleFlush := func() {
		if flushTimer == nil {
			flushTimer = time.NewTimer(debounce)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			logger.Info("watch: stopped")
			return nil

		case <-flushCh:
			for collection := range pending {
				d.n.notify(collection)
				logger.Debug("watch: external change", slog.String("collection", collection))
			}
			pending = make(map[string]struct{})

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			// A new collection directory: start watching it.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := w.Add(ev.Name); addErr != nil {
						logger.Warn("watch: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					continue
				}
			}

			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
				continue
			}
			rel, relErr := filepath.Rel(d.root, ev.Name)
			if relErr != nil {
				continue
			}
			collection := filepath.Dir(rel)
			if collection == "." || strings.Contains(collection, string(os.PathSeparator)) {
				continue
			}
			pending[collection] = struct{}{}
			scheduleFlush()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: watcher error", slog.String("error", err.Error()))
		}
	}
}
