package signals

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 500 * time.Millisecond

// WatchWeights reloads the weight table whenever its artifact changes on
// disk. The watch is on the parent directory because editors and config
// mounts replace files rather than writing in place. Events are debounced so
// a burst of writes triggers a single reload. Blocks until ctx is done.
func WatchWeights(ctx context.Context, store *Store, path string, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	target := filepath.Clean(path)
	var timer *time.Timer
	pending := make(chan struct{}, 1)

	logger.Info("watching weight table", "path", target)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case <-pending:
			if err := store.LoadFile(target); err != nil {
				logger.Error("weight table reload failed, keeping previous table", "error", err)
				continue
			}
			logger.Info("weight table reloaded", "version", store.Current().Version)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("weight table watcher error", "error", err)
		}
	}
}
