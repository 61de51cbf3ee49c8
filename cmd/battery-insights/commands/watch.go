package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchSettle is how long a file must stay untouched before a change is signalled.
// Writers rarely replace a report in a single write.
const watchSettle = 200 * time.Millisecond

// watchFile signals on the returned channel once the file at path has been written or replaced.
// The parent directory is watched so that a file replaced by a rename is still followed.
// Watching stops when ctx is done.
func watchFile(ctx context.Context, path string, log *slog.Logger) (<-chan struct{}, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("could not resolve %s: %v", path, err)
	}
	path = abs

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %v", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("could not watch directory %s: %v", dir, err)
	}
	log.Debug("Watching battery report", "path", path)

	changed := make(chan struct{}, 1)
	go func() {
		defer watcher.Close()

		settle := time.NewTimer(watchSettle)
		settle.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path || !event.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				log.Debug("Battery report changed", "path", path, "op", event.Op.String())
				settle.Reset(watchSettle)
			case <-settle.C:
				select {
				case changed <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("Battery report watcher error", "error", err)
			}
		}
	}()

	return changed, nil
}
