package docs

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDelay = 500 * time.Millisecond

// Watch reloads the index whenever a document in the directory changes. It
// blocks until ctx is cancelled.
func (idx *Index) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(idx.dir); err != nil {
		return fmt.Errorf("watch %s: %w", idx.dir, err)
	}

	// Editors emit bursts of events; reload once the burst settles.
	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !extensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			idx.log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("document changed")
			timer.Reset(reloadDelay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			idx.log.Warn().Err(err).Msg("document watcher error")

		case <-timer.C:
			if err := idx.Load(ctx); err != nil {
				idx.log.Warn().Err(err).Msg("document reload failed, keeping previous index")
			}
		}
	}
}
