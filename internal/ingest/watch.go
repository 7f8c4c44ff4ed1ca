package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay gives connectors time to finish writing a drop file before
// we read it; fsnotify reports the first write, not the last.
const settleDelay = 200 * time.Millisecond

// WatchEvent reports the outcome of processing one dropped file.
type WatchEvent struct {
	Path   string
	Result *Result
	Err    error
}

// Watch monitors dir for new .json drop files and ingests each one as it
// appears. Events are delivered on the returned channel until ctx is
// cancelled. Files already present at start are not processed; use File
// for backfill.
func (in *Ingester) Watch(ctx context.Context, dir string) (<-chan WatchEvent, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	events := make(chan WatchEvent)

	go func() {
		defer watcher.Close()
		defer close(events)

		seen := make(map[string]bool)

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
					continue
				}
				if !strings.EqualFold(filepath.Ext(ev.Name), ".json") {
					continue
				}
				if seen[ev.Name] {
					continue
				}
				seen[ev.Name] = true

				time.Sleep(settleDelay)
				res, err := in.File(ev.Name)
				select {
				case events <- WatchEvent{Path: ev.Name, Result: res, Err: err}:
				case <-ctx.Done():
					return
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				select {
				case events <- WatchEvent{Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}
