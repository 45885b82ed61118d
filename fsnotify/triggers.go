// Package fsnotify watches a folder for trigger files.
// Each time a file is created in (or written to) the watched folder, the name of the file is sent on a channel, so it can be mapped to an event to enqueue.
// Changes to the same file happening within 500ms are batched into a single notification.
// Hidden files (whose name starts with a dot) are ignored.
package fsnotify

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const batchDelay = 500 * time.Millisecond

// WatchTriggers returns a channel that receives the name of each file that is created or written to in the folder.
// The channel is closed when the context is canceled.
func WatchTriggers(ctx context.Context, folder string) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	err = watcher.Add(folder)
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to add watched folder: %w", err)
	}

	namesCh := make(chan string)
	go func() {
		// Names for which a notification is batched
		pending := map[string]struct{}{}
		firedCh := make(chan string)
		var wg sync.WaitGroup

		defer watcher.Close() //nolint:errcheck
		defer func() {
			wg.Wait()
			close(namesCh)
		}()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				// Only listen to events where a file is created (included renamed files) or written to
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				name := filepath.Base(event.Name)
				if strings.HasPrefix(name, ".") {
					continue
				}

				// Batch changes to the same file
				_, ok = pending[name]
				if ok {
					continue
				}
				pending[name] = struct{}{}
				wg.Go(func() {
					select {
					case <-time.After(batchDelay):
						// Continue after delay
					case <-ctx.Done():
						return
					}

					select {
					case firedCh <- name:
					case <-ctx.Done():
					}
				})

			case name := <-firedCh:
				delete(pending, name)
				select {
				case namesCh <- name:
				case <-ctx.Done():
					return
				}

			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}

				// Log errors only
				slog.WarnContext(ctx, "Error while watching for trigger files",
					slog.Any("error", watchErr),
					slog.String("folder", folder),
				)
			}
		}
	}()

	return namesCh, nil
}
