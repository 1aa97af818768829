package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tixhq/tix/internal/workspace"
)

const watchDebounce = 300 * time.Millisecond

// watch renders once and then again after every burst of changes under
// the ticket directory, until ctx is cancelled.
func (c *cli) watch(ctx context.Context, render func(ctx context.Context) error) error {
	if err := render(ctx); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Join(workspace.Dir(c.ws.Root()), workspace.TicketsDir)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	fmt.Fprintf(c.errOut, "\nWatching for changes... (Press Ctrl+C to exit)\n")

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(c.errOut, "\nStopped watching.\n")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				timer.Reset(watchDebounce)
			}
		case <-timer.C:
			c.printf("\n")
			if err := render(ctx); err != nil {
				fmt.Fprintf(c.errOut, "Error: %v\n", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(c.errOut, "Watcher error: %v\n", err)
		}
	}
}
