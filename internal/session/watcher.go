package session

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes the session state file for modifications made outside
// this process and reloads the store when they happen. It prefers fsnotify
// change notification and degrades to periodic polling when the platform
// watcher cannot be started. Either way, external changes are picked up
// within a bounded interval.
type Watcher struct {
	store        *FileStore
	pollInterval time.Duration
	logger       *slog.Logger

	changes chan Snapshot
	last    Snapshot
}

// NewWatcher creates a watcher for the store's state file.
func NewWatcher(store *FileStore, pollInterval time.Duration, logger *slog.Logger) *Watcher {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Watcher{
		store:        store,
		pollInterval: pollInterval,
		logger:       logger,
		changes:      make(chan Snapshot, 8),
		last:         store.Snapshot(),
	}
}

// Changes delivers a snapshot after every observed external modification.
// Writes performed through the store itself are also reported; consumers
// that only care about external changes can compare against their own
// last-known snapshot.
func (w *Watcher) Changes() <-chan Snapshot { return w.changes }

// Start begins watching until ctx is cancelled. The changes channel is
// closed when watching stops.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("state watcher unavailable, falling back to polling",
			"error", err,
			"poll_interval", w.pollInterval,
		)
		go w.poll(ctx)
		return nil
	}

	// Watch the directory, not the file: atomic rename replaces the inode,
	// and a watch on the old inode would go quiet after the first write.
	dir := filepath.Dir(w.store.Path())
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return fmt.Errorf("watch state directory: %w", err)
	}

	w.logger.Debug("session state watcher started", "path", w.store.Path())
	go w.run(ctx, fsw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	defer close(w.changes)
	defer fsw.Close()

	target := filepath.Clean(w.store.Path())

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.reload()

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("state watcher error", "error", err)
		}
	}
}

// poll is the fallback path: re-read the state file on a fixed interval.
func (w *Watcher) poll(ctx context.Context) {
	defer close(w.changes)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	snap, err := w.store.Reload()
	if err != nil {
		w.logger.Warn("failed to reload session state", "error", err)
		return
	}
	if snap == w.last {
		return
	}
	w.last = snap

	select {
	case w.changes <- snap:
	default:
		// Consumer is behind; the next change supersedes this one anyway.
	}
}
