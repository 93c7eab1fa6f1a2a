// Package watcher reports files that appear in a directory once they have
// stopped changing.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
)

// Watcher monitors a directory tree for settled file changes.
type Watcher struct {
	backend WatcherBackend
	logger  *slog.Logger
}

// New creates a new file watcher backed by fsnotify.
func New(logger *slog.Logger, opts Options) (*Watcher, error) {
	opts.setDefaults()

	backend, err := newFsnotifyBackend(logger, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}

	return &Watcher{
		backend: backend,
		logger:  logger,
	}, nil
}

// Watch adds a path to be monitored.
// Directories are watched recursively when Options.Recursive is set.
func (w *Watcher) Watch(path string) error {
	return w.backend.Watch(path)
}

// Start begins watching for events.
// This method blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	return w.backend.Start(ctx)
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() error {
	return w.backend.Stop()
}

// Events returns the channel for receiving file system events.
func (w *Watcher) Events() <-chan Event {
	return w.backend.Events()
}

// Errors returns the channel for receiving errors.
func (w *Watcher) Errors() <-chan error {
	return w.backend.Errors()
}
