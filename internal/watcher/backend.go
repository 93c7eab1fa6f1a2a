package watcher

import "context"

// WatcherBackend is the file watching implementation behind a Watcher.
type WatcherBackend interface {
	// Watch adds a path to be monitored. The path can be a file or directory.
	Watch(path string) error

	// Start begins watching for events. It blocks until the context is
	// cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop stops the watcher and releases all resources.
	Stop() error

	// Events returns the channel for receiving settled file events.
	Events() <-chan Event

	// Errors returns the channel for receiving errors.
	Errors() <-chan error
}
