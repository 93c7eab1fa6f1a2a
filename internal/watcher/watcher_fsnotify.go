package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// fsnotifyBackend implements WatcherBackend using fsnotify with debouncing.
type fsnotifyBackend struct {
	logger  *slog.Logger
	opts    Options
	watcher *fsnotify.Watcher

	pending map[string]*pendingEvent // path -> file still changing
	seen    map[string]struct{}      // paths already reported, for added vs modified
	mu      sync.Mutex               // protects pending and seen

	events   chan Event
	errors   chan error
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// pendingEvent tracks a file that may still be changing.
type pendingEvent struct {
	size    int64
	modTime time.Time
	timer   *time.Timer
}

func newFsnotifyBackend(logger *slog.Logger, opts Options) (*fsnotifyBackend, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &fsnotifyBackend{
		logger:  logger,
		opts:    opts,
		watcher: watcher,
		pending: make(map[string]*pendingEvent),
		seen:    make(map[string]struct{}),
		events:  make(chan Event, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Watch adds a path to be monitored.
func (b *fsnotifyBackend) Watch(path string) error {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}

	if !info.IsDir() {
		return b.watcher.Add(filepath.Dir(path))
	}
	if !b.opts.Recursive {
		return b.watcher.Add(path)
	}
	return b.watchTree(path)
}

// watchTree adds a watch for root and every directory below it.
func (b *fsnotifyBackend) watchTree(root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			b.logger.Warn("failed to access path", "path", p, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && b.opts.shouldIgnore(p) {
			return filepath.SkipDir
		}

		if err := b.watcher.Add(p); err != nil {
			b.logger.Error("failed to add watch", "path", p, "error", err)
			return nil
		}
		b.logger.Debug("added watch", "path", p)
		return nil
	})
}

// Start begins watching for events.
func (b *fsnotifyBackend) Start(ctx context.Context) error {
	b.wg.Add(1)
	go b.processEvents(ctx)

	select {
	case <-ctx.Done():
	case <-b.done:
	}
	return nil
}

func (b *fsnotifyBackend) processEvents(ctx context.Context) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case event, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			b.handleFsnotifyEvent(event)
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			select {
			case b.errors <- err:
			default:
				b.logger.Warn("dropping watcher error", "error", err)
			}
		}
	}
}

// handleFsnotifyEvent routes an fsnotify event, debouncing writes.
func (b *fsnotifyBackend) handleFsnotifyEvent(event fsnotify.Event) {
	path := event.Name

	if b.opts.shouldIgnore(path) {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			if b.opts.Recursive {
				_ = b.watchTree(path)
			}
			return
		}
	}

	if !b.opts.wantsFile(path) {
		return
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		b.cancelPending(path)
		b.mu.Lock()
		_, known := b.seen[path]
		delete(b.seen, path)
		b.mu.Unlock()
		if known {
			b.emitEvent(Event{Type: EventRemoved, Path: path})
		}
		return
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
		b.startSettling(path)
	}
}

// startSettling begins or restarts the settle timer for a file.
func (b *fsnotifyBackend) startSettling(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if pending, exists := b.pending[path]; exists {
		pending.timer.Stop()
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(b.pending, path)
		return
	}
	if info.IsDir() {
		return
	}

	pending := &pendingEvent{
		size:    info.Size(),
		modTime: info.ModTime(),
	}
	pending.timer = time.AfterFunc(b.opts.SettleDelay, func() {
		b.checkSettled(path)
	})
	b.pending[path] = pending
}

// checkSettled emits the event once size and mtime stop changing.
func (b *fsnotifyBackend) checkSettled(path string) {
	b.mu.Lock()

	pending, exists := b.pending[path]
	if !exists {
		b.mu.Unlock()
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		// Gone before it settled.
		delete(b.pending, path)
		b.mu.Unlock()
		return
	}

	if info.Size() != pending.size || !info.ModTime().Equal(pending.modTime) {
		pending.size = info.Size()
		pending.modTime = info.ModTime()
		pending.timer = time.AfterFunc(b.opts.SettleDelay, func() {
			b.checkSettled(path)
		})
		b.mu.Unlock()
		return
	}

	delete(b.pending, path)
	eventType := EventAdded
	if _, known := b.seen[path]; known {
		eventType = EventModified
	}
	b.seen[path] = struct{}{}
	b.mu.Unlock()

	b.emitEvent(Event{
		Type:    eventType,
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	})
}

func (b *fsnotifyBackend) cancelPending(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if pending, exists := b.pending[path]; exists {
		pending.timer.Stop()
		delete(b.pending, path)
	}
}

// emitEvent sends an event unless the backend is stopping.
func (b *fsnotifyBackend) emitEvent(event Event) {
	select {
	case b.events <- event:
	case <-b.done:
	}
}

// Events returns the events channel.
func (b *fsnotifyBackend) Events() <-chan Event {
	return b.events
}

// Errors returns the errors channel.
func (b *fsnotifyBackend) Errors() <-chan error {
	return b.errors
}

// Stop stops the watcher. It is safe to call more than once.
// The events channel is left open; consumers should stop on context
// cancellation rather than channel close.
func (b *fsnotifyBackend) Stop() error {
	var err error
	b.stopOnce.Do(func() {
		close(b.done)

		b.mu.Lock()
		for _, pending := range b.pending {
			pending.timer.Stop()
		}
		clear(b.pending)
		b.mu.Unlock()

		err = b.watcher.Close()
		b.wg.Wait()
	})
	return err
}
