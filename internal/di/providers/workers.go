package providers

import (
	"context"
	"sync"

	"github.com/samber/do/v2"

	"github.com/taskline/taskline-server/internal/config"
	"github.com/taskline/taskline-server/internal/logger"
	"github.com/taskline/taskline-server/internal/ratelimit"
	"github.com/taskline/taskline-server/internal/service"
	"github.com/taskline/taskline-server/internal/validation"
	"github.com/taskline/taskline-server/internal/watcher"
)

// APIRateLimiter throttles HTTP requests per client IP.
type APIRateLimiter struct {
	*ratelimit.KeyedRateLimiter
}

// InboxRateLimiter throttles inbox payloads per tag.
type InboxRateLimiter struct {
	*ratelimit.KeyedRateLimiter
}

// ProvideAPIRateLimiter provides the HTTP rate limiter.
func ProvideAPIRateLimiter(i do.Injector) (*APIRateLimiter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &APIRateLimiter{ratelimit.New(cfg.Server.RateLimit, cfg.Server.RateBurst)}, nil
}

// ProvideInboxRateLimiter provides the inbox rate limiter.
func ProvideInboxRateLimiter(i do.Injector) (*InboxRateLimiter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &InboxRateLimiter{ratelimit.New(cfg.Sync.RateLimit, cfg.Sync.RateBurst)}, nil
}

// ProvideInboxService provides the inbox service.
func ProvideInboxService(i do.Injector) (*service.InboxService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	membership := do.MustInvoke[*service.MembershipService](i)
	v := do.MustInvoke[*validation.Validator](i)
	limiter := do.MustInvoke[*InboxRateLimiter](i)

	return service.NewInboxService(
		membership,
		v,
		limiter.KeyedRateLimiter,
		cfg.Sync.InboxPath,
		log.WithComponent("inbox").Logger,
	), nil
}

// InboxWorkerHandle runs the inbox watcher loop.
// Watcher is nil when the inbox is disabled.
type InboxWorkerHandle struct {
	Watcher *watcher.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Shutdown implements do.Shutdownable.
func (h *InboxWorkerHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	h.wg.Wait()
	return h.Watcher.Stop()
}

// ProvideInboxWorker provides the inbox worker, starting it when the inbox is enabled.
func ProvideInboxWorker(i do.Injector) (*InboxWorkerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Sync.InboxEnabled {
		log.Info("Inbox watcher disabled by configuration")
		return &InboxWorkerHandle{}, nil
	}

	inbox := do.MustInvoke[*service.InboxService](i)
	if err := inbox.Prepare(); err != nil {
		return nil, err
	}

	w, err := watcher.New(log.WithComponent("watcher").Logger, watcher.Options{
		Extensions:   []string{".json"},
		SettleDelay:  cfg.Sync.SettleDelay,
		IgnoreHidden: true,
	})
	if err != nil {
		return nil, err
	}
	if err := w.Watch(inbox.Dir()); err != nil {
		_ = w.Stop()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &InboxWorkerHandle{Watcher: w, cancel: cancel}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		if err := w.Start(ctx); err != nil && ctx.Err() == nil {
			log.Error("Inbox watcher stopped", "error", err)
		}
	}()
	go func() {
		defer h.wg.Done()
		if err := inbox.Run(ctx, w); err != nil {
			log.Error("Inbox worker stopped", "error", err)
		}
	}()

	log.Info("Inbox watcher started", "path", inbox.Dir())

	return h, nil
}
