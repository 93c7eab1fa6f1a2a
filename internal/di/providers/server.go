package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/taskline/taskline-server/internal/api"
	"github.com/taskline/taskline-server/internal/config"
	"github.com/taskline/taskline-server/internal/logger"
	"github.com/taskline/taskline-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	db := do.MustInvoke[*DatabaseHandle](i)
	prefs := do.MustInvoke[*PreferenceStoreHandle](i)
	limiter := do.MustInvoke[*APIRateLimiter](i)

	services := &api.Services{
		Tag:        do.MustInvoke[*service.TagService](i),
		Membership: do.MustInvoke[*service.MembershipService](i),
		Preference: do.MustInvoke[*service.PreferenceService](i),
	}

	handler := api.NewServer(services, api.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
		Limiter:     limiter.KeyedRateLimiter,
		Health: map[string]api.Pinger{
			"database":    db.Store,
			"preferences": prefs.Store,
		},
	}, log.WithComponent("http").Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
