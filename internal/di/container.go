// Package di provides dependency injection configuration for the taskline server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/taskline/taskline-server/internal/config"
	"github.com/taskline/taskline-server/internal/di/providers"
	"github.com/taskline/taskline-server/internal/logger"
	"github.com/taskline/taskline-server/internal/service"
	"github.com/taskline/taskline-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Storage layer
	do.Provide(injector, providers.ProvideDatabase)
	do.Provide(injector, providers.ProvidePreferenceStore)

	// Business services
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideMembershipService)
	do.Provide(injector, providers.ProvidePreferenceService)
	do.Provide(injector, providers.ProvideInboxService)

	// Workers
	do.Provide(injector, providers.ProvideAPIRateLimiter)
	do.Provide(injector, providers.ProvideInboxRateLimiter)
	do.Provide(injector, providers.ProvideInboxWorker)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services in dependency order.
// Services are lazy, so this is what opens the stores and starts the workers.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)

	if _, err := do.Invoke[*providers.DatabaseHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.PreferenceStoreHandle](injector); err != nil {
		return err
	}

	_ = do.MustInvoke[*service.TagService](injector)
	_ = do.MustInvoke[*service.MembershipService](injector)
	if _, err := do.Invoke[*service.PreferenceService](injector); err != nil {
		return err
	}

	if _, err := do.Invoke[*providers.InboxWorkerHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
