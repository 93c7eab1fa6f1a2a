package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/taskline/taskline-server/internal/config"
	"github.com/taskline/taskline-server/internal/domain"
	"github.com/taskline/taskline-server/internal/logger"
	"github.com/taskline/taskline-server/internal/service"
	"github.com/taskline/taskline-server/internal/validation"
)

// ProvideValidator provides the shared request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideTagService provides the tag service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	db := do.MustInvoke[*DatabaseHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewTagService(db.Store, v, log.WithComponent("tags").Logger), nil
}

// ProvideMembershipService provides the tag membership service.
func ProvideMembershipService(i do.Injector) (*service.MembershipService, error) {
	db := do.MustInvoke[*DatabaseHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewMembershipService(db.Store, v, log.WithComponent("membership").Logger), nil
}

// ProvidePreferenceService provides the preference service, seeding defaults
// on first use when configured to.
func ProvidePreferenceService(i do.Injector) (*service.PreferenceService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	prefs := do.MustInvoke[*PreferenceStoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewPreferenceService(
		prefs.Store,
		domain.MarketStrategy(cfg.Preferences.MarketStrategy),
		log.WithComponent("preferences").Logger,
	)

	if cfg.Preferences.SeedOnBoot {
		result, err := svc.SetDefaults(context.Background(), true)
		if err != nil {
			return nil, err
		}
		log.Info("Default preferences seeded",
			"written", len(result.Written),
			"drag_drop_initialized", result.DragDropInitialized,
		)
	}

	return svc, nil
}
