package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/taskline/taskline-server/internal/domain"
	"github.com/taskline/taskline-server/internal/store"
)

// PreferenceService seeds and exposes application preferences.
type PreferenceService struct {
	store    *store.Store
	strategy domain.MarketStrategy
	logger   *slog.Logger
}

// NewPreferenceService creates a new preference service.
func NewPreferenceService(store *store.Store, strategy domain.MarketStrategy, logger *slog.Logger) *PreferenceService {
	return &PreferenceService{
		store:    store,
		strategy: strategy,
		logger:   logger,
	}
}

// SeedResult reports what a seeding pass wrote.
type SeedResult struct {
	Written             []string `json:"written"`
	DragDropInitialized bool     `json:"drag_drop_initialized"`
}

// SetDefaults writes the default preferences. With ifUnset, keys that already
// have a committed value are left alone; otherwise every default is rewritten.
// Private defaults are committed together in a single batch.
func (s *PreferenceService) SetDefaults(ctx context.Context, ifUnset bool) (*SeedResult, error) {
	result := &SeedResult{Written: []string{}}
	private := s.store.Edit(domain.NamespacePrivate)

	put := func(key string, value any) error {
		if ifUnset {
			set, err := s.store.Contains(ctx, domain.NamespacePrivate, key)
			if err != nil {
				return fmt.Errorf("check %s: %w", key, err)
			}
			if set {
				return nil
			}
		}
		private.Put(key, value)
		if !slices.Contains(result.Written, key) {
			result.Written = append(result.Written, key)
		}
		return nil
	}

	for _, def := range domain.DefaultPreferences() {
		if err := put(def.Key, def.Value); err != nil {
			return nil, err
		}
	}

	if err := s.setExtras(ctx, put, result); err != nil {
		return nil, err
	}

	if err := private.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit preferences: %w", err)
	}

	if len(result.Written) > 0 {
		s.logger.Info("preferences seeded",
			"written", len(result.Written),
			"if_unset", ifUnset,
			"strategy", s.strategy,
		)
	}
	return result, nil
}

// setExtras applies the one-shot and strategy-dependent defaults.
func (s *PreferenceService) setExtras(ctx context.Context, put func(string, any) error, result *SeedResult) error {
	initialized, err := s.store.GetBool(ctx, domain.NamespacePrivate, domain.PrefDragDropInitialized, false)
	if err != nil {
		return err
	}
	if !initialized {
		err := s.store.Edit(domain.NamespacePublic).
			Put(domain.PrefSortFlags, domain.SortFlagDragDrop).
			Put(domain.PrefSortSort, domain.SortAuto).
			Commit(ctx)
		if err != nil {
			return fmt.Errorf("commit sort defaults: %w", err)
		}
		if err := s.store.SetPreference(ctx, domain.NamespacePrivate, domain.PrefSubtasksHelp, 1); err != nil {
			return err
		}
		if err := s.store.SetPreference(ctx, domain.NamespacePrivate, domain.PrefDragDropInitialized, true); err != nil {
			return err
		}
		result.DragDropInitialized = true
	}

	if err := put(domain.PrefEditControlOrder, domain.DefaultEditControlOrder); err != nil {
		return err
	}

	if s.strategy.DefaultPhoneLayout() {
		if err := put(domain.PrefForcePhoneLayout, true); err != nil {
			return err
		}
	}
	return nil
}

// List returns every preference in a namespace.
func (s *PreferenceService) List(ctx context.Context, ns domain.PreferenceNamespace) (map[string]any, error) {
	return s.store.ListPreferences(ctx, ns)
}
