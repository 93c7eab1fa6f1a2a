package providers

import (
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/taskline/taskline-server/internal/config"
	"github.com/taskline/taskline-server/internal/logger"
	"github.com/taskline/taskline-server/internal/store"
	"github.com/taskline/taskline-server/internal/store/sqlite"
)

// DatabaseHandle wraps the tag database with shutdown capability.
type DatabaseHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *DatabaseHandle) Shutdown() error {
	return h.Close()
}

// ProvideDatabase provides the SQLite tag database.
func ProvideDatabase(i do.Injector) (*DatabaseHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Data.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	path := cfg.Data.DatabasePath()
	db, err := sqlite.Open(path, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", path)

	return &DatabaseHandle{Store: db}, nil
}

// PreferenceStoreHandle wraps the preference store with shutdown capability.
type PreferenceStoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *PreferenceStoreHandle) Shutdown() error {
	return h.Close()
}

// ProvidePreferenceStore provides the Badger-backed preference store.
func ProvidePreferenceStore(i do.Injector) (*PreferenceStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	path := cfg.Data.PreferencesPath()
	s, err := store.New(path, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Preference store initialized", "path", path)

	return &PreferenceStoreHandle{Store: s}, nil
}
