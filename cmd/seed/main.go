// Package main writes default preferences and, optionally, demo tags.
//
// Usage:
//
//	DATA_PATH=~/Taskline/data go run ./cmd/seed
//	DATA_PATH=~/Taskline/data go run ./cmd/seed --force --market-strategy phone
//	DATA_PATH=~/Taskline/data go run ./cmd/seed --demo-tags
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/taskline/taskline-server/internal/config"
	"github.com/taskline/taskline-server/internal/domain"
	"github.com/taskline/taskline-server/internal/logger"
	"github.com/taskline/taskline-server/internal/service"
	"github.com/taskline/taskline-server/internal/store"
	"github.com/taskline/taskline-server/internal/store/sqlite"
	"github.com/taskline/taskline-server/internal/validation"
)

var (
	force          = flag.Bool("force", false, "Overwrite preferences that already have a value")
	marketStrategy = flag.String("market-strategy", "generic", "Preference defaults: generic or phone")
	demoTags       = flag.Bool("demo-tags", false, "Create demo tags with members")
)

// demoTag is a tag created by --demo-tags. Legacy tags carry a serialized
// member list that is migrated on their first sync.
type demoTag struct {
	name    string
	members []domain.Member
	legacy  bool
}

var demo = []demoTag{
	{name: "Household", members: []domain.Member{{ID: "u-alex"}, {Email: "sam@example.com"}}},
	{name: "Work", members: []domain.Member{{ID: "u-alex", Email: "alex@example.com"}, {ID: "u-jordan"}}},
	{name: "Book club", members: []domain.Member{{Email: "robin@example.com"}, {ID: "u-kai"}}, legacy: true},
}

func main() {
	flag.Parse()

	log := logger.New(logger.Config{Environment: "development"})
	ctx := context.Background()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/Taskline/data")
	}
	data := config.DataConfig{BasePath: dataPath}

	if err := os.MkdirAll(filepath.Dir(data.DatabasePath()), 0o755); err != nil {
		log.Fatal("Failed to create data directory", "error", err)
	}

	prefs, err := store.New(data.PreferencesPath(), log.Logger)
	if err != nil {
		log.Fatal("Failed to open preference store", "error", err)
	}
	defer prefs.Close()

	strategy := domain.MarketStrategy(strings.ToLower(*marketStrategy))
	prefService := service.NewPreferenceService(prefs, strategy, log.WithComponent("preferences").Logger)

	result, err := prefService.SetDefaults(ctx, !*force)
	if err != nil {
		log.Fatal("Failed to write default preferences", "error", err)
	}
	log.Info("Preferences seeded",
		"path", data.PreferencesPath(),
		"written", len(result.Written),
		"drag_drop_initialized", result.DragDropInitialized,
		"force", *force,
	)

	if !*demoTags {
		return
	}

	db, err := sqlite.Open(data.DatabasePath(), log.Logger)
	if err != nil {
		log.Fatal("Failed to open database", "error", err)
	}
	defer db.Close()

	v := validation.New()
	tags := service.NewTagService(db, v, log.WithComponent("tags").Logger)
	membership := service.NewMembershipService(db, v, log.WithComponent("membership").Logger)

	for _, d := range demo {
		req := service.CreateTagRequest{Name: d.name}
		if d.legacy {
			req.LegacyMembers = d.members
		}
		tag, err := tags.CreateTag(ctx, req)
		if err != nil {
			log.WithError(err).Error("Failed to create demo tag", "name", d.name)
			continue
		}

		tagLog := log.WithTag(tag.UUID)
		if d.legacy {
			tagLog.Info("Demo tag created with legacy members", "name", d.name, "members", len(d.members))
			continue
		}
		result, err := membership.SyncTagMembers(ctx, tag.UUID, d.members)
		if err != nil {
			tagLog.WithError(err).Error("Failed to sync demo members")
			continue
		}
		tagLog.Info("Demo tag created", "name", d.name, "members", result.MemberCount)
	}
}
