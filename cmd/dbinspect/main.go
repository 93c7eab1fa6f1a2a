// Package main prints a summary of the tag database and preference store.
//
// Usage:
//
//	DATA_PATH=~/Taskline/data go run ./cmd/dbinspect
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/taskline/taskline-server/internal/config"
	"github.com/taskline/taskline-server/internal/domain"
	"github.com/taskline/taskline-server/internal/store"
	"github.com/taskline/taskline-server/internal/store/sqlite"
)

func main() {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/Taskline/data")
	}
	data := config.DataConfig{BasePath: dataPath}
	ctx := context.Background()

	db, err := sqlite.Open(data.DatabasePath(), nil)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	stats, err := db.Stats(ctx)
	if err != nil {
		log.Fatalf("Failed to count rows: %v", err)
	}
	fmt.Printf("Tags:                %d\n", stats.Tags)
	fmt.Printf("  with legacy list:  %d\n", stats.LegacyTags)
	fmt.Printf("Live members:        %d\n", stats.LiveMembers)
	fmt.Printf("Tombstoned members:  %d\n", stats.TombstonedMembers)
	fmt.Printf("Outstanding changes: %d\n", stats.Outstanding)

	tags, err := db.ListTags(ctx)
	if err != nil {
		log.Fatalf("Failed to list tags: %v", err)
	}
	if len(tags) > 0 {
		fmt.Println()
		for _, t := range tags {
			legacy := ""
			if t.HasLegacyMembers() {
				legacy = " (legacy list pending)"
			}
			fmt.Printf("  %-36s %-24s %3d members%s\n", t.UUID, t.Name, t.MemberCount, legacy)
		}
	}

	prefs, err := store.New(data.PreferencesPath(), nil)
	if err != nil {
		log.Fatalf("Failed to open preference store: %v", err)
	}
	defer prefs.Close()

	for _, ns := range []domain.PreferenceNamespace{domain.NamespacePrivate, domain.NamespacePublic} {
		values, err := prefs.ListPreferences(ctx, ns)
		if err != nil {
			log.Fatalf("Failed to list %s preferences: %v", ns, err)
		}

		fmt.Println()
		fmt.Printf("=== Preferences (%s, %d keys) ===\n", ns, len(values))
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %-32s %v\n", k, values[k])
		}
	}
}
