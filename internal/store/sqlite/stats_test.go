package sqlite

import (
	"context"
	"testing"

	"github.com/taskline/taskline-server/internal/domain"
)

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if *empty != (Stats{}) {
		t.Fatalf("empty database: got %+v", empty)
	}

	legacy := &domain.Tag{Name: "Legacy", Members: `[{"id":"u9"}]`}
	if err := s.CreateTag(ctx, legacy); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	tag := &domain.Tag{Name: "Team"}
	if err := s.CreateTag(ctx, tag); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}

	for _, m := range []string{"u1", "u2"} {
		if _, err := s.CreateMemberLink(ctx, tag.ID, tag.UUID, m, false, domain.WriteOptions{SuppressOutstanding: true}); err != nil {
			t.Fatalf("CreateMemberLink %s: %v", m, err)
		}
	}
	if _, err := s.RemoveMemberLink(ctx, tag.ID, tag.UUID, "u2", domain.WriteOptions{}); err != nil {
		t.Fatalf("RemoveMemberLink: %v", err)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Tags != 2 {
		t.Errorf("Tags: got %d, want 2", st.Tags)
	}
	if st.LegacyTags != 1 {
		t.Errorf("LegacyTags: got %d, want 1", st.LegacyTags)
	}
	if st.LiveMembers != 1 || st.TombstonedMembers != 1 {
		t.Errorf("members: got live=%d tombstoned=%d, want 1/1", st.LiveMembers, st.TombstonedMembers)
	}
	if st.Outstanding == 0 {
		t.Error("removal should queue outstanding entries")
	}
}
