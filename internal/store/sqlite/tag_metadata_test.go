package sqlite

import (
	"context"
	"testing"

	"github.com/taskline/taskline-server/internal/domain"
)

func createTestTag(t *testing.T, s *Store) *domain.Tag {
	t.Helper()
	tag := &domain.Tag{Name: "Household"}
	if err := s.CreateTag(context.Background(), tag); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	return tag
}

func liveValues(t *testing.T, s *Store, tagUUID string) map[string]int {
	t.Helper()
	rows, err := s.ListMemberLinks(context.Background(), tagUUID, false)
	if err != nil {
		t.Fatalf("ListMemberLinks: %v", err)
	}
	out := make(map[string]int)
	for _, r := range rows {
		out[r.Value]++
	}
	return out
}

func TestCreateMemberLink_InsertsOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tag := createTestTag(t, s)

	changed, err := s.CreateMemberLink(ctx, tag.ID, tag.UUID, "u1", false, domain.WriteOptions{})
	if err != nil {
		t.Fatalf("CreateMemberLink: %v", err)
	}
	if !changed {
		t.Error("first link should write a row")
	}

	changed, err = s.CreateMemberLink(ctx, tag.ID, tag.UUID, "u1", false, domain.WriteOptions{})
	if err != nil {
		t.Fatalf("CreateMemberLink again: %v", err)
	}
	if changed {
		t.Error("linking a live member again should be a no-op")
	}

	all, err := s.ListMemberLinks(ctx, tag.UUID, true)
	if err != nil {
		t.Fatalf("ListMemberLinks: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("rows: got %d, want 1", len(all))
	}
	if all[0].Key != domain.KeyTagMember || all[0].TagID != tag.ID || all[0].CreatedAt.IsZero() {
		t.Errorf("unexpected row: %+v", all[0])
	}
}

func TestCreateMemberLink_Removed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tag := createTestTag(t, s)

	if _, err := s.CreateMemberLink(ctx, tag.ID, tag.UUID, "u1", true, domain.WriteOptions{}); err != nil {
		t.Fatalf("CreateMemberLink removed: %v", err)
	}

	all, err := s.ListMemberLinks(ctx, tag.UUID, true)
	if err != nil {
		t.Fatalf("ListMemberLinks: %v", err)
	}
	if len(all) != 1 || !all[0].IsDeleted() {
		t.Fatalf("expected one pre-tombstoned row, got %+v", all)
	}

	// Linking again as present revives the same row rather than adding one.
	changed, err := s.CreateMemberLink(ctx, tag.ID, tag.UUID, "u1", false, domain.WriteOptions{})
	if err != nil {
		t.Fatalf("CreateMemberLink revive: %v", err)
	}
	if !changed {
		t.Error("revive should write")
	}
	all, err = s.ListMemberLinks(ctx, tag.UUID, true)
	if err != nil {
		t.Fatalf("ListMemberLinks: %v", err)
	}
	if len(all) != 1 || all[0].IsDeleted() {
		t.Errorf("expected one live row, got %+v", all)
	}
}

func TestRemoveMemberLink_TombstonesNeverDeletes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tag := createTestTag(t, s)

	for _, m := range []string{"u1", "u2"} {
		if _, err := s.CreateMemberLink(ctx, tag.ID, tag.UUID, m, false, domain.WriteOptions{}); err != nil {
			t.Fatalf("CreateMemberLink %s: %v", m, err)
		}
	}
	before, err := s.CountAllTagMetadata(ctx, tag.UUID)
	if err != nil {
		t.Fatalf("CountAllTagMetadata: %v", err)
	}

	n, err := s.RemoveMemberLink(ctx, tag.ID, tag.UUID, "u1", domain.WriteOptions{})
	if err != nil {
		t.Fatalf("RemoveMemberLink: %v", err)
	}
	if n != 1 {
		t.Errorf("tombstoned: got %d, want 1", n)
	}

	n, err = s.RemoveMemberLink(ctx, tag.ID, tag.UUID, "u1", domain.WriteOptions{})
	if err != nil {
		t.Fatalf("RemoveMemberLink again: %v", err)
	}
	if n != 0 {
		t.Errorf("second removal should be a no-op, tombstoned %d", n)
	}

	n, err = s.RemoveMemberLink(ctx, tag.ID, tag.UUID, "nobody", domain.WriteOptions{})
	if err != nil || n != 0 {
		t.Errorf("removing unknown member: n=%d err=%v", n, err)
	}

	after, err := s.CountAllTagMetadata(ctx, tag.UUID)
	if err != nil {
		t.Fatalf("CountAllTagMetadata: %v", err)
	}
	if after < before {
		t.Errorf("row count dropped from %d to %d", before, after)
	}

	live := liveValues(t, s, tag.UUID)
	if live["u1"] != 0 || live["u2"] != 1 {
		t.Errorf("live rows: %v", live)
	}

	count, err := s.CountTagMetadata(ctx, tag.UUID)
	if err != nil {
		t.Fatalf("CountTagMetadata: %v", err)
	}
	if count != 1 {
		t.Errorf("live count: got %d, want 1", count)
	}
}

func TestMemberLinks_ScopedByTag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := createTestTag(t, s)
	b := createTestTag(t, s)

	if _, err := s.CreateMemberLink(ctx, a.ID, a.UUID, "u1", false, domain.WriteOptions{}); err != nil {
		t.Fatalf("CreateMemberLink: %v", err)
	}
	if _, err := s.RemoveMemberLink(ctx, b.ID, b.UUID, "u1", domain.WriteOptions{}); err != nil {
		t.Fatalf("RemoveMemberLink: %v", err)
	}

	if live := liveValues(t, s, a.UUID); live["u1"] != 1 {
		t.Errorf("removal on another tag affected this one: %v", live)
	}
}

func TestOutstanding_RecordedUnlessSuppressed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tag := createTestTag(t, s)

	if _, err := s.CreateMemberLink(ctx, tag.ID, tag.UUID, "quiet", false, domain.WriteOptions{SuppressOutstanding: true}); err != nil {
		t.Fatalf("CreateMemberLink suppressed: %v", err)
	}
	entries, err := s.ListOutstanding(ctx, 0)
	if err != nil {
		t.Fatalf("ListOutstanding: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("suppressed write recorded %d entries", len(entries))
	}

	if _, err := s.CreateMemberLink(ctx, tag.ID, tag.UUID, "loud", false, domain.WriteOptions{}); err != nil {
		t.Fatalf("CreateMemberLink: %v", err)
	}
	entries, err = s.ListOutstanding(ctx, 0)
	if err != nil {
		t.Fatalf("ListOutstanding: %v", err)
	}
	if len(entries) != len(insertColumns) {
		t.Fatalf("entries: got %d, want %d", len(entries), len(insertColumns))
	}

	columns := make(map[string]string)
	for _, e := range entries {
		columns[e.Column] = e.Value
	}
	if columns["value"] != "loud" {
		t.Errorf("value entry: got %q", columns["value"])
	}
	if columns["key"] != domain.KeyTagMember {
		t.Errorf("key entry: got %q", columns["key"])
	}
	if columns["deleted_at"] != "0" {
		t.Errorf("deleted_at entry: got %q", columns["deleted_at"])
	}

	if _, err := s.RemoveMemberLink(ctx, tag.ID, tag.UUID, "loud", domain.WriteOptions{}); err != nil {
		t.Fatalf("RemoveMemberLink: %v", err)
	}
	entries, err = s.ListOutstanding(ctx, 0)
	if err != nil {
		t.Fatalf("ListOutstanding: %v", err)
	}
	if len(entries) != len(insertColumns)+len(removeColumns) {
		t.Errorf("entries after removal: got %d", len(entries))
	}
	last := entries[len(entries)-1]
	if last.Column != "deleted_at" || last.Value == "0" {
		t.Errorf("tombstone entry: %+v", last)
	}

	limited, err := s.ListOutstanding(ctx, 2)
	if err != nil {
		t.Fatalf("ListOutstanding limit: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limit: got %d, want 2", len(limited))
	}
}

func TestAckOutstanding(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tag := createTestTag(t, s)

	if _, err := s.CreateMemberLink(ctx, tag.ID, tag.UUID, "u1", false, domain.WriteOptions{}); err != nil {
		t.Fatalf("CreateMemberLink: %v", err)
	}
	entries, err := s.ListOutstanding(ctx, 0)
	if err != nil {
		t.Fatalf("ListOutstanding: %v", err)
	}

	ids := []int64{entries[0].ID, entries[1].ID, 99999}
	n, err := s.AckOutstanding(ctx, ids)
	if err != nil {
		t.Fatalf("AckOutstanding: %v", err)
	}
	if n != 2 {
		t.Errorf("acked: got %d, want 2", n)
	}

	remaining, err := s.ListOutstanding(ctx, 0)
	if err != nil {
		t.Fatalf("ListOutstanding: %v", err)
	}
	if len(remaining) != len(entries)-2 {
		t.Errorf("remaining: got %d, want %d", len(remaining), len(entries)-2)
	}

	if n, err := s.AckOutstanding(ctx, nil); err != nil || n != 0 {
		t.Errorf("empty ack: n=%d err=%v", n, err)
	}
}

func TestReviveAndTombstoneByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tag := createTestTag(t, s)

	if _, err := s.CreateMemberLink(ctx, tag.ID, tag.UUID, "u1", true, domain.WriteOptions{SuppressOutstanding: true}); err != nil {
		t.Fatalf("CreateMemberLink: %v", err)
	}
	rows, err := s.ListMemberLinks(ctx, tag.UUID, true)
	if err != nil {
		t.Fatalf("ListMemberLinks: %v", err)
	}

	if err := s.ReviveTagMetadata(ctx, tag.ID, []int64{rows[0].ID}, domain.WriteOptions{}); err != nil {
		t.Fatalf("ReviveTagMetadata: %v", err)
	}
	if live := liveValues(t, s, tag.UUID); live["u1"] != 1 {
		t.Fatalf("expected revived row, got %v", live)
	}

	if err := s.TombstoneTagMetadata(ctx, tag.ID, []int64{rows[0].ID}, domain.WriteOptions{}); err != nil {
		t.Fatalf("TombstoneTagMetadata: %v", err)
	}
	if live := liveValues(t, s, tag.UUID); len(live) != 0 {
		t.Errorf("expected no live rows, got %v", live)
	}

	n, err := s.CountOutstanding(ctx, rows[0].ID)
	if err != nil {
		t.Fatalf("CountOutstanding: %v", err)
	}
	if n != 2*len(removeColumns) {
		t.Errorf("outstanding: got %d, want %d", n, 2*len(removeColumns))
	}
}
