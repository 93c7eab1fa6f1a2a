package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/taskline/taskline-server/internal/domain"
	"github.com/taskline/taskline-server/internal/store"
)

func TestCreateAndGetTag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tag := &domain.Tag{Name: "Groceries", Members: `[{"id":"u1"}]`}
	tag.InitTimestamps()

	if err := s.CreateTag(ctx, tag); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if tag.ID == 0 {
		t.Fatal("CreateTag did not assign an id")
	}
	if tag.UUID == "" {
		t.Fatal("CreateTag did not assign a uuid")
	}

	got, err := s.GetTagByID(ctx, tag.ID)
	if err != nil {
		t.Fatalf("GetTagByID: %v", err)
	}
	if got.UUID != tag.UUID {
		t.Errorf("UUID: got %q, want %q", got.UUID, tag.UUID)
	}
	if got.Name != "Groceries" {
		t.Errorf("Name: got %q, want %q", got.Name, "Groceries")
	}
	if got.Members != tag.Members {
		t.Errorf("Members: got %q, want %q", got.Members, tag.Members)
	}
	if got.IsDeleted() {
		t.Error("new tag should be live")
	}

	// Timestamps round-trip at millisecond precision.
	if got.CreatedAt.UnixMilli() != tag.CreatedAt.UnixMilli() {
		t.Errorf("CreatedAt: got %v, want %v", got.CreatedAt, tag.CreatedAt)
	}

	byUUID, err := s.GetTagByUUID(ctx, tag.UUID)
	if err != nil {
		t.Fatalf("GetTagByUUID: %v", err)
	}
	if byUUID.ID != tag.ID {
		t.Errorf("GetTagByUUID id: got %d, want %d", byUUID.ID, tag.ID)
	}
}

func TestGetTag_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetTagByID(ctx, 42); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetTagByID: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetTagByUUID(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetTagByUUID: expected ErrNotFound, got %v", err)
	}
}

func TestCreateTag_DuplicateUUID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateTag(ctx, &domain.Tag{UUID: "same", Name: "A"}); err != nil {
		t.Fatalf("CreateTag first: %v", err)
	}
	err := s.CreateTag(ctx, &domain.Tag{UUID: "same", Name: "B"})
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestSaveTag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tag := &domain.Tag{Name: "Work", Members: `[{"id":"u1"}]`}
	if err := s.CreateTag(ctx, tag); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}

	tag.Members = ""
	tag.Name = "Office"
	if err := s.SaveTag(ctx, tag); err != nil {
		t.Fatalf("SaveTag: %v", err)
	}

	got, err := s.GetTagByID(ctx, tag.ID)
	if err != nil {
		t.Fatalf("GetTagByID: %v", err)
	}
	if got.Members != "" || got.Name != "Office" {
		t.Errorf("after save: got name=%q members=%q", got.Name, got.Members)
	}

	missing := &domain.Tag{ID: 999}
	if err := s.SaveTag(ctx, missing); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("SaveTag missing: expected ErrNotFound, got %v", err)
	}
}

func TestListTags_CaseInsensitiveOrderSkipsDeleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"banana", "Apple", "cherry"} {
		if err := s.CreateTag(ctx, &domain.Tag{Name: name}); err != nil {
			t.Fatalf("CreateTag %s: %v", name, err)
		}
	}
	gone := &domain.Tag{Name: "aardvark"}
	gone.MarkDeleted()
	if err := s.CreateTag(ctx, gone); err != nil {
		t.Fatalf("CreateTag deleted: %v", err)
	}

	tags, err := s.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}

	var names []string
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	want := []string{"Apple", "banana", "cherry"}
	if len(names) != len(want) {
		t.Fatalf("names: got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d]: got %q, want %q", i, names[i], want[i])
		}
	}
}

func TestFindOrCreateTagByUUID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tag, created, err := s.FindOrCreateTagByUUID(ctx, "remote-uuid")
	if err != nil {
		t.Fatalf("FindOrCreateTagByUUID: %v", err)
	}
	if !created {
		t.Error("expected tag to be created")
	}

	again, created, err := s.FindOrCreateTagByUUID(ctx, "remote-uuid")
	if err != nil {
		t.Fatalf("FindOrCreateTagByUUID again: %v", err)
	}
	if created {
		t.Error("expected existing tag")
	}
	if again.ID != tag.ID {
		t.Errorf("ID: got %d, want %d", again.ID, tag.ID)
	}
}
