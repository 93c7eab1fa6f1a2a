package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskline/taskline-server/internal/domain"
	domainerrors "github.com/taskline/taskline-server/internal/errors"
	"github.com/taskline/taskline-server/internal/store/sqlite"
	"github.com/taskline/taskline-server/internal/validation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupMembershipService creates a membership service backed by a temporary database.
func setupMembershipService(t *testing.T) (*MembershipService, *sqlite.Store) {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewMembershipService(db, validation.New(), testLogger()), db
}

func createTag(t *testing.T, db *sqlite.Store, legacy string) *domain.Tag {
	t.Helper()
	tag := &domain.Tag{Name: "Groceries", Members: legacy}
	require.NoError(t, db.CreateTag(context.Background(), tag))
	return tag
}

// liveMembers returns the sorted values of the live membership rows.
func liveMembers(t *testing.T, db *sqlite.Store, tagUUID string) []string {
	t.Helper()
	rows, err := db.ListMemberLinks(context.Background(), tagUUID, false)
	require.NoError(t, err)
	values := make([]string, 0, len(rows))
	for _, r := range rows {
		values = append(values, r.Value)
	}
	sort.Strings(values)
	return values
}

func TestSynchronizeMembers_CreatesLinks(t *testing.T) {
	svc, db := setupMembershipService(t)
	ctx := context.Background()
	tag := createTag(t, db, "")

	result, err := svc.SynchronizeMembers(ctx, tag, "", tag.UUID,
		`[{"id":"u1"},{"email":"Bob@Example.com"}]`)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Linked)
	assert.Equal(t, 2, result.MemberCount)
	assert.Equal(t, []string{"Bob@Example.com", "u1"}, liveMembers(t, db, tag.UUID))

	stored, err := db.GetTagByUUID(ctx, tag.UUID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.MemberCount)
}

func TestSynchronizeMembers_Idempotent(t *testing.T) {
	svc, db := setupMembershipService(t)
	ctx := context.Background()
	tag := createTag(t, db, "")
	members := `[{"id":"u1","email":"a@example.com"},{"id":"u2"},{"email":"c@example.com"}]`

	_, err := svc.SynchronizeMembers(ctx, tag, "", tag.UUID, members)
	require.NoError(t, err)
	pending, err := db.ListOutstanding(ctx, 0)
	require.NoError(t, err)

	result, err := svc.SynchronizeMembers(ctx, tag, "", tag.UUID, members)
	require.NoError(t, err)

	assert.False(t, result.Changed())
	assert.Equal(t, 3, result.Unchanged)

	after, err := db.ListOutstanding(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, after, len(pending), "a no-op sync must not queue outstanding entries")

	all, err := db.ListMemberLinks(ctx, tag.UUID, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSynchronizeMembers_RemovesAndRevives(t *testing.T) {
	svc, db := setupMembershipService(t)
	ctx := context.Background()
	tag := createTag(t, db, "")

	_, err := svc.SynchronizeMembers(ctx, tag, "", tag.UUID, `[{"id":"u1"},{"id":"u2"}]`)
	require.NoError(t, err)

	result, err := svc.SynchronizeMembers(ctx, tag, "", tag.UUID, `[{"id":"u2"}]`)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Unlinked)
	assert.Equal(t, []string{"u2"}, liveMembers(t, db, tag.UUID))

	result, err = svc.SynchronizeMembers(ctx, tag, "", tag.UUID, `[{"id":"u1"},{"id":"u2"}]`)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Revived)
	assert.Zero(t, result.Linked)
	assert.Equal(t, []string{"u1", "u2"}, liveMembers(t, db, tag.UUID))

	all, err := db.ListMemberLinks(ctx, tag.UUID, true)
	require.NoError(t, err)
	assert.Len(t, all, 2, "revival must reuse the tombstoned row")
}

func TestSynchronizeMembers_EmptyListRemovesAll(t *testing.T) {
	svc, db := setupMembershipService(t)
	ctx := context.Background()
	tag := createTag(t, db, "")

	_, err := svc.SynchronizeMembers(ctx, tag, "", tag.UUID, `[{"id":"u1"},{"id":"u2"}]`)
	require.NoError(t, err)

	result, err := svc.SynchronizeMembers(ctx, tag, "", tag.UUID, "[]")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Unlinked)
	assert.Zero(t, result.MemberCount)
	assert.Empty(t, liveMembers(t, db, tag.UUID))
}

func TestSynchronizeMembers_EmailMatchesCaseInsensitively(t *testing.T) {
	svc, db := setupMembershipService(t)
	ctx := context.Background()
	tag := createTag(t, db, "")

	_, err := svc.SynchronizeMembers(ctx, tag, "", tag.UUID, `[{"email":"carol@example.com"}]`)
	require.NoError(t, err)

	result, err := svc.SynchronizeMembers(ctx, tag, "", tag.UUID, `[{"email":"CAROL@Example.com"}]`)
	require.NoError(t, err)
	assert.False(t, result.Changed())
	assert.Equal(t, []string{"carol@example.com"}, liveMembers(t, db, tag.UUID))
}

func TestSynchronizeMembers_MigratesLegacyList(t *testing.T) {
	svc, db := setupMembershipService(t)
	ctx := context.Background()
	tag := createTag(t, db, `[{"id":"u1"},{"id":"gone"}]`)

	result, err := svc.SynchronizeMembers(ctx, tag, tag.Members, tag.UUID, `[{"id":"u1"},{"id":"u3"}]`)
	require.NoError(t, err)

	assert.Equal(t, 2, result.LegacyLinks)
	assert.Equal(t, 1, result.Linked)
	assert.Equal(t, []string{"u1", "u3"}, liveMembers(t, db, tag.UUID))

	all, err := db.ListMemberLinks(ctx, tag.UUID, true)
	require.NoError(t, err)
	var gone *domain.TagMetadata
	for i := range all {
		if all[i].Value == "gone" {
			gone = &all[i]
		}
	}
	require.NotNil(t, gone, "legacy member absent from the current list is recorded as removed")
	assert.True(t, gone.IsDeleted())

	stored, err := db.GetTagByUUID(ctx, tag.UUID)
	require.NoError(t, err)
	assert.False(t, stored.HasLegacyMembers())
	assert.Empty(t, tag.Members)
}

func TestSynchronizeMembers_MalformedLegacyDiscarded(t *testing.T) {
	svc, db := setupMembershipService(t)
	ctx := context.Background()
	tag := createTag(t, db, "{not json")

	result, err := svc.SynchronizeMembers(ctx, tag, tag.Members, tag.UUID, `[{"id":"u1"}]`)
	require.NoError(t, err)

	assert.True(t, result.LegacyDiscarded)
	assert.Equal(t, []string{"u1"}, liveMembers(t, db, tag.UUID))

	stored, err := db.GetTagByUUID(ctx, tag.UUID)
	require.NoError(t, err)
	assert.False(t, stored.HasLegacyMembers())
}

func TestSynchronizeMembers_MalformedCurrentRejected(t *testing.T) {
	svc, db := setupMembershipService(t)
	ctx := context.Background()
	tag := createTag(t, db, "")

	_, err := svc.SynchronizeMembers(ctx, tag, "", tag.UUID, `{"id":`)
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))

	count, err := db.CountAllTagMetadata(ctx, tag.UUID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSynchronizeMembers_NilTag(t *testing.T) {
	svc, _ := setupMembershipService(t)

	_, err := svc.SynchronizeMembers(context.Background(), nil, "", "t1", "[]")
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))
}

func TestSyncTagMembers_CreatesTag(t *testing.T) {
	svc, db := setupMembershipService(t)
	ctx := context.Background()

	result, err := svc.SyncTagMembers(ctx, "remote-tag", []domain.Member{{ID: "u1"}, {ID: "u1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Linked)

	tag, err := db.GetTagByUUID(ctx, "remote-tag")
	require.NoError(t, err)
	assert.Equal(t, 1, tag.MemberCount)
}

func TestSyncTagMembers_UsesStoredLegacyList(t *testing.T) {
	svc, db := setupMembershipService(t)
	ctx := context.Background()
	tag := createTag(t, db, `[{"email":"old@example.com"}]`)

	result, err := svc.SyncTagMembers(ctx, tag.UUID, []domain.Member{{Email: "old@example.com"}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.LegacyLinks)
	assert.Zero(t, result.Linked)
	assert.Equal(t, []string{"old@example.com"}, liveMembers(t, db, tag.UUID))
}

func TestCreateMemberLink_Outstanding(t *testing.T) {
	svc, db := setupMembershipService(t)
	ctx := context.Background()
	tag := createTag(t, db, "")

	changed, err := svc.CreateMemberLink(ctx, tag.UUID, "remote", false, domain.WriteOptions{SuppressOutstanding: true})
	require.NoError(t, err)
	assert.True(t, changed)

	pending, err := db.ListOutstanding(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending, "suppressed writes are not queued")

	changed, err = svc.CreateMemberLink(ctx, tag.UUID, "local", false, domain.WriteOptions{})
	require.NoError(t, err)
	assert.True(t, changed)

	pending, err = db.ListOutstanding(ctx, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, pending)

	stored, err := db.GetTagByUUID(ctx, tag.UUID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.MemberCount)
}

func TestCreateMemberLink_Removed(t *testing.T) {
	svc, db := setupMembershipService(t)
	ctx := context.Background()
	tag := createTag(t, db, "")

	changed, err := svc.CreateMemberLink(ctx, tag.UUID, "u1", true, domain.WriteOptions{})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Empty(t, liveMembers(t, db, tag.UUID))

	rows, err := db.ListMemberLinks(ctx, tag.UUID, true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsDeleted())

	changed, err = svc.CreateMemberLink(ctx, tag.UUID, "u1", true, domain.WriteOptions{})
	require.NoError(t, err)
	assert.False(t, changed, "already tombstoned")

	changed, err = svc.CreateMemberLink(ctx, tag.UUID, "u1", false, domain.WriteOptions{})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"u1"}, liveMembers(t, db, tag.UUID))
}

func TestCreateMemberLink_Validation(t *testing.T) {
	svc, db := setupMembershipService(t)
	tag := createTag(t, db, "")

	_, err := svc.CreateMemberLink(context.Background(), tag.UUID, "", false, domain.WriteOptions{})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))
}

func TestCreateMemberLink_UnknownTag(t *testing.T) {
	svc, _ := setupMembershipService(t)

	_, err := svc.CreateMemberLink(context.Background(), "missing", "u1", false, domain.WriteOptions{})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
}

func TestRemoveMemberLink(t *testing.T) {
	svc, db := setupMembershipService(t)
	ctx := context.Background()
	tag := createTag(t, db, "")

	_, err := svc.CreateMemberLink(ctx, tag.UUID, "u1", false, domain.WriteOptions{})
	require.NoError(t, err)

	removed, err := svc.RemoveMemberLink(ctx, tag.UUID, "u1", domain.WriteOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = svc.RemoveMemberLink(ctx, tag.UUID, "u1", domain.WriteOptions{})
	require.NoError(t, err)
	assert.Zero(t, removed)

	members, err := svc.ListMembers(ctx, tag.UUID, false)
	require.NoError(t, err)
	assert.Empty(t, members)

	members, err = svc.ListMembers(ctx, tag.UUID, true)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestOutstanding_ListAndAck(t *testing.T) {
	svc, db := setupMembershipService(t)
	ctx := context.Background()
	tag := createTag(t, db, "")

	_, err := svc.CreateMemberLink(ctx, tag.UUID, "u1", false, domain.WriteOptions{})
	require.NoError(t, err)

	entries, err := svc.ListOutstanding(ctx, 0)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	n, err := svc.AckOutstanding(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, len(ids), n)

	entries, err = svc.ListOutstanding(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = svc.ListOutstanding(ctx, -1)
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))
}

func TestMarshalMembers(t *testing.T) {
	data, err := MarshalMembers(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", data)

	data, err = MarshalMembers([]domain.Member{{ID: "u1"}})
	require.NoError(t, err)

	parsed, err := domain.ParseMembers(data)
	require.NoError(t, err)
	assert.Equal(t, []domain.Member{{ID: "u1"}}, parsed)
}

func TestSyncTagMembers_Validation(t *testing.T) {
	svc, _ := setupMembershipService(t)
	ctx := context.Background()

	_, err := svc.SyncTagMembers(ctx, "", nil)
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))

	_, err = svc.SyncTagMembers(ctx, strings.Repeat("x", 65), nil)
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))
}

func TestSyncTagMembers_MatchesSerializedList(t *testing.T) {
	tests := []struct {
		name    string
		members []domain.Member
		want    []string
	}{
		{
			name:    "blank id falls back to email and ids are trimmed",
			members: []domain.Member{{ID: "  ", Email: "a@x.com"}, {ID: " u1 "}},
			want:    []string{"a@x.com", "u1"},
		},
		{
			name:    "empty record is skipped",
			members: []domain.Member{{ID: "u1"}, {}},
			want:    []string{"u1"},
		},
		{
			name:    "email equal to another member id",
			members: []domain.Member{{Email: "u1"}, {ID: "u1", Email: "b@x.com"}},
			want:    []string{"u1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db := setupMembershipService(t)
			ctx := context.Background()

			_, err := svc.SyncTagMembers(ctx, "pushed", tt.members)
			require.NoError(t, err)

			data, err := MarshalMembers(tt.members)
			require.NoError(t, err)
			tag := createTag(t, db, "")
			_, err = svc.SynchronizeMembers(ctx, tag, "", tag.UUID, data)
			require.NoError(t, err)

			assert.Equal(t, tt.want, liveMembers(t, db, "pushed"))
			assert.Equal(t, tt.want, liveMembers(t, db, tag.UUID))

			again, err := svc.SyncTagMembers(ctx, "pushed", tt.members)
			require.NoError(t, err)
			assert.False(t, again.Changed(), "second sync wrote: %+v", again)
		})
	}
}
