package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskline/taskline-server/internal/domain"
	"github.com/taskline/taskline-server/internal/sqlexpr"
	"github.com/taskline/taskline-server/internal/store"
)

const tagsTable = "tags"

var (
	tagID          = sqlexpr.NewField("id")
	tagUUIDCol     = sqlexpr.NewField("uuid")
	tagName        = sqlexpr.NewField("name")
	tagMembers     = sqlexpr.NewField("members")
	tagMemberCount = sqlexpr.NewField("member_count")
	tagCreatedAt   = sqlexpr.NewField("created_at")
	tagModifiedAt  = sqlexpr.NewField("modified_at")
	tagDeletedAt   = sqlexpr.NewField("deleted_at")
)

// tagFields is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag.
var tagFields = []sqlexpr.Field{
	tagID, tagUUIDCol, tagName, tagMembers, tagMemberCount,
	tagCreatedAt, tagModifiedAt, tagDeletedAt,
}

// scanTag scans a sql.Row (or sql.Rows via its Scan method) into a domain.Tag.
func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var t domain.Tag

	var createdAt, modifiedAt, deletedAt int64

	err := scanner.Scan(
		&t.ID,
		&t.UUID,
		&t.Name,
		&t.Members,
		&t.MemberCount,
		&createdAt,
		&modifiedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	t.CreatedAt = fromMillis(createdAt)
	t.ModifiedAt = fromMillis(modifiedAt)
	t.DeletedAt = parseDeleted(deletedAt)

	return &t, nil
}

// CreateTag inserts a new tag, assigning its row id. A missing UUID is generated
// and missing timestamps are set to now.
// Returns store.ErrAlreadyExists on duplicate UUID.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	if t.UUID == "" {
		t.UUID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.InitTimestamps()
	}

	query, args := sqlexpr.Insert(tagsTable).
		Value(tagUUIDCol, t.UUID).
		Value(tagName, t.Name).
		Value(tagMembers, t.Members).
		Value(tagMemberCount, t.MemberCount).
		Value(tagCreatedAt, toMillis(t.CreatedAt)).
		Value(tagModifiedAt, toMillis(t.ModifiedAt)).
		Value(tagDeletedAt, deletedMillis(t.DeletedAt)).
		Build()

	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists.WithMessage(fmt.Sprintf("tag %s already exists", t.UUID))
		}
		return fmt.Errorf("insert tag: %w", err)
	}

	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("tag id: %w", err)
	}
	return nil
}

// GetTagByID retrieves a tag by its row id.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTagByID(ctx context.Context, id int64) (*domain.Tag, error) {
	return s.getTag(ctx, tagID.Eq(id))
}

// GetTagByUUID retrieves a tag by its UUID.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTagByUUID(ctx context.Context, tagUUID string) (*domain.Tag, error) {
	return s.getTag(ctx, tagUUIDCol.Eq(tagUUID))
}

func (s *Store) getTag(ctx context.Context, where sqlexpr.Criterion) (*domain.Tag, error) {
	query, args := sqlexpr.Select(tagFields...).From(tagsTable).Where(where).Limit(1).Build()

	t, err := scanTag(s.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return t, nil
}

// SaveTag writes all mutable fields of an existing tag and bumps ModifiedAt.
// Returns store.ErrNotFound if no row has the tag's id.
func (s *Store) SaveTag(ctx context.Context, t *domain.Tag) error {
	t.Touch()

	query, args := sqlexpr.Update(tagsTable).
		Set(tagName, t.Name).
		Set(tagMembers, t.Members).
		Set(tagMemberCount, t.MemberCount).
		Set(tagModifiedAt, toMillis(t.ModifiedAt)).
		Set(tagDeletedAt, deletedMillis(t.DeletedAt)).
		Where(tagID.Eq(t.ID)).
		Build()

	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save tag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save tag: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListTags returns all live tags ordered case-insensitively by name.
func (s *Store) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	query, args := sqlexpr.Select(tagFields...).
		From(tagsTable).
		Where(tagDeletedAt.Eq(0)).
		OrderBy(sqlexpr.Asc(sqlexpr.Upper(tagName)), sqlexpr.Asc(tagID)).
		Build()

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tags, nil
}

// FindOrCreateTagByUUID returns the tag with the given UUID, creating an empty
// one when it does not exist yet. Sync payloads may reference tags before the
// tag itself has been pulled.
func (s *Store) FindOrCreateTagByUUID(ctx context.Context, tagUUID string) (*domain.Tag, bool, error) {
	existing, err := s.GetTagByUUID(ctx, tagUUID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	now := time.Now().UTC()
	t := &domain.Tag{UUID: tagUUID}
	t.CreatedAt = now
	t.ModifiedAt = now

	if err := s.CreateTag(ctx, t); err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// SetMemberCount updates the denormalized live member count of a tag.
func (s *Store) SetMemberCount(ctx context.Context, tagUUID string) (int, error) {
	count, err := s.CountTagMetadata(ctx, tagUUID)
	if err != nil {
		return 0, err
	}

	query, args := sqlexpr.Update(tagsTable).
		Set(tagMemberCount, count).
		Set(tagModifiedAt, sqlexpr.Now()).
		Where(tagUUIDCol.Eq(tagUUID)).
		Build()

	if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("update member count: %w", err)
	}
	return count, nil
}
