package sqlite

import (
	"context"
	"fmt"

	"github.com/taskline/taskline-server/internal/domain"
	"github.com/taskline/taskline-server/internal/sqlexpr"
)

const tagMetadataTable = "tag_metadata"

var (
	metaID        = sqlexpr.NewField("id")
	metaTagID     = sqlexpr.NewField("tag_id")
	metaTagUUID   = sqlexpr.NewField("tag_uuid")
	metaKey       = sqlexpr.NewField("key")
	metaValue     = sqlexpr.NewField("value")
	metaCreatedAt = sqlexpr.NewField("created_at")
	metaDeletedAt = sqlexpr.NewField("deleted_at")
)

// tagMetadataFields must match the scan order in scanTagMetadata.
var tagMetadataFields = []sqlexpr.Field{
	metaID, metaTagID, metaTagUUID, metaKey, metaValue, metaCreatedAt, metaDeletedAt,
}

// Columns recorded as outstanding when a membership row is created or changed.
var (
	insertColumns = []sqlexpr.Field{metaTagID, metaTagUUID, metaKey, metaValue, metaDeletedAt}
	removeColumns = []sqlexpr.Field{metaTagID, metaValue, metaDeletedAt}
)

// ByTag matches metadata rows attached to the tag.
func ByTag(tagUUID string) sqlexpr.Criterion {
	return metaTagUUID.Eq(tagUUID)
}

// WithKey matches metadata rows with the given key.
func WithKey(key string) sqlexpr.Criterion {
	return metaKey.Eq(key)
}

// ByTagAndWithKey matches metadata rows with the given key attached to the tag.
func ByTagAndWithKey(tagUUID, key string) sqlexpr.Criterion {
	return sqlexpr.And(WithKey(key), ByTag(tagUUID))
}

func memberLink(tagUUID, memberID string) sqlexpr.Criterion {
	return sqlexpr.And(ByTagAndWithKey(tagUUID, domain.KeyTagMember), metaValue.Eq(memberID))
}

func scanTagMetadata(scanner interface{ Scan(dest ...any) error }) (*domain.TagMetadata, error) {
	var m domain.TagMetadata
	var createdAt, deletedAt int64

	err := scanner.Scan(
		&m.ID,
		&m.TagID,
		&m.TagUUID,
		&m.Key,
		&m.Value,
		&createdAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	m.CreatedAt = fromMillis(createdAt)
	m.DeletedAt = parseDeleted(deletedAt)
	return &m, nil
}

func (s *Store) queryTagMetadata(ctx context.Context, where sqlexpr.Criterion) ([]domain.TagMetadata, error) {
	query, args := sqlexpr.Select(tagMetadataFields...).
		From(tagMetadataTable).
		Where(where).
		OrderBy(sqlexpr.Asc(metaID)).
		Build()

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tag metadata: %w", err)
	}
	defer rows.Close()

	result := []domain.TagMetadata{}
	for rows.Next() {
		m, err := scanTagMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag metadata: %w", err)
		}
		result = append(result, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) matchingIDs(ctx context.Context, where sqlexpr.Criterion) ([]any, error) {
	query, args := sqlexpr.Select(metaID).From(tagMetadataTable).Where(where).OrderBy(sqlexpr.Asc(metaID)).Build()

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tag metadata ids: %w", err)
	}
	defer rows.Close()

	var ids []any
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListMemberLinks returns membership rows for a tag in id order.
// Tombstoned rows are included only when includeDeleted is set.
func (s *Store) ListMemberLinks(ctx context.Context, tagUUID string, includeDeleted bool) ([]domain.TagMetadata, error) {
	where := ByTagAndWithKey(tagUUID, domain.KeyTagMember)
	if !includeDeleted {
		where = sqlexpr.And(where, metaDeletedAt.Eq(0))
	}
	return s.queryTagMetadata(ctx, where)
}

// CountTagMetadata returns the number of live membership rows for a tag.
func (s *Store) CountTagMetadata(ctx context.Context, tagUUID string) (int, error) {
	query, args := sqlexpr.Select(sqlexpr.Count(metaID)).
		From(tagMetadataTable).
		Where(sqlexpr.And(ByTagAndWithKey(tagUUID, domain.KeyTagMember), metaDeletedAt.Eq(0))).
		Build()

	var count int
	if err := s.q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tag metadata: %w", err)
	}
	return count, nil
}

// CountAllTagMetadata returns the total number of metadata rows for a tag,
// live and tombstoned.
func (s *Store) CountAllTagMetadata(ctx context.Context, tagUUID string) (int, error) {
	query, args := sqlexpr.Select(sqlexpr.Count(metaID)).
		From(tagMetadataTable).
		Where(ByTag(tagUUID)).
		Build()

	var count int
	if err := s.q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tag metadata: %w", err)
	}
	return count, nil
}

// CreateMemberLink upserts the membership row linking memberID to the tag.
//
// Existing rows for the member are updated so that they are tombstoned when
// removed is set and live otherwise; rows already in that state are left
// untouched. When no row exists a new one is inserted, pre-tombstoned if
// removed. Returns whether any row was written.
func (s *Store) CreateMemberLink(ctx context.Context, tagID int64, tagUUID, memberID string, removed bool, opts domain.WriteOptions) (bool, error) {
	existing, err := s.matchingIDs(ctx, memberLink(tagUUID, memberID))
	if err != nil {
		return false, err
	}

	if len(existing) > 0 {
		stateFilter := metaDeletedAt.Neq(0)
		var deletedAt any = 0
		if removed {
			stateFilter = metaDeletedAt.Eq(0)
			deletedAt = sqlexpr.Now()
		}

		ids, err := s.matchingIDs(ctx, sqlexpr.And(metaID.In(existing...), stateFilter))
		if err != nil {
			return false, err
		}
		if len(ids) == 0 {
			return false, nil
		}

		query, args := sqlexpr.Update(tagMetadataTable).
			Set(metaTagID, tagID).
			Set(metaDeletedAt, deletedAt).
			Where(metaID.In(ids...)).
			Build()
		if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
			return false, fmt.Errorf("update member link: %w", err)
		}

		if !opts.SuppressOutstanding {
			if err := s.recordOutstanding(ctx, ids, removeColumns); err != nil {
				return false, err
			}
		}
		return true, nil
	}

	var deletedAt any = 0
	if removed {
		deletedAt = sqlexpr.Now()
	}

	query, args := sqlexpr.Insert(tagMetadataTable).
		Value(metaTagID, tagID).
		Value(metaTagUUID, tagUUID).
		Value(metaKey, domain.KeyTagMember).
		Value(metaValue, memberID).
		Value(metaCreatedAt, sqlexpr.Now()).
		Value(metaDeletedAt, deletedAt).
		Build()

	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert member link: %w", err)
	}

	if !opts.SuppressOutstanding {
		id, err := res.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("member link id: %w", err)
		}
		if err := s.recordOutstanding(ctx, []any{id}, insertColumns); err != nil {
			return false, err
		}
	}
	return true, nil
}

// RemoveMemberLink tombstones the live membership rows linking memberID to the
// tag. Rows are never deleted. Returns the number of rows tombstoned.
func (s *Store) RemoveMemberLink(ctx context.Context, tagID int64, tagUUID, memberID string, opts domain.WriteOptions) (int, error) {
	ids, err := s.matchingIDs(ctx, sqlexpr.And(memberLink(tagUUID, memberID), metaDeletedAt.Eq(0)))
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.tombstone(ctx, tagID, ids, opts); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// TombstoneTagMetadata tombstones the given live rows by id.
func (s *Store) TombstoneTagMetadata(ctx context.Context, tagID int64, ids []int64, opts domain.WriteOptions) error {
	if len(ids) == 0 {
		return nil
	}
	return s.tombstone(ctx, tagID, int64Args(ids), opts)
}

func (s *Store) tombstone(ctx context.Context, tagID int64, ids []any, opts domain.WriteOptions) error {
	query, args := sqlexpr.Update(tagMetadataTable).
		Set(metaTagID, tagID).
		Set(metaDeletedAt, sqlexpr.Now()).
		Where(sqlexpr.And(metaID.In(ids...), metaDeletedAt.Eq(0))).
		Build()
	if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("tombstone tag metadata: %w", err)
	}

	if opts.SuppressOutstanding {
		return nil
	}
	return s.recordOutstanding(ctx, ids, removeColumns)
}

// ReviveTagMetadata clears the tombstone on the given rows by id.
func (s *Store) ReviveTagMetadata(ctx context.Context, tagID int64, ids []int64, opts domain.WriteOptions) error {
	if len(ids) == 0 {
		return nil
	}
	idArgs := int64Args(ids)

	query, args := sqlexpr.Update(tagMetadataTable).
		Set(metaTagID, tagID).
		Set(metaDeletedAt, 0).
		Where(sqlexpr.And(metaID.In(idArgs...), metaDeletedAt.Neq(0))).
		Build()
	if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("revive tag metadata: %w", err)
	}

	if opts.SuppressOutstanding {
		return nil
	}
	return s.recordOutstanding(ctx, idArgs, removeColumns)
}

func int64Args(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
