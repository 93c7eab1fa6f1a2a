package sqlite

import (
	"context"
	"fmt"

	"github.com/taskline/taskline-server/internal/domain"
	"github.com/taskline/taskline-server/internal/sqlexpr"
)

const outstandingTable = "tag_outstanding"

var (
	outID            = sqlexpr.NewField("id")
	outTagMetadataID = sqlexpr.NewField("tag_metadata_id")
	outColumn        = sqlexpr.NewField("column_name")
	outValue         = sqlexpr.NewField("value")
	outCreatedAt     = sqlexpr.NewField("created_at")
)

var outstandingFields = []sqlexpr.Field{outID, outTagMetadataID, outColumn, outValue, outCreatedAt}

// recordOutstanding queues one entry per column for each tag metadata row,
// copying the column's current value out of the row.
func (s *Store) recordOutstanding(ctx context.Context, ids []any, columns []sqlexpr.Field) error {
	for _, col := range columns {
		sel, args := sqlexpr.Select(
			metaID,
			sqlexpr.NewField(sqlexpr.Literal(col.String())),
			sqlexpr.Cast(col, "TEXT"),
			sqlexpr.Now(),
		).From(tagMetadataTable).Where(metaID.In(ids...)).Build()

		query := "INSERT INTO " + outstandingTable + " (" +
			outTagMetadataID.String() + ", " + outColumn.String() + ", " +
			outValue.String() + ", " + outCreatedAt.String() + ") " + sel

		if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("record outstanding %s: %w", col, err)
		}
	}
	return nil
}

// ListOutstanding returns queued changes oldest first. A limit of zero returns all.
func (s *Store) ListOutstanding(ctx context.Context, limit int) ([]domain.OutstandingEntry, error) {
	query, args := sqlexpr.Select(outstandingFields...).
		From(outstandingTable).
		OrderBy(sqlexpr.Asc(outID)).
		Limit(limit).
		Build()

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list outstanding: %w", err)
	}
	defer rows.Close()

	entries := []domain.OutstandingEntry{}
	for rows.Next() {
		var e domain.OutstandingEntry
		var createdAt int64
		var value *string
		if err := rows.Scan(&e.ID, &e.TagMetadataID, &e.Column, &value, &createdAt); err != nil {
			return nil, fmt.Errorf("scan outstanding: %w", err)
		}
		if value != nil {
			e.Value = *value
		}
		e.CreatedAt = fromMillis(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// CountOutstanding returns the number of queued changes for a tag metadata row.
func (s *Store) CountOutstanding(ctx context.Context, tagMetadataID int64) (int, error) {
	query, args := sqlexpr.Select(sqlexpr.Count(outID)).
		From(outstandingTable).
		Where(outTagMetadataID.Eq(tagMetadataID)).
		Build()

	var count int
	if err := s.q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count outstanding: %w", err)
	}
	return count, nil
}

// AckOutstanding removes acknowledged entries and returns how many were removed.
func (s *Store) AckOutstanding(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args := sqlexpr.Delete(outstandingTable).Where(outID.In(int64Args(ids)...)).Build()
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("ack outstanding: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ack outstanding: %w", err)
	}
	return int(n), nil
}
