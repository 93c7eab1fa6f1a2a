package sqlite

import (
	"context"
	"fmt"

	"github.com/taskline/taskline-server/internal/domain"
	"github.com/taskline/taskline-server/internal/sqlexpr"
)

// Stats summarizes database contents.
type Stats struct {
	Tags              int `json:"tags"`
	LegacyTags        int `json:"legacy_tags"`
	LiveMembers       int `json:"live_members"`
	TombstonedMembers int `json:"tombstoned_members"`
	Outstanding       int `json:"outstanding"`
}

// Stats counts live tags, membership rows by state, and queued outstanding entries.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	members := metaKey.Eq(domain.KeyTagMember)
	counts := []struct {
		table string
		field sqlexpr.Field
		where sqlexpr.Criterion
		dest  *int
	}{
		{tagsTable, tagID, tagDeletedAt.Eq(0), &st.Tags},
		{tagsTable, tagID, sqlexpr.And(tagDeletedAt.Eq(0), tagMembers.Neq("")), &st.LegacyTags},
		{tagMetadataTable, metaID, sqlexpr.And(members, metaDeletedAt.Eq(0)), &st.LiveMembers},
		{tagMetadataTable, metaID, sqlexpr.And(members, metaDeletedAt.Gt(0)), &st.TombstonedMembers},
		{outstandingTable, outID, sqlexpr.Criterion{}, &st.Outstanding},
	}

	for _, c := range counts {
		query, args := sqlexpr.Select(sqlexpr.Count(c.field)).
			From(c.table).
			Where(c.where).
			Build()
		if err := s.q.QueryRowContext(ctx, query, args...).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("count %s: %w", c.table, err)
		}
	}
	return st, nil
}
