package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taskline/taskline-server/internal/domain"
	domainerrors "github.com/taskline/taskline-server/internal/errors"
	"github.com/taskline/taskline-server/internal/store"
	"github.com/taskline/taskline-server/internal/store/sqlite"
	"github.com/taskline/taskline-server/internal/validation"
)

// MembershipService maintains membership links between tags and members.
type MembershipService struct {
	db        *sqlite.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewMembershipService creates a new membership service.
func NewMembershipService(db *sqlite.Store, validator *validation.Validator, logger *slog.Logger) *MembershipService {
	return &MembershipService{
		db:        db,
		validator: validator,
		logger:    logger,
	}
}

// SyncResult summarizes the changes made by a reconciliation.
type SyncResult struct {
	TagUUID         string `json:"tag_uuid"`
	Linked          int    `json:"linked"`
	Unlinked        int    `json:"unlinked"`
	Revived         int    `json:"revived"`
	Unchanged       int    `json:"unchanged"`
	LegacyLinks     int    `json:"legacy_links"`
	LegacyDiscarded bool   `json:"legacy_discarded"`
	MemberCount     int    `json:"member_count"`
}

// Changed reports whether the reconciliation wrote anything.
func (r *SyncResult) Changed() bool {
	return r.Linked+r.Unlinked+r.Revived+r.LegacyLinks > 0 || r.LegacyDiscarded
}

// CreateMemberLink links memberID to the tag, reviving a tombstoned link if one
// exists. With removed set the link is recorded tombstoned instead, so that a
// removal seen elsewhere can be stored before the member was ever linked here.
// Returns whether a row was written.
func (s *MembershipService) CreateMemberLink(ctx context.Context, tagUUID, memberID string, removed bool, opts domain.WriteOptions) (bool, error) {
	if err := s.validator.Var("member_id", memberID, "required,max=320"); err != nil {
		return false, err
	}

	var changed bool
	err := s.db.RunInTx(ctx, func(tx *sqlite.Store) error {
		tag, err := getTag(ctx, tx, tagUUID)
		if err != nil {
			return err
		}

		changed, err = tx.CreateMemberLink(ctx, tag.ID, tag.UUID, memberID, removed, opts)
		if err != nil {
			return err
		}
		if changed {
			_, err = tx.SetMemberCount(ctx, tag.UUID)
		}
		return err
	})
	if err != nil {
		return false, err
	}

	if changed {
		s.logger.Debug("member linked", "tag_uuid", tagUUID, "member", memberID,
			"removed", removed, "suppress_outstanding", opts.SuppressOutstanding)
	}
	return changed, nil
}

// RemoveMemberLink tombstones the live link between memberID and the tag.
// Returns the number of rows tombstoned; zero when the member was not linked.
func (s *MembershipService) RemoveMemberLink(ctx context.Context, tagUUID, memberID string, opts domain.WriteOptions) (int, error) {
	if err := s.validator.Var("member_id", memberID, "required,max=320"); err != nil {
		return 0, err
	}

	var removed int
	err := s.db.RunInTx(ctx, func(tx *sqlite.Store) error {
		tag, err := getTag(ctx, tx, tagUUID)
		if err != nil {
			return err
		}

		removed, err = tx.RemoveMemberLink(ctx, tag.ID, tag.UUID, memberID, opts)
		if err != nil {
			return err
		}
		if removed > 0 {
			_, err = tx.SetMemberCount(ctx, tag.UUID)
		}
		return err
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		s.logger.Debug("member unlinked", "tag_uuid", tagUUID, "member", memberID, "rows", removed)
	}
	return removed, nil
}

// SynchronizeMembers reconciles the stored membership rows of tag with the
// authoritative member list in currentMembersJSON.
//
// A non-empty legacyMembersJSON is migrated first: each legacy member becomes a
// link, pre-tombstoned when absent from the current list, and the tag's legacy
// field is cleared. The stored rows are then matched against the current list:
// unmatched live rows are tombstoned, tombstoned matches revived, and members
// with no row created. Everything runs in one transaction.
//
// A malformed current list is a validation error. A malformed legacy list is
// logged and ignored.
func (s *MembershipService) SynchronizeMembers(ctx context.Context, tag *domain.Tag, legacyMembersJSON, tagUUID, currentMembersJSON string) (*SyncResult, error) {
	members, err := domain.ParseMembers(currentMembersJSON)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeValidation, "invalid member list")
	}
	return s.synchronize(ctx, tag, legacyMembersJSON, tagUUID, domain.NewMemberSet(members))
}

// SyncTagMembers reconciles a tag, identified by UUID, against members.
// The tag is created when it does not exist yet, and its stored legacy member
// list is migrated as part of the reconciliation. Members are normalized the
// same way as a serialized list: blank entries are skipped.
func (s *MembershipService) SyncTagMembers(ctx context.Context, tagUUID string, members []domain.Member) (*SyncResult, error) {
	if err := s.validator.Var("tag_uuid", tagUUID, "required,max=64"); err != nil {
		return nil, err
	}

	var result *SyncResult
	err := s.db.RunInTx(ctx, func(tx *sqlite.Store) error {
		tag, _, err := tx.FindOrCreateTagByUUID(ctx, tagUUID)
		if err != nil {
			return fmt.Errorf("find tag: %w", err)
		}
		result, err = s.reconcile(ctx, tx, tag, tag.Members, tagUUID, domain.NewMemberSet(members))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logResult(result)
	return result, nil
}

func (s *MembershipService) synchronize(ctx context.Context, tag *domain.Tag, legacyMembersJSON, tagUUID string, current *domain.MemberSet) (*SyncResult, error) {
	if tag == nil {
		return nil, domainerrors.Validation("tag is required")
	}
	if tagUUID == "" {
		tagUUID = tag.UUID
	}

	var result *SyncResult
	err := s.db.RunInTx(ctx, func(tx *sqlite.Store) error {
		var err error
		result, err = s.reconcile(ctx, tx, tag, legacyMembersJSON, tagUUID, current)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logResult(result)
	return result, nil
}

func (s *MembershipService) reconcile(ctx context.Context, tx *sqlite.Store, tag *domain.Tag, legacyMembersJSON, tagUUID string, current *domain.MemberSet) (*SyncResult, error) {
	result := &SyncResult{TagUUID: tagUUID}
	write := domain.WriteOptions{}

	if legacyMembersJSON != "" {
		legacy, err := domain.ParseMembers(legacyMembersJSON)
		if err != nil {
			s.logger.Warn("discarding malformed legacy member list",
				"tag_uuid", tagUUID,
				"error", err,
			)
			result.LegacyDiscarded = true
		}

		for _, link := range domain.PlanLegacyLinks(current, legacy) {
			changed, err := tx.CreateMemberLink(ctx, tag.ID, tagUUID, link.Value, link.Removed, write)
			if err != nil {
				return nil, fmt.Errorf("migrate legacy member: %w", err)
			}
			if changed {
				result.LegacyLinks++
			}
		}

		tag.Members = ""
		if err := tx.SaveTag(ctx, tag); err != nil {
			return nil, fmt.Errorf("clear legacy members: %w", err)
		}
	}

	stored, err := tx.ListMemberLinks(ctx, tagUUID, true)
	if err != nil {
		return nil, err
	}

	plan := domain.PlanMemberSync(current, stored)
	result.Unchanged = len(plan.Keep)

	if ids := rowIDs(plan.Tombstone); len(ids) > 0 {
		if err := tx.TombstoneTagMetadata(ctx, tag.ID, ids, write); err != nil {
			return nil, err
		}
		result.Unlinked = len(ids)
	}

	if ids := rowIDs(plan.Revive); len(ids) > 0 {
		if err := tx.ReviveTagMetadata(ctx, tag.ID, ids, write); err != nil {
			return nil, err
		}
		result.Revived = len(ids)
	}

	for _, value := range plan.Create {
		changed, err := tx.CreateMemberLink(ctx, tag.ID, tagUUID, value, false, write)
		if err != nil {
			return nil, fmt.Errorf("link member: %w", err)
		}
		if changed {
			result.Linked++
		}
	}

	result.MemberCount, err = tx.SetMemberCount(ctx, tagUUID)
	if err != nil {
		return nil, err
	}
	tag.MemberCount = result.MemberCount

	return result, nil
}

func (s *MembershipService) logResult(r *SyncResult) {
	if !r.Changed() {
		s.logger.Debug("tag members already in sync", "tag_uuid", r.TagUUID, "members", r.MemberCount)
		return
	}
	s.logger.Info("tag members synchronized",
		"tag_uuid", r.TagUUID,
		"linked", r.Linked,
		"unlinked", r.Unlinked,
		"revived", r.Revived,
		"legacy_links", r.LegacyLinks,
		"members", r.MemberCount,
	)
}

// ListMembers returns the membership rows of a tag.
func (s *MembershipService) ListMembers(ctx context.Context, tagUUID string, includeDeleted bool) ([]domain.TagMetadata, error) {
	if _, err := getTag(ctx, s.db, tagUUID); err != nil {
		return nil, err
	}
	return s.db.ListMemberLinks(ctx, tagUUID, includeDeleted)
}

// ListOutstanding returns queued membership changes, oldest first.
func (s *MembershipService) ListOutstanding(ctx context.Context, limit int) ([]domain.OutstandingEntry, error) {
	if err := s.validator.Var("limit", limit, "gte=0,lte=10000"); err != nil {
		return nil, err
	}
	return s.db.ListOutstanding(ctx, limit)
}

// AckOutstanding drops entries that have been delivered.
func (s *MembershipService) AckOutstanding(ctx context.Context, ids []int64) (int, error) {
	n, err := s.db.AckOutstanding(ctx, ids)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("outstanding entries acknowledged", "requested", len(ids), "removed", n)
	return n, nil
}

// MarshalMembers serializes members in the legacy member-list format.
func MarshalMembers(members []domain.Member) (string, error) {
	if members == nil {
		members = []domain.Member{}
	}
	data, err := json.Marshal(members)
	if err != nil {
		return "", fmt.Errorf("marshal members: %w", err)
	}
	return string(data), nil
}

func getTag(ctx context.Context, db *sqlite.Store, tagUUID string) (*domain.Tag, error) {
	tag, err := db.GetTagByUUID(ctx, tagUUID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFoundf("tag %s not found", tagUUID)
	}
	if err != nil {
		return nil, err
	}
	return tag, nil
}

func rowIDs(rows []domain.TagMetadata) []int64 {
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}
