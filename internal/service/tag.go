package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/taskline/taskline-server/internal/domain"
	domainerrors "github.com/taskline/taskline-server/internal/errors"
	"github.com/taskline/taskline-server/internal/store"
	"github.com/taskline/taskline-server/internal/store/sqlite"
	"github.com/taskline/taskline-server/internal/validation"
)

// TagService manages tags.
type TagService struct {
	db        *sqlite.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(db *sqlite.Store, validator *validation.Validator, logger *slog.Logger) *TagService {
	return &TagService{
		db:        db,
		validator: validator,
		logger:    logger,
	}
}

// CreateTagRequest describes a new tag. LegacyMembers seeds the legacy member
// list, as carried by tags created before membership rows existed.
type CreateTagRequest struct {
	UUID          string          `json:"uuid,omitempty" validate:"omitempty,max=64"`
	Name          string          `json:"name" validate:"required,max=255"`
	LegacyMembers []domain.Member `json:"legacy_members,omitempty"`
}

// ListTags returns all live tags ordered by name.
func (s *TagService) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	return s.db.ListTags(ctx)
}

// GetTag returns a tag by UUID.
func (s *TagService) GetTag(ctx context.Context, tagUUID string) (*domain.Tag, error) {
	return getTag(ctx, s.db, tagUUID)
}

// CreateTag creates a tag.
func (s *TagService) CreateTag(ctx context.Context, req CreateTagRequest) (*domain.Tag, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.LegacyMembers = domain.NormalizeMembers(req.LegacyMembers)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	tag := &domain.Tag{UUID: req.UUID, Name: req.Name}
	if len(req.LegacyMembers) > 0 {
		members, err := MarshalMembers(req.LegacyMembers)
		if err != nil {
			return nil, err
		}
		tag.Members = members
	}

	if err := s.db.CreateTag(ctx, tag); err != nil {
		if domainerrors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("tag " + tag.UUID + " already exists").WithCause(err)
		}
		return nil, err
	}

	s.logger.Info("tag created", "tag_uuid", tag.UUID, "name", tag.Name,
		"legacy_members", len(req.LegacyMembers))
	return tag, nil
}
