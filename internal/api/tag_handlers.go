package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/taskline/taskline-server/internal/domain"
	"github.com/taskline/taskline-server/internal/service"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Description: "Returns all live tags ordered by name",
		Tags:        []string{"Tags"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createTag",
		Method:        http.MethodPost,
		Path:          "/api/v1/tags",
		Summary:       "Create tag",
		Description:   "Creates a tag, optionally carrying a legacy member list to migrate on first sync",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{uuid}",
		Summary:     "Get tag",
		Description: "Returns a tag by UUID",
		Tags:        []string{"Tags"},
	}, s.handleGetTag)
}

// === DTOs ===

// TagResponse contains tag data in API responses.
type TagResponse struct {
	UUID             string    `json:"uuid" doc:"Tag UUID"`
	Name             string    `json:"name" doc:"Tag name"`
	MemberCount      int       `json:"member_count" doc:"Number of live members"`
	HasLegacyMembers bool      `json:"has_legacy_members" doc:"Whether an unmigrated member list is pending"`
	CreatedAt        time.Time `json:"created_at" doc:"Creation time"`
	ModifiedAt       time.Time `json:"modified_at" doc:"Last modification time"`
}

// ListTagsResponse contains a list of tags.
type ListTagsResponse struct {
	Tags []TagResponse `json:"tags" doc:"List of tags"`
}

// ListTagsOutput wraps the list tags response for Huma.
type ListTagsOutput struct {
	Body ListTagsResponse
}

// MemberInput is a member in request bodies.
type MemberInput struct {
	ID    string `json:"id,omitempty" maxLength:"320" doc:"Remote member id"`
	Email string `json:"email,omitempty" maxLength:"320" doc:"Member email address"`
}

// CreateTagRequest is the request body for creating a tag.
type CreateTagRequest struct {
	UUID          string        `json:"uuid,omitempty" maxLength:"64" doc:"Tag UUID; generated when empty"`
	Name          string        `json:"name" minLength:"1" maxLength:"255" doc:"Tag name"`
	LegacyMembers []MemberInput `json:"legacy_members,omitempty" doc:"Legacy serialized member list"`
}

// CreateTagInput wraps the create tag request for Huma.
type CreateTagInput struct {
	Body CreateTagRequest
}

// TagOutput wraps the tag response for Huma.
type TagOutput struct {
	Body TagResponse
}

// GetTagInput contains parameters for getting a tag.
type GetTagInput struct {
	UUID string `path:"uuid" doc:"Tag UUID"`
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, _ *struct{}) (*ListTagsOutput, error) {
	tags, err := s.services.Tag.ListTags(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]TagResponse, len(tags))
	for i, t := range tags {
		resp[i] = toTagResponse(t)
	}

	return &ListTagsOutput{Body: ListTagsResponse{Tags: resp}}, nil
}

func (s *Server) handleCreateTag(ctx context.Context, input *CreateTagInput) (*TagOutput, error) {
	t, err := s.services.Tag.CreateTag(ctx, service.CreateTagRequest{
		UUID:          input.Body.UUID,
		Name:          input.Body.Name,
		LegacyMembers: toMembers(input.Body.LegacyMembers),
	})
	if err != nil {
		return nil, err
	}

	return &TagOutput{Body: toTagResponse(t)}, nil
}

func (s *Server) handleGetTag(ctx context.Context, input *GetTagInput) (*TagOutput, error) {
	t, err := s.services.Tag.GetTag(ctx, input.UUID)
	if err != nil {
		return nil, err
	}

	return &TagOutput{Body: toTagResponse(t)}, nil
}

// === Converters ===

func toTagResponse(t *domain.Tag) TagResponse {
	return TagResponse{
		UUID:             t.UUID,
		Name:             t.Name,
		MemberCount:      t.MemberCount,
		HasLegacyMembers: t.HasLegacyMembers(),
		CreatedAt:        t.CreatedAt,
		ModifiedAt:       t.ModifiedAt,
	}
}

func toMembers(in []MemberInput) []domain.Member {
	if in == nil {
		return nil
	}
	members := make([]domain.Member, len(in))
	for i, m := range in {
		members[i] = domain.Member{ID: m.ID, Email: m.Email}
	}
	return members
}
