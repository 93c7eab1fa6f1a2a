package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/taskline/taskline-server/internal/domain"
	"github.com/taskline/taskline-server/internal/service"
)

func (s *Server) registerMemberRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTagMembers",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{uuid}/members",
		Summary:     "List tag members",
		Description: "Returns the membership rows of a tag, optionally including tombstoned links",
		Tags:        []string{"Members"},
	}, s.handleListMembers)

	huma.Register(s.api, huma.Operation{
		OperationID: "syncTagMembers",
		Method:      http.MethodPut,
		Path:        "/api/v1/tags/{uuid}/members",
		Summary:     "Synchronize tag members",
		Description: "Reconciles stored membership against an authoritative member list",
		Tags:        []string{"Members"},
	}, s.handleSyncMembers)

	huma.Register(s.api, huma.Operation{
		OperationID: "createTagMember",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags/{uuid}/members",
		Summary:     "Link member",
		Description: "Links a member to a tag, reviving a tombstoned link if one exists",
		Tags:        []string{"Members"},
	}, s.handleCreateMember)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeTagMember",
		Method:      http.MethodDelete,
		Path:        "/api/v1/tags/{uuid}/members/{memberID}",
		Summary:     "Unlink member",
		Description: "Tombstones every live link between the member and the tag",
		Tags:        []string{"Members"},
	}, s.handleRemoveMember)
}

// === DTOs ===

// MemberLinkResponse is a membership row in API responses.
type MemberLinkResponse struct {
	ID        int64      `json:"id" doc:"Row id"`
	Value     string     `json:"value" doc:"Member id or email address"`
	CreatedAt time.Time  `json:"created_at" doc:"Creation time"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" doc:"Tombstone time"`
}

// ListMembersInput contains parameters for listing members.
type ListMembersInput struct {
	UUID           string `path:"uuid" doc:"Tag UUID"`
	IncludeDeleted bool   `query:"include_deleted" doc:"Include tombstoned links"`
}

// ListMembersResponse contains the membership rows of a tag.
type ListMembersResponse struct {
	TagUUID string               `json:"tag_uuid" doc:"Tag UUID"`
	Members []MemberLinkResponse `json:"members" doc:"Membership rows"`
}

// ListMembersOutput wraps the list members response for Huma.
type ListMembersOutput struct {
	Body ListMembersResponse
}

// SyncMembersRequest is the request body for synchronizing members.
type SyncMembersRequest struct {
	Members []MemberInput `json:"members" doc:"Authoritative member list"`
}

// SyncMembersInput wraps the sync members request for Huma.
type SyncMembersInput struct {
	UUID string `path:"uuid" doc:"Tag UUID"`
	Body SyncMembersRequest
}

// SyncMembersOutput wraps the sync result for Huma.
type SyncMembersOutput struct {
	Body service.SyncResult
}

// CreateMemberRequest is the request body for linking a member.
type CreateMemberRequest struct {
	MemberID            string `json:"member_id" minLength:"1" maxLength:"320" doc:"Member id or email address"`
	Removed             bool   `json:"removed,omitempty" doc:"Record the link as already removed"`
	SuppressOutstanding bool   `json:"suppress_outstanding,omitempty" doc:"Do not queue the change for outbound sync"`
}

// CreateMemberInput wraps the create member request for Huma.
type CreateMemberInput struct {
	UUID string `path:"uuid" doc:"Tag UUID"`
	Body CreateMemberRequest
}

// CreateMemberResponse reports whether a row was written.
type CreateMemberResponse struct {
	Changed bool `json:"changed" doc:"Whether a link was created or revived"`
}

// CreateMemberOutput wraps the create member response for Huma.
type CreateMemberOutput struct {
	Body CreateMemberResponse
}

// RemoveMemberInput contains parameters for unlinking a member.
type RemoveMemberInput struct {
	UUID                string `path:"uuid" doc:"Tag UUID"`
	MemberID            string `path:"memberID" doc:"Member id or email address"`
	SuppressOutstanding bool   `query:"suppress_outstanding" doc:"Do not queue the change for outbound sync"`
}

// RemoveMemberResponse reports how many links were tombstoned.
type RemoveMemberResponse struct {
	Removed int `json:"removed" doc:"Number of links tombstoned"`
}

// RemoveMemberOutput wraps the remove member response for Huma.
type RemoveMemberOutput struct {
	Body RemoveMemberResponse
}

// === Handlers ===

func (s *Server) handleListMembers(ctx context.Context, input *ListMembersInput) (*ListMembersOutput, error) {
	rows, err := s.services.Membership.ListMembers(ctx, input.UUID, input.IncludeDeleted)
	if err != nil {
		return nil, err
	}

	resp := make([]MemberLinkResponse, len(rows))
	for i, r := range rows {
		resp[i] = toMemberLinkResponse(r)
	}

	return &ListMembersOutput{
		Body: ListMembersResponse{TagUUID: input.UUID, Members: resp},
	}, nil
}

func (s *Server) handleSyncMembers(ctx context.Context, input *SyncMembersInput) (*SyncMembersOutput, error) {
	members := toMembers(input.Body.Members)
	if members == nil {
		members = []domain.Member{}
	}

	result, err := s.services.Membership.SyncTagMembers(ctx, input.UUID, members)
	if err != nil {
		return nil, err
	}

	return &SyncMembersOutput{Body: *result}, nil
}

func (s *Server) handleCreateMember(ctx context.Context, input *CreateMemberInput) (*CreateMemberOutput, error) {
	changed, err := s.services.Membership.CreateMemberLink(ctx, input.UUID, input.Body.MemberID, input.Body.Removed, domain.WriteOptions{
		SuppressOutstanding: input.Body.SuppressOutstanding,
	})
	if err != nil {
		return nil, err
	}

	return &CreateMemberOutput{Body: CreateMemberResponse{Changed: changed}}, nil
}

func (s *Server) handleRemoveMember(ctx context.Context, input *RemoveMemberInput) (*RemoveMemberOutput, error) {
	removed, err := s.services.Membership.RemoveMemberLink(ctx, input.UUID, input.MemberID, domain.WriteOptions{
		SuppressOutstanding: input.SuppressOutstanding,
	})
	if err != nil {
		return nil, err
	}

	return &RemoveMemberOutput{Body: RemoveMemberResponse{Removed: removed}}, nil
}

func toMemberLinkResponse(r domain.TagMetadata) MemberLinkResponse {
	return MemberLinkResponse{
		ID:        r.ID,
		Value:     r.Value,
		CreatedAt: r.CreatedAt,
		DeletedAt: r.DeletedAt,
	}
}
