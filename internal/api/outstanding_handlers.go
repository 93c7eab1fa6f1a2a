package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerOutstandingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listOutstanding",
		Method:      http.MethodGet,
		Path:        "/api/v1/outstanding",
		Summary:     "List outstanding changes",
		Description: "Returns membership changes waiting for outbound sync, oldest first",
		Tags:        []string{"Sync"},
	}, s.handleListOutstanding)

	huma.Register(s.api, huma.Operation{
		OperationID: "ackOutstanding",
		Method:      http.MethodPost,
		Path:        "/api/v1/outstanding/ack",
		Summary:     "Acknowledge outstanding changes",
		Description: "Deletes outstanding entries that have been delivered",
		Tags:        []string{"Sync"},
	}, s.handleAckOutstanding)
}

// OutstandingResponse is an outstanding entry in API responses.
type OutstandingResponse struct {
	ID            int64     `json:"id" doc:"Entry id"`
	TagMetadataID int64     `json:"tag_metadata_id" doc:"Membership row id"`
	Column        string    `json:"column" doc:"Changed column"`
	Value         string    `json:"value" doc:"New column value"`
	CreatedAt     time.Time `json:"created_at" doc:"When the change was recorded"`
}

// ListOutstandingInput contains parameters for listing outstanding entries.
type ListOutstandingInput struct {
	Limit int `query:"limit" minimum:"1" maximum:"10000" doc:"Maximum entries to return (default 500)"`
}

// ListOutstandingResponse contains outstanding entries.
type ListOutstandingResponse struct {
	Entries []OutstandingResponse `json:"entries" doc:"Outstanding entries"`
}

// ListOutstandingOutput wraps the list outstanding response for Huma.
type ListOutstandingOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         ListOutstandingResponse
}

// AckOutstandingRequest is the request body for acknowledging entries.
type AckOutstandingRequest struct {
	IDs []int64 `json:"ids" minItems:"1" maxItems:"10000" doc:"Entry ids to acknowledge"`
}

// AckOutstandingInput wraps the ack request for Huma.
type AckOutstandingInput struct {
	Body AckOutstandingRequest
}

// AckOutstandingResponse reports how many entries were deleted.
type AckOutstandingResponse struct {
	Acknowledged int `json:"acknowledged" doc:"Number of entries deleted"`
}

// AckOutstandingOutput wraps the ack response for Huma.
type AckOutstandingOutput struct {
	Body AckOutstandingResponse
}

func (s *Server) handleListOutstanding(ctx context.Context, input *ListOutstandingInput) (*ListOutstandingOutput, error) {
	limit := input.Limit
	if limit == 0 {
		limit = DefaultOutstandingLimit
	}

	entries, err := s.services.Membership.ListOutstanding(ctx, limit)
	if err != nil {
		return nil, err
	}

	resp := make([]OutstandingResponse, len(entries))
	for i, e := range entries {
		resp[i] = OutstandingResponse{
			ID:            e.ID,
			TagMetadataID: e.TagMetadataID,
			Column:        e.Column,
			Value:         e.Value,
			CreatedAt:     e.CreatedAt,
		}
	}

	return &ListOutstandingOutput{
		CacheControl: CacheNoStore,
		Body:         ListOutstandingResponse{Entries: resp},
	}, nil
}

func (s *Server) handleAckOutstanding(ctx context.Context, input *AckOutstandingInput) (*AckOutstandingOutput, error) {
	n, err := s.services.Membership.AckOutstanding(ctx, input.Body.IDs)
	if err != nil {
		return nil, err
	}

	return &AckOutstandingOutput{Body: AckOutstandingResponse{Acknowledged: n}}, nil
}
