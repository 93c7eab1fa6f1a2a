package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/taskline/taskline-server/internal/domain"
	"github.com/taskline/taskline-server/internal/service"
)

func (s *Server) registerPreferenceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listPreferences",
		Method:      http.MethodGet,
		Path:        "/api/v1/preferences",
		Summary:     "List preferences",
		Description: "Returns every committed preference in a namespace",
		Tags:        []string{"Preferences"},
	}, s.handleListPreferences)

	huma.Register(s.api, huma.Operation{
		OperationID: "seedPreferences",
		Method:      http.MethodPost,
		Path:        "/api/v1/preferences/defaults",
		Summary:     "Write default preferences",
		Description: "Writes the default preference set, by default only for keys without a value",
		Tags:        []string{"Preferences"},
	}, s.handleSeedPreferences)
}

// ListPreferencesInput contains parameters for listing preferences.
type ListPreferencesInput struct {
	Namespace string `query:"namespace" enum:"private,public" default:"private" doc:"Preference namespace"`
}

// ListPreferencesResponse contains the preferences of a namespace.
type ListPreferencesResponse struct {
	Namespace   string         `json:"namespace" doc:"Preference namespace"`
	Preferences map[string]any `json:"preferences" doc:"Preference values by key"`
}

// ListPreferencesOutput wraps the list preferences response for Huma.
type ListPreferencesOutput struct {
	Body ListPreferencesResponse
}

// SeedPreferencesRequest is the request body for writing defaults.
type SeedPreferencesRequest struct {
	IfUnset *bool `json:"if_unset,omitempty" doc:"Only write keys without a value (default true)"`
}

// SeedPreferencesInput wraps the seed request for Huma.
type SeedPreferencesInput struct {
	Body *SeedPreferencesRequest `required:"false"`
}

// SeedPreferencesOutput wraps the seed result for Huma.
type SeedPreferencesOutput struct {
	Body service.SeedResult
}

func (s *Server) handleListPreferences(ctx context.Context, input *ListPreferencesInput) (*ListPreferencesOutput, error) {
	ns := domain.PreferenceNamespace(input.Namespace)
	if ns == "" {
		ns = domain.NamespacePrivate
	}

	prefs, err := s.services.Preference.List(ctx, ns)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		prefs = map[string]any{}
	}

	return &ListPreferencesOutput{
		Body: ListPreferencesResponse{Namespace: string(ns), Preferences: prefs},
	}, nil
}

func (s *Server) handleSeedPreferences(ctx context.Context, input *SeedPreferencesInput) (*SeedPreferencesOutput, error) {
	ifUnset := true
	if input.Body != nil && input.Body.IfUnset != nil {
		ifUnset = *input.Body.IfUnset
	}

	result, err := s.services.Preference.SetDefaults(ctx, ifUnset)
	if err != nil {
		return nil, err
	}

	return &SeedPreferencesOutput{Body: *result}, nil
}
