package api

import (
	"github.com/taskline/taskline-server/internal/service"
)

// Services groups the business logic services used by the API server.
type Services struct {
	Tag        *service.TagService
	Membership *service.MembershipService
	Preference *service.PreferenceService
}
