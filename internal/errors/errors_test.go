package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeAlreadyExists, http.StatusConflict},
		{CodeConflict, http.StatusConflict},
		{CodeValidation, http.StatusBadRequest},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeInternal, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.code.HTTPStatus(), string(tt.code))
	}
}

func TestError_IsMatchesCode(t *testing.T) {
	err := fmt.Errorf("sync tag: %w", NotFoundf("tag %s not found", "t1"))

	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrValidation))
	assert.Equal(t, CodeNotFound, CodeOf(err))
	assert.Equal(t, CodeInternal, CodeOf(fmt.Errorf("plain")))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("unexpected end of JSON input")
	err := Wrap(cause, CodeValidation, "invalid member list")

	assert.Equal(t, "invalid member list: unexpected end of JSON input", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus())
}

func TestWithDetails(t *testing.T) {
	details := map[string]string{"tag_uuid": "required"}
	err := ValidationWithDetails("invalid payload", details)

	assert.Equal(t, details, err.Details)
	assert.Equal(t, details, err.WithCause(fmt.Errorf("x")).Details)
}
