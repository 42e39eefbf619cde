package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("revoke: %w", NotFound("token"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
}

func TestError_UnwrapExposesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Database(cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrDatabase))
	assert.Equal(t, "A database error occurred", err.Message)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestError_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeValidation, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeTooLarge, http.StatusRequestEntityTooLarge},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeDatabase, http.StatusInternalServerError},
		{CodeStorage, http.StatusInternalServerError},
		{CodeServer, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.code, "").HTTPStatus())
		})
	}
}

func TestFrom(t *testing.T) {
	assert.Nil(t, From(nil))

	v := Validation("name is required", map[string]string{"field": "name"})
	assert.Same(t, v, From(fmt.Errorf("wrapped: %w", v)))

	generic := From(errors.New("boom"))
	assert.Equal(t, CodeServer, generic.Code)
	assert.Equal(t, "An unexpected error occurred", generic.Message)
}

func TestError_MessageFallsBackToCode(t *testing.T) {
	assert.Equal(t, "not_found: not_found", ErrNotFound.Error())
}
