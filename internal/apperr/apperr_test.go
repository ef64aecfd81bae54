package apperr_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quoth-dev/quoth-mcp/internal/apperr"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.Unauthenticated, http.StatusUnauthorized},
		{apperr.Forbidden, http.StatusForbidden},
		{apperr.NotFound, http.StatusNotFound},
		{apperr.ValidationError, http.StatusBadRequest},
		{apperr.Conflict, http.StatusConflict},
		{apperr.RateLimited, http.StatusTooManyRequests},
		{apperr.BackendUnavailable, http.StatusServiceUnavailable},
		{apperr.Internal, http.StatusInternalServerError},
		{apperr.TierLimited, http.StatusInternalServerError},
	}
	for _, c := range cases {
		got := apperr.New(c.kind, "x").HTTPStatus()
		assert.Equal(t, c.want, got, "kind %s", c.kind)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := apperr.Wrap(apperr.Internal, cause, "wrapped")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, apperr.Internal, apperr.KindOf(err))
	assert.True(t, apperr.Is(err, apperr.Internal))
	assert.False(t, apperr.Is(err, apperr.NotFound))
}

func TestKindOfUntyped(t *testing.T) {
	assert.Equal(t, apperr.Internal, apperr.KindOf(errors.New("plain")))
}

func TestWithRetryableAndSuggestions(t *testing.T) {
	err := apperr.New(apperr.BackendUnavailable, "down").WithRetryable()
	assert.True(t, err.Retryable)

	err2 := apperr.New(apperr.NotFound, "missing").WithSuggestions([]string{"a.md", "b.md"})
	assert.Equal(t, []string{"a.md", "b.md"}, err2.Suggestions)
}
