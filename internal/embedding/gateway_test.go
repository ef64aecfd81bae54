package embedding_test

import (
	"context"
	"errors"
	"testing"

	"github.com/quoth-dev/quoth-mcp/internal/apperr"
	"github.com/quoth-dev/quoth-mcp/internal/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	model     string
	dimension int
	err       error
	lastTask  string
	lastText  string
}

func (s *stubBackend) Embed(_ context.Context, text, task string) ([]float32, error) {
	s.lastText, s.lastTask = text, task
	if s.err != nil {
		return nil, s.err
	}
	vec := make([]float32, s.dimension+5)
	return vec, nil
}
func (s *stubBackend) Model() string  { return s.model }
func (s *stubBackend) Dimension() int { return s.dimension }

func TestGateway_EmbedPassage_TruncatesAndRoutes(t *testing.T) {
	text := &stubBackend{model: "text-v1", dimension: 4}
	code := &stubBackend{model: "code-v1", dimension: 4}
	gw := embedding.NewGateway(text, code)

	vec, ct, err := gw.EmbedPassage(context.Background(), "func foo() { return 1; }", "")
	require.NoError(t, err)
	assert.Equal(t, embedding.ContentCode, ct)
	assert.Equal(t, "passage", code.lastTask)
	assert.Empty(t, text.lastText, "text backend must not be called for code content")
	assert.Len(t, vec, 4, "vector must be truncated to the backend's dimension")
}

func TestGateway_EmbedQuery_ExplicitContentType(t *testing.T) {
	text := &stubBackend{model: "text-v1", dimension: 4}
	code := &stubBackend{model: "code-v1", dimension: 4}
	gw := embedding.NewGateway(text, code)

	_, ct, err := gw.EmbedQuery(context.Background(), "find the billing handler", embedding.ContentCode)
	require.NoError(t, err)
	assert.Equal(t, embedding.ContentCode, ct)
	assert.Equal(t, "query", code.lastTask)
}

func TestGateway_EmptyInput_IsValidationError(t *testing.T) {
	gw := embedding.NewGateway(&stubBackend{dimension: 4}, &stubBackend{dimension: 4})
	_, _, err := gw.EmbedPassage(context.Background(), "   \n  ", "")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ValidationError))
}

type retryableStub struct{ inner error }

func (r *retryableStub) Error() string { return r.inner.Error() }
func (r *retryableStub) Unwrap() error { return r.inner }

func TestGateway_NormalizesWhitespace(t *testing.T) {
	text := &stubBackend{model: "text-v1", dimension: 4}
	code := &stubBackend{model: "code-v1", dimension: 4}
	gw := embedding.NewGateway(text, code)

	_, _, err := gw.EmbedPassage(context.Background(), "hello   \n\n  world  ", embedding.ContentText)
	require.NoError(t, err)
	assert.Equal(t, "hello world", text.lastText)
}

func TestGateway_BackendError_IsNotRetryableByDefault(t *testing.T) {
	text := &stubBackend{model: "text-v1", dimension: 4, err: errors.New("bad request")}
	gw := embedding.NewGateway(text, text)
	_, _, err := gw.EmbedPassage(context.Background(), "hello", embedding.ContentText)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ValidationError))
}
