// Package embedding implements the Embedding Gateway (C1): content-type
// classification, whitespace normalization, and routing to the text or
// code embedding backend.
package embedding

import (
	"context"
	"strings"

	"github.com/quoth-dev/quoth-mcp/internal/apperr"
	"github.com/quoth-dev/quoth-mcp/internal/providers"
)

// Gateway routes embedding calls to one of two backends based on content
// type, classifying automatically when the caller doesn't supply one.
type Gateway struct {
	textBackend providers.EmbeddingBackend
	codeBackend providers.EmbeddingBackend
}

// NewGateway constructs a Gateway. Both backends are required; callers
// typically wire the same backend twice if their embedding provider does
// not distinguish text and code models.
func NewGateway(textBackend, codeBackend providers.EmbeddingBackend) *Gateway {
	return &Gateway{textBackend: textBackend, codeBackend: codeBackend}
}

func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func (g *Gateway) backendFor(contentType ContentType) providers.EmbeddingBackend {
	if contentType == ContentCode {
		return g.codeBackend
	}
	return g.textBackend
}

// EmbedPassage embeds a document-side chunk. contentType may be empty, in
// which case it is classified from text.
func (g *Gateway) EmbedPassage(ctx context.Context, text string, contentType ContentType) ([]float32, ContentType, error) {
	return g.embed(ctx, text, contentType, "passage")
}

// EmbedQuery embeds a query-side string. contentType may be empty, in
// which case it is classified from text.
func (g *Gateway) EmbedQuery(ctx context.Context, text string, contentType ContentType) ([]float32, ContentType, error) {
	return g.embed(ctx, text, contentType, "query")
}

func (g *Gateway) embed(ctx context.Context, text string, contentType ContentType, task string) ([]float32, ContentType, error) {
	normalized := normalize(text)
	if normalized == "" {
		return nil, "", apperr.New(apperr.ValidationError, "embedding input must not be empty")
	}

	if contentType == "" {
		contentType = Classify(text)
	}

	backend := g.backendFor(contentType)
	vec, err := backend.Embed(ctx, normalized, task)
	if err != nil {
		if providers.IsRetryable(err) {
			return nil, contentType, apperr.Wrap(apperr.BackendUnavailable, err, "embedding provider unavailable").WithRetryable()
		}
		return nil, contentType, apperr.Wrap(apperr.ValidationError, err, "embedding provider rejected input")
	}
	if d := backend.Dimension(); d > 0 && len(vec) > d {
		vec = vec[:d]
	}
	return vec, contentType, nil
}

// ModelFor returns the embedding_model tag that would be used for the
// given content type, without performing any embedding call. Used by the
// Retrieval Pipeline to pick which model's index to search (§4.5 step 3).
func (g *Gateway) ModelFor(contentType ContentType) string {
	return g.backendFor(contentType).Model()
}
