// Package reranker implements the Reranker Gateway (C2): scoring
// (query, candidate) pairs and returning sorted relevance. The gateway is
// optional — when no backend is configured, the Retrieval Pipeline skips
// it entirely (spec.md §4.2).
package reranker

import (
	"context"

	"github.com/quoth-dev/quoth-mcp/internal/apperr"
	"github.com/quoth-dev/quoth-mcp/internal/providers"
)

// MaxCandidates is the minimum M the gateway must accept per spec.md §4.2.
const MaxCandidates = 30

// Gateway wraps an optional providers.Reranker backend.
type Gateway struct {
	backend providers.Reranker
}

// NewGateway constructs a Gateway. backend may be nil, meaning reranking is
// disabled globally (RERANKER_PROVIDER_KEY unset).
func NewGateway(backend providers.Reranker) *Gateway {
	return &Gateway{backend: backend}
}

// Configured reports whether a reranker backend is wired.
func (g *Gateway) Configured() bool { return g.backend != nil }

// Rerank scores query against candidates and returns up to topK results
// sorted by relevance descending. Returns BackendUnavailable on transport
// failure so the Retrieval Pipeline can degrade to vector-only results.
func (g *Gateway) Rerank(ctx context.Context, query string, candidates []providers.RerankCandidate, topK int) ([]providers.RerankResult, error) {
	if g.backend == nil {
		return nil, apperr.New(apperr.Internal, "reranker not configured")
	}
	if topK <= 0 {
		topK = MaxCandidates
	}

	results, err := g.backend.Rerank(ctx, query, candidates, topK)
	if err != nil {
		if providers.IsRetryable(err) {
			return nil, apperr.Wrap(apperr.BackendUnavailable, err, "reranker provider unavailable").WithRetryable()
		}
		return nil, apperr.Wrap(apperr.BackendUnavailable, err, "reranker provider error")
	}
	return results, nil
}
