// Package providers declares the narrow interfaces for the external
// collaborators spec.md §1 explicitly keeps out of scope: the embedding
// model, the reranker model, the generative LLM, and the external identity
// provider. Each is modeled as an interface so the core can be constructed
// against a real HTTP-backed implementation in production and a fake in
// tests, per the design notes in spec.md §9 ("module-level singletons for
// vendor clients ... inject as interfaces").
package providers

import "context"

// EmbeddingBackend turns text into a fixed-dimension vector. One backend
// instance corresponds to one embedding_model tag.
type EmbeddingBackend interface {
	// Embed returns the embedding for text. task is "passage" or "query" —
	// some embedding APIs (e.g. asymmetric retrieval models) encode inputs
	// differently depending on which side of the search they're on.
	Embed(ctx context.Context, text, task string) ([]float32, error)
	// Model returns this backend's embedding_model tag.
	Model() string
	// Dimension returns the fixed vector dimension this backend produces.
	Dimension() int
}

// RerankCandidate is one (index, text) pair submitted to a Reranker.
type RerankCandidate struct {
	Index int
	Text  string
}

// RerankResult is one scored candidate, as returned by Reranker.Rerank,
// sorted by Relevance descending.
type RerankResult struct {
	Index     int
	Relevance float64
}

// Reranker scores (query, candidate) pairs. A nil Reranker means reranking
// is not configured and the Retrieval Pipeline must skip it entirely.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []RerankCandidate, topK int) ([]RerankResult, error)
}

// IdentityUser is the normalized result of a successful external token
// verification.
type IdentityUser struct {
	UserID string
	Email  string
	// Claims holds the decoded token claims as the provider itself extracts
	// them, including any project/role claim. Per spec.md §4.7 / §9, the
	// project binding must always be read from this signed claim, never
	// solely from the provider's user record.
	Claims map[string]any
}

// IdentityProvider verifies an external OAuth-style bearer token.
type IdentityProvider interface {
	VerifyToken(ctx context.Context, token string) (*IdentityUser, error)
}
