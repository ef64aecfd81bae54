// Package retrieval implements the Retrieval Pipeline (C5): query
// embedding, vector ANN search, optional reranking, dynamic cutoff, trust
// banding, and a tier-gated keyword fallback.
package retrieval

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/quoth-dev/quoth-mcp/internal/apperr"
	"github.com/quoth-dev/quoth-mcp/internal/embedding"
	"github.com/quoth-dev/quoth-mcp/internal/model"
	"github.com/quoth-dev/quoth-mcp/internal/providers"
	"github.com/quoth-dev/quoth-mcp/internal/reranker"
	"github.com/quoth-dev/quoth-mcp/internal/repository"
	"github.com/quoth-dev/quoth-mcp/internal/tier"
)

const (
	vectorCandidates  = 50
	vectorSimFloor    = 0.1
	rerankTopNoRerank = 10
	rerankMaxCandidates = 30
	cutoffMinScore    = 0.50
	cutoffKMin        = 15
	cutoffHighScore   = 0.65
	trustHigh         = 0.80
	trustMedium       = 0.60
	keywordFallbackRelevance = 0.5
)

// TrustBand labels a result's reliability for downstream agents.
type TrustBand string

const (
	TrustHigh   TrustBand = "high"
	TrustMedium TrustBand = "medium"
	TrustLow    TrustBand = "low"
)

// Result is one ranked chunk returned from search_documents or
// search_chunks.
type Result struct {
	ChunkID      uuid.UUID
	DocumentID   uuid.UUID
	Title        string
	FilePath     string
	ContentChunk string
	Metadata     model.ChunkMetadata
	Relevance    float64
	Similarity   float64
	Trust        TrustBand
}

// SearchOutcome is the full response to search_documents (§4.5).
type SearchOutcome struct {
	Results      []Result
	Usage        tier.CheckResult
	UsedFallback bool
	TierMessage  string
}

// Pipeline wires C1/C2/C5/C6 together against one Store.
type Pipeline struct {
	store    *repository.Store
	gateway  *embedding.Gateway
	reranker *reranker.Gateway
	meter    *tier.Meter
}

// New constructs a Pipeline.
func New(store *repository.Store, gateway *embedding.Gateway, rr *reranker.Gateway, meter *tier.Meter) *Pipeline {
	return &Pipeline{store: store, gateway: gateway, reranker: rr, meter: meter}
}

// SearchDocuments embeds query, searches vectors, optionally reranks,
// applies the dynamic cutoff, and tags trust bands. When the tier denies
// semantic search it instead runs keyword_fallback.
func (p *Pipeline) SearchDocuments(ctx context.Context, projectID uuid.UUID, query string, isGenesis bool) (*SearchOutcome, error) {
	check, err := p.meter.Check(ctx, projectID, tier.LimitSemanticSearch)
	if err != nil {
		return nil, err
	}
	if !check.Allowed {
		results, ferr := p.keywordFallback(ctx, projectID, query)
		if ferr != nil {
			return nil, ferr
		}
		t, _ := p.meter.Tier(ctx, projectID)
		return &SearchOutcome{
			Results:      results,
			Usage:        check,
			UsedFallback: true,
			TierMessage:  p.meter.FormatFooter(t, check),
		}, nil
	}
	p.meter.Increment(projectID, tier.LimitSemanticSearch)

	results, err := p.rankedSearch(ctx, projectID, query, isGenesis)
	if err != nil {
		return nil, err
	}

	t, _ := p.meter.Tier(ctx, projectID)
	return &SearchOutcome{
		Results: results,
		Usage:   check,
		TierMessage: p.meter.FormatFooter(t, check),
	}, nil
}

// SearchChunks follows the same ranking protocol as SearchDocuments but
// has no keyword fallback (§4.5: "it has no keyword fallback").
func (p *Pipeline) SearchChunks(ctx context.Context, projectID uuid.UUID, query string, isGenesis bool) ([]Result, error) {
	return p.rankedSearch(ctx, projectID, query, isGenesis)
}

func (p *Pipeline) rankedSearch(ctx context.Context, projectID uuid.UUID, query string, isGenesis bool) ([]Result, error) {
	contentType := embedding.Classify(query)
	vec, ct, err := p.gateway.EmbedQuery(ctx, query, contentType)
	if err != nil {
		return nil, err
	}

	candidates, err := p.store.Chunks.MatchDocuments(ctx, vec, vectorSimFloor, vectorCandidates, projectID, p.gateway.ModelFor(ct))
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "vector search failed")
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	shouldRerank, err := p.meter.ShouldRerank(ctx, projectID, isGenesis)
	if err != nil {
		return nil, err
	}
	if !shouldRerank || !p.reranker.Configured() {
		top := candidates
		if len(top) > rerankTopNoRerank {
			top = top[:rerankTopNoRerank]
		}
		return toResultsNoRerank(top), nil
	}

	rcands := make([]providers.RerankCandidate, len(candidates))
	for i, c := range candidates {
		rcands[i] = providers.RerankCandidate{Index: i, Text: c.ContentChunk}
	}
	ranked, err := p.reranker.Rerank(ctx, query, rcands, rerankMaxCandidates)
	if err != nil {
		top := candidates
		if len(top) > rerankTopNoRerank {
			top = top[:rerankTopNoRerank]
		}
		return toResultsNoRerank(top), nil
	}

	return dynamicCutoff(candidates, ranked), nil
}

func toResultsNoRerank(candidates []repository.VectorCandidate) []Result {
	out := make([]Result, len(candidates))
	for i, c := range candidates {
		out[i] = Result{
			ChunkID:      c.ChunkID,
			DocumentID:   c.DocumentID,
			Title:        c.Title,
			FilePath:     c.FilePath,
			ContentChunk: c.ContentChunk,
			Metadata:     c.Metadata,
			Relevance:    c.Similarity,
			Similarity:   c.Similarity,
			Trust:        trustBandFor(c.Similarity),
		}
	}
	return out
}

// dynamicCutoff applies §4.5 step 8: drop sub-0.50 scores, accumulate
// until K_min results are held, then stop at the first score below the
// high-relevance threshold once that floor is met.
func dynamicCutoff(candidates []repository.VectorCandidate, ranked []providers.RerankResult) []Result {
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Relevance != ranked[j].Relevance {
			return ranked[i].Relevance > ranked[j].Relevance
		}
		ci, cj := candidates[ranked[i].Index], candidates[ranked[j].Index]
		if ci.Similarity != cj.Similarity {
			return ci.Similarity > cj.Similarity
		}
		return ci.ChunkIndex < cj.ChunkIndex
	})

	var out []Result
	for _, r := range ranked {
		if r.Relevance < cutoffMinScore {
			continue
		}
		if len(out) >= cutoffKMin && r.Relevance < cutoffHighScore {
			break
		}
		c := candidates[r.Index]
		out = append(out, Result{
			ChunkID:      c.ChunkID,
			DocumentID:   c.DocumentID,
			Title:        c.Title,
			FilePath:     c.FilePath,
			ContentChunk: c.ContentChunk,
			Metadata:     c.Metadata,
			Relevance:    r.Relevance,
			Similarity:   c.Similarity,
			Trust:        trustBandFor(r.Relevance),
		})
	}
	return out
}

func trustBandFor(score float64) TrustBand {
	switch {
	case score > trustHigh:
		return TrustHigh
	case score >= trustMedium:
		return TrustMedium
	default:
		return TrustLow
	}
}

// ReadChunks fetches up to 20 chunks by id, enforcing project scope
// (§4.5, §4.9 quoth_read_chunks).
func (p *Pipeline) ReadChunks(ctx context.Context, projectID uuid.UUID, chunkIDs []uuid.UUID) ([]Result, error) {
	if len(chunkIDs) == 0 || len(chunkIDs) > 20 {
		return nil, apperr.New(apperr.ValidationError, "chunk_ids must contain between 1 and 20 ids")
	}
	candidates, err := p.store.Chunks.GetChunksByIDs(ctx, chunkIDs, projectID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to read chunks")
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].DocumentID != candidates[j].DocumentID {
			return candidates[i].DocumentID.String() < candidates[j].DocumentID.String()
		}
		return candidates[i].ChunkIndex < candidates[j].ChunkIndex
	})
	return toResultsNoRerank(candidates), nil
}

// ReadDocument resolves doc_id by exact path/title match, a fuzzy
// substring fallback, and (scope=org) a shared-document widening pass
// (§4.5 read_document).
func (p *Pipeline) ReadDocument(ctx context.Context, projectID, organizationID uuid.UUID, docID, scope string) (*model.Document, error) {
	doc, err := p.store.Documents.ByTitleOrPathExact(ctx, projectID, docID)
	if err == nil {
		return doc, nil
	}
	if err != repository.ErrNotFound {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to read document")
	}

	doc, err = p.store.Documents.SearchByTitleOrPathFuzzy(ctx, projectID, docID)
	if err == nil {
		return doc, nil
	}
	if err != repository.ErrNotFound {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to read document")
	}

	if scope == "org" {
		doc, err = p.store.Documents.SearchSharedByTitleOrPath(ctx, organizationID, docID)
		if err == nil {
			return doc, nil
		}
		if err != repository.ErrNotFound {
			return nil, apperr.Wrap(apperr.Internal, err, "failed to read document")
		}
	}

	return nil, apperr.New(apperr.NotFound, "no document matches "+docID).
		WithSuggestions(nil)
}

// keywordFallback implements §4.5's keyword_fallback: tokenize, discard
// tokens of length ≤ 2, AND-query full text; on backend failure degrade to
// a substring match on the first token. Returns a fixed relevance of 0.5.
func (p *Pipeline) keywordFallback(ctx context.Context, projectID uuid.UUID, query string) ([]Result, error) {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	candidates, err := p.store.Chunks.KeywordSearch(ctx, projectID, tokens, vectorCandidates)
	if err != nil {
		candidates, err = p.store.Chunks.SubstringSearch(ctx, projectID, tokens[0], vectorCandidates)
		if err != nil {
			return nil, apperr.Wrap(apperr.BackendUnavailable, err, "keyword fallback failed").WithRetryable()
		}
	}

	out := make([]Result, len(candidates))
	for i, c := range candidates {
		out[i] = Result{
			ChunkID:      c.ChunkID,
			DocumentID:   c.DocumentID,
			Title:        c.Title,
			FilePath:     c.FilePath,
			ContentChunk: c.ContentChunk,
			Metadata:     c.Metadata,
			Relevance:    keywordFallbackRelevance,
			Trust:        trustBandFor(keywordFallbackRelevance),
		}
	}
	return out, nil
}

func tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	var out []string
	for _, f := range fields {
		if len(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}
