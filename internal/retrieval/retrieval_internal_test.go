package retrieval

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/quoth-dev/quoth-mcp/internal/providers"
	"github.com/quoth-dev/quoth-mcp/internal/repository"
)

func TestTrustBandFor(t *testing.T) {
	assert.Equal(t, TrustHigh, trustBandFor(0.81))
	assert.Equal(t, TrustMedium, trustBandFor(0.80))
	assert.Equal(t, TrustMedium, trustBandFor(0.60))
	assert.Equal(t, TrustLow, trustBandFor(0.59))
	assert.Equal(t, TrustLow, trustBandFor(0))
}

func TestTokenizeDropsShortWords(t *testing.T) {
	got := tokenize("How do I configure the DB pool?")
	assert.Equal(t, []string{"how", "configure", "the", "pool?"}, got)
}

func TestTokenizeEmpty(t *testing.T) {
	assert.Empty(t, tokenize("  "))
}

func candidate(sim float64, idx int) repository.VectorCandidate {
	return repository.VectorCandidate{
		ChunkID:    uuid.New(),
		DocumentID: uuid.New(),
		Similarity: sim,
		ChunkIndex: idx,
	}
}

func TestDynamicCutoffDropsBelowFloor(t *testing.T) {
	candidates := []repository.VectorCandidate{candidate(0.9, 0), candidate(0.3, 1)}
	ranked := []providers.RerankResult{{Index: 0, Relevance: 0.9}, {Index: 1, Relevance: 0.3}}

	out := dynamicCutoff(candidates, ranked)
	assert.Len(t, out, 1)
	assert.Equal(t, 0.9, out[0].Relevance)
}

func TestDynamicCutoffStopsAfterKMinBelowHighScore(t *testing.T) {
	var candidates []repository.VectorCandidate
	var ranked []providers.RerankResult
	for i := 0; i < cutoffKMin; i++ {
		candidates = append(candidates, candidate(0.70, i))
		ranked = append(ranked, providers.RerankResult{Index: i, Relevance: 0.70})
	}
	// One more result below the high-relevance threshold once K_min is met.
	candidates = append(candidates, candidate(0.55, cutoffKMin))
	ranked = append(ranked, providers.RerankResult{Index: cutoffKMin, Relevance: 0.55})
	// And one further result that would otherwise still clear the floor.
	candidates = append(candidates, candidate(0.52, cutoffKMin+1))
	ranked = append(ranked, providers.RerankResult{Index: cutoffKMin + 1, Relevance: 0.52})

	out := dynamicCutoff(candidates, ranked)
	assert.Len(t, out, cutoffKMin)
}

func TestDynamicCutoffKeepsAccumulatingBelowKMinEvenUnderHighScore(t *testing.T) {
	candidates := []repository.VectorCandidate{candidate(0.55, 0), candidate(0.52, 1)}
	ranked := []providers.RerankResult{{Index: 0, Relevance: 0.55}, {Index: 1, Relevance: 0.52}}

	out := dynamicCutoff(candidates, ranked)
	assert.Len(t, out, 2, "below K_min, results between 0.50 and 0.65 still accumulate")
}
