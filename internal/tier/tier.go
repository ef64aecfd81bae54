// Package tier implements the per-project tier cache and per-day usage
// counters (§4.6). Counters are process-local by design: the spec
// explicitly permits divergence across horizontally-scaled replicas
// rather than paying for a distributed counter.
package tier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quoth-dev/quoth-mcp/internal/model"
)

// LimitType distinguishes which per-day quota a check/increment targets.
type LimitType string

const (
	LimitSemanticSearch LimitType = "semantic_search"
	LimitRAGAnswer      LimitType = "rag_answer"
)

type quota struct {
	semanticSearches int // -1 = unlimited
	ragAnswers       int
	rerank           bool
	rerankGenesis    bool
}

var quotas = map[model.Tier]quota{
	model.TierFree: {semanticSearches: 5, ragAnswers: 3, rerank: false, rerankGenesis: true},
	model.TierPro:  {semanticSearches: -1, ragAnswers: -1, rerank: true, rerankGenesis: true},
	model.TierTeam: {semanticSearches: -1, ragAnswers: -1, rerank: true, rerankGenesis: true},
}

const tierCacheTTL = 5 * time.Minute

type tierCacheEntry struct {
	tier      model.Tier
	expiresAt time.Time
}

type counterKey struct {
	projectID uuid.UUID
	limit     LimitType
	day       string // YYYY-MM-DD UTC
}

type counter struct {
	count int
}

// TierSource resolves a project's tier on a cache miss.
type TierSource interface {
	GetTier(ctx context.Context, projectID uuid.UUID) (model.Tier, error)
}

// Meter tracks tier lookups and per-day usage counters in memory.
type Meter struct {
	source TierSource

	mu        sync.Mutex
	tierCache map[uuid.UUID]tierCacheEntry
	counters  map[counterKey]*counter
}

// New constructs a Meter backed by source for tier lookups.
func New(source TierSource) *Meter {
	return &Meter{
		source:    source,
		tierCache: make(map[uuid.UUID]tierCacheEntry),
		counters:  make(map[counterKey]*counter),
	}
}

// Tier returns a project's tier, using a 5-minute cache before re-reading
// projects.tier.
func (m *Meter) Tier(ctx context.Context, projectID uuid.UUID) (model.Tier, error) {
	m.mu.Lock()
	if entry, ok := m.tierCache[projectID]; ok && time.Now().Before(entry.expiresAt) {
		m.mu.Unlock()
		return entry.tier, nil
	}
	m.mu.Unlock()

	t, err := m.source.GetTier(ctx, projectID)
	if err != nil {
		return "", err
	}
	if t == "" {
		t = model.TierFree
	}

	m.mu.Lock()
	m.tierCache[projectID] = tierCacheEntry{tier: t, expiresAt: time.Now().Add(tierCacheTTL)}
	m.mu.Unlock()
	return t, nil
}

// CheckResult is the outcome of Check.
type CheckResult struct {
	Allowed   bool
	Remaining int // -1 if unlimited
	Limit     int // -1 if unlimited
}

// Check reports whether projectID may perform one more operation of
// limitType today without incrementing the counter.
func (m *Meter) Check(ctx context.Context, projectID uuid.UUID, limitType LimitType) (CheckResult, error) {
	t, err := m.Tier(ctx, projectID)
	if err != nil {
		return CheckResult{}, err
	}
	q := quotas[t]
	limit := limitFor(q, limitType)
	if limit < 0 {
		return CheckResult{Allowed: true, Remaining: -1, Limit: -1}, nil
	}

	key := counterKey{projectID: projectID, limit: limitType, day: today()}
	m.mu.Lock()
	c := m.counters[key]
	used := 0
	if c != nil {
		used = c.count
	}
	m.mu.Unlock()

	remaining := limit - used
	return CheckResult{Allowed: remaining > 0, Remaining: remaining, Limit: limit}, nil
}

// Increment bumps the counter for (projectID, limitType, today), resetting
// it automatically when the UTC day has rolled over since the last write.
func (m *Meter) Increment(projectID uuid.UUID, limitType LimitType) {
	key := counterKey{projectID: projectID, limit: limitType, day: today()}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[key]
	if !ok {
		c = &counter{}
		m.counters[key] = c
	}
	c.count++
}

// ShouldRerank reports whether reranking is enabled for projectID, true
// either when the tier enables rerank generally or when isGenesis and the
// tier enables genesis-time rerank.
func (m *Meter) ShouldRerank(ctx context.Context, projectID uuid.UUID, isGenesis bool) (bool, error) {
	t, err := m.Tier(ctx, projectID)
	if err != nil {
		return false, err
	}
	q := quotas[t]
	if q.rerank {
		return true, nil
	}
	return isGenesis && q.rerankGenesis, nil
}

// FormatFooter returns a short trailing quota message for free-tier
// projects only; other tiers return an empty string.
func (m *Meter) FormatFooter(tier model.Tier, usage CheckResult) string {
	if tier != model.TierFree {
		return ""
	}
	if usage.Limit < 0 {
		return ""
	}
	return fmt.Sprintf("(%d of %d semantic searches remaining today)", usage.Remaining, usage.Limit)
}

func limitFor(q quota, limitType LimitType) int {
	if limitType == LimitRAGAnswer {
		return q.ragAnswers
	}
	return q.semanticSearches
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}
