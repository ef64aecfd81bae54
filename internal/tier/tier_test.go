package tier_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quoth-dev/quoth-mcp/internal/model"
	"github.com/quoth-dev/quoth-mcp/internal/tier"
)

type fakeTierSource struct {
	tier model.Tier
}

func (f *fakeTierSource) GetTier(ctx context.Context, projectID uuid.UUID) (model.Tier, error) {
	return f.tier, nil
}

func TestCheckFreeTierQuota(t *testing.T) {
	m := tier.New(&fakeTierSource{tier: model.TierFree})
	projectID := uuid.New()

	res, err := m.Check(context.Background(), projectID, tier.LimitSemanticSearch)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 5, res.Limit)
	assert.Equal(t, 5, res.Remaining)

	for i := 0; i < 5; i++ {
		m.Increment(projectID, tier.LimitSemanticSearch)
	}

	res, err = m.Check(context.Background(), projectID, tier.LimitSemanticSearch)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestCheckProTierUnlimited(t *testing.T) {
	m := tier.New(&fakeTierSource{tier: model.TierPro})
	projectID := uuid.New()

	for i := 0; i < 100; i++ {
		m.Increment(projectID, tier.LimitSemanticSearch)
	}
	res, err := m.Check(context.Background(), projectID, tier.LimitSemanticSearch)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, -1, res.Limit)
}

func TestShouldRerank(t *testing.T) {
	free := tier.New(&fakeTierSource{tier: model.TierFree})
	projectID := uuid.New()

	ok, err := free.ShouldRerank(context.Background(), projectID, false)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = free.ShouldRerank(context.Background(), projectID, true)
	require.NoError(t, err)
	assert.True(t, ok, "free tier still allows rerank during genesis scans")

	pro := tier.New(&fakeTierSource{tier: model.TierPro})
	ok, err = pro.ShouldRerank(context.Background(), projectID, false)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFormatFooter(t *testing.T) {
	m := tier.New(&fakeTierSource{tier: model.TierFree})
	footer := m.FormatFooter(model.TierFree, tier.CheckResult{Remaining: 3, Limit: 5})
	assert.Equal(t, "(3 of 5 semantic searches remaining today)", footer)

	assert.Empty(t, m.FormatFooter(model.TierPro, tier.CheckResult{Remaining: -1, Limit: -1}))
}
