package analytics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quoth-dev/quoth-mcp/internal/analytics"
	"github.com/quoth-dev/quoth-mcp/internal/model"
)

func TestStaleness(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		daysAgo int
		want    analytics.StalenessLevel
	}{
		{0, analytics.StalenessFresh},
		{13, analytics.StalenessFresh},
		{14, analytics.StalenessAging},
		{29, analytics.StalenessAging},
		{30, analytics.StalenessStale},
		{59, analytics.StalenessStale},
		{60, analytics.StalenessCritical},
		{200, analytics.StalenessCritical},
	}
	for _, c := range cases {
		lastUpdated := now.Add(-time.Duration(c.daysAgo) * 24 * time.Hour)
		assert.Equal(t, c.want, analytics.Staleness(lastUpdated, now), "daysAgo=%d", c.daysAgo)
	}
}

func TestNeedsAction(t *testing.T) {
	assert.False(t, analytics.NeedsAction(analytics.StalenessFresh))
	assert.True(t, analytics.NeedsAction(analytics.StalenessAging))
	assert.True(t, analytics.NeedsAction(analytics.StalenessStale))
	assert.True(t, analytics.NeedsAction(analytics.StalenessCritical))
}

func TestDriftSeverityByType(t *testing.T) {
	assert.Equal(t, model.DriftCritical, analytics.DriftSeverity(model.DriftPatternViolation, ""))
	assert.Equal(t, model.DriftWarning, analytics.DriftSeverity(model.DriftCodeDiverged, ""))
	assert.Equal(t, model.DriftWarning, analytics.DriftSeverity(model.DriftMissingDoc, ""))
}

func TestDriftSeverityStaleDocParsesDays(t *testing.T) {
	cases := []struct {
		description string
		want        model.DriftSeverity
	}{
		{"last touched 120 days ago", model.DriftCritical},
		{"stale for 75 day", model.DriftWarning},
		{"stale for 10 days", model.DriftInfo},
		{"no day count here", model.DriftInfo},
	}
	for _, c := range cases {
		got := analytics.DriftSeverity(model.DriftStaleDoc, c.description)
		assert.Equal(t, c.want, got, "description=%q", c.description)
	}
}
