// Package analytics implements Health / Coverage / Drift (C14):
// staleness scoring, miss-rate trend analysis, top-missed-queries, drift
// severity parsing, and coverage snapshots. See spec.md §4.14.
package analytics

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quoth-dev/quoth-mcp/internal/apperr"
	"github.com/quoth-dev/quoth-mcp/internal/model"
	"github.com/quoth-dev/quoth-mcp/internal/repository"
)

// StalenessLevel grades a document by days since last_updated.
type StalenessLevel string

const (
	StalenessFresh    StalenessLevel = "fresh"
	StalenessAging    StalenessLevel = "aging"
	StalenessStale    StalenessLevel = "stale"
	StalenessCritical StalenessLevel = "critical"
)

var stalenessWeight = map[StalenessLevel]int{
	StalenessFresh:    100,
	StalenessAging:    70,
	StalenessStale:    30,
	StalenessCritical: 0,
}

// Staleness classifies a document given its last_updated timestamp.
func Staleness(lastUpdated time.Time, now time.Time) StalenessLevel {
	days := int(now.Sub(lastUpdated).Hours() / 24)
	switch {
	case days < 14:
		return StalenessFresh
	case days < 30:
		return StalenessAging
	case days < 60:
		return StalenessStale
	default:
		return StalenessCritical
	}
}

// NeedsAction reports whether a staleness level warrants a suggested
// action (aging and above).
func NeedsAction(level StalenessLevel) bool {
	return level != StalenessFresh
}

// Engine wires C14 to the Store.
type Engine struct {
	store *repository.Store
}

// New constructs an Engine.
func New(store *repository.Store) *Engine {
	return &Engine{store: store}
}

// HealthScore is a project's weighted-average documentation health.
type HealthScore struct {
	Score          int
	DocumentCount  int
	StaleDocuments []string // file paths at stale or critical level
}

// Health computes the weighted-average health score over every document
// in a project (§4.14).
func (e *Engine) Health(ctx context.Context, projectID uuid.UUID) (*HealthScore, error) {
	docs, err := e.store.Documents.ListByProject(ctx, projectID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to list documents")
	}
	if len(docs) == 0 {
		return &HealthScore{Score: 100}, nil
	}

	now := time.Now().UTC()
	total := 0
	var stale []string
	for _, d := range docs {
		level := Staleness(d.LastUpdated, now)
		total += stalenessWeight[level]
		if level == StalenessStale || level == StalenessCritical {
			stale = append(stale, d.FilePath)
		}
	}

	return &HealthScore{
		Score:          round(float64(total) / float64(len(docs))),
		DocumentCount:  len(docs),
		StaleDocuments: stale,
	}, nil
}

// MissRateTrend reports the daily miss rate over a rolling window and
// whether it is improving, degrading, or stable.
type MissRateTrend struct {
	DailyRates []float64
	Trend      string // improving, degrading, stable
}

// MissRate computes the rolling miss-rate trend over windowDays
// (§4.14: "per-day (misses / searches) × 100").
func (e *Engine) MissRate(ctx context.Context, projectID uuid.UUID, windowDays int) (*MissRateTrend, error) {
	now := time.Now().UTC()
	rates := make([]float64, 0, windowDays)

	for i := windowDays - 1; i >= 0; i-- {
		dayStart := now.AddDate(0, 0, -i).Truncate(24 * time.Hour)
		dayEnd := dayStart.Add(24 * time.Hour)
		total, misses, err := e.store.Activity.SearchStats(ctx, projectID, dayStart)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "failed to compute search stats")
		}
		laterTotal, laterMisses, err := e.store.Activity.SearchStats(ctx, projectID, dayEnd)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "failed to compute search stats")
		}
		total -= laterTotal
		misses -= laterMisses
		rate := 0.0
		if total > 0 {
			rate = (float64(misses) / float64(total)) * 100
		}
		rates = append(rates, rate)
	}

	trend := "stable"
	if len(rates) >= 2 {
		half := len(rates) / 2
		firstAvg := average(rates[:half])
		secondAvg := average(rates[half:])
		switch {
		case secondAvg < firstAvg-5:
			trend = "improving"
		case secondAvg > firstAvg+5:
			trend = "degrading"
		}
	}

	return &MissRateTrend{DailyRates: rates, Trend: trend}, nil
}

// TopMissedQueries returns the top k most-missed queries over the last 30
// days, lower-cased and trimmed.
func (e *Engine) TopMissedQueries(ctx context.Context, projectID uuid.UUID, k int) ([]string, error) {
	since := time.Now().UTC().AddDate(0, 0, -30)
	queries, err := e.store.Activity.TopMissedQueries(ctx, projectID, since, k)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load missed queries")
	}
	out := make([]string, len(queries))
	for i, q := range queries {
		out[i] = strings.TrimSpace(strings.ToLower(q))
	}
	return out, nil
}

var driftDaysRe = regexp.MustCompile(`(\d+)\s*days?`)

// DriftSeverity derives a DriftEvent's severity from its drift_type, with
// stale_doc parsed from a "(\d+)\s*days?" pattern in its description
// (§4.14).
func DriftSeverity(driftType model.DriftType, description string) model.DriftSeverity {
	switch driftType {
	case model.DriftPatternViolation:
		return model.DriftCritical
	case model.DriftCodeDiverged, model.DriftMissingDoc:
		return model.DriftWarning
	case model.DriftStaleDoc:
		days := parseDays(description)
		switch {
		case days > 90:
			return model.DriftCritical
		case days > 60:
			return model.DriftWarning
		default:
			return model.DriftInfo
		}
	default:
		return model.DriftInfo
	}
}

func parseDays(description string) int {
	m := driftDaysRe.FindStringSubmatch(description)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// Coverage computes and persists a coverage snapshot: per-doc_type
// counts (auto-categorizing and persisting any uncategorized document),
// and the fraction of documents that have at least one embedded chunk
// (§4.14).
func (e *Engine) Coverage(ctx context.Context, projectID uuid.UUID, scanType model.ScanType, inferDocType func(filePath string) *model.DocType) (*model.CoverageSnapshot, error) {
	docs, err := e.store.Documents.ListByProject(ctx, projectID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to list documents")
	}

	breakdown := make(map[string]int)
	documented := 0
	for _, d := range docs {
		if d.DocType == nil {
			if inferred := inferDocType(d.FilePath); inferred != nil {
				d.DocType = inferred
				if err := e.store.Documents.UpdateDocType(ctx, d.ID, *inferred); err != nil {
					return nil, apperr.Wrap(apperr.Internal, err, "failed to persist inferred doc_type")
				}
			}
		}
		if d.DocType != nil {
			breakdown[string(*d.DocType)]++
		} else {
			breakdown["uncategorized"]++
		}

		count, err := e.store.Chunks.CountByDocument(ctx, d.ID)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "failed to count chunks")
		}
		if count > 0 {
			documented++
		}
	}

	pct := 0.0
	if len(docs) > 0 {
		pct = float64(documented) / float64(len(docs))
	}

	breakdownJSON, err := json.Marshal(breakdown)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to marshal coverage breakdown")
	}

	snapshot := &model.CoverageSnapshot{
		ProjectID:          projectID,
		TotalDocumentable:  len(docs),
		TotalDocumented:    documented,
		CoveragePercentage: pct,
		Breakdown:          breakdownJSON,
		ScanType:           scanType,
	}
	if err := e.store.Activity.RecordCoverage(ctx, snapshot); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to record coverage snapshot")
	}
	return snapshot, nil
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func round(x float64) int {
	if x < 0 {
		return int(x - 0.5)
	}
	return int(x + 0.5)
}
