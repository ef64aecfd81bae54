package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quoth-dev/quoth-mcp/internal/model"
)

// ActivityRepository provides append-only writes and analytics queries
// over ActivityEvent, DriftEvent, and CoverageSnapshot (§4.13, §4.14).
type ActivityRepository struct {
	db *pgxpool.Pool
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(db *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// LogEvent inserts one activity record. Callers treat failures here as
// non-fatal (§4.13: logging never blocks the tool call it observes).
func (r *ActivityRepository) LogEvent(ctx context.Context, e *model.ActivityEvent) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx, `
		INSERT INTO activity_events (id, project_id, user_id, event_type, query, document_id, tool_name,
			patterns_matched, drift_detected, result_count, relevance_score, response_time_ms, file_path, context, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		e.ID, e.ProjectID, e.UserID, e.EventType, e.Query, e.DocumentID, e.ToolName,
		e.PatternsMatched, e.DriftDetected, e.ResultCount, e.RelevanceScore, e.ResponseTimeMs, e.FilePath, e.Context, e.CreatedAt)
	return err
}

// RecentEvents returns the most recent activity events for a project,
// bounded by limit, used by the health score's recency window.
func (r *ActivityRepository) RecentEvents(ctx context.Context, projectID uuid.UUID, since time.Time, limit int) ([]*model.ActivityEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, project_id, user_id, event_type, query, document_id, tool_name, patterns_matched,
			drift_detected, result_count, relevance_score, response_time_ms, file_path, context, created_at
		FROM activity_events
		WHERE project_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3`, projectID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ActivityEvent
	for rows.Next() {
		var e model.ActivityEvent
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.UserID, &e.EventType, &e.Query, &e.DocumentID, &e.ToolName,
			&e.PatternsMatched, &e.DriftDetected, &e.ResultCount, &e.RelevanceScore, &e.ResponseTimeMs, &e.FilePath, &e.Context, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// TopMissedQueries returns the queries that most often returned zero
// results within the window, used by analytics' top-missed-queries report.
func (r *ActivityRepository) TopMissedQueries(ctx context.Context, projectID uuid.UUID, since time.Time, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT query, count(*) AS misses
		FROM activity_events
		WHERE project_id = $1 AND event_type = $2 AND result_count = 0 AND created_at >= $3 AND query IS NOT NULL
		GROUP BY query
		ORDER BY misses DESC
		LIMIT $4`, projectID, model.EventSearch, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var q string
		var misses int
		if err := rows.Scan(&q, &misses); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// SearchStats returns the total search count and the count with zero
// results in the window, the inputs to the miss-rate calculation.
func (r *ActivityRepository) SearchStats(ctx context.Context, projectID uuid.UUID, since time.Time) (total, misses int, err error) {
	row := r.db.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE result_count = 0)
		FROM activity_events
		WHERE project_id = $1 AND event_type = $2 AND created_at >= $3`,
		projectID, model.EventSearch, since)
	err = row.Scan(&total, &misses)
	return
}

// RecordDrift inserts a new, unresolved drift detection.
func (r *ActivityRepository) RecordDrift(ctx context.Context, d *model.DriftEvent) error {
	d.ID = uuid.New()
	d.DetectedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx, `
		INSERT INTO drift_events (id, project_id, document_id, severity, drift_type, file_path, doc_path,
			description, expected_pattern, actual_code, resolved, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false, $11)`,
		d.ID, d.ProjectID, d.DocumentID, d.Severity, d.DriftType, d.FilePath, d.DocPath,
		d.Description, d.ExpectedPattern, d.ActualCode, d.DetectedAt)
	return err
}

// UnresolvedDrift returns drift events not yet marked resolved, most
// severe and most recent first.
func (r *ActivityRepository) UnresolvedDrift(ctx context.Context, projectID uuid.UUID) ([]*model.DriftEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, project_id, document_id, severity, drift_type, file_path, doc_path, description,
			expected_pattern, actual_code, resolved, resolved_at, resolved_by, detected_at
		FROM drift_events
		WHERE project_id = $1 AND resolved = false
		ORDER BY CASE severity WHEN 'critical' THEN 0 WHEN 'warning' THEN 1 ELSE 2 END, detected_at DESC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.DriftEvent
	for rows.Next() {
		var d model.DriftEvent
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.DocumentID, &d.Severity, &d.DriftType, &d.FilePath, &d.DocPath,
			&d.Description, &d.ExpectedPattern, &d.ActualCode, &d.Resolved, &d.ResolvedAt, &d.ResolvedBy, &d.DetectedAt); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// ResolveDrift marks a drift event resolved.
func (r *ActivityRepository) ResolveDrift(ctx context.Context, id, resolvedBy uuid.UUID) error {
	now := time.Now().UTC()
	tag, err := r.db.Exec(ctx, `UPDATE drift_events SET resolved = true, resolved_at = $2, resolved_by = $3 WHERE id = $1`, id, now, resolvedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordCoverage inserts a new coverage snapshot (§4.14 quoth_coverage).
func (r *ActivityRepository) RecordCoverage(ctx context.Context, c *model.CoverageSnapshot) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx, `
		INSERT INTO coverage_snapshots (id, project_id, total_documentable, total_documented, coverage_percentage, breakdown, scan_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.ProjectID, c.TotalDocumentable, c.TotalDocumented, c.CoveragePercentage, c.Breakdown, c.ScanType, c.CreatedAt)
	return err
}

// LatestCoverage returns the most recent coverage snapshot for a project.
func (r *ActivityRepository) LatestCoverage(ctx context.Context, projectID uuid.UUID) (*model.CoverageSnapshot, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, project_id, total_documentable, total_documented, coverage_percentage, breakdown, scan_type, created_at
		FROM coverage_snapshots
		WHERE project_id = $1
		ORDER BY created_at DESC LIMIT 1`, projectID)
	var c model.CoverageSnapshot
	if err := row.Scan(&c.ID, &c.ProjectID, &c.TotalDocumentable, &c.TotalDocumented, &c.CoveragePercentage, &c.Breakdown, &c.ScanType, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
