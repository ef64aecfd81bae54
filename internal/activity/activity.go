// Package activity implements the Activity Log (C13): a fire-and-forget
// writer over the append-only activity_events table. Failures are logged
// but never propagated to the caller (§4.13).
package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quoth-dev/quoth-mcp/internal/model"
	"github.com/quoth-dev/quoth-mcp/internal/repository"
)

// Logger enqueues activity events without blocking the caller.
type Logger struct {
	repo *repository.ActivityRepository
	log  *zap.Logger
}

// New constructs a Logger.
func New(repo *repository.ActivityRepository, log *zap.Logger) *Logger {
	return &Logger{repo: repo, log: log}
}

// Entry describes one activity record, mirroring the optional fields of
// model.ActivityEvent that a given tool call may populate.
type Entry struct {
	ProjectID       uuid.UUID
	UserID          *uuid.UUID
	EventType       model.EventType
	Query           *string
	DocumentID      *uuid.UUID
	ToolName        *string
	PatternsMatched *int
	DriftDetected   bool
	ResultCount     *int
	RelevanceScore  *float64
	ResponseTimeMs  *int
	FilePath        *string
	Context         []byte
}

// Log writes e in a detached goroutine. Every tool call records timing
// via this path regardless of success (§4.9 step 3).
func (l *Logger) Log(e Entry) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		event := &model.ActivityEvent{
			ProjectID:       e.ProjectID,
			UserID:          e.UserID,
			EventType:       e.EventType,
			Query:           e.Query,
			DocumentID:      e.DocumentID,
			ToolName:        e.ToolName,
			PatternsMatched: e.PatternsMatched,
			DriftDetected:   e.DriftDetected,
			ResultCount:     e.ResultCount,
			RelevanceScore:  e.RelevanceScore,
			ResponseTimeMs:  e.ResponseTimeMs,
			FilePath:        e.FilePath,
			Context:         e.Context,
		}
		if event.Context == nil {
			event.Context = []byte("{}")
		}

		if err := l.repo.LogEvent(ctx, event); err != nil {
			l.log.Warn("activity log write failed", zap.String("event_type", string(e.EventType)), zap.Error(err))
		}
	}()
}

// Timer measures a call's duration for ResponseTimeMs.
func Timer() func() int {
	start := time.Now()
	return func() int {
		return int(time.Since(start).Milliseconds())
	}
}
