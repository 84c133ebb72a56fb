package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// RunStatus mirrors the scrape_runs status column.
type RunStatus string

// Run statuses persisted in scrape_runs.status.
const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
)

// Run models the scrape_runs table for API responses.
type Run struct {
	// RunID is the primary key of scrape_runs.
	RunID uuid.UUID
	// StartedAt captures when the run was first marked running.
	StartedAt time.Time
	// FinishedAt is nil until the run is marked success/error.
	FinishedAt *time.Time
	// Status is running/success/error.
	Status RunStatus
	// CompaniesProcessed counts companies taken through the full pipeline.
	CompaniesProcessed int64
	// CompaniesFailed counts companies abandoned mid-pipeline.
	CompaniesFailed int64
	// VesselsInserted and VesselsUpdated accumulate vessel upsert outcomes.
	VesselsInserted int64
	VesselsUpdated  int64
	// ErrorMessage optionally stores the final failure reason.
	ErrorMessage *string
}

// RunCounters carries deltas applied to a running run's counter columns.
type RunCounters struct {
	Processed int64
	Failed    int64
	Inserted  int64
	Updated   int64
}

// RunRepository persists scrape run lifecycle and counters.
type RunRepository interface {
	// StartRun inserts (or idempotently refreshes) a running row.
	StartRun(ctx context.Context, runID uuid.UUID, startedAt time.Time) error
	// CompleteRun marks the run finished with the provided status and error.
	CompleteRun(ctx context.Context, runID uuid.UUID, finishedAt time.Time, status RunStatus, errMsg *string) error
	// ApplyCounts adds the deltas to the run's counter columns.
	ApplyCounts(ctx context.Context, runID uuid.UUID, delta RunCounters) error

	// GetRun loads a single run or returns ErrNotFound.
	GetRun(ctx context.Context, runID uuid.UUID) (Run, error)
	// ListRuns returns runs filtered by optional status plus limit/offset.
	ListRuns(ctx context.Context, status *RunStatus, limit, offset int) ([]Run, error)
}
