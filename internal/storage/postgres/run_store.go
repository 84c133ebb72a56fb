package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sajidahmed66/company-vessels/internal/store"
)

// RunStore implements the store.RunRepository interface using Postgres.
type RunStore struct {
	pool Pool
}

// NewRunStore wires a store to the shared pool.
func NewRunStore(pool Pool) (*RunStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &RunStore{pool: pool}, nil
}

// StartRun inserts or refreshes a run's running row.
func (s *RunStore) StartRun(ctx context.Context, runID uuid.UUID, startedAt time.Time) error {
	query := `
		INSERT INTO scrape_runs (run_id, started_at, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id) DO UPDATE
		SET status = EXCLUDED.status
		WHERE scrape_runs.status <> EXCLUDED.status;
	`
	_, err := s.pool.Exec(ctx, query, runID, startedAt, store.RunRunning)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// CompleteRun marks a run as finished with a status and optional error message.
func (s *RunStore) CompleteRun(
	ctx context.Context,
	runID uuid.UUID,
	finishedAt time.Time,
	status store.RunStatus,
	errMsg *string,
) error {
	query := `
		UPDATE scrape_runs
		SET finished_at = $1, status = $2, error_message = $3
		WHERE run_id = $4;
	`
	_, err := s.pool.Exec(ctx, query, finishedAt, status, errMsg, runID)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// ApplyCounts adds the deltas to a run's counter columns.
func (s *RunStore) ApplyCounts(ctx context.Context, runID uuid.UUID, delta store.RunCounters) error {
	query := `
		UPDATE scrape_runs
		SET companies_processed = companies_processed + $1,
			companies_failed = companies_failed + $2,
			vessels_inserted = vessels_inserted + $3,
			vessels_updated = vessels_updated + $4
		WHERE run_id = $5;
	`
	_, err := s.pool.Exec(ctx, query, delta.Processed, delta.Failed, delta.Inserted, delta.Updated, runID)
	if err != nil {
		return fmt.Errorf("failed to apply run counts: %w", err)
	}
	return nil
}

// GetRun retrieves a single run by its ID.
func (s *RunStore) GetRun(ctx context.Context, runID uuid.UUID) (store.Run, error) {
	query := `
		SELECT run_id, started_at, finished_at, status,
			companies_processed, companies_failed, vessels_inserted, vessels_updated,
			error_message
		FROM scrape_runs
		WHERE run_id = $1;
	`
	var run store.Run
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&run.RunID,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Status,
		&run.CompaniesProcessed,
		&run.CompaniesFailed,
		&run.VesselsInserted,
		&run.VesselsUpdated,
		&run.ErrorMessage,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Run{}, store.ErrNotFound
		}
		return store.Run{}, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves a list of runs, with optional status filtering.
func (s *RunStore) ListRuns(
	ctx context.Context,
	status *store.RunStatus,
	limit,
	offset int,
) ([]store.Run, error) {
	query := `
		SELECT run_id, started_at, finished_at, status,
			companies_processed, companies_failed, vessels_inserted, vessels_updated,
			error_message
		FROM scrape_runs
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3;
	`
	rows, err := s.pool.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		var run store.Run
		err := rows.Scan(
			&run.RunID,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Status,
			&run.CompaniesProcessed,
			&run.CompaniesFailed,
			&run.VesselsInserted,
			&run.VesselsUpdated,
			&run.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read run rows: %w", err)
	}
	return runs, nil
}
