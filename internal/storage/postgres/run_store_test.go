package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/sajidahmed66/company-vessels/internal/store"
)

func TestStartRunUpsertsRunningRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	runs, err := NewRunStore(mock)
	require.NoError(t, err)

	runID := uuid.New()
	startedAt := time.Unix(1700000000, 0).UTC()

	mock.ExpectExec("INSERT INTO scrape_runs").
		WithArgs(runID, startedAt, store.RunRunning).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, runs.StartRun(context.Background(), runID, startedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRunRecordsOutcome(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	runs, err := NewRunStore(mock)
	require.NoError(t, err)

	runID := uuid.New()
	finishedAt := time.Unix(1700003600, 0).UTC()
	errMsg := "fleet endpoint blocked"

	mock.ExpectExec("UPDATE scrape_runs").
		WithArgs(finishedAt, store.RunError, &errMsg, runID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, runs.CompleteRun(context.Background(), runID, finishedAt, store.RunError, &errMsg))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyCountsAddsDeltas(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	runs, err := NewRunStore(mock)
	require.NoError(t, err)

	runID := uuid.New()

	mock.ExpectExec("UPDATE scrape_runs").
		WithArgs(int64(1), int64(0), int64(25), int64(3), runID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	delta := store.RunCounters{Processed: 1, Inserted: 25, Updated: 3}
	require.NoError(t, runs.ApplyCounts(context.Background(), runID, delta))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRunScansCounters(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	runs, err := NewRunStore(mock)
	require.NoError(t, err)

	runID := uuid.New()
	startedAt := time.Unix(1700000000, 0).UTC()

	rows := pgxmock.NewRows([]string{
		"run_id", "started_at", "finished_at", "status",
		"companies_processed", "companies_failed", "vessels_inserted", "vessels_updated",
		"error_message",
	}).AddRow(runID, startedAt, (*time.Time)(nil), store.RunRunning, int64(4), int64(1), int64(87), int64(12), (*string)(nil))

	mock.ExpectQuery("SELECT (.+) FROM scrape_runs").
		WithArgs(runID).
		WillReturnRows(rows)

	run, err := runs.GetRun(context.Background(), runID)
	require.NoError(t, err)
	require.Equal(t, runID, run.RunID)
	require.Equal(t, store.RunRunning, run.Status)
	require.Nil(t, run.FinishedAt)
	require.Equal(t, int64(4), run.CompaniesProcessed)
	require.Equal(t, int64(87), run.VesselsInserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRunMapsMissingRowToNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	runs, err := NewRunStore(mock)
	require.NoError(t, err)

	runID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM scrape_runs").
		WithArgs(runID).
		WillReturnError(pgx.ErrNoRows)

	_, err = runs.GetRun(context.Background(), runID)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRunsFiltersByStatus(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	runs, err := NewRunStore(mock)
	require.NoError(t, err)

	runID := uuid.New()
	startedAt := time.Unix(1700000000, 0).UTC()
	finishedAt := startedAt.Add(time.Hour)
	status := store.RunSuccess

	rows := pgxmock.NewRows([]string{
		"run_id", "started_at", "finished_at", "status",
		"companies_processed", "companies_failed", "vessels_inserted", "vessels_updated",
		"error_message",
	}).AddRow(runID, startedAt, &finishedAt, store.RunSuccess, int64(10), int64(0), int64(120), int64(9), (*string)(nil))

	mock.ExpectQuery("SELECT (.+) FROM scrape_runs").
		WithArgs(&status, 20, 0).
		WillReturnRows(rows)

	got, err := runs.ListRuns(context.Background(), &status, 20, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, runID, got[0].RunID)
	require.NotNil(t, got[0].FinishedAt)
	require.Equal(t, int64(120), got[0].VesselsInserted)
	require.NoError(t, mock.ExpectationsWereMet())
}
