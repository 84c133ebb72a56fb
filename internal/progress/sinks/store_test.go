package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sajidahmed66/company-vessels/internal/progress"
	"github.com/sajidahmed66/company-vessels/internal/store"
)

// TestStoreSinkPersistsEvents ensures company counters collapse per run before persisting.
func TestStoreSinkPersistsEvents(t *testing.T) {
	t.Parallel()

	repo := &fakeRunRepo{}
	sink := NewStoreSink(repo, nil)
	runUUID := uuid.New()
	runID := progress.UUIDToBytes(runUUID)
	now := time.Now()

	batch := []progress.Event{
		{RunID: runID, Stage: progress.StageRunStart, TS: now},
		{
			RunID:           runID,
			Stage:           progress.StageCompanyDone,
			Company:         "Neptune Navigators S.A.",
			VesselsInserted: 9,
			VesselsUpdated:  3,
			TS:              now.Add(1 * time.Minute),
		},
		{
			RunID:   runID,
			Stage:   progress.StageCompanyError,
			Company: "Aegean Bulk Carriers",
			Failure: progress.FailBlocked,
			TS:      now.Add(2 * time.Minute),
		},
		{RunID: runID, Stage: progress.StageRunDone, TS: now.Add(3 * time.Minute), Dur: 3 * time.Minute},
	}

	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, []uuid.UUID{runUUID}, repo.starts)
	require.Len(t, repo.completes, 1)
	require.Equal(t, store.RunSuccess, repo.completes[0].status)
	require.Len(t, repo.counts, 1)
	require.Equal(t, runUUID, repo.counts[0].runID)
	require.Equal(t, store.RunCounters{Processed: 1, Failed: 1, Inserted: 9, Updated: 3}, repo.counts[0].delta)
}

// TestStoreSinkRecordsRunError ensures the failure note reaches CompleteRun.
func TestStoreSinkRecordsRunError(t *testing.T) {
	t.Parallel()

	repo := &fakeRunRepo{}
	sink := NewStoreSink(repo, nil)
	runID := progress.UUIDToBytes(uuid.New())

	batch := []progress.Event{
		{RunID: runID, Stage: progress.StageRunError, TS: time.Now(), Note: "browser session lost"},
	}

	require.NoError(t, sink.Consume(context.Background(), batch))
	require.Len(t, repo.completes, 1)
	require.Equal(t, store.RunError, repo.completes[0].status)
	require.NotNil(t, repo.completes[0].errMsg)
	require.Equal(t, "browser session lost", *repo.completes[0].errMsg)
	require.Empty(t, repo.counts)
}

// TestStoreSinkHandlesErrors surfaces repository failures back to the caller.
func TestStoreSinkHandlesErrors(t *testing.T) {
	t.Parallel()

	repo := &fakeRunRepo{fail: true}
	sink := NewStoreSink(repo, nil)
	runID := progress.UUIDToBytes(uuid.New())
	err := sink.Consume(context.Background(), []progress.Event{
		{RunID: runID, Stage: progress.StageRunStart, TS: time.Now()},
	})
	require.Error(t, err)
}

type fakeRunRepo struct {
	fail      bool
	starts    []uuid.UUID
	completes []completeCall
	counts    []countsCall
}

type completeCall struct {
	runID  uuid.UUID
	status store.RunStatus
	errMsg *string
}

type countsCall struct {
	runID uuid.UUID
	delta store.RunCounters
}

func (f *fakeRunRepo) StartRun(_ context.Context, runID uuid.UUID, startedAt time.Time) error {
	if f.fail {
		return assertErr("start")
	}
	_ = startedAt
	f.starts = append(f.starts, runID)
	return nil
}

func (f *fakeRunRepo) CompleteRun(
	_ context.Context,
	runID uuid.UUID,
	finishedAt time.Time,
	status store.RunStatus,
	errMsg *string,
) error {
	if f.fail {
		return assertErr("complete")
	}
	_ = finishedAt
	f.completes = append(f.completes, completeCall{runID: runID, status: status, errMsg: errMsg})
	return nil
}

func (f *fakeRunRepo) ApplyCounts(_ context.Context, runID uuid.UUID, delta store.RunCounters) error {
	if f.fail {
		return assertErr("counts")
	}
	f.counts = append(f.counts, countsCall{runID: runID, delta: delta})
	return nil
}

func (f *fakeRunRepo) GetRun(context.Context, uuid.UUID) (store.Run, error) {
	return store.Run{}, assertErr("read")
}

func (f *fakeRunRepo) ListRuns(context.Context, *store.RunStatus, int, int) ([]store.Run, error) {
	return nil, assertErr("list")
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
