package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sajidahmed66/company-vessels/internal/store"
)

func TestRunHandlerListRuns(t *testing.T) {
	t.Parallel()

	runID := uuid.New()
	repo := &fakeRunRepo{
		runs: []store.Run{
			{
				RunID:              runID,
				Status:             store.RunSuccess,
				StartedAt:          time.Now().Add(-time.Hour),
				CompaniesProcessed: 12,
				VesselsInserted:    340,
			},
		},
	}
	handler := NewRunHandler(repo, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/runs?status=success&limit=10", nil)
	rec := httptest.NewRecorder()

	handler.ListRuns(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Runs []runDTO `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Runs, 1)
	require.Equal(t, runID.String(), body.Runs[0].RunID)
	require.Equal(t, "success", body.Runs[0].Status)
	require.Equal(t, int64(12), body.Runs[0].CompaniesProcessed)
	require.Equal(t, int64(340), body.Runs[0].VesselsInserted)

	require.NotNil(t, repo.lastStatus)
	require.Equal(t, store.RunSuccess, *repo.lastStatus)
	require.Equal(t, 10, repo.lastLimit)
}

func TestRunHandlerListRunsStatusAliases(t *testing.T) {
	t.Parallel()

	for _, alias := range []string{"error", "failed", "failure"} {
		repo := &fakeRunRepo{}
		handler := NewRunHandler(repo, zap.NewNop())

		req := httptest.NewRequest(http.MethodGet, "/v1/runs?status="+alias, nil)
		rec := httptest.NewRecorder()

		handler.ListRuns(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, alias)
		require.NotNil(t, repo.lastStatus, alias)
		require.Equal(t, store.RunError, *repo.lastStatus, alias)
	}
}

func TestRunHandlerListRunsDefaultsAndCaps(t *testing.T) {
	t.Parallel()

	repo := &fakeRunRepo{}
	handler := NewRunHandler(repo, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
	rec := httptest.NewRecorder()
	handler.ListRuns(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, defaultRunLimit, repo.lastLimit)
	require.Nil(t, repo.lastStatus)

	req = httptest.NewRequest(http.MethodGet, "/v1/runs?limit=9000&offset=20", nil)
	rec = httptest.NewRecorder()
	handler.ListRuns(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, maxRunLimit, repo.lastLimit)
	require.Equal(t, 20, repo.lastOffset)
}

func TestRunHandlerListRunsInvalidLimit(t *testing.T) {
	t.Parallel()

	handler := NewRunHandler(&fakeRunRepo{}, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/v1/runs?limit=-1", nil)
	rec := httptest.NewRecorder()

	handler.ListRuns(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunHandlerListRunsInvalidStatus(t *testing.T) {
	t.Parallel()

	handler := NewRunHandler(&fakeRunRepo{}, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/v1/runs?status=paused", nil)
	rec := httptest.NewRecorder()

	handler.ListRuns(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunHandlerListRunsRepoError(t *testing.T) {
	t.Parallel()

	handler := NewRunHandler(&fakeRunRepo{err: errors.New("boom")}, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
	rec := httptest.NewRecorder()

	handler.ListRuns(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRunHandlerGetRun(t *testing.T) {
	t.Parallel()

	runID := uuid.New()
	finished := time.Now()
	errMsg := "context canceled"
	repo := &fakeRunRepo{
		runs: []store.Run{
			{
				RunID:           runID,
				Status:          store.RunError,
				StartedAt:       finished.Add(-time.Minute),
				FinishedAt:      &finished,
				CompaniesFailed: 2,
				VesselsUpdated:  17,
				ErrorMessage:    &errMsg,
			},
		},
	}
	handler := NewRunHandler(repo, zap.NewNop())

	req := withRunIDParam(httptest.NewRequest(http.MethodGet, "/v1/runs/"+runID.String(), nil), runID.String())
	rec := httptest.NewRecorder()

	handler.GetRun(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Run runDTO `json:"run"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, runID.String(), body.Run.RunID)
	require.Equal(t, "error", body.Run.Status)
	require.NotNil(t, body.Run.FinishedAt)
	require.Equal(t, int64(2), body.Run.CompaniesFailed)
	require.Equal(t, int64(17), body.Run.VesselsUpdated)
	require.NotNil(t, body.Run.Error)
	require.Equal(t, "context canceled", *body.Run.Error)
}

func TestRunHandlerGetRunNotFound(t *testing.T) {
	t.Parallel()

	handler := NewRunHandler(&fakeRunRepo{err: store.ErrNotFound}, zap.NewNop())

	runID := uuid.New()
	req := withRunIDParam(httptest.NewRequest(http.MethodGet, "/v1/runs/"+runID.String(), nil), runID.String())
	rec := httptest.NewRecorder()

	handler.GetRun(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunHandlerGetRunInvalidID(t *testing.T) {
	t.Parallel()

	handler := NewRunHandler(&fakeRunRepo{}, zap.NewNop())

	req := withRunIDParam(httptest.NewRequest(http.MethodGet, "/v1/runs/not-a-uuid", nil), "not-a-uuid")
	rec := httptest.NewRecorder()

	handler.GetRun(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunHandlerNilRepo(t *testing.T) {
	t.Parallel()

	handler := NewRunHandler(nil, nil)

	rec := httptest.NewRecorder()
	handler.ListRuns(rec, httptest.NewRequest(http.MethodGet, "/v1/runs", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	runID := uuid.New()
	req := withRunIDParam(httptest.NewRequest(http.MethodGet, "/v1/runs/"+runID.String(), nil), runID.String())
	handler.GetRun(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type fakeRunRepo struct {
	runs       []store.Run
	err        error
	lastStatus *store.RunStatus
	lastLimit  int
	lastOffset int
}

func (f *fakeRunRepo) StartRun(context.Context, uuid.UUID, time.Time) error {
	return f.err
}

func (f *fakeRunRepo) CompleteRun(context.Context, uuid.UUID, time.Time, store.RunStatus, *string) error {
	return f.err
}

func (f *fakeRunRepo) ApplyCounts(context.Context, uuid.UUID, store.RunCounters) error {
	return f.err
}

func (f *fakeRunRepo) GetRun(context.Context, uuid.UUID) (store.Run, error) {
	if f.err != nil {
		return store.Run{}, f.err
	}
	if len(f.runs) > 0 {
		return f.runs[0], nil
	}
	return store.Run{}, store.ErrNotFound
}

func (f *fakeRunRepo) ListRuns(_ context.Context, status *store.RunStatus, limit, offset int) ([]store.Run, error) {
	f.lastStatus = status
	f.lastLimit = limit
	f.lastOffset = offset
	if f.err != nil {
		return nil, f.err
	}
	return f.runs, nil
}

func withRunIDParam(r *http.Request, runID string) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("run_id", runID)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, ctx))
}
