package fleet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sajidahmed66/company-vessels/internal/metrics"
)

type fakeTab struct {
	scripts   []string
	responses []fakeResponse
	sleeps    []time.Duration
	scrolls   []int
}

type fakeResponse struct {
	body string
	err  error
}

func (f *fakeTab) EvaluateAsync(_ context.Context, js string, out any) error {
	f.scripts = append(f.scripts, js)
	idx := len(f.scripts) - 1
	if idx >= len(f.responses) {
		return fmt.Errorf("unexpected request %d", idx)
	}
	resp := f.responses[idx]
	if resp.err != nil {
		return resp.err
	}
	return json.Unmarshal([]byte(resp.body), out)
}

func (f *fakeTab) Scroll(_ context.Context, y int) error {
	f.scrolls = append(f.scrolls, y)
	return nil
}

func (f *fakeTab) Sleep(_ context.Context, d time.Duration) {
	f.sleeps = append(f.sleeps, d)
}

func newTestFetcher() *Fetcher {
	metrics.Init()
	return New(Config{
		PageLength:     25,
		PreDelay:       time.Millisecond,
		FallbackDelay:  2 * time.Millisecond,
		FallbackLength: 10,
	}, zap.NewNop())
}

func okBody(rows string) string {
	return fmt.Sprintf(`{"status":200,"data":{"draw":1,"recordsTotal":1,"recordsFiltered":1,"data":[%s]}}`, rows)
}

const blockedBody = `{"status":200,"data":{"error":"Attack !"}}`

func TestFetchPrimarySuccess(t *testing.T) {
	f := newTestFetcher()
	tab := &fakeTab{responses: []fakeResponse{
		{body: okBody(`{"vessel_imo":9811000,"vessel_name":"<span>EVER GIVEN</span>"}`)},
	}}

	res, err := f.Fetch(context.Background(), tab, "tok-123", "/owners-managers/panama/x/fleets")
	require.NoError(t, err)
	require.False(t, res.UsedFallback)
	require.Len(t, res.Payload.Data, 1)
	require.Equal(t, int64(9811000), res.Payload.Data[0].IMO.Int64())
	require.NotEmpty(t, res.Raw)

	// One request, preceded by the human-like delay and scroll.
	require.Len(t, tab.scripts, 1)
	require.Equal(t, []time.Duration{time.Millisecond}, tab.sleeps)
	require.Equal(t, []int{200}, tab.scrolls)

	js := tab.scripts[0]
	require.Contains(t, js, `"X-CSRF-TOKEN":"tok-123"`)
	require.Contains(t, js, `"X-Requested-With":"XMLHttpRequest"`)
	require.Contains(t, js, `"Accept":"application/json, text/javascript, */*; q=0.01"`)
	require.Contains(t, js, `"Content-Type":"application/x-www-form-urlencoded; charset=UTF-8"`)
	require.Contains(t, js, `["columns[0][data]","0"]`)
	require.Contains(t, js, `["order[0][dir]","asc"]`)
	require.Contains(t, js, `["length","25"]`)
	require.Contains(t, js, `"/owners-managers/panama/x/fleets"`)
}

func TestFetchBlockedPrimaryFallsBack(t *testing.T) {
	f := newTestFetcher()
	tab := &fakeTab{responses: []fakeResponse{
		{body: blockedBody},
		{body: okBody(`{"vessel_imo":123}`)},
	}}

	res, err := f.Fetch(context.Background(), tab, "tok", "/fleets")
	require.NoError(t, err)
	require.True(t, res.UsedFallback)
	require.Len(t, tab.scripts, 2)

	// Fallback waits longer and drops the grid metadata.
	require.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, tab.sleeps)
	fallbackJS := tab.scripts[1]
	require.NotContains(t, fallbackJS, "columns[0]")
	require.NotContains(t, fallbackJS, "order[0]")
	require.Contains(t, fallbackJS, `["length","10"]`)
	require.Contains(t, fallbackJS, `"Accept":"application/json"`)
	require.Contains(t, fallbackJS, `"Content-Type":"application/x-www-form-urlencoded"`)
	require.Contains(t, fallbackJS, `"X-CSRF-TOKEN":"tok"`)
}

func TestFetchBlockedTwiceIsErrBlocked(t *testing.T) {
	f := newTestFetcher()
	tab := &fakeTab{responses: []fakeResponse{
		{body: blockedBody},
		{body: blockedBody},
	}}

	_, err := f.Fetch(context.Background(), tab, "tok", "/fleets")
	require.True(t, errors.Is(err, ErrBlocked))
	// Exactly one fallback, never more.
	require.Len(t, tab.scripts, 2)
}

func TestFetchHTTPErrorStillRunsFallback(t *testing.T) {
	f := newTestFetcher()
	tab := &fakeTab{responses: []fakeResponse{
		{body: `{"status":419,"data":{}}`},
		{body: okBody(`{"vessel_imo":456}`)},
	}}

	res, err := f.Fetch(context.Background(), tab, "", "/fleets")
	require.NoError(t, err)
	require.True(t, res.UsedFallback)
	require.Equal(t, int64(456), res.Payload.Data[0].IMO.Int64())
}

func TestFetchTransportErrorFallsBack(t *testing.T) {
	f := newTestFetcher()
	tab := &fakeTab{responses: []fakeResponse{
		{err: errors.New("evaluate failed")},
		{body: okBody(`{"vessel_imo":789}`)},
	}}

	res, err := f.Fetch(context.Background(), tab, "tok", "/fleets")
	require.NoError(t, err)
	require.True(t, res.UsedFallback)
}

func TestFetchFallbackFailureIsNotBlocked(t *testing.T) {
	f := newTestFetcher()
	tab := &fakeTab{responses: []fakeResponse{
		{body: blockedBody},
		{err: errors.New("network down")},
	}}

	_, err := f.Fetch(context.Background(), tab, "tok", "/fleets")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrBlocked))
	require.Contains(t, err.Error(), "fleet fallback request")
}

func TestFetchRawMirrorsEndpointPayload(t *testing.T) {
	f := newTestFetcher()
	body := okBody(`{"vessel_imo":"9811000","dwt":199629}`)
	tab := &fakeTab{responses: []fakeResponse{{body: body}}}

	res, err := f.Fetch(context.Background(), tab, "tok", "/fleets")
	require.NoError(t, err)

	// Raw carries the payload verbatim, including the quoting the endpoint
	// chose, so the backup artifact and checksum reflect what was served.
	require.Contains(t, string(res.Raw), `"vessel_imo":"9811000"`)
	require.Contains(t, string(res.Raw), `"dwt":199629`)
}

func TestBuildFetchJSEscapesValues(t *testing.T) {
	js, err := buildFetchJS(`/fleets"';alert(1)`, map[string]string{"X-CSRF-TOKEN": `"quote`}, [][2]string{{"draw", "1"}})
	require.NoError(t, err)
	// Quotes inside the route and header values stay JSON-escaped, so the
	// generated script never breaks out of its string literals.
	require.Contains(t, js, `fetch("/fleets\"';alert(1)"`)
	require.Contains(t, js, `\"quote`)
}
