package fleet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sajidahmed66/company-vessels/internal/metrics"
)

// ErrBlocked indicates the endpoint rejected both the primary request and the
// reduced-parameter fallback. The fleet is unreachable without elevated
// access; the company is abandoned.
var ErrBlocked = errors.New("fleet endpoint blocked the request")

const preRequestScrollY = 200

// Evaluator is the slice of a browser tab the fetcher needs: in-page promise
// evaluation plus the human-like gestures before the request.
type Evaluator interface {
	EvaluateAsync(ctx context.Context, js string, out any) error
	Scroll(ctx context.Context, y int) error
	Sleep(ctx context.Context, d time.Duration)
}

// Config controls request pacing and page sizes.
type Config struct {
	PageLength     int
	PreDelay       time.Duration
	FallbackDelay  time.Duration
	FallbackLength int
}

func (c *Config) applyDefaults() {
	if c.PageLength <= 0 {
		c.PageLength = 25
	}
	if c.PreDelay <= 0 {
		c.PreDelay = 3 * time.Second
	}
	if c.FallbackDelay <= 0 {
		c.FallbackDelay = 5 * time.Second
	}
	if c.FallbackLength <= 0 {
		c.FallbackLength = 10
	}
}

// Result carries the decoded payload plus the raw JSON exactly as the
// endpoint returned it, for the backup artifact and its checksum.
type Result struct {
	Payload      *Payload
	Raw          []byte
	UsedFallback bool
}

// Fetcher replays the fleet endpoint as an in-page AJAX POST.
type Fetcher struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	cfg.applyDefaults()
	return &Fetcher{cfg: cfg, logger: logger}
}

// Fetch posts the data-grid query to route from inside the page. A blocked or
// failed primary request triggers exactly one fallback with the minimal
// parameter set after a longer delay; a blocked fallback returns ErrBlocked.
func (f *Fetcher) Fetch(ctx context.Context, tab Evaluator, token, route string) (*Result, error) {
	tab.Sleep(ctx, f.cfg.PreDelay)
	if err := tab.Scroll(ctx, preRequestScrollY); err != nil {
		f.logger.Debug("pre-request scroll failed", zap.Error(err))
	}

	payload, raw, err := f.attempt(ctx, tab, route, primaryHeaders(token), gridParams(f.cfg.PageLength))
	switch {
	case err != nil:
		metrics.ObserveFleetRequest("primary", "error")
		f.logger.Warn("primary fleet request failed, trying alternative approach",
			zap.String("route", route), zap.Error(err))
	case payload.Blocked():
		metrics.ObserveFleetRequest("primary", "blocked")
		f.logger.Warn("anti-bot protection triggered, trying alternative approach",
			zap.String("route", route))
	default:
		metrics.ObserveFleetRequest("primary", "ok")
		f.logger.Info("fleet data retrieved",
			zap.String("route", route),
			zap.Int("rows", len(payload.Data)),
			zap.Int64("records_total", payload.RecordsTotal.Int64()))
		return &Result{Payload: payload, Raw: raw}, nil
	}

	tab.Sleep(ctx, f.cfg.FallbackDelay)

	payload, raw, err = f.attempt(ctx, tab, route, fallbackHeaders(token), minimalParams(f.cfg.FallbackLength))
	if err != nil {
		metrics.ObserveFleetRequest("fallback", "error")
		return nil, fmt.Errorf("fleet fallback request: %w", err)
	}
	if payload.Blocked() {
		metrics.ObserveFleetRequest("fallback", "blocked")
		f.logger.Warn("still blocked after fallback; endpoint likely requires subscription access",
			zap.String("route", route))
		return nil, ErrBlocked
	}

	metrics.ObserveFleetRequest("fallback", "ok")
	f.logger.Info("fleet data retrieved via fallback",
		zap.String("route", route), zap.Int("rows", len(payload.Data)))
	return &Result{Payload: payload, Raw: raw, UsedFallback: true}, nil
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func (f *Fetcher) attempt(ctx context.Context, tab Evaluator, route string, headers map[string]string, params [][2]string) (*Payload, []byte, error) {
	js, err := buildFetchJS(route, headers, params)
	if err != nil {
		return nil, nil, err
	}

	var env envelope
	if err := tab.EvaluateAsync(ctx, js, &env); err != nil {
		return nil, nil, fmt.Errorf("in-page fetch: %w", err)
	}
	if env.Status != http.StatusOK {
		return nil, nil, fmt.Errorf("fleet endpoint returned status %d", env.Status)
	}

	var payload Payload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return nil, nil, fmt.Errorf("decode fleet payload: %w", err)
	}
	return &payload, []byte(env.Data), nil
}

// gridParams is the full data-grid parameter set the site's own table widget
// sends: one column, no search, ascending sort, one page window.
func gridParams(length int) [][2]string {
	return [][2]string{
		{"draw", "1"},
		{"columns[0][data]", "0"},
		{"columns[0][name]", ""},
		{"columns[0][searchable]", "true"},
		{"columns[0][orderable]", "true"},
		{"columns[0][search][value]", ""},
		{"columns[0][search][regex]", "false"},
		{"start", "0"},
		{"length", fmt.Sprintf("%d", length)},
		{"search[value]", ""},
		{"search[regex]", "false"},
		{"order[0][column]", "0"},
		{"order[0][dir]", "asc"},
	}
}

// minimalParams is the reduced set for the fallback: pagination window only.
// The detector keys on query richness, not rate.
func minimalParams(length int) [][2]string {
	return [][2]string{
		{"draw", "1"},
		{"start", "0"},
		{"length", fmt.Sprintf("%d", length)},
	}
}

func primaryHeaders(token string) map[string]string {
	return map[string]string{
		"Accept":           "application/json, text/javascript, */*; q=0.01",
		"Content-Type":     "application/x-www-form-urlencoded; charset=UTF-8",
		"X-CSRF-TOKEN":     token,
		"X-Requested-With": "XMLHttpRequest",
	}
}

func fallbackHeaders(token string) map[string]string {
	return map[string]string{
		"Accept":           "application/json",
		"Content-Type":     "application/x-www-form-urlencoded",
		"X-CSRF-TOKEN":     token,
		"X-Requested-With": "XMLHttpRequest",
	}
}

// buildFetchJS renders the in-page request. Route, headers, and parameters
// are JSON-encoded into the script so arbitrary values stay inert.
func buildFetchJS(route string, headers map[string]string, params [][2]string) (string, error) {
	routeJSON, err := json.Marshal(route)
	if err != nil {
		return "", fmt.Errorf("encode route: %w", err)
	}
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return "", fmt.Errorf("encode headers: %w", err)
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode params: %w", err)
	}

	return fmt.Sprintf(`(async () => {
	const params = %s;
	const formData = new URLSearchParams();
	for (const [key, value] of params) {
		formData.append(key, value);
	}
	const response = await fetch(%s, {
		method: 'POST',
		headers: %s,
		body: formData
	});
	const data = await response.json();
	return {status: response.status, data: data};
})()`, paramsJSON, routeJSON, headersJSON), nil
}
