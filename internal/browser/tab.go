package browser

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/sajidahmed66/company-vessels/internal/metrics"
	"github.com/sajidahmed66/company-vessels/internal/scraper"
)

// Tab is one page target inside the session. Tabs are not safe for concurrent
// use; the pipeline drives one company through one tab at a time.
type Tab struct {
	session *Session
	ctx     context.Context
	cancel  context.CancelFunc
	meta    *responseMeta
}

// Close releases the tab's target.
func (t *Tab) Close() {
	t.cancel()
}

// FetchPage navigates to url, waits for the page to render, and returns the
// snapshot. A page whose title reads as a 404 yields ErrPageNotFound.
func (t *Tab) FetchPage(ctx context.Context, url string) (*scraper.PageSnapshot, error) {
	if err := t.session.wait(ctx, url); err != nil {
		return nil, err
	}

	t.meta.reset()

	runCtx, cancel := context.WithTimeout(t.ctx, t.session.cfg.NavigationTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		metrics.ObservePage(url, "error")
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}

	pause(ctx, t.session.cfg.SettleDelay)
	t.session.settle(ctx, t.ctx)

	var title, html, finalURL string
	if err := chromedp.Run(runCtx,
		chromedp.Location(&finalURL),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		metrics.ObservePage(url, "error")
		return nil, fmt.Errorf("read rendered page: %w", err)
	}

	status, responseURL := t.meta.snapshot()
	if status == 0 {
		status = http.StatusOK
	}
	if finalURL == "" {
		finalURL = responseURL
	}
	if finalURL == "" {
		finalURL = url
	}

	if titleIndicatesMissing(title) {
		metrics.ObservePage(url, "not_found")
		t.session.logger.Warn("page reported not found",
			zap.String("url", url), zap.String("title", title))
		return nil, fmt.Errorf("%w: title %q", scraper.ErrPageNotFound, title)
	}

	metrics.ObservePage(url, "success")
	t.session.logger.Debug("page fetched",
		zap.String("url", url),
		zap.String("final_url", finalURL),
		zap.Int("status", status),
		zap.Int("html_bytes", len(html)))

	return &scraper.PageSnapshot{
		URL:        url,
		FinalURL:   finalURL,
		Title:      title,
		HTML:       html,
		StatusCode: status,
	}, nil
}

// Evaluate runs JavaScript in the tab and decodes the result into out.
// out may be nil when the result does not matter.
func (t *Tab) Evaluate(ctx context.Context, js string, out any) error {
	runCtx, cancel := context.WithTimeout(t.ctx, t.session.cfg.NavigationTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, chromedp.Evaluate(js, out)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

// EvaluateAsync runs JavaScript that returns a promise and awaits it.
func (t *Tab) EvaluateAsync(ctx context.Context, js string, out any) error {
	runCtx, cancel := context.WithTimeout(t.ctx, t.session.cfg.NavigationTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, chromedp.Evaluate(js, out,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	if err != nil {
		return fmt.Errorf("evaluate async: %w", err)
	}
	return nil
}

// Scroll moves the viewport to vertical offset y.
func (t *Tab) Scroll(ctx context.Context, y int) error {
	return t.Evaluate(ctx, fmt.Sprintf("window.scrollTo(0, %d)", y), nil)
}

// Sleep pauses for d or until ctx is done.
func (t *Tab) Sleep(ctx context.Context, d time.Duration) {
	pause(ctx, d)
}

func titleIndicatesMissing(title string) bool {
	return containsLower(title, "404") || containsLower(title, "not found")
}

func containsLower(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// responseMeta tracks the most recent document response on the tab. Reset it
// before each navigation so statuses do not leak across fetches.
type responseMeta struct {
	mu     sync.Mutex
	status int
	url    string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) reset() {
	m.mu.Lock()
	m.status = 0
	m.url = ""
	m.mu.Unlock()
}

func (m *responseMeta) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.mu.Lock()
	m.status = int(resp.Response.Status)
	m.url = resp.Response.URL
	m.mu.Unlock()
}

func (m *responseMeta) snapshot() (int, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, m.url
}
