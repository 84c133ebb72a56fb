// Package browser drives a controlled Chrome session via chromedp. It owns the
// anti-automation fingerprint, the session bootstrap against the site root,
// and per-company tabs used for page fetches and in-page JavaScript.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/sajidahmed66/company-vessels/internal/policy/ratelimit"
)

// stealthScript runs before any page script on every new document and hides
// the usual headless automation tells.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
window.chrome = {runtime: {}};
`

const (
	sessionScrollY     = 100
	sessionLingerDelay = 2 * time.Second
)

// Config controls the browser fingerprint and wait behavior.
type Config struct {
	Headless          bool
	UserAgent         string
	Width             int
	Height            int
	Locale            string
	Timezone          string
	NavigationTimeout time.Duration
	SettleTimeout     time.Duration
	SettleDelay       time.Duration
}

func (c *Config) applyDefaults() {
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 60 * time.Second
	}
	if c.SettleTimeout <= 0 {
		c.SettleTimeout = 15 * time.Second
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 3 * time.Second
	}
	if c.Width <= 0 || c.Height <= 0 {
		c.Width, c.Height = 1920, 1080
	}
}

// Session owns one running browser. Establish it once against the site root,
// then open one tab per company.
type Session struct {
	cfg     Config
	logger  *zap.Logger
	limiter *ratelimit.Limiter

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu          sync.Mutex
	established bool
}

// New launches a browser with the evasion fingerprint applied. The limiter is
// optional and paces navigations per host when present.
func New(cfg Config, logger *zap.Logger, limiter *ratelimit.Limiter) (*Session, error) {
	cfg.applyDefaults()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-web-security", true),
		chromedp.Flag("disable-features", "VizDisplayCompositor"),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(cfg.Width, cfg.Height),
	)
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx, fingerprintTasks(cfg)); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("browser warmup: %w", err)
	}

	return &Session{
		cfg:           cfg,
		logger:        logger,
		limiter:       limiter,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close tears down the browser and its allocator, waiting up to ctx for the
// process to exit cleanly before forcing it.
func (s *Session) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(s.browserCtx) }()
	select {
	case err := <-done:
		s.allocCancel()
		if err != nil {
			return fmt.Errorf("close browser: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.browserCancel()
		s.allocCancel()
		return ctx.Err()
	}
}

// EstablishSession visits the site root once per browser so the server hands
// out the cookies the later AJAX replay depends on. Safe to call repeatedly.
func (s *Session) EstablishSession(ctx context.Context, rootURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.established {
		return nil
	}

	if err := s.wait(ctx, rootURL); err != nil {
		return err
	}

	s.logger.Info("establishing session", zap.String("url", rootURL))

	runCtx, cancel := context.WithTimeout(s.browserCtx, s.cfg.NavigationTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx,
		chromedp.Navigate(rootURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("visit site root: %w", err)
	}

	pause(ctx, s.cfg.SettleDelay)
	s.settle(ctx, s.browserCtx)

	if err := chromedp.Run(runCtx,
		chromedp.Evaluate(fmt.Sprintf("window.scrollTo(0, %d)", sessionScrollY), nil),
	); err != nil {
		s.logger.Debug("session scroll failed", zap.Error(err))
	}
	pause(ctx, sessionLingerDelay)

	s.established = true
	s.logger.Info("session established")
	return nil
}

// OpenTab creates a fresh tab sharing the session's cookie jar, with the
// fingerprint overrides applied to the new target.
func (s *Session) OpenTab(ctx context.Context) (*Tab, error) {
	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)

	runCtx, cancel := context.WithTimeout(tabCtx, s.cfg.NavigationTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, fingerprintTasks(s.cfg)); err != nil {
		tabCancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}

	tab := &Tab{
		session: s,
		ctx:     tabCtx,
		cancel:  tabCancel,
	}
	tab.meta = newResponseMeta()
	chromedp.ListenTarget(tabCtx, tab.meta.captureEvent)
	return tab, nil
}

// fingerprintTasks applies the emulation overrides and installs the stealth
// init script on the target.
func fingerprintTasks(cfg Config) chromedp.Tasks {
	tasks := chromedp.Tasks{
		emulation.SetUserAgentOverride(cfg.UserAgent).
			WithAcceptLanguage("en-US,en;q=0.9").
			WithPlatform("MacIntel"),
		emulation.SetDeviceMetricsOverride(int64(cfg.Width), int64(cfg.Height), 1, false),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
	}
	if cfg.Locale != "" {
		tasks = append(tasks, emulation.SetLocaleOverride().WithLocale(cfg.Locale))
	}
	if cfg.Timezone != "" {
		tasks = append(tasks, emulation.SetTimezoneOverride(cfg.Timezone))
	}
	return tasks
}

// settle waits, bounded by SettleTimeout, for the document to report itself
// complete. Timeouts are tolerated: a page still streaming assets is usable.
func (s *Session) settle(parent context.Context, tabCtx context.Context) {
	settleCtx, cancel := context.WithTimeout(tabCtx, s.cfg.SettleTimeout)
	defer cancel()
	stop := forwardCancel(parent, cancel)
	defer stop()

	err := chromedp.Run(settleCtx,
		chromedp.Poll("document.readyState === 'complete'", nil,
			chromedp.WithPollingTimeout(s.cfg.SettleTimeout)),
	)
	if err != nil {
		s.logger.Debug("page settle wait ended early", zap.Error(err))
	}
}

func (s *Session) wait(ctx context.Context, url string) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx, url)
}

// pause sleeps for delay or until ctx is done.
func pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// forwardCancel propagates cancellation of parent into cancel until the
// returned stop function runs.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
