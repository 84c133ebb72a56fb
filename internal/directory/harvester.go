// Package directory harvests company listings from country directory pages
// into the pending work queue the batch runner drains.
package directory

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/sajidahmed66/company-vessels/internal/metrics"
	"github.com/sajidahmed66/company-vessels/internal/site"
	"github.com/sajidahmed66/company-vessels/internal/store"
)

var defaultRoles = []string{"registered_owner", "commercial_manager", "ism_manager"}

var pageParamPattern = regexp.MustCompile(`[?&]page=(\d+)`)

// Config controls collector behavior and pacing.
type Config struct {
	// Roles filter the listing to companies holding any of these roles.
	Roles []string
	// Delay is the pause between listing pages of one country.
	Delay time.Duration
	// MaxPages caps pages per country. Zero means no cap.
	MaxPages      int
	UserAgent     string
	RespectRobots bool
	FetchTimeout  time.Duration
	MaxRetries    int
}

func (c *Config) applyDefaults() {
	if len(c.Roles) == 0 {
		c.Roles = append([]string(nil), defaultRoles...)
	}
	if c.Delay <= 0 {
		c.Delay = 10 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 15 * time.Second
	}
}

// Harvester walks country listing pages and feeds the directory queue.
type Harvester struct {
	site   *site.Site
	queue  store.DirectoryQueue
	cfg    Config
	retry  *retryPolicy
	base   *colly.Collector
	logger *zap.Logger

	// seen dedupes company URLs across pages and countries; multi-national
	// operators appear under several country filters.
	seen sync.Map
}

// New builds a Harvester over the site's listing pages.
func New(target *site.Site, queue store.DirectoryQueue, cfg Config, logger *zap.Logger) *Harvester {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Harvester{
		site:  target,
		queue: queue,
		cfg:   cfg,
		retry: newRetryPolicy(cfg.MaxRetries),
		// Revisits stay allowed: retries re-fetch the same listing URL and the
		// seen map already dedupes harvested companies.
		base:   colly.NewCollector(colly.Async(false), colly.AllowURLRevisit()),
		logger: logger,
	}
}

// Harvest walks every listed country in order. Per-country failures are
// collected rather than aborting the remaining countries.
func (h *Harvester) Harvest(ctx context.Context, countrySlugs []string) (int, error) {
	var (
		total int
		errs  []error
	)
	for _, slug := range countrySlugs {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := h.HarvestCountry(ctx, slug)
		total += n
		if err != nil {
			errs = append(errs, fmt.Errorf("country %s: %w", slug, err))
		}
	}
	return total, errors.Join(errs...)
}

// HarvestCountry walks one country's listing pages and upserts every new
// company card as a pending directory entry. The first page determines the
// page count; later pages that keep failing after retries are abandoned
// individually.
func (h *Harvester) HarvestCountry(ctx context.Context, countrySlug string) (int, error) {
	country := site.CountryFromSlug(countrySlug)

	first, err := h.fetchWithRetry(ctx, h.site.ListingURL(countrySlug, 1, h.cfg.Roles))
	if err != nil {
		metrics.ObserveDirectoryPage(country, "error")
		return 0, fmt.Errorf("fetch first listing page: %w", err)
	}
	metrics.ObserveDirectoryPage(country, "success")

	lastPage := first.maxPage
	if h.cfg.MaxPages > 0 && lastPage > h.cfg.MaxPages {
		lastPage = h.cfg.MaxPages
	}
	h.logger.Info("country listing opened",
		zap.String("country", countrySlug),
		zap.Int("pages", lastPage),
		zap.Int("cards", len(first.entries)))

	collected := h.keepNew(first.entries)
	for page := 2; page <= lastPage; page++ {
		if err := sleepCtx(ctx, h.cfg.Delay); err != nil {
			return 0, err
		}
		listing, err := h.fetchWithRetry(ctx, h.site.ListingURL(countrySlug, page, h.cfg.Roles))
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			metrics.ObserveDirectoryPage(country, "error")
			h.logger.Warn("listing page abandoned",
				zap.String("country", countrySlug),
				zap.Int("page", page),
				zap.Error(err))
			continue
		}
		metrics.ObserveDirectoryPage(country, "success")
		collected = append(collected, h.keepNew(listing.entries)...)
	}

	if len(collected) == 0 {
		h.logger.Info("no new companies found", zap.String("country", countrySlug))
		return 0, nil
	}
	if err := h.queue.UpsertEntries(ctx, collected); err != nil {
		return 0, fmt.Errorf("upsert directory entries: %w", err)
	}
	h.logger.Info("country harvested",
		zap.String("country", countrySlug),
		zap.Int("companies", len(collected)))
	return len(collected), nil
}

type listingPage struct {
	entries []store.DirectoryEntry
	maxPage int
}

func (h *Harvester) fetchWithRetry(ctx context.Context, pageURL string) (*listingPage, error) {
	for attempt := 0; ; attempt++ {
		page, err := h.fetchListing(ctx, pageURL)
		if err == nil {
			return page, nil
		}
		if !h.retry.shouldRetry(err, attempt+1) {
			return nil, err
		}
		wait := h.retry.backoff(attempt)
		h.logger.Warn("listing fetch failed, backing off",
			zap.String("url", pageURL),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", wait),
			zap.Error(err))
		if sleepErr := sleepCtx(ctx, wait); sleepErr != nil {
			return nil, err
		}
	}
}

func (h *Harvester) fetchListing(ctx context.Context, pageURL string) (*listingPage, error) {
	collector := h.base.Clone()
	if h.cfg.UserAgent != "" {
		collector.UserAgent = h.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !h.cfg.RespectRobots
	collector.SetRequestTimeout(h.cfg.FetchTimeout)

	page := &listingPage{maxPage: 1}
	var fetchErr error

	collector.OnHTML("li.col-12 > a[href]", func(e *colly.HTMLElement) {
		if entry, ok := h.parseCard(e); ok {
			page.entries = append(page.entries, entry)
		}
	})
	collector.OnHTML("ul.pagination", func(e *colly.HTMLElement) {
		if n := maxPageNumber(e.DOM); n > page.maxPage {
			page.maxPage = n
		}
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(pageURL)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("listing fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("visit listing page: %w", err)
		}
		if fetchErr != nil {
			return nil, fmt.Errorf("listing page response: %w", fetchErr)
		}
	}
	return page, nil
}

// parseCard turns one listing card anchor into a directory entry. Cards
// without a valid company URL or a name are skipped; the rest of the fields
// are whatever badges the card carries.
func (h *Harvester) parseCard(e *colly.HTMLElement) (store.DirectoryEntry, bool) {
	href := e.Request.AbsoluteURL(e.Attr("href"))
	if !h.site.IsCompanyURL(href) {
		return store.DirectoryEntry{}, false
	}
	name := strings.TrimSpace(e.DOM.Find(`h3[class*="card__title"]`).First().Text())
	if name == "" {
		return store.DirectoryEntry{}, false
	}
	return store.DirectoryEntry{
		CompanyName:  name,
		CountryName:  strings.TrimSpace(e.DOM.Find(`span[class*="badge--gray"]`).First().Text()),
		FleetSize:    strings.TrimSpace(e.DOM.Find(`span[class*="badge--warning"]`).First().Text()),
		CompanyTitle: strings.TrimSpace(e.Attr("title")),
		SourceURL:    href,
		Status:       store.DirectoryPending,
	}, true
}

func (h *Harvester) keepNew(entries []store.DirectoryEntry) []store.DirectoryEntry {
	var kept []store.DirectoryEntry
	for _, entry := range entries {
		key := entry.SourceURL
		if normalized, err := site.NormalizeURL(entry.SourceURL); err == nil {
			key = normalized
		}
		if _, loaded := h.seen.LoadOrStore(key, struct{}{}); loaded {
			continue
		}
		kept = append(kept, entry)
	}
	return kept
}

// maxPageNumber reads the highest page number visible in the pagination
// footer: numbered links carry page= query parameters, the current page is a
// bare active span.
func maxPageNumber(pagination *goquery.Selection) int {
	maxPage := 1
	pagination.Find("a.pagination__item-link").Each(func(_ int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		if m := pageParamPattern.FindStringSubmatch(href); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > maxPage {
				maxPage = n
			}
		}
	})
	pagination.Find(`span[class*="pagination__item-link--active"]`).Each(func(_ int, span *goquery.Selection) {
		if n, err := strconv.Atoi(strings.TrimSpace(span.Text())); err == nil && n > maxPage {
			maxPage = n
		}
	})
	return maxPage
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
