// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scraperPagesTotal            *prometheus.CounterVec
	scraperCompaniesTotal        *prometheus.CounterVec
	scraperVesselsTotal          *prometheus.CounterVec
	scraperFleetRequestsTotal    *prometheus.CounterVec
	scraperTokenResolutionsTotal *prometheus.CounterVec
	scraperRouteResolutionsTotal *prometheus.CounterVec
	scraperDirectoryPagesTotal   *prometheus.CounterVec
	scraperCompanyInProgress     prometheus.Gauge
	scraperRateLimitDelaySeconds *prometheus.HistogramVec
	httpRequestsTotal            *prometheus.CounterVec
	httpRequestDurationSeconds   *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scraperPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_pages_total",
				Help: "Total number of pages fetched through the browser, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		scraperCompaniesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_companies_total",
				Help: "Total number of companies processed, labeled by outcome.",
			},
			[]string{"status"},
		)

		scraperVesselsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_vessels_total",
				Help: "Total number of vessel rows reconciled, labeled by action.",
			},
			[]string{"action"},
		)

		scraperFleetRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_fleet_requests_total",
				Help: "Total number of fleet endpoint requests, labeled by attempt and outcome.",
			},
			[]string{"attempt", "outcome"},
		)

		scraperTokenResolutionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_token_resolutions_total",
				Help: "Total anti-forgery token resolutions, labeled by winning strategy.",
			},
			[]string{"strategy"},
		)

		scraperRouteResolutionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_route_resolutions_total",
				Help: "Total fleet route resolutions, labeled by winning strategy.",
			},
			[]string{"strategy"},
		)

		scraperDirectoryPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_directory_pages_total",
				Help: "Total directory listing pages harvested, labeled by country and status.",
			},
			[]string{"country", "status"},
		)

		scraperCompanyInProgress = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scraper_company_in_progress",
				Help: "Whether a company scrape is currently running (0 or 1).",
			},
		)

		scraperRateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scraper_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage increments the page fetch counter.
func ObservePage(site string, status string) {
	scraperPagesTotal.WithLabelValues(SanitizeSite(site), status).Inc()
}

// ObserveCompany increments the company outcome counter.
func ObserveCompany(status string) {
	scraperCompaniesTotal.WithLabelValues(status).Inc()
}

// ObserveVessels adds reconciled vessel counts for the given action.
func ObserveVessels(action string, n int) {
	if n > 0 {
		scraperVesselsTotal.WithLabelValues(action).Add(float64(n))
	}
}

// ObserveFleetRequest increments the fleet request counter.
func ObserveFleetRequest(attempt, outcome string) {
	scraperFleetRequestsTotal.WithLabelValues(attempt, outcome).Inc()
}

// ObserveTokenResolution records which strategy produced the token.
func ObserveTokenResolution(strategy string) {
	scraperTokenResolutionsTotal.WithLabelValues(strategy).Inc()
}

// ObserveRouteResolution records which strategy produced the route.
func ObserveRouteResolution(strategy string) {
	scraperRouteResolutionsTotal.WithLabelValues(strategy).Inc()
}

// ObserveDirectoryPage increments the directory listing page counter.
func ObserveDirectoryPage(country, status string) {
	scraperDirectoryPagesTotal.WithLabelValues(country, status).Inc()
}

// SetCompanyInProgress flips the in-progress gauge.
func SetCompanyInProgress(active bool) {
	if active {
		scraperCompanyInProgress.Set(1)
	} else {
		scraperCompanyInProgress.Set(0)
	}
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	scraperRateLimitDelaySeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
