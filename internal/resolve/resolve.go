// Package resolve recovers the anti-forgery token and the fleet-data endpoint
// from a rendered company page. Both run an ordered strategy chain over the
// page snapshot; strategies are pure so they stay testable without a browser.
package resolve

import (
	"errors"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sajidahmed66/company-vessels/internal/scraper"
	"github.com/sajidahmed66/company-vessels/internal/site"
)

// ErrNoRoute indicates no strategy produced a fleet endpoint. Without a route
// the company cannot progress; this is the one unrecoverable resolver error.
var ErrNoRoute = errors.New("no fleet data route found")

// Strategy names reported alongside results, for logs and metrics.
const (
	TokenMetaCSRF     = "meta_csrf"
	TokenMetaToken    = "meta_token"
	TokenInlineScript = "inline_script"
	TokenInputField   = "input_field"
	TokenNone         = "none"

	RouteDataFleet   = "data_route_fleet"
	RouteDataKeyword = "data_route_keyword"
	RouteDataAny     = "data_route_any"
	RouteSynthesized = "synthesized"
)

var (
	csrfTokenPattern  = regexp.MustCompile(`(?i)csrf[_-]?token["']?\s*[:=]\s*["']([^"']+)["']`)
	plainTokenPattern = regexp.MustCompile(`(?i)_token["']?\s*[:=]\s*["']([^"']+)["']`)

	routeKeywords = []string{"fleet", "vessel", "ship"}
)

// Resolver runs the token and route strategy chains.
type Resolver struct {
	site   *site.Site
	logger *zap.Logger
}

// New creates a Resolver bound to the scraped site.
func New(s *site.Site, logger *zap.Logger) *Resolver {
	return &Resolver{site: s, logger: logger}
}

// ResolveToken returns the anti-forgery token and the name of the strategy
// that found it. An empty token with TokenNone is a degraded but valid
// outcome; the replay then carries an empty token header.
func (r *Resolver) ResolveToken(snap *scraper.PageSnapshot) (string, string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil {
		r.logger.Debug("token resolution: snapshot unparseable", zap.Error(err))
		return "", TokenNone
	}

	if token, ok := metaContent(doc, "csrf-token"); ok {
		return token, TokenMetaCSRF
	}
	r.logger.Debug("token resolution: no csrf-token meta tag")

	if token, ok := metaContent(doc, "_token"); ok {
		return token, TokenMetaToken
	}
	r.logger.Debug("token resolution: no _token meta tag")

	if token, ok := tokenFromScripts(doc); ok {
		return token, TokenInlineScript
	}
	r.logger.Debug("token resolution: no inline script match")

	if token, ok := tokenFromInputs(doc); ok {
		return token, TokenInputField
	}
	r.logger.Debug("token resolution: no hidden input match, continuing without token")

	return "", TokenNone
}

// ResolveRoute returns the fleet endpoint and the winning strategy, or
// ErrNoRoute when every strategy fails.
func (r *Resolver) ResolveRoute(snap *scraper.PageSnapshot) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil {
		r.logger.Debug("route resolution: snapshot unparseable", zap.Error(err))
		doc = nil
	}

	if doc != nil {
		if route, ok := attrValue(doc.Find(`[data-route*="fleet"]`).First(), "data-route"); ok {
			return route, RouteDataFleet, nil
		}
		r.logger.Debug("route resolution: no fleet data-route attribute")

		if route, ok := keywordRoute(doc); ok {
			return route, RouteDataKeyword, nil
		}
		r.logger.Debug("route resolution: no keyword data-route")

		if route, ok := attrValue(doc.Find("[data-route]").First(), "data-route"); ok {
			return route, RouteDataAny, nil
		}
		r.logger.Debug("route resolution: no data-route attributes at all")
	}

	pageURL := snap.FinalURL
	if pageURL == "" {
		pageURL = snap.URL
	}
	if countrySlug, companySlug, ok := site.ParseCompanyURL(pageURL); ok {
		return r.site.FleetRoute(countrySlug, companySlug), RouteSynthesized, nil
	}
	r.logger.Debug("route resolution: page url did not match company pattern",
		zap.String("url", pageURL))

	return "", "", ErrNoRoute
}

func metaContent(doc *goquery.Document, name string) (string, bool) {
	return attrValue(doc.Find(`meta[name="`+name+`"]`).First(), "content")
}

func tokenFromScripts(doc *goquery.Document) (string, bool) {
	var scripts []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if text := s.Text(); text != "" {
			scripts = append(scripts, text)
		}
	})

	for _, pattern := range []*regexp.Regexp{csrfTokenPattern, plainTokenPattern} {
		for _, text := range scripts {
			if m := pattern.FindStringSubmatch(text); m != nil && m[1] != "" {
				return m[1], true
			}
		}
	}
	return "", false
}

func tokenFromInputs(doc *goquery.Document) (string, bool) {
	return attrValue(doc.Find(`input[name*="csrf"], input[name*="_token"]`).First(), "value")
}

func keywordRoute(doc *goquery.Document) (string, bool) {
	var found string
	doc.Find("[data-route]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		route, ok := s.Attr("data-route")
		if !ok || route == "" {
			return true
		}
		lower := strings.ToLower(route)
		for _, kw := range routeKeywords {
			if strings.Contains(lower, kw) {
				found = route
				return false
			}
		}
		return true
	})
	return found, found != ""
}

func attrValue(sel *goquery.Selection, attr string) (string, bool) {
	v, ok := sel.Attr(attr)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
