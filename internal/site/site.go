// Package site holds the URL algebra for the scraped maritime directory:
// company page recognition, country/company slug handling, listing page
// construction, and the conventional fleet-endpoint synthesis.
package site

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const directorySegment = "owners-managers"

var (
	companyPathPattern   = regexp.MustCompile(`/owners-managers/([^/]+)/([^/]+)`)
	invalidFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
)

// Site captures the scraped site's base URL and derives every URL the scraper
// needs from it.
type Site struct {
	base *url.URL
}

// New parses baseURL and returns a Site. The base must be absolute.
func New(baseURL string) (*Site, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q is not absolute", baseURL)
	}
	return &Site{base: u}, nil
}

// BaseURL returns the normalized base URL without a trailing slash.
func (s *Site) BaseURL() string {
	return s.base.String()
}

// Host returns the site's hostname, used for per-host pacing keys.
func (s *Site) Host() string {
	return s.base.Hostname()
}

// IsCompanyURL reports whether raw addresses a company detail page on this
// site: {base}/owners-managers/{country}/{company} with no deeper segments.
func (s *Site) IsCompanyURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if !strings.EqualFold(u.Hostname(), s.base.Hostname()) {
		return false
	}
	parts := splitPath(u.Path)
	return len(parts) == 3 && parts[0] == directorySegment &&
		parts[1] != "" && parts[2] != ""
}

// FleetRoute synthesizes the conventional fleet endpoint for a company.
func (s *Site) FleetRoute(countrySlug, companySlug string) string {
	return fmt.Sprintf("%s/%s/%s/%s/fleets",
		s.base.String(), directorySegment, countrySlug, companySlug)
}

// AbsoluteRoute resolves a possibly relative data-route value against the base.
func (s *Site) AbsoluteRoute(route string) string {
	ref, err := url.Parse(route)
	if err != nil {
		return route
	}
	if ref.IsAbs() {
		return route
	}
	return s.base.ResolveReference(ref).String()
}

// ListingURL builds a country listing page URL carrying the role filters.
// Page 1 omits the page parameter, matching the site's own pagination links.
func (s *Site) ListingURL(countrySlug string, page int, roles []string) string {
	q := url.Values{}
	q["country[]"] = []string{countrySlug}
	if len(roles) > 0 {
		q["role[]"] = append([]string(nil), roles...)
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	return fmt.Sprintf("%s/%s?%s", s.base.String(), directorySegment, q.Encode())
}

// ParseCompanyURL extracts the country and company slugs from a company page
// URL. ok is false when the path carries no owners-managers segment pair.
func ParseCompanyURL(raw string) (countrySlug, companySlug string, ok bool) {
	m := companyPathPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// CountryFromURL derives the display-form country name from a company page
// URL, e.g. ".../owners-managers/south-korea/acme" yields "South Korea".
// Empty when the URL is not a company page.
func CountryFromURL(raw string) string {
	countrySlug, _, ok := ParseCompanyURL(raw)
	if !ok {
		return ""
	}
	return CountryFromSlug(countrySlug)
}

// CountryFromSlug converts a hyphenated slug to its display form.
func CountryFromSlug(slug string) string {
	parts := strings.Split(slug, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// Slugify lowercases name and collapses runs of non-alphanumerics to single
// hyphens, matching the site's own slug form.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = invalidFilenameChars.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// SafeFileStem sanitizes slug for use in artifact filenames.
func SafeFileStem(slug string) string {
	return invalidFilenameChars.ReplaceAllString(slug, "_")
}

// NormalizeURL standardizes a URL for dedup keys: lowercased scheme and host,
// default ports removed, fragment dropped, query parameters sorted.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""
	u.RawQuery = u.Query().Encode()

	return u.String(), nil
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
