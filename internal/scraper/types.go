// Package scraper contains the core domain types and the per-company
// extraction pipeline that ties browser, resolver, fleet fetch, extraction,
// and persistence together.
package scraper

// PageSnapshot is the rendered state of one document: post-render HTML, the
// final URL after redirects, the page title, and the HTTP status observed for
// the document response.
type PageSnapshot struct {
	URL        string
	FinalURL   string
	Title      string
	HTML       string
	StatusCode int
}

// CompanyInfo is the normalized company record extracted from a detail page.
// Counter fields hold the page's values verbatim.
type CompanyInfo struct {
	Name       string
	Country    string
	Address    string
	Website    string
	TotalDWT   string
	FleetCount string
	SourceURL  string
}

// Attribution is the denormalized snapshot of one managing company claimed by
// the site for a vessel. It is not a foreign key.
type Attribution struct {
	Name                 string
	CompanyIMO           int64
	CountrySlug          string
	NameSlug             string
	TotalDistinctVessels int
}

// UpsertResult summarizes one vessel batch write.
type UpsertResult struct {
	Inserted int
	Updated  int
	Skipped  int
}

// VesselRecord is the normalized per-vessel record persisted to the store.
// The IMO register number is the global business key; records without one are
// dropped before persistence.
type VesselRecord struct {
	IMO                int64
	MMSI               int64
	Name               string
	VesselType         string
	CoreTypeKey        string
	CoreTypeName       string
	Flag               string
	DWT                string
	LastPositionUpdate string
	RegisteredOwner    Attribution
	CommercialManager  Attribution
	ISMManager         Attribution
}
