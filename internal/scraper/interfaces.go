package scraper

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sajidahmed66/company-vessels/internal/fleet"
)

// CompanyStore persists normalized company records.
type CompanyStore interface {
	UpsertCompany(ctx context.Context, info CompanyInfo) (int64, error)
}

// VesselStore reconciles vessel batches against the globally keyed table.
type VesselStore interface {
	UpsertVessels(ctx context.Context, companyID int64, companyName string, records []VesselRecord) (UpsertResult, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes processed-company events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Tab is the slice of one browser tab the pipeline drives: document fetches
// plus the in-page evaluation and gestures the fleet fetch needs.
type Tab interface {
	FetchPage(ctx context.Context, url string) (*PageSnapshot, error)
	EvaluateAsync(ctx context.Context, js string, out any) error
	Scroll(ctx context.Context, y int) error
	Sleep(ctx context.Context, d time.Duration)
	Close()
}

// Browser owns the warmed-up session and hands out tabs.
type Browser interface {
	EstablishSession(ctx context.Context, rootURL string) error
	OpenTab(ctx context.Context) (Tab, error)
}

// Resolver pulls the anti-forgery token and the fleet-data route out of a
// rendered page. The token may legitimately come back empty; the route is
// mandatory.
type Resolver interface {
	ResolveToken(snap *PageSnapshot) (token, strategy string)
	ResolveRoute(snap *PageSnapshot) (route, strategy string, err error)
}

// FleetFetcher replays the fleet endpoint from inside the page.
type FleetFetcher interface {
	Fetch(ctx context.Context, tab fleet.Evaluator, token, route string) (*fleet.Result, error)
}

// Parser turns rendered snapshots and fleet rows into normalized records.
type Parser interface {
	Company(snap PageSnapshot) CompanyInfo
	Vessels(rows []fleet.VesselRow) []VesselRecord
}

// Hasher computes digests for artifact integrity.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewRawID() (uuid.UUID, error)
}
