package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sajidahmed66/company-vessels/internal/fleet"
	"github.com/sajidahmed66/company-vessels/internal/metrics"
	"github.com/sajidahmed66/company-vessels/internal/progress"
	"github.com/sajidahmed66/company-vessels/internal/site"
	"github.com/sajidahmed66/company-vessels/internal/telemetry"
)

// Config tunes per-company processing.
type Config struct {
	// Topic is the event topic for processed-company notifications. Empty
	// disables publishing.
	Topic string
	// BackupContentType is the MIME type recorded on payload backups.
	BackupContentType string
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		Topic:             "company-processed",
		BackupContentType: "application/json",
	}
}

// Outcome reports what one company run produced.
type Outcome struct {
	CompanyID   int64
	CompanyName string
	Counts      UpsertResult
	// BackupURI points at the stored raw payload, empty when the backup was
	// skipped or failed.
	BackupURI string
	// PayloadSHA is the hex SHA-256 of the raw fleet payload.
	PayloadSHA   string
	UsedFallback bool
	// Failure classifies the failing step when ProcessCompany returns an
	// error, empty on success.
	Failure progress.FailureKind
}

// Pipeline runs one company page end to end: navigate, resolve, replay the
// fleet endpoint, persist, back up and announce.
type Pipeline struct {
	browser   Browser
	resolver  Resolver
	fleet     FleetFetcher
	parser    Parser
	companies CompanyStore
	vessels   VesselStore
	blobs     BlobStore
	publisher Publisher
	hasher    Hasher
	clock     Clock
	site      *site.Site
	cfg       Config
	logger    *zap.Logger
}

// NewPipeline wires a pipeline from its collaborators. blobs and publisher
// may be nil to disable backups or events.
func NewPipeline(
	browser Browser,
	resolver Resolver,
	fleetFetcher FleetFetcher,
	parser Parser,
	companies CompanyStore,
	vessels VesselStore,
	blobs BlobStore,
	publisher Publisher,
	hasher Hasher,
	clock Clock,
	target *site.Site,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	if cfg.BackupContentType == "" {
		cfg.BackupContentType = "application/json"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		browser:   browser,
		resolver:  resolver,
		fleet:     fleetFetcher,
		parser:    parser,
		companies: companies,
		vessels:   vessels,
		blobs:     blobs,
		publisher: publisher,
		hasher:    hasher,
		clock:     clock,
		site:      target,
		cfg:       cfg,
		logger:    logger,
	}
}

// ProcessCompany scrapes a single company page and persists what it finds.
// On error the returned Outcome carries the failure classification and
// whatever fields were populated before the failing step.
func (p *Pipeline) ProcessCompany(ctx context.Context, runID uuid.UUID, url string) (Outcome, error) {
	ctx, span := telemetry.StartCompanySpan(ctx, url)
	defer span.End()

	metrics.SetCompanyInProgress(true)
	defer metrics.SetCompanyInProgress(false)

	var out Outcome

	if err := p.browser.EstablishSession(ctx, p.site.BaseURL()); err != nil {
		out.Failure = progress.FailNavigation
		return out, fmt.Errorf("establish session: %w", err)
	}

	tab, err := p.browser.OpenTab(ctx)
	if err != nil {
		out.Failure = progress.FailNavigation
		return out, fmt.Errorf("open tab: %w", err)
	}
	defer tab.Close()

	snap, err := tab.FetchPage(ctx, url)
	if err != nil {
		out.Failure = progress.FailNavigation
		return out, fmt.Errorf("fetch company page: %w", err)
	}

	info := p.parser.Company(*snap)
	out.CompanyName = info.Name

	token, route, err := p.resolve(snap, info.Name)
	if err != nil {
		out.Failure = progress.FailResolve
		return out, err
	}

	companyID, err := p.companies.UpsertCompany(ctx, info)
	if err != nil {
		out.Failure = progress.FailPersistence
		return out, fmt.Errorf("upsert company: %w", err)
	}
	out.CompanyID = companyID
	p.logger.Info("company persisted",
		zap.String("company", info.Name),
		zap.Int64("company_id", companyID),
		zap.String("country", info.Country))

	res, err := p.fleet.Fetch(ctx, tab, token, route)
	if err != nil {
		if errors.Is(err, fleet.ErrBlocked) {
			out.Failure = progress.FailBlocked
		} else {
			out.Failure = progress.FailOther
		}
		return out, fmt.Errorf("fetch fleet data: %w", err)
	}
	out.UsedFallback = res.UsedFallback

	records := p.parser.Vessels(res.Payload.Data)
	counts, err := p.vessels.UpsertVessels(ctx, companyID, info.Name, records)
	if err != nil {
		out.Failure = progress.FailPersistence
		return out, fmt.Errorf("upsert vessels: %w", err)
	}
	out.Counts = counts
	metrics.ObserveVessels("inserted", counts.Inserted)
	metrics.ObserveVessels("updated", counts.Updated)
	metrics.ObserveVessels("skipped", counts.Skipped)
	p.logger.Info("vessels persisted",
		zap.String("company", info.Name),
		zap.Int("inserted", counts.Inserted),
		zap.Int("updated", counts.Updated),
		zap.Int("skipped", counts.Skipped),
		zap.Bool("used_fallback", res.UsedFallback))

	p.checksum(&out, info.Name, res.Raw)
	p.writeBackup(ctx, &out, info.Name, res.Raw)
	p.publishProcessed(ctx, runID, out, info)

	return out, nil
}

// resolve finds the anti-forgery token and the fleet route on the rendered
// page. A missing token degrades to an empty string; a missing route is
// fatal for the company.
func (p *Pipeline) resolve(snap *PageSnapshot, company string) (token, route string, err error) {
	var tokenStrategy string
	token, tokenStrategy = p.resolver.ResolveToken(snap)
	metrics.ObserveTokenResolution(tokenStrategy)
	if token == "" {
		p.logger.Warn("no anti-forgery token found, continuing without one",
			zap.String("company", company))
	}

	route, routeStrategy, err := p.resolver.ResolveRoute(snap)
	if err != nil {
		return "", "", fmt.Errorf("resolve fleet route: %w", err)
	}
	metrics.ObserveRouteResolution(routeStrategy)
	p.logger.Debug("fleet endpoint resolved",
		zap.String("company", company),
		zap.String("route", route),
		zap.String("token_strategy", tokenStrategy),
		zap.String("route_strategy", routeStrategy))
	return token, route, nil
}

func (p *Pipeline) checksum(out *Outcome, company string, raw []byte) {
	if p.hasher == nil || len(raw) == 0 {
		return
	}
	sum, err := p.hasher.Hash(raw)
	if err != nil {
		p.logger.Warn("checksum fleet payload", zap.String("company", company), zap.Error(err))
		return
	}
	out.PayloadSHA = sum
}

// writeBackup stores the raw endpoint payload as a diagnostic artifact. A
// failed write is logged, never fatal.
func (p *Pipeline) writeBackup(ctx context.Context, out *Outcome, company string, raw []byte) {
	if p.blobs == nil || len(raw) == 0 {
		return
	}
	stem := site.SafeFileStem(site.Slugify(company))
	name := fmt.Sprintf("%s/%s_fleet_data_%s.json",
		stem, stem, p.clock.Now().UTC().Format("20060102_150405"))
	uri, err := p.blobs.PutObject(ctx, name, p.cfg.BackupContentType, raw)
	if err != nil {
		p.logger.Warn("write fleet backup", zap.String("company", company), zap.Error(err))
		return
	}
	out.BackupURI = uri
	p.logger.Info("fleet payload backed up",
		zap.String("company", company),
		zap.String("uri", uri))
}

// publishProcessed emits the processed-company event. Best effort: a publish
// failure is logged and swallowed.
func (p *Pipeline) publishProcessed(ctx context.Context, runID uuid.UUID, out Outcome, info CompanyInfo) {
	if p.publisher == nil || p.cfg.Topic == "" {
		return
	}
	payload := map[string]any{
		"run_id":           runID.String(),
		"company_id":       out.CompanyID,
		"company_name":     info.Name,
		"source_url":       info.SourceURL,
		"vessels_inserted": out.Counts.Inserted,
		"vessels_updated":  out.Counts.Updated,
		"payload_sha256":   out.PayloadSHA,
		"finished_at":      p.clock.Now().UTC().Format(time.RFC3339),
	}
	if _, err := p.publisher.Publish(ctx, p.cfg.Topic, payload); err != nil {
		p.logger.Warn("publish processed-company event",
			zap.String("company", info.Name),
			zap.Error(err))
		return
	}
	p.logger.Debug("processed-company event published", zap.String("company", info.Name))
}
