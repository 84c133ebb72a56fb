// Package app initializes and holds long-lived application services, acting as
// a dependency injection container. It is built once at startup from the
// loaded configuration and closed by a cobra hook after the command finishes.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/sajidahmed66/company-vessels/internal/api"
	"github.com/sajidahmed66/company-vessels/internal/browser"
	"github.com/sajidahmed66/company-vessels/internal/clock/system"
	"github.com/sajidahmed66/company-vessels/internal/config"
	"github.com/sajidahmed66/company-vessels/internal/directory"
	"github.com/sajidahmed66/company-vessels/internal/extract"
	"github.com/sajidahmed66/company-vessels/internal/fleet"
	"github.com/sajidahmed66/company-vessels/internal/hash/sha256"
	idgen "github.com/sajidahmed66/company-vessels/internal/id/uuid"
	"github.com/sajidahmed66/company-vessels/internal/metrics"
	"github.com/sajidahmed66/company-vessels/internal/policy/ratelimit"
	"github.com/sajidahmed66/company-vessels/internal/progress"
	"github.com/sajidahmed66/company-vessels/internal/progress/sinks"
	publisherMemory "github.com/sajidahmed66/company-vessels/internal/publisher/memory"
	publisherPubsub "github.com/sajidahmed66/company-vessels/internal/publisher/pubsub"
	"github.com/sajidahmed66/company-vessels/internal/resolve"
	"github.com/sajidahmed66/company-vessels/internal/scraper"
	"github.com/sajidahmed66/company-vessels/internal/site"
	"github.com/sajidahmed66/company-vessels/internal/storage/gcs"
	"github.com/sajidahmed66/company-vessels/internal/storage/local"
	storageMemory "github.com/sajidahmed66/company-vessels/internal/storage/memory"
	"github.com/sajidahmed66/company-vessels/internal/storage/postgres"
	"github.com/sajidahmed66/company-vessels/internal/store"
	"github.com/sajidahmed66/company-vessels/internal/telemetry"
)

const serviceName = "company-vessels"

// Version is stamped at build time via
// -ldflags "-X github.com/sajidahmed66/company-vessels/internal/app.Version=...".
var Version = "dev"

// App holds all the shared, long-lived services for the scraper commands.
// Browser sessions are not part of it: they are per-command and started on
// demand through NewBrowserSession.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	site   *site.Site

	pool      *pgxpool.Pool
	companies *postgres.CompanyStore
	vessels   *postgres.VesselStore
	directory *postgres.DirectoryStore
	runs      *postgres.RunStore

	blobs     scraper.BlobStore
	gcsClient *storage.Client

	publisher    scraper.Publisher
	pubsubTopic  *pubsub.Topic
	pubsubClient *pubsub.Client

	hub     *progress.Hub
	limiter *ratelimit.Limiter
	tracer  *sdktrace.TracerProvider

	metricsSrv *http.Server
}

// New creates and initializes the App from the loaded configuration. It is the
// central point for service initialization and fails fast if any critical
// service cannot be built.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("initializing application services",
		zap.String("environment", cfg.Environment),
		zap.String("version", Version),
	)

	target, err := site.New(cfg.Site.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse site base url: %w", err)
	}

	metrics.Init()

	tracer, err := telemetry.Init(ctx, serviceName, Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
		site:   target,
		tracer: tracer,
		limiter: ratelimit.New(ratelimit.Config{
			DefaultRPS:   cfg.RateLimit.RPS,
			DefaultBurst: cfg.RateLimit.Burst,
		}),
	}

	if err := a.initDatabase(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	if err := a.initBlobStore(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	if err := a.initPublisher(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	if err := a.initProgressHub(); err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.startMetricsListener()

	logger.Info("application services initialized")
	return a, nil
}

func (a *App) initDatabase(ctx context.Context) error {
	if a.cfg.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	a.logger.Info("connecting to postgres")
	pool, err := postgres.NewPool(ctx, postgres.Config{
		DSN:      a.cfg.Database.DSN,
		MaxConns: int32(a.cfg.Database.MaxConns),
	})
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	a.pool = pool
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	if a.companies, err = postgres.NewCompanyStore(pool); err != nil {
		return fmt.Errorf("init company store: %w", err)
	}
	if a.vessels, err = postgres.NewVesselStore(pool); err != nil {
		return fmt.Errorf("init vessel store: %w", err)
	}
	if a.directory, err = postgres.NewDirectoryStore(pool); err != nil {
		return fmt.Errorf("init directory store: %w", err)
	}
	if a.runs, err = postgres.NewRunStore(pool); err != nil {
		return fmt.Errorf("init run store: %w", err)
	}
	return nil
}

func (a *App) initBlobStore(ctx context.Context) error {
	switch a.cfg.Backup.Provider {
	case "local":
		a.logger.Info("using local backup store", zap.String("dir", a.cfg.Backup.Local.BaseDir))
		blobs, err := local.New(local.Config{BaseDir: a.cfg.Backup.Local.BaseDir})
		if err != nil {
			return fmt.Errorf("init local blob store: %w", err)
		}
		a.blobs = blobs
	case "gcs":
		a.logger.Info("using gcs backup store", zap.String("bucket", a.cfg.Backup.GCS.Bucket))
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("init gcs client: %w", err)
		}
		a.gcsClient = client
		blobs, err := gcs.New(client, gcs.Config{Bucket: a.cfg.Backup.GCS.Bucket})
		if err != nil {
			return fmt.Errorf("init gcs blob store: %w", err)
		}
		a.blobs = blobs
	case "memory":
		a.blobs = storageMemory.NewBlobStore()
	case "noop":
		a.logger.Info("fleet backups disabled")
	default:
		return fmt.Errorf("unknown backup provider: %s", a.cfg.Backup.Provider)
	}
	return nil
}

func (a *App) initPublisher(ctx context.Context) error {
	switch a.cfg.Publisher.Provider {
	case "pubsub":
		gcp := a.cfg.Publisher.GCP
		a.logger.Info("connecting to pub/sub",
			zap.String("project", gcp.ProjectID),
			zap.String("topic", gcp.TopicID),
		)
		client, err := pubsub.NewClient(ctx, gcp.ProjectID)
		if err != nil {
			return fmt.Errorf("init pubsub client: %w", err)
		}
		a.pubsubClient = client
		a.pubsubTopic = client.Topic(gcp.TopicID)
		a.publisher = publisherPubsub.New(a.pubsubTopic)
	case "memory":
		a.publisher = publisherMemory.New()
	case "noop":
		a.logger.Info("event publishing disabled")
	default:
		return fmt.Errorf("unknown publisher provider: %s", a.cfg.Publisher.Provider)
	}
	return nil
}

func (a *App) initProgressHub() error {
	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("init prometheus sink: %w", err)
	}
	a.hub = progress.NewHub(
		progress.Config{Logger: a.logger},
		sinks.NewLogSink(a.logger),
		promSink,
		sinks.NewStoreSink(a.runs, a.logger),
	)
	return nil
}

// startMetricsListener exposes /metrics on its own port for the commands that
// do not run the API server. An empty metrics.listen_addr disables it.
func (a *App) startMetricsListener() {
	addr := a.cfg.Metrics.ListenAddr
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.metricsSrv = srv
	go func() {
		a.logger.Info("metrics listener started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics listener failed", zap.Error(err))
		}
	}()
}

// GetLogger returns the shared zap logger instance.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetConfig exposes the loaded configuration.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetSite returns the scraped site's URL helper.
func (a *App) GetSite() *site.Site {
	return a.site
}

// GetDirectoryQueue returns the Postgres-backed pending-company queue.
func (a *App) GetDirectoryQueue() store.DirectoryQueue {
	return a.directory
}

// GetRunRepository returns the scrape run store.
func (a *App) GetRunRepository() store.RunRepository {
	return a.runs
}

// NewBrowserSession launches the controlled browser with the configured
// fingerprint. visible flips the configured headless mode for debugging.
func (a *App) NewBrowserSession(visible bool) (*browser.Session, error) {
	bcfg := browser.Config{
		Headless:          a.cfg.Browser.Headless,
		UserAgent:         a.cfg.Browser.UserAgent,
		Width:             a.cfg.Browser.Width,
		Height:            a.cfg.Browser.Height,
		Locale:            a.cfg.Browser.Locale,
		Timezone:          a.cfg.Browser.Timezone,
		NavigationTimeout: a.cfg.Browser.NavigationTimeout,
		SettleTimeout:     a.cfg.Browser.SettleTimeout,
		SettleDelay:       a.cfg.Browser.SettleDelay,
	}
	if visible {
		bcfg.Headless = !bcfg.Headless
	}
	sess, err := browser.New(bcfg, a.logger, a.limiter)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	return sess, nil
}

// NewPipeline assembles the per-company pipeline on top of a running browser
// session.
func (a *App) NewPipeline(sess *browser.Session) *scraper.Pipeline {
	return scraper.NewPipeline(
		sessionBrowser{session: sess},
		resolve.New(a.site, a.logger),
		fleet.New(fleet.Config{
			PageLength:     a.cfg.Fleet.PageLength,
			PreDelay:       a.cfg.Fleet.PreDelay,
			FallbackDelay:  a.cfg.Fleet.FallbackDelay,
			FallbackLength: a.cfg.Fleet.FallbackLength,
		}, a.logger),
		extract.Parser{},
		a.companies,
		a.vessels,
		a.blobs,
		a.publisher,
		sha256.New(),
		system.New(),
		a.site,
		scraper.DefaultConfig(),
		a.logger,
	)
}

// NewRunner builds the queue-draining run loop over the given queue. Progress
// events flow into the hub, which feeds the log, Prometheus, and run-store
// sinks.
func (a *App) NewRunner(pipeline *scraper.Pipeline, queue store.DirectoryQueue) *scraper.Runner {
	return scraper.NewRunner(pipeline, queue, idgen.New(), system.New(), a.hub, a.logger)
}

// NewHarvester builds the country directory harvester.
func (a *App) NewHarvester() *directory.Harvester {
	return directory.New(a.site, a.directory, directory.Config{
		Roles:     a.cfg.Directory.Roles,
		Delay:     a.cfg.Directory.PageDelay,
		MaxPages:  a.cfg.Directory.MaxPages,
		UserAgent: a.cfg.Browser.UserAgent,
	}, a.logger)
}

// NewAPIServer builds the read-only ops API over the run store. The pgx pool
// doubles as the readiness probe.
func (a *App) NewAPIServer() *api.Server {
	return api.NewServer(a.runs, a.pool, a.cfg.API, a.logger)
}

// Close gracefully shuts down all services in the App container, draining the
// progress hub before the database pool it writes to goes away.
func (a *App) Close(ctx context.Context) {
	a.logger.Info("shutting down application services")
	if a.metricsSrv != nil {
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			a.logger.Warn("error stopping metrics listener", zap.Error(err))
		}
	}
	if a.hub != nil {
		if err := a.hub.Close(ctx); err != nil {
			a.logger.Warn("error draining progress hub", zap.Error(err))
		}
	}
	if a.pubsubTopic != nil {
		a.pubsubTopic.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("error closing pubsub client", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("error closing gcs client", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("error shutting down tracer", zap.Error(err))
		}
	}
	if err := a.logger.Sync(); err != nil {
		a.logger.Warn("error syncing logger on shutdown", zap.Error(err))
	}
}

// sessionBrowser adapts the concrete chromedp session to the pipeline's
// Browser port, which deals in the Tab interface.
type sessionBrowser struct {
	session *browser.Session
}

func (b sessionBrowser) EstablishSession(ctx context.Context, rootURL string) error {
	return b.session.EstablishSession(ctx, rootURL)
}

func (b sessionBrowser) OpenTab(ctx context.Context) (scraper.Tab, error) {
	tab, err := b.session.OpenTab(ctx)
	if err != nil {
		return nil, err
	}
	return tab, nil
}
