// Package cmd defines and implements the CLI commands for the company-vessels
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sajidahmed66/company-vessels/internal/api"
	"github.com/sajidahmed66/company-vessels/internal/app"
	"github.com/sajidahmed66/company-vessels/internal/browser"
	"github.com/sajidahmed66/company-vessels/internal/config"
	"github.com/sajidahmed66/company-vessels/internal/directory"
	"github.com/sajidahmed66/company-vessels/internal/logging"
	"github.com/sajidahmed66/company-vessels/internal/scraper"
	"github.com/sajidahmed66/company-vessels/internal/site"
	"github.com/sajidahmed66/company-vessels/internal/store"
	pkgconfig "github.com/sajidahmed66/company-vessels/pkg/config"
)

var cfgFile string

// appKeyType is the key for storing the App in the command context.
type appKeyType string

const appKey appKeyType = "app"

// closeTimeout bounds the graceful shutdown of application services.
const closeTimeout = 15 * time.Second

// App is the slice of the application container the subcommands use.
// This allows us to inject a mock app during tests.
type App interface {
	Close(ctx context.Context)
	GetLogger() *zap.Logger
	GetConfig() config.Config
	GetSite() *site.Site
	GetDirectoryQueue() store.DirectoryQueue
	NewBrowserSession(visible bool) (*browser.Session, error)
	NewPipeline(sess *browser.Session) *scraper.Pipeline
	NewRunner(pipeline *scraper.Pipeline, queue store.DirectoryQueue) *scraper.Runner
	NewHarvester() *directory.Harvester
	NewAPIServer() *api.Server
}

// newApp is the application factory. It's a variable so we can
// replace it with a mock factory in our tests.
var newApp = func(ctx context.Context) (App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.Init(cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return app.New(ctx, cfg, logger)
}

// newRootCmd creates and configures the root command. The application
// container is built in PersistentPreRunE, after Viper has loaded the
// configuration, and torn down again in PersistentPostRun.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "company-vessels",
		Short: "Scrapes maritime companies and their fleets into Postgres.",
		Long: `company-vessels walks a maritime directory site with a controlled browser
session, replays each company's fleet-data endpoint from inside the page, and
reconciles the companies and vessels it finds into Postgres. The directory
command harvests country listings into a pending queue, run drains that queue,
scrape processes a single company page, and serve exposes the read-only ops
API over the recorded runs.`,

		// Runs AFTER config is loaded but BEFORE the subcommand's RunE.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
				defer cancel()
				appInstance.Close(ctx)
			}
		},
	}

	cobra.OnInitialize(func() { pkgconfig.InitConfig(cfgFile) })

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default searches ., /etc/company-vessels and $HOME/.company-vessels)")

	cmd.AddCommand(newScrapeCmd(), newRunCmd(), newDirectoryCmd(), newServeCmd())

	return cmd
}

// resolveApp retrieves the application container a subcommand runs against.
func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// closeSession shuts the browser down on every command exit path, including
// cancellation, so the headless Chrome process does not outlive the CLI.
func closeSession(sess *browser.Session, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sess.Close(ctx); err != nil {
		logger.Warn("failed to close browser session", zap.Error(err))
	}
}

// Execute is the main entry point.
func Execute() {
	// Bootstrap logger so config loading has somewhere to report before the
	// environment-specific logger replaces it.
	logger, err := logging.Init("production")
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		logger.Fatal("command execution failed", zap.Error(err))
	}
}
