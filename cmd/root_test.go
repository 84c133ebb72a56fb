package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sajidahmed66/company-vessels/internal/api"
	"github.com/sajidahmed66/company-vessels/internal/app"
	"github.com/sajidahmed66/company-vessels/internal/browser"
	"github.com/sajidahmed66/company-vessels/internal/config"
	"github.com/sajidahmed66/company-vessels/internal/directory"
	"github.com/sajidahmed66/company-vessels/internal/scraper"
	"github.com/sajidahmed66/company-vessels/internal/site"
	"github.com/sajidahmed66/company-vessels/internal/store"
)

// The container must keep satisfying the command-facing interface.
var _ App = (*app.App)(nil)

type fakeApp struct {
	closed bool
}

func (f *fakeApp) Close(context.Context)                   { f.closed = true }
func (f *fakeApp) GetLogger() *zap.Logger                  { return zap.NewNop() }
func (f *fakeApp) GetConfig() config.Config                { return config.Config{} }
func (f *fakeApp) GetSite() *site.Site                     { return nil }
func (f *fakeApp) GetDirectoryQueue() store.DirectoryQueue { return nil }

func (f *fakeApp) NewBrowserSession(bool) (*browser.Session, error) {
	return nil, errors.New("no browser in tests")
}
func (f *fakeApp) NewPipeline(*browser.Session) *scraper.Pipeline { return nil }
func (f *fakeApp) NewRunner(*scraper.Pipeline, store.DirectoryQueue) *scraper.Runner {
	return nil
}
func (f *fakeApp) NewHarvester() *directory.Harvester { return nil }
func (f *fakeApp) NewAPIServer() *api.Server          { return nil }

func TestRootCmdRegistersSubcommands(t *testing.T) {
	root := newRootCmd()

	names := make(map[string]bool)
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"scrape", "run", "directory", "serve"} {
		require.True(t, names[want], "missing subcommand %q", want)
	}
	require.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestRootCmdInjectsAppIntoContext(t *testing.T) {
	fake := &fakeApp{}
	orig := newApp
	newApp = func(context.Context) (App, error) { return fake, nil }
	defer func() { newApp = orig }()

	root := newRootCmd()
	root.SetContext(context.Background())

	require.NoError(t, root.PersistentPreRunE(root, nil))

	got, err := resolveApp(root.Context())
	require.NoError(t, err)
	require.Same(t, fake, got)

	root.PersistentPostRun(root, nil)
	require.True(t, fake.closed)
}

func TestRootCmdWrapsFactoryError(t *testing.T) {
	orig := newApp
	newApp = func(context.Context) (App, error) { return nil, errors.New("boom") }
	defer func() { newApp = orig }()

	root := newRootCmd()
	root.SetContext(context.Background())

	err := root.PersistentPreRunE(root, nil)
	require.ErrorContains(t, err, "failed to initialize application services")
}

func TestResolveAppWithoutInjection(t *testing.T) {
	_, err := resolveApp(context.Background())
	require.ErrorContains(t, err, "application services not initialized")
}
