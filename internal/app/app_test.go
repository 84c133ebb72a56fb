package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sajidahmed66/company-vessels/internal/config"
	publisherMemory "github.com/sajidahmed66/company-vessels/internal/publisher/memory"
	storageMemory "github.com/sajidahmed66/company-vessels/internal/storage/memory"
)

func testApp(cfg config.Config) *App {
	return &App{cfg: cfg, logger: zap.NewNop()}
}

func TestInitBlobStoreProviders(t *testing.T) {
	t.Parallel()

	a := testApp(config.Config{Backup: config.BackupConfig{
		Provider: "local",
		Local:    config.LocalBackupConfig{BaseDir: filepath.Join(t.TempDir(), "backups")},
	}})
	require.NoError(t, a.initBlobStore(context.Background()))
	require.NotNil(t, a.blobs)

	a = testApp(config.Config{Backup: config.BackupConfig{Provider: "memory"}})
	require.NoError(t, a.initBlobStore(context.Background()))
	require.IsType(t, &storageMemory.BlobStore{}, a.blobs)

	a = testApp(config.Config{Backup: config.BackupConfig{Provider: "noop"}})
	require.NoError(t, a.initBlobStore(context.Background()))
	require.Nil(t, a.blobs)
}

func TestInitBlobStoreErrors(t *testing.T) {
	t.Parallel()

	a := testApp(config.Config{Backup: config.BackupConfig{Provider: "local"}})
	err := a.initBlobStore(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "init local blob store")

	a = testApp(config.Config{Backup: config.BackupConfig{Provider: "tape"}})
	err = a.initBlobStore(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown backup provider: tape")
}

func TestInitPublisherProviders(t *testing.T) {
	t.Parallel()

	a := testApp(config.Config{Publisher: config.PublisherConfig{Provider: "memory"}})
	require.NoError(t, a.initPublisher(context.Background()))
	require.IsType(t, &publisherMemory.Publisher{}, a.publisher)

	a = testApp(config.Config{Publisher: config.PublisherConfig{Provider: "noop"}})
	require.NoError(t, a.initPublisher(context.Background()))
	require.Nil(t, a.publisher)

	a = testApp(config.Config{Publisher: config.PublisherConfig{Provider: "carrier-pigeon"}})
	err := a.initPublisher(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown publisher provider")
}

func TestCloseToleratesPartialInit(t *testing.T) {
	t.Parallel()

	a := testApp(config.Config{})
	a.Close(context.Background())
}
