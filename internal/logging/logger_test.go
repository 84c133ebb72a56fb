package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewDevelopmentLoggerEnablesDebug(t *testing.T) {
	logger, err := New(true)
	require.NoError(t, err)
	defer logger.Sync() //nolint:errcheck // best-effort flush

	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestNewProductionLoggerGatesDebug(t *testing.T) {
	logger, err := New(false)
	require.NoError(t, err)
	defer logger.Sync() //nolint:errcheck // best-effort flush

	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
}

func TestInitInstallsGlobal(t *testing.T) {
	logger, err := Init("development")
	require.NoError(t, err)
	defer logger.Sync() //nolint:errcheck // best-effort flush

	assert.Same(t, logger, zap.L())
}
