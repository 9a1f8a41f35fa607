package tracing

import (
	"context"
	"io"
	"library-system/internal/config"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupDisabledReturnsNoopShutdown(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	shutdown, err := Setup(context.Background(), config.TracingConfig{Enabled: false}, logger)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupEnabledInstallsProvider(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.TracingConfig{Enabled: true, Endpoint: "localhost:4318", ServiceName: "library-test", Insecure: true}

	shutdown, err := Setup(context.Background(), cfg, logger)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
