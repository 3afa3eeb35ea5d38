package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/config"
)

func TestSetupTracing_NoopWhenDisabled(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), config.TracingConfig{Endpoint: "http://localhost:4318"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, shutdown(ctx))
}

func TestSetupTracing_NoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), config.TracingConfig{Enabled: true})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetupTracing_CreatesProvider(t *testing.T) {
	// non-routable, nothing is exported before shutdown
	shutdown, err := SetupTracing(context.Background(), config.TracingConfig{
		Enabled:     true,
		Endpoint:    "http://192.0.2.1:4318",
		ServiceName: "skirmish-test",
	})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
