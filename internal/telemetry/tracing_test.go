package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitInstallsGlobals(t *testing.T) {
	tp, err := Init(context.Background(), "company-vessels", "test")
	require.NoError(t, err)
	require.NotNil(t, tp)
	t.Cleanup(func() {
		require.NoError(t, tp.Shutdown(context.Background()))
	})

	require.Equal(t, otel.GetTracerProvider(), tp)
	// The propagator must carry trace context for the publisher's injection.
	require.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}

func TestStartCompanySpan(t *testing.T) {
	tp, err := Init(context.Background(), "company-vessels", "test")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, tp.Shutdown(context.Background()))
	})

	ctx, span := StartCompanySpan(context.Background(),
		"https://www.magicport.ai/owners-managers/panama/acme-shipping")
	defer span.End()

	require.True(t, span.IsRecording())
	require.True(t, span.SpanContext().IsValid())
	require.NotEqual(t, context.Background(), ctx)
}
