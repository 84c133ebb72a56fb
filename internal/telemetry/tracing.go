// Package telemetry wires the OpenTelemetry trace provider and the W3C
// propagator the event publisher injects into outgoing messages.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "company-vessels/scraper"

// Init installs the global tracer provider and text-map propagator. No span
// exporter is configured yet; traces stay in-process until an OTLP collector
// is pointed at. The caller owns provider shutdown.
func Init(ctx context.Context, serviceName, version string) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, nil
}

// StartCompanySpan opens the span covering one company's end-to-end scrape.
func StartCompanySpan(ctx context.Context, url string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "scraper.ProcessCompany",
		trace.WithAttributes(attribute.String("company.url", url)))
}
