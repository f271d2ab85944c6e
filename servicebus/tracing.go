package servicebus

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation name every span in this package is
// recorded under.
const tracerName = "github.com/singnet/das-servicebus/servicebus"

// InitTracer wires an OTLP/gRPC exporter for serviceName, exporting
// spans to collectorAddr, grounded on the teacher's
// coreengine/observability.InitTracer (same exporter/resource/sampler
// shape, repurposed for the bus's own service name instead of the
// teacher's pipeline/agent spans). Returns a shutdown function that
// must be called on node termination.
func InitTracer(serviceName, collectorAddr string) (func(context.Context) error, error) {
	ctx := context.Background()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(collectorAddr),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("servicebus: create trace exporter: %w", err)
	}

	res, err := sdkresource.New(ctx,
		sdkresource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("servicebus: build trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// startSpan opens a span named op under tracerName, tagged with the
// bus command it belongs to. IssueBusCommand and handleInbound use
// this around the port-reservation/endpoint-construction critical
// section, so each side of a command records its own span; no trace
// context crosses the bus, so the two spans are not linked.
func startSpan(ctx context.Context, op string, cmd Command) (context.Context, oteltrace.Span) {
	return otel.Tracer(tracerName).Start(ctx, op, oteltrace.WithAttributes(
		attribute.String("das_servicebus.command", string(cmd)),
	))
}

// tagCorrelationID attaches a proxy's process-independent
// correlation id (BaseProxy.CorrelationID, minted from uuid.New()) to
// span. Each side tags the id of its own proxy; the id is not sent over
// the bus, so caller-side and processor-side spans carry different ids.
func tagCorrelationID(span oteltrace.Span, correlationID string) {
	span.SetAttributes(attribute.String("das_servicebus.correlation_id", correlationID))
}
