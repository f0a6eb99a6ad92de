package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// SetupTracing initializes OpenTelemetry tracing with stdout exporter (for demo; replace with OTLP in prod)
func SetupTracing(serviceName string) func() {
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		log.Fatalf("failed to initialize stdouttrace exporter: %v", err)
	}
	res, _ := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	provider := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return func() { _ = provider.Shutdown(context.Background()) }
}

// SetupPrometheusMetrics initializes the Prometheus metrics exporter.
// The /metrics endpoint itself is mounted by the HTTP router.
func SetupPrometheusMetrics() *metric.MeterProvider {
	exp, err := prometheus.New()
	if err != nil {
		log.Fatalf("failed to initialize prometheus exporter: %v", err)
	}
	mp := metric.NewMeterProvider(metric.WithReader(exp))
	otel.SetMeterProvider(mp)
	return mp
}

// PipelineMetrics holds the instruments for the chat generation pipeline
type PipelineMetrics struct {
	TurnsStarted        otelmetric.Int64Counter
	TurnsFailed         otelmetric.Int64Counter
	FragmentsDelivered  otelmetric.Int64Counter
	DeliveriesCancelled otelmetric.Int64Counter
	GatewayLatency      otelmetric.Float64Histogram
}

// NewPipelineMetrics registers the pipeline instruments on the global meter
func NewPipelineMetrics() *PipelineMetrics {
	meter := otel.Meter("phone-sim-demo/backend/chat")

	turnsStarted, _ := meter.Int64Counter("chat_turns_started_total",
		otelmetric.WithDescription("Generation turns started"))
	turnsFailed, _ := meter.Int64Counter("chat_turns_failed_total",
		otelmetric.WithDescription("Generation turns aborted by a pipeline error"))
	fragments, _ := meter.Int64Counter("chat_fragments_delivered_total",
		otelmetric.WithDescription("Message fragments appended to conversation logs"))
	cancelled, _ := meter.Int64Counter("chat_deliveries_cancelled_total",
		otelmetric.WithDescription("Deliveries cancelled before all fragments were sent"))
	latency, _ := meter.Float64Histogram("chat_gateway_latency_seconds",
		otelmetric.WithDescription("Model gateway round-trip latency"))

	return &PipelineMetrics{
		TurnsStarted:        turnsStarted,
		TurnsFailed:         turnsFailed,
		FragmentsDelivered:  fragments,
		DeliveriesCancelled: cancelled,
		GatewayLatency:      latency,
	}
}

// RecordTurnFailed counts a failed turn with its error code
func (m *PipelineMetrics) RecordTurnFailed(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.TurnsFailed.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("code", code)))
}

// RecordGatewayLatency records one gateway round trip
func (m *PipelineMetrics) RecordGatewayLatency(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.GatewayLatency.Record(ctx, d.Seconds())
}
