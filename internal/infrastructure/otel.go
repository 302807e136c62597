package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"baaccli/internal/config"
)

const (
	ServiceVersion = "1.0.0"
	MeterName      = "baaccli"
)

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Metrics        *PipelineMetrics
	Logger         *slog.Logger
}

// InitializeOTel sets up tracing and metrics from the telemetry config.
// Exporters set to "none" leave the corresponding global provider untouched.
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger) (*OTelProviders, error) {
	if logger == nil {
		logger = GetLogger()
	}
	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(ServiceVersion),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	providers := &OTelProviders{Logger: logger}

	if err := initializeTracing(cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := initializeMetrics(cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metrics, err := NewPipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	providers.Metrics = metrics

	logger.InfoContext(ctx, "OpenTelemetry initialization complete",
		slog.String("service", cfg.ServiceName),
		slog.String("tracing_exporter", cfg.TracingExporter),
		slog.String("metrics_exporter", cfg.MetricsExporter))

	return providers, nil
}

// initializeTracing sets up OpenTelemetry tracing
func initializeTracing(cfg config.TelemetryConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.TracingExporter {
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		providers.TracerProvider = tp
		providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(ServiceVersion))
		otel.SetTracerProvider(tp)
	case "none", "":
		providers.Tracer = otel.Tracer(MeterName)
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TracingExporter)
	}
	return nil
}

// initializeMetrics sets up OpenTelemetry metrics
func initializeMetrics(cfg config.TelemetryConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricsExporter {
	case "prometheus":
		registry := promclient.NewRegistry()
		exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(ServiceVersion))
		otel.SetMeterProvider(mp)
	case "none", "":
		providers.Meter = noop.NewMeterProvider().Meter(MeterName)
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricsExporter)
	}
	return nil
}

// PipelineMetrics holds the pipeline instruments
type PipelineMetrics struct {
	YearsTotal         metric.Int64Counter
	RowsLoaded         metric.Int64Counter
	CacheLookups       metric.Int64Counter
	EnrichmentRequests metric.Int64Counter
	DocumentsPushed    metric.Int64Counter
	StepDuration       metric.Float64Histogram
	HTTPRequestsTotal  metric.Int64Counter
	HTTPDuration       metric.Float64Histogram
}

// NewPipelineMetrics registers the pipeline instruments on meter. A nil
// meter yields no-op instruments.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(MeterName)
	}

	var (
		m   PipelineMetrics
		err error
	)
	if m.YearsTotal, err = meter.Int64Counter("baac_years_total",
		metric.WithDescription("Year directories processed, by outcome")); err != nil {
		return nil, err
	}
	if m.RowsLoaded, err = meter.Int64Counter("baac_rows_loaded_total",
		metric.WithDescription("Rows loaded per source table")); err != nil {
		return nil, err
	}
	if m.CacheLookups, err = meter.Int64Counter("baac_cache_lookups_total",
		metric.WithDescription("Dataset cache lookups, by result")); err != nil {
		return nil, err
	}
	if m.EnrichmentRequests, err = meter.Int64Counter("baac_enrichment_requests_total",
		metric.WithDescription("Enrichment lookups, by source and status")); err != nil {
		return nil, err
	}
	if m.DocumentsPushed, err = meter.Int64Counter("baac_documents_pushed_total",
		metric.WithDescription("Documents written to the sink, by outcome")); err != nil {
		return nil, err
	}
	if m.StepDuration, err = meter.Float64Histogram("baac_step_duration_seconds",
		metric.WithDescription("Operation step duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.HTTPRequestsTotal, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests")); err != nil {
		return nil, err
	}
	if m.HTTPDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordYear counts one processed year.
func (m *PipelineMetrics) RecordYear(ctx context.Context, year int, loaded bool) {
	if m == nil {
		return
	}
	status := "loaded"
	if !loaded {
		status = "failed"
	}
	m.YearsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("year", year),
		attribute.String("status", status)))
}

// RecordRows counts rows read for a table.
func (m *PipelineMetrics) RecordRows(ctx context.Context, table string, n int) {
	if m == nil {
		return
	}
	m.RowsLoaded.Add(ctx, int64(n), metric.WithAttributes(attribute.String("table", table)))
}

// RecordCacheLookup counts a cache hit or miss.
func (m *PipelineMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordEnrichment counts one enrichment lookup.
func (m *PipelineMetrics) RecordEnrichment(ctx context.Context, source, status string) {
	if m == nil {
		return
	}
	m.EnrichmentRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("status", status)))
}

// RecordDocuments counts documents accepted or rejected by a sink.
func (m *PipelineMetrics) RecordDocuments(ctx context.Context, sink string, succeeded, failed int) {
	if m == nil {
		return
	}
	m.DocumentsPushed.Add(ctx, int64(succeeded), metric.WithAttributes(
		attribute.String("sink", sink), attribute.String("status", "success")))
	if failed > 0 {
		m.DocumentsPushed.Add(ctx, int64(failed), metric.WithAttributes(
			attribute.String("sink", sink), attribute.String("status", "failure")))
	}
}

// RecordStep records an operation step duration.
func (m *PipelineMetrics) RecordStep(ctx context.Context, step string, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.StepDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("step.id", step),
		attribute.String("status", status)))
}

// RecordHTTP records one served request.
func (m *PipelineMetrics) RecordHTTP(ctx context.Context, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status))
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPDuration.Record(ctx, duration.Seconds(), attrs)
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// StartSpan starts a span on the global tracer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(MeterName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
