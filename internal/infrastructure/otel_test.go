package infrastructure

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baaccli/internal/config"
)

func TestInitializeOTel_Prometheus(t *testing.T) {
	providers, err := InitializeOTel(config.TelemetryConfig{
		ServiceName:     "baac-test",
		TracingExporter: "none",
		MetricsExporter: "prometheus",
	}, NewLogger(io.Discard, "error"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = providers.Shutdown(context.Background()) })

	require.NotNil(t, providers.PrometheusHTTP)
	require.NotNil(t, providers.Metrics)

	ctx := context.Background()
	providers.Metrics.RecordYear(ctx, 2021, true)
	providers.Metrics.RecordCacheLookup(ctx, false)
	providers.Metrics.RecordRows(ctx, "caract", 10)
	providers.Metrics.RecordStep(ctx, "load", time.Second, true)

	w := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "baac_years_total")
	assert.Contains(t, w.Body.String(), "baac_cache_lookups_total")
}

func TestInitializeOTel_Disabled(t *testing.T) {
	providers, err := InitializeOTel(config.TelemetryConfig{
		ServiceName:     "baac-test",
		TracingExporter: "none",
		MetricsExporter: "none",
	}, NewLogger(io.Discard, "error"))
	require.NoError(t, err)

	assert.Nil(t, providers.PrometheusHTTP)
	assert.NotNil(t, providers.Tracer)
	providers.Metrics.RecordEnrichment(context.Background(), "overpass", "success")
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInitializeOTel_UnknownExporter(t *testing.T) {
	_, err := InitializeOTel(config.TelemetryConfig{TracingExporter: "jaeger", MetricsExporter: "none"}, nil)
	assert.Error(t, err)
}

func TestPipelineMetrics_NilSafe(t *testing.T) {
	var m *PipelineMetrics
	ctx := context.Background()
	m.RecordYear(ctx, 2020, false)
	m.RecordDocuments(ctx, "sqlite", 1, 1)
	m.RecordHTTP(ctx, "/api/health", 200, time.Millisecond)
}
