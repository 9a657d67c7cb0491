package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	byName := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			byName[m.Name] = m
		}
	}
	return byName
}

func TestMetrics_RecordPatientOperation(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(provider.Meter(meterName))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordPatientOperation(ctx, "register")
	m.RecordPatientOperation(ctx, "register")
	m.RecordPatientOperation(ctx, "deactivate")

	got := collect(t, reader)
	sum, ok := got["patient_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(3), total)
	assert.Len(t, sum.DataPoints, 2)
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(provider.Meter(meterName))
	require.NoError(t, err)

	m.RecordHTTPRequest(context.Background(), "GET", "/pacientes", 200, 12.5)
	m.RecordAuthFailure(context.Background(), "invalid_token")
	m.RecordPermissionCheck(context.Background(), "patient:view", 0.2, true)

	got := collect(t, reader)
	assert.Contains(t, got, "http_server_requests_total")
	assert.Contains(t, got, "http_server_duration_milliseconds")
	assert.Contains(t, got, "auth_failures_total")
	assert.Contains(t, got, "permission_check_duration_ms")
}

func TestInitMetrics_GlobalProvider(t *testing.T) {
	m, err := InitMetrics()
	require.NoError(t, err)
	assert.NotPanics(t, func() { m.RecordPatientOperation(context.Background(), "update") })
}

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor("always_off").Description(), "AlwaysOff")
	assert.Contains(t, samplerFor("always_on").Description(), "AlwaysOn")
	assert.Contains(t, samplerFor("").Description(), "AlwaysOn")
	assert.Contains(t, samplerFor("traceidratio").Description(), "TraceIDRatioBased")
	assert.Contains(t, samplerFor("parentbased_traceidratio").Description(), "ParentBased")
}
