//go:build unit

package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LerianStudio/lib-resilience/resilience/log"
	"github.com/LerianStudio/lib-resilience/resilience/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetricsFactory creates a MetricsFactory backed by a real SDK meter
// provider with a ManualReader.
func newTestMetricsFactory(t *testing.T) (*metrics.MetricsFactory, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("test-circuitbreaker")

	factory, err := metrics.NewMetricsFactory(meter, &log.NoneLogger{})
	require.NoError(t, err)

	return factory, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)

	return rm
}

// findMetricByName walks the collected ResourceMetrics and returns the first
// Metrics entry whose Name matches. Returns nil if not found.
func findMetricByName(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}

	return nil
}

func sumDataPoints(t *testing.T, m *metricdata.Metrics) []metricdata.DataPoint[int64] {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64] data, got %T", m.Data)

	return sum.DataPoints
}

func hasAttributeValue(dp metricdata.DataPoint[int64], key, value string) bool {
	iter := dp.Attributes.Iter()
	for iter.Next() {
		kv := iter.Attribute()
		if string(kv.Key) == key && kv.Value.AsString() == value {
			return true
		}
	}

	return false
}

func TestMetrics_WithNilFactory_NoPanic(t *testing.T) {
	t.Parallel()

	mgr, err := NewManager(&log.NoneLogger{}, WithMetricsFactory(nil))
	require.NoError(t, err)

	_, err = mgr.GetOrCreate("no-metrics-svc", DefaultConfig())
	require.NoError(t, err)

	result, err := mgr.Execute("no-metrics-svc", func() (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)

	_, err = mgr.Execute("no-metrics-svc", func() (any, error) {
		return nil, errors.New("boom")
	})
	assert.Error(t, err)
}

func TestMetrics_ExecutionOutcomesAreLabeled(t *testing.T) {
	t.Parallel()

	factory, reader := newTestMetricsFactory(t)

	mgr, err := NewManager(&log.NoneLogger{}, WithMetricsFactory(factory))
	require.NoError(t, err)

	_, err = mgr.GetOrCreate("orders-api", Config{FailureThreshold: 2, ResetTimeout: time.Minute})
	require.NoError(t, err)

	_, _ = mgr.Execute("orders-api", func() (any, error) { return "ok", nil })
	_, _ = mgr.Execute("orders-api", func() (any, error) { return nil, errors.New("boom") })
	_, _ = mgr.Execute("orders-api", func() (any, error) { return nil, errors.New("boom") })

	// Breaker is now open; this one is rejected.
	_, _ = mgr.Execute("orders-api", func() (any, error) { return "never", nil })

	rm := collectMetrics(t, reader)
	m := findMetricByName(rm, metrics.MetricBreakerExecutions.Name)
	require.NotNil(t, m)

	points := sumDataPoints(t, m)

	outcomes := map[string]int64{}

	for _, dp := range points {
		for _, outcome := range []string{"success", "error", "rejected"} {
			if hasAttributeValue(dp, "outcome", outcome) && hasAttributeValue(dp, "service", "orders-api") {
				outcomes[outcome] += dp.Value
			}
		}
	}

	assert.Equal(t, int64(1), outcomes["success"])
	assert.Equal(t, int64(2), outcomes["error"])
	assert.Equal(t, int64(1), outcomes["rejected"])
}

func TestMetrics_StateChangesAreCounted(t *testing.T) {
	t.Parallel()

	factory, reader := newTestMetricsFactory(t)

	mgr, err := NewManager(&log.NoneLogger{}, WithMetricsFactory(factory))
	require.NoError(t, err)

	_, err = mgr.GetOrCreate("orders-api", Config{FailureThreshold: 1, ResetTimeout: time.Minute})
	require.NoError(t, err)

	_, _ = mgr.Execute("orders-api", func() (any, error) { return nil, errors.New("boom") })

	rm := collectMetrics(t, reader)
	m := findMetricByName(rm, metrics.MetricBreakerStateChanges.Name)
	require.NotNil(t, m)

	points := sumDataPoints(t, m)
	require.NotEmpty(t, points)

	found := false

	for _, dp := range points {
		if hasAttributeValue(dp, "from_state", "closed") && hasAttributeValue(dp, "to_state", "open") {
			found = true

			assert.Equal(t, int64(1), dp.Value)
		}
	}

	assert.True(t, found, "closed->open transition should be recorded")
}
