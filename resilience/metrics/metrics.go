package metrics

import (
	"errors"
	"sync"

	"github.com/LerianStudio/lib-resilience/resilience/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MetricsFactory provides a thread-safe factory for creating and managing
// OpenTelemetry metrics with lazy initialization using sync.Map for
// high-performance concurrent access.
type MetricsFactory struct {
	meter      metric.Meter
	counters   sync.Map // string -> metric.Int64Counter
	gauges     sync.Map // string -> metric.Int64Gauge
	histograms sync.Map // string -> metric.Int64Histogram
	logger     log.Logger
}

// ErrNilMeter indicates that a nil OTEL meter was provided.
var ErrNilMeter = errors.New("metric meter cannot be nil")

// Metric describes an instrument that the factory can create on demand.
type Metric struct {
	Name        string
	Description string
	Unit        string
	// For histograms: bucket boundaries.
	Buckets []float64
}

// Pre-configured metrics for the resilience domain.
var (
	// MetricBreakerStateChanges counts circuit breaker state transitions,
	// labeled with service, from_state, and to_state.
	MetricBreakerStateChanges = Metric{
		Name:        "circuit_breaker_state_changes",
		Unit:        "1",
		Description: "Counts circuit breaker state transitions.",
	}

	// MetricBreakerExecutions counts executions routed through a circuit
	// breaker, labeled with service and outcome (success, error, rejected).
	MetricBreakerExecutions = Metric{
		Name:        "circuit_breaker_executions",
		Unit:        "1",
		Description: "Counts operations executed through circuit breakers.",
	}

	// MetricRecoveryActions counts recovery action executions, labeled with
	// action and outcome.
	MetricRecoveryActions = Metric{
		Name:        "recovery_actions_executed",
		Unit:        "1",
		Description: "Counts error recovery action executions.",
	}

	// MetricHealthChecks counts aggregated system health checks, labeled
	// with the resulting overall status.
	MetricHealthChecks = Metric{
		Name:        "system_health_checks",
		Unit:        "1",
		Description: "Counts aggregated system health check runs.",
	}

	// MetricTrackedRequestDuration measures tracked request latency in
	// milliseconds.
	MetricTrackedRequestDuration = Metric{
		Name:        "tracked_request_duration_milliseconds",
		Unit:        "ms",
		Description: "Measures latency of requests reported to the health monitor.",
	}
)

// DefaultLatencyBuckets for latency measurements (in milliseconds).
var DefaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// NewMetricsFactory creates a new MetricsFactory instance.
func NewMetricsFactory(meter metric.Meter, logger log.Logger) (*MetricsFactory, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}

	if logger == nil {
		logger = &log.NoneLogger{}
	}

	return &MetricsFactory{
		meter:  meter,
		logger: logger,
	}, nil
}

// NewNopFactory returns a MetricsFactory backed by OpenTelemetry's no-op
// meter. It is safe for use as a fallback when a real meter is unavailable.
func NewNopFactory() *MetricsFactory {
	return &MetricsFactory{
		meter:  noop.NewMeterProvider().Meter("nop"),
		logger: &log.NoneLogger{},
	}
}

// Counter creates or retrieves a counter metric and returns a builder for
// fluent API usage. Instrument creation failures are logged once and yield
// a builder whose recording calls are no-ops.
func (f *MetricsFactory) Counter(m Metric) *CounterBuilder {
	counter := f.getOrCreateCounter(m)

	return &CounterBuilder{
		factory: f,
		counter: counter,
		name:    m.Name,
	}
}

// Gauge creates or retrieves a gauge metric and returns a builder for
// fluent API usage.
func (f *MetricsFactory) Gauge(m Metric) *GaugeBuilder {
	gauge := f.getOrCreateGauge(m)

	return &GaugeBuilder{
		factory: f,
		gauge:   gauge,
		name:    m.Name,
	}
}

// Histogram creates or retrieves a histogram metric and returns a builder
// for fluent API usage. When no buckets are configured, latency defaults
// are applied.
func (f *MetricsFactory) Histogram(m Metric) *HistogramBuilder {
	if m.Buckets == nil {
		m.Buckets = DefaultLatencyBuckets
	}

	histogram := f.getOrCreateHistogram(m)

	return &HistogramBuilder{
		factory:   f,
		histogram: histogram,
		name:      m.Name,
	}
}

func (f *MetricsFactory) getOrCreateCounter(m Metric) metric.Int64Counter {
	if cached, ok := f.counters.Load(m.Name); ok {
		return cached.(metric.Int64Counter)
	}

	counter, err := f.meter.Int64Counter(
		m.Name,
		metric.WithDescription(m.Description),
		metric.WithUnit(m.Unit),
	)
	if err != nil {
		f.logger.Errorf("Failed to create counter %s: %v", m.Name, err)
		return nil
	}

	actual, _ := f.counters.LoadOrStore(m.Name, counter)

	return actual.(metric.Int64Counter)
}

func (f *MetricsFactory) getOrCreateGauge(m Metric) metric.Int64Gauge {
	if cached, ok := f.gauges.Load(m.Name); ok {
		return cached.(metric.Int64Gauge)
	}

	gauge, err := f.meter.Int64Gauge(
		m.Name,
		metric.WithDescription(m.Description),
		metric.WithUnit(m.Unit),
	)
	if err != nil {
		f.logger.Errorf("Failed to create gauge %s: %v", m.Name, err)
		return nil
	}

	actual, _ := f.gauges.LoadOrStore(m.Name, gauge)

	return actual.(metric.Int64Gauge)
}

func (f *MetricsFactory) getOrCreateHistogram(m Metric) metric.Int64Histogram {
	if cached, ok := f.histograms.Load(m.Name); ok {
		return cached.(metric.Int64Histogram)
	}

	histogram, err := f.meter.Int64Histogram(
		m.Name,
		metric.WithDescription(m.Description),
		metric.WithUnit(m.Unit),
		metric.WithExplicitBucketBoundaries(m.Buckets...),
	)
	if err != nil {
		f.logger.Errorf("Failed to create histogram %s: %v", m.Name, err)
		return nil
	}

	actual, _ := f.histograms.LoadOrStore(m.Name, histogram)

	return actual.(metric.Int64Histogram)
}
