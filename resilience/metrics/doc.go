// Package metrics provides a thread-safe fluent factory for OpenTelemetry
// metric instruments used by the resilience components.
//
// MetricsFactory caches instruments and exposes builder-style APIs for
// counters, gauges, and histograms with low-overhead attribute composition.
// Pre-configured Metric values cover the resilience domain: breaker state
// changes and executions, recovery action runs, health checks, and tracked
// request latency.
package metrics
