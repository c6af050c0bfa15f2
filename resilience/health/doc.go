// Package health aggregates component probes, circuit breaker states, and
// per-request performance counters into a single system health snapshot.
// A health check never fails with an error: a probe that errors, times out,
// or panics becomes a degraded or unhealthy component entry instead.
package health
