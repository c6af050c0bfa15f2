package health

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/LerianStudio/lib-resilience/resilience/circuitbreaker"
	"github.com/LerianStudio/lib-resilience/resilience/errgroup"
	"github.com/LerianStudio/lib-resilience/resilience/log"
	"github.com/LerianStudio/lib-resilience/resilience/metrics"
	"github.com/LerianStudio/lib-resilience/resilience/safe"
)

// Status is the health classification of a component or the whole system.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// BreakerComponentName is the synthetic component reflecting circuit
// breaker states in the health snapshot.
const BreakerComponentName = "circuit-breakers"

// DefaultProbeTimeout bounds each component probe.
const DefaultProbeTimeout = 5 * time.Second

var (
	// ErrEmptyComponentName is returned when a component is registered
	// without a name.
	ErrEmptyComponentName = errors.New("component name must not be empty")

	// ErrNilProbe is returned when a component is registered without a
	// probe function.
	ErrNilProbe = errors.New("component probe must not be nil")

	// ErrComponentAlreadyRegistered is returned on duplicate registration.
	ErrComponentAlreadyRegistered = errors.New("component is already registered")
)

// ProbeFunc checks one component. A nil return means healthy; the probe
// must honor ctx cancellation.
type ProbeFunc func(ctx context.Context) error

// ComponentHealth is the probe result for one component.
type ComponentHealth struct {
	Name         string        `json:"name"`
	Status       Status        `json:"status"`
	Critical     bool          `json:"critical"`
	Detail       string        `json:"detail,omitempty"`
	ResponseTime time.Duration `json:"response_time"`
	Timestamp    time.Time     `json:"timestamp"`
}

// Snapshot is the aggregated system health document.
type Snapshot struct {
	Overall     Status            `json:"overall"`
	Components  []ComponentHealth `json:"components"`
	Uptime      time.Duration     `json:"uptime"`
	Version     string            `json:"version,omitempty"`
	Environment string            `json:"environment,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// PerformanceCounters summarizes request tracking since start (or the last
// explicit reset). Averages use the full history, not a decaying window.
type PerformanceCounters struct {
	TotalRequests         int64   `json:"total_requests"`
	TotalErrors           int64   `json:"total_errors"`
	AverageResponseTimeMs float64 `json:"average_response_time_ms"`
	ErrorRate             float64 `json:"error_rate"`
}

type component struct {
	name     string
	critical bool
	probe    ProbeFunc
}

// Monitor performs system health checks and tracks request performance.
type Monitor struct {
	mu         sync.RWMutex
	components []component

	countersMu          sync.Mutex
	totalRequests       int64
	totalErrors         int64
	totalResponseTimeMs int64

	breakers       circuitbreaker.Manager
	probeTimeout   time.Duration
	version        string
	environment    string
	startedAt      time.Time
	logger         log.Logger
	metricsFactory *metrics.MetricsFactory
	now            func() time.Time
}

// Option configures a Monitor at construction time.
type Option func(*Monitor)

// WithBreakerManager attaches a circuit breaker manager so the snapshot
// includes the synthetic circuit-breakers component.
func WithBreakerManager(m circuitbreaker.Manager) Option {
	return func(mon *Monitor) {
		mon.breakers = m
	}
}

// WithProbeTimeout overrides the per-probe time bound.
func WithProbeTimeout(timeout time.Duration) Option {
	return func(mon *Monitor) {
		if timeout > 0 {
			mon.probeTimeout = timeout
		}
	}
}

// WithBuildInfo stamps snapshots with the service version and environment.
func WithBuildInfo(version, environment string) Option {
	return func(mon *Monitor) {
		mon.version = version
		mon.environment = environment
	}
}

// WithMetricsFactory attaches an OpenTelemetry metrics factory for health
// check counters and request latency histograms.
func WithMetricsFactory(factory *metrics.MetricsFactory) Option {
	return func(mon *Monitor) {
		mon.metricsFactory = factory
	}
}

// NewMonitor creates a health monitor. A nil logger is replaced with a
// no-op logger.
func NewMonitor(logger log.Logger, opts ...Option) *Monitor {
	if logger == nil {
		logger = &log.NoneLogger{}
	}

	mon := &Monitor{
		components:   make([]component, 0),
		probeTimeout: DefaultProbeTimeout,
		startedAt:    time.Now(),
		logger:       logger,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(mon)
	}

	return mon
}

// RegisterComponent adds a probed component. Critical components drive the
// overall status to unhealthy when they fail.
func (mon *Monitor) RegisterComponent(name string, critical bool, probe ProbeFunc) error {
	if name == "" {
		return ErrEmptyComponentName
	}

	if probe == nil {
		return ErrNilProbe
	}

	mon.mu.Lock()
	defer mon.mu.Unlock()

	for _, c := range mon.components {
		if c.name == name {
			return ErrComponentAlreadyRegistered
		}
	}

	mon.components = append(mon.components, component{name: name, critical: critical, probe: probe})

	mon.logger.Infof("Registered health component %s (critical=%v)", name, critical)

	return nil
}

// PerformSystemHealthCheck probes every registered component concurrently,
// each bounded by the probe timeout, and aggregates the results. It never
// returns an error: failing probes surface as component status entries.
func (mon *Monitor) PerformSystemHealthCheck(ctx context.Context) Snapshot {
	mon.mu.RLock()
	components := make([]component, len(mon.components))
	copy(components, mon.components)
	mon.mu.RUnlock()

	results := make([]ComponentHealth, len(components))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLogger(mon.logger)

	for i, c := range components {
		group.Go(func() error {
			results[i] = mon.probeComponent(groupCtx, c)
			return nil
		})
	}

	// Goroutines report through the results slice; panics are recovered by
	// the group, so Wait only signals a probe goroutine that died mid-write.
	if err := group.Wait(); err != nil {
		mon.logger.Errorf("Health probe goroutine failed: %v", err)
	}

	now := mon.now()

	for i := range results {
		if results[i].Name == "" {
			results[i] = ComponentHealth{
				Name:      components[i].name,
				Status:    StatusUnhealthy,
				Critical:  components[i].critical,
				Detail:    "probe did not complete",
				Timestamp: now,
			}
		}
	}

	if mon.breakers != nil {
		results = append(results, mon.breakerComponent(now))
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	snapshot := Snapshot{
		Overall:     aggregate(results),
		Components:  results,
		Uptime:      now.Sub(mon.startedAt),
		Version:     mon.version,
		Environment: mon.environment,
		Timestamp:   now,
	}

	mon.recordHealthCheck(ctx, snapshot.Overall)

	return snapshot
}

// probeComponent runs one probe with a bounded context and classifies the
// outcome. A panicking probe is reported as unhealthy.
func (mon *Monitor) probeComponent(ctx context.Context, c component) (result ComponentHealth) {
	started := mon.now()

	result = ComponentHealth{
		Name:      c.name,
		Status:    StatusHealthy,
		Critical:  c.critical,
		Timestamp: started,
	}

	defer func() {
		if r := recover(); r != nil {
			mon.logger.Errorf("Health probe for %s panicked: %v", c.name, r)

			result.Status = StatusUnhealthy
			result.Detail = fmt.Sprintf("probe panicked: %v", r)
			result.ResponseTime = mon.now().Sub(started)
		}
	}()

	probeCtx, cancel := context.WithTimeout(ctx, mon.probeTimeout)
	defer cancel()

	err := c.probe(probeCtx)
	result.ResponseTime = mon.now().Sub(started)

	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		// A slow dependency is degraded, not down.
		result.Status = StatusDegraded
		result.Detail = "probe timed out"
	default:
		result.Status = StatusUnhealthy
		result.Detail = err.Error()
	}

	return result
}

// breakerComponent summarizes every breaker into one synthetic component.
// Any open breaker makes it unhealthy; any half-open breaker degrades it.
func (mon *Monitor) breakerComponent(now time.Time) ComponentHealth {
	states := mon.breakers.States()

	status := StatusHealthy
	detail := ""

	open := make([]string, 0)
	halfOpen := make([]string, 0)

	for name, state := range states {
		switch state {
		case circuitbreaker.StateOpen:
			open = append(open, name)
		case circuitbreaker.StateHalfOpen:
			halfOpen = append(halfOpen, name)
		}
	}

	sort.Strings(open)
	sort.Strings(halfOpen)

	switch {
	case len(open) > 0:
		status = StatusUnhealthy
		detail = fmt.Sprintf("open breakers: %v", open)
	case len(halfOpen) > 0:
		status = StatusDegraded
		detail = fmt.Sprintf("recovering breakers: %v", halfOpen)
	}

	return ComponentHealth{
		Name:      BreakerComponentName,
		Status:    status,
		Critical:  true,
		Detail:    detail,
		Timestamp: now,
	}
}

// aggregate folds component statuses into the overall status. Any critical
// unhealthy component is unhealthy; any other failure degrades.
func aggregate(components []ComponentHealth) Status {
	overall := StatusHealthy

	for _, c := range components {
		switch {
		case c.Status == StatusUnhealthy && c.Critical:
			return StatusUnhealthy
		case c.Status == StatusUnhealthy,
			c.Status == StatusDegraded && c.Critical:
			overall = StatusDegraded
		}
	}

	return overall
}

// TrackRequest records one served request into the full-history counters.
func (mon *Monitor) TrackRequest(responseTime time.Duration, isError bool) {
	mon.countersMu.Lock()

	mon.totalRequests++
	mon.totalResponseTimeMs += responseTime.Milliseconds()

	if isError {
		mon.totalErrors++
	}

	mon.countersMu.Unlock()

	mon.recordRequest(responseTime, isError)
}

// GetPerformanceMetrics returns counters over the full tracked history.
func (mon *Monitor) GetPerformanceMetrics() PerformanceCounters {
	mon.countersMu.Lock()
	defer mon.countersMu.Unlock()

	return PerformanceCounters{
		TotalRequests:         mon.totalRequests,
		TotalErrors:           mon.totalErrors,
		AverageResponseTimeMs: safe.Ratio(mon.totalResponseTimeMs, mon.totalRequests),
		ErrorRate:             safe.Ratio(mon.totalErrors, mon.totalRequests),
	}
}

// ResetPerformanceMetrics zeroes the request counters. Only an explicit
// reset discards history.
func (mon *Monitor) ResetPerformanceMetrics() {
	mon.countersMu.Lock()
	mon.totalRequests = 0
	mon.totalErrors = 0
	mon.totalResponseTimeMs = 0
	mon.countersMu.Unlock()

	mon.logger.Infof("Performance counters reset")
}

func (mon *Monitor) recordHealthCheck(ctx context.Context, overall Status) {
	if mon.metricsFactory == nil {
		return
	}

	mon.metricsFactory.Counter(metrics.MetricHealthChecks).
		WithLabels(map[string]string{"overall": string(overall)}).
		AddOne(ctx)
}

func (mon *Monitor) recordRequest(responseTime time.Duration, isError bool) {
	if mon.metricsFactory == nil {
		return
	}

	outcome := "success"
	if isError {
		outcome = "error"
	}

	mon.metricsFactory.Histogram(metrics.MetricTrackedRequestDuration).
		WithLabels(map[string]string{"outcome": outcome}).
		RecordDuration(context.Background(), responseTime)
}
