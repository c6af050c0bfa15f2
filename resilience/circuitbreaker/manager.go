package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/LerianStudio/lib-resilience/resilience/log"
	"github.com/LerianStudio/lib-resilience/resilience/metrics"
)

type manager struct {
	breakers       map[string]*breaker
	listeners      []StateChangeListener
	mu             sync.RWMutex
	logger         log.Logger
	metricsFactory *metrics.MetricsFactory
}

// Option configures a Manager at construction time.
type Option func(*manager)

// WithMetricsFactory attaches an OpenTelemetry metrics factory. Execution
// outcomes and state transitions are recorded through it. A nil factory
// disables metrics.
func WithMetricsFactory(factory *metrics.MetricsFactory) Option {
	return func(m *manager) {
		m.metricsFactory = factory
	}
}

// NewManager creates a new circuit breaker manager. A nil logger is
// replaced with a no-op logger.
func NewManager(logger log.Logger, opts ...Option) (Manager, error) {
	if logger == nil {
		logger = &log.NoneLogger{}
	}

	m := &manager{
		breakers:  make(map[string]*breaker),
		listeners: make([]StateChangeListener, 0),
		logger:    logger,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

func (m *manager) GetOrCreate(serviceName string, config Config) (CircuitBreaker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	b, exists := m.breakers[serviceName]
	m.mu.RUnlock()

	if exists {
		return b, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if b, exists = m.breakers[serviceName]; exists {
		return b, nil
	}

	b = newBreaker(serviceName, config, m.handleStateChange)
	m.breakers[serviceName] = b

	m.logger.Infof("Created circuit breaker for service: %s", serviceName)

	return b, nil
}

func (m *manager) Execute(serviceName string, fn func() (any, error)) (any, error) {
	m.mu.RLock()
	b, exists := m.breakers[serviceName]
	m.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("circuit breaker not found for service: %s (call GetOrCreate first)", serviceName)
	}

	result, err := b.Execute(fn)

	switch {
	case errors.Is(err, ErrOpenState):
		m.logger.Warnf("Circuit breaker [%s] is OPEN - request rejected immediately", serviceName)
		m.recordExecution(serviceName, "rejected")

		return nil, fmt.Errorf("service %s is currently unavailable (circuit breaker open): %w", serviceName, err)

	case errors.Is(err, ErrTooManyRequests):
		m.logger.Warnf("Circuit breaker [%s] is HALF-OPEN - trial already in flight", serviceName)
		m.recordExecution(serviceName, "rejected")

		return nil, fmt.Errorf("service %s is recovering (trial in flight): %w", serviceName, err)

	case err != nil:
		m.recordExecution(serviceName, "error")

		return nil, err
	}

	m.recordExecution(serviceName, "success")

	return result, nil
}

func (m *manager) GetState(serviceName string) State {
	m.mu.RLock()
	b, exists := m.breakers[serviceName]
	m.mu.RUnlock()

	if !exists {
		return StateUnknown
	}

	return b.State()
}

func (m *manager) GetStats(serviceName string) Stats {
	m.mu.RLock()
	b, exists := m.breakers[serviceName]
	m.mu.RUnlock()

	if !exists {
		return Stats{Name: serviceName, State: StateUnknown}
	}

	return b.Stats()
}

func (m *manager) States() map[string]State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make(map[string]State, len(m.breakers))

	for name, b := range m.breakers {
		states[name] = b.State()
	}

	return states
}

func (m *manager) IsHealthy(serviceName string) bool {
	state := m.GetState(serviceName)
	// Only CLOSED is considered healthy; OPEN and HALF-OPEN both need
	// health checker intervention.
	isHealthy := state == StateClosed
	m.logger.Debugf("IsHealthy check: service=%s, state=%s, isHealthy=%v", serviceName, state, isHealthy)

	return isHealthy
}

func (m *manager) Reset(serviceName string) {
	m.mu.RLock()
	b, exists := m.breakers[serviceName]
	m.mu.RUnlock()

	if !exists {
		m.logger.Warnf("Reset requested for unknown service: %s", serviceName)
		return
	}

	m.logger.Infof("Resetting circuit breaker for service: %s", serviceName)
	b.Reset()
}

// RegisterStateChangeListener registers a listener for state change notifications.
func (m *manager) RegisterStateChangeListener(listener StateChangeListener) {
	if listener == nil {
		m.logger.Warnf("Attempted to register a nil state change listener")

		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners = append(m.listeners, listener)
	m.logger.Debugf("Registered state change listener (total: %d)", len(m.listeners))
}

// handleStateChange processes state changes and notifies listeners.
func (m *manager) handleStateChange(serviceName string, from, to State) {
	m.logger.Warnf("Circuit Breaker [%s] state changed: %s -> %s", serviceName, from, to)

	switch to {
	case StateOpen:
		m.logger.Errorf("Circuit Breaker [%s] OPENED - service is unhealthy, requests will fast-fail", serviceName)
	case StateHalfOpen:
		m.logger.Infof("Circuit Breaker [%s] HALF-OPEN - testing service recovery", serviceName)
	case StateClosed:
		m.logger.Infof("Circuit Breaker [%s] CLOSED - service is healthy", serviceName)
	}

	m.recordStateChange(serviceName, from, to)

	m.mu.RLock()
	listeners := make([]StateChangeListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.RUnlock()

	for _, listener := range listeners {
		// Notify in a goroutine to avoid blocking breaker operations.
		go func(l StateChangeListener) {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Errorf("Circuit breaker state change listener panic for service %s: %v", serviceName, r)
				}
			}()

			l.OnStateChange(serviceName, from, to)
		}(listener)
	}
}

func (m *manager) recordExecution(serviceName, outcome string) {
	if m.metricsFactory == nil {
		return
	}

	m.metricsFactory.Counter(metrics.MetricBreakerExecutions).
		WithLabels(map[string]string{"service": serviceName, "outcome": outcome}).
		AddOne(context.Background())
}

func (m *manager) recordStateChange(serviceName string, from, to State) {
	if m.metricsFactory == nil {
		return
	}

	m.metricsFactory.Counter(metrics.MetricBreakerStateChanges).
		WithLabels(map[string]string{
			"service":    serviceName,
			"from_state": string(from),
			"to_state":   string(to),
		}).
		AddOne(context.Background())
}
