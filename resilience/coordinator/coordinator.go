package coordinator

import (
	"context"
	"errors"
	"sync"

	"github.com/LerianStudio/lib-resilience/resilience/circuitbreaker"
	"github.com/LerianStudio/lib-resilience/resilience/log"
	"github.com/LerianStudio/lib-resilience/resilience/recovery"
	"github.com/LerianStudio/lib-resilience/resilience/retry"
)

// ErrNilOperation is returned when ExecuteWithCircuitBreaker is called
// without an operation.
var ErrNilOperation = errors.New("operation must not be nil")

// Operation is a unit of work executed against a dependency.
type Operation func() (any, error)

// DependencyHealth is the breaker-backed health view of one registered
// dependency.
type DependencyHealth struct {
	Descriptor DependencyDescriptor `json:"descriptor"`
	State      circuitbreaker.State `json:"state"`
	Stats      circuitbreaker.Stats `json:"stats"`
	Healthy    bool                 `json:"healthy"`
}

// Coordinator is the single entry point for resilient calls to external
// dependencies. It owns a circuit breaker per dependency and routes failures
// through recovery strategies and fallbacks.
type Coordinator struct {
	mu           sync.RWMutex
	dependencies map[string]DependencyDescriptor

	breakers circuitbreaker.Manager
	recovery recovery.Manager
	logger   log.Logger
}

// Option configures a Coordinator at construction time.
type Option func(*Coordinator)

// WithBreakerManager replaces the default circuit breaker manager.
func WithBreakerManager(m circuitbreaker.Manager) Option {
	return func(c *Coordinator) {
		if m != nil {
			c.breakers = m
		}
	}
}

// WithRecoveryManager attaches an error recovery manager. Without one,
// failed calls skip straight to the fallback.
func WithRecoveryManager(m recovery.Manager) Option {
	return func(c *Coordinator) {
		c.recovery = m
	}
}

// New creates a Coordinator. A nil logger is replaced with a no-op logger;
// a breaker manager is created when none is supplied.
func New(logger log.Logger, opts ...Option) (*Coordinator, error) {
	if logger == nil {
		logger = &log.NoneLogger{}
	}

	c := &Coordinator{
		dependencies: make(map[string]DependencyDescriptor),
		logger:       logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.breakers == nil {
		manager, err := circuitbreaker.NewManager(logger)
		if err != nil {
			return nil, err
		}

		c.breakers = manager
	}

	return c, nil
}

// RegisterDependency declares a dependency and provisions its circuit
// breaker with a preset matched to the dependency kind.
func (c *Coordinator) RegisterDependency(descriptor DependencyDescriptor) error {
	if err := descriptor.Validate(); err != nil {
		return err
	}

	descriptor = descriptor.normalize()

	c.mu.Lock()

	if _, exists := c.dependencies[descriptor.Name]; exists {
		c.mu.Unlock()
		return ErrDependencyAlreadyRegistered
	}

	c.dependencies[descriptor.Name] = descriptor
	c.mu.Unlock()

	if _, err := c.breakers.GetOrCreate(breakerKey(descriptor), configForKind(descriptor.Kind)); err != nil {
		return err
	}

	c.logger.Infof("Registered dependency %s (kind=%s, criticality=%s)",
		descriptor.Name, descriptor.Kind, descriptor.Criticality)

	return nil
}

// Dependencies returns a snapshot of the registered dependency descriptors.
func (c *Coordinator) Dependencies() []DependencyDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]DependencyDescriptor, 0, len(c.dependencies))
	for _, d := range c.dependencies {
		out = append(out, d)
	}

	return out
}

// BreakerManager exposes the underlying circuit breaker manager so health
// monitors and checkers can observe breaker state.
func (c *Coordinator) BreakerManager() circuitbreaker.Manager {
	return c.breakers
}

// CallOption tunes a single ExecuteWithCircuitBreaker call.
type CallOption func(*callSettings)

type callSettings struct {
	ctx         context.Context
	retryPolicy *retry.Policy
}

// WithContext attaches a context to the call. The context bounds retry
// back-off sleeps; without one, context.Background is used.
func WithContext(ctx context.Context) CallOption {
	return func(s *callSettings) {
		if ctx != nil {
			s.ctx = ctx
		}
	}
}

// WithRetryPolicy wraps the breaker-guarded call in retries with exponential
// back-off. Each attempt passes through the circuit breaker, so fast-fail
// rejections still count as attempts.
func WithRetryPolicy(policy retry.Policy) CallOption {
	return func(s *callSettings) {
		s.retryPolicy = &policy
	}
}

// ExecuteWithCircuitBreaker runs op against the named dependency through its
// circuit breaker. On failure the error is reported to the recovery manager;
// a recovery strategy may resolve the call, then the fallback is tried, and
// only then is the error propagated. Unregistered dependencies are allowed
// and get internal-service defaults.
func (c *Coordinator) ExecuteWithCircuitBreaker(dependencyName string, op Operation, fallback Operation, opts ...CallOption) (any, error) {
	if op == nil {
		return nil, ErrNilOperation
	}

	descriptor := c.descriptorFor(dependencyName)
	key := breakerKey(descriptor)

	if _, err := c.breakers.GetOrCreate(key, configForKind(descriptor.Kind)); err != nil {
		return nil, err
	}

	settings := callSettings{ctx: context.Background()}
	for _, opt := range opts {
		opt(&settings)
	}

	guarded := func() (any, error) {
		return c.breakers.Execute(key, func() (any, error) { return op() })
	}

	var (
		result any
		err    error
	)

	if settings.retryPolicy != nil {
		result, err = retry.Do(settings.ctx, *settings.retryPolicy, func(context.Context) (any, error) {
			return guarded()
		})
	} else {
		result, err = guarded()
	}

	if err == nil {
		return result, nil
	}

	return c.handleFailure(descriptor, err, fallback)
}

// handleFailure routes a failed call through recovery, then the fallback,
// then propagates the original error.
func (c *Coordinator) handleFailure(descriptor DependencyDescriptor, callErr error, fallback Operation) (any, error) {
	rctx := recovery.Context{Operation: "execute", Service: descriptor.Name}

	if c.recovery != nil {
		if recovered, recoveryErr := c.recovery.ExecuteRecovery(callErr, rctx); recoveryErr == nil {
			c.logger.Infof("Recovery resolved failed call to dependency %s", descriptor.Name)
			return recovered, nil
		}
	}

	if fallback != nil {
		c.logger.Warnf("Falling back for dependency %s after failure: %v", descriptor.Name, callErr)
		return fallback()
	}

	c.logger.Warnf("Call to dependency %s failed with no fallback: %v", descriptor.Name, callErr)

	return nil, callErr
}

// GetOverallHealthStatus returns the breaker-backed health of every
// registered dependency, keyed by dependency name.
func (c *Coordinator) GetOverallHealthStatus() map[string]DependencyHealth {
	c.mu.RLock()
	dependencies := make(map[string]DependencyDescriptor, len(c.dependencies))

	for name, d := range c.dependencies {
		dependencies[name] = d
	}
	c.mu.RUnlock()

	out := make(map[string]DependencyHealth, len(dependencies))

	for name, descriptor := range dependencies {
		stats := c.breakers.GetStats(breakerKey(descriptor))

		out[name] = DependencyHealth{
			Descriptor: descriptor,
			State:      stats.State,
			Stats:      stats,
			// A breaker that never saw traffic reports unknown; that is
			// healthy for aggregation purposes.
			Healthy: stats.State == circuitbreaker.StateClosed || stats.State == circuitbreaker.StateUnknown,
		}
	}

	return out
}

// descriptorFor returns the registered descriptor, or a normalized default
// for an unregistered dependency.
func (c *Coordinator) descriptorFor(name string) DependencyDescriptor {
	c.mu.RLock()
	descriptor, exists := c.dependencies[name]
	c.mu.RUnlock()

	if exists {
		return descriptor
	}

	return DependencyDescriptor{Name: name}.normalize()
}

// breakerKey derives the circuit breaker name for a dependency.
func breakerKey(d DependencyDescriptor) string {
	return d.Name + "-" + string(d.Kind)
}

// configForKind picks the breaker preset for a dependency kind.
func configForKind(kind Kind) circuitbreaker.Config {
	switch kind {
	case KindDatabase:
		return circuitbreaker.DatabaseConfig()
	case KindExternalAPI:
		return circuitbreaker.HTTPServiceConfig()
	default:
		return circuitbreaker.DefaultConfig()
	}
}
