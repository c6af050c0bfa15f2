package circuitbreaker

import (
	"context"
	"time"
)

// Manager manages circuit breakers for external services.
type Manager interface {
	// GetOrCreate returns the existing circuit breaker for serviceName or
	// creates a new one with the given config. Creation is idempotent under
	// concurrent first access.
	GetOrCreate(serviceName string, config Config) (CircuitBreaker, error)

	// Execute runs a function through the named circuit breaker.
	Execute(serviceName string, fn func() (any, error)) (any, error)

	// GetState returns the current state, or StateUnknown for an unknown service.
	GetState(serviceName string) State

	// GetStats returns a point-in-time stats snapshot for the breaker.
	GetStats(serviceName string) Stats

	// States returns the current state of every registered breaker.
	States() map[string]State

	// IsHealthy returns true if the circuit breaker is closed.
	IsHealthy(serviceName string) bool

	// Reset forces the breaker back to closed with all counters zeroed.
	Reset(serviceName string)

	// RegisterStateChangeListener registers a listener for breaker state changes.
	RegisterStateChangeListener(listener StateChangeListener)
}

// CircuitBreaker is a single-dependency failure-isolation state machine.
type CircuitBreaker interface {
	Execute(fn func() (any, error)) (any, error)
	State() State
	Stats() Stats
	Reset()
}

// Config holds circuit breaker configuration.
type Config struct {
	// FailureThreshold is the number of consecutive failures in the closed
	// state that trips the breaker open.
	FailureThreshold int

	// ResetTimeout is how long the breaker stays open before a single trial
	// call is allowed through.
	ResetTimeout time.Duration

	// MonitoringPeriod bounds how long a failure streak is remembered in
	// the closed state. A streak older than the period is forgotten on the
	// next call. Zero disables the window.
	MonitoringPeriod time.Duration
}

// Validate reports whether the config is usable.
func (c Config) Validate() error {
	if c.FailureThreshold < 1 {
		return ErrInvalidFailureThreshold
	}

	if c.ResetTimeout <= 0 {
		return ErrInvalidResetTimeout
	}

	return nil
}

// State represents circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
	StateUnknown  State = "unknown"
)

// Stats is a point-in-time snapshot of a breaker's state and counters.
type Stats struct {
	Name             string    `json:"name"`
	State            State     `json:"state"`
	FailureCount     int       `json:"failure_count"`
	SuccessCount     int64     `json:"success_count"`
	TotalRequests    int64     `json:"total_requests"`
	TotalFailures    int64     `json:"total_failures"`
	RejectedRequests int64     `json:"rejected_requests"`
	LastFailureAt    time.Time `json:"last_failure_at"`
	LastSuccessAt    time.Time `json:"last_success_at"`
	NextRetryAt      time.Time `json:"next_retry_at"`
	ErrorRate        float64   `json:"error_rate"`
}

// HealthCheckFunc defines a function that checks service health.
type HealthCheckFunc func(ctx context.Context) error

// StateChangeListener is notified when circuit breaker state changes.
type StateChangeListener interface {
	// OnStateChange is called when a circuit breaker changes state.
	OnStateChange(serviceName string, from State, to State)
}

// HealthChecker performs periodic health checks on services and manages
// circuit breaker recovery.
type HealthChecker interface {
	// Register adds a service to health check.
	Register(serviceName string, healthCheckFn HealthCheckFunc)

	// Start begins the health check loop in a separate goroutine.
	Start()

	// Stop gracefully stops the health checker.
	Stop()

	// GetHealthStatus returns the current health status of all services.
	GetHealthStatus() map[string]string

	// StateChangeListener interface to receive circuit breaker state change notifications.
	StateChangeListener
}
