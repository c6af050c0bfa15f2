package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/LerianStudio/lib-resilience/resilience/safe"
)

var (
	// ErrOpenState is returned when a call is rejected because the breaker is open.
	ErrOpenState = errors.New("circuit breaker is open")

	// ErrTooManyRequests is returned when a call is rejected because the
	// half-open trial slot is already taken.
	ErrTooManyRequests = errors.New("circuit breaker half-open trial already in flight")

	// ErrInvalidFailureThreshold indicates that the failure threshold must be positive.
	ErrInvalidFailureThreshold = errors.New("circuitbreaker: failure threshold must be positive")

	// ErrInvalidResetTimeout indicates that the reset timeout must be positive.
	ErrInvalidResetTimeout = errors.New("circuitbreaker: reset timeout must be positive")
)

// stateChangeFunc receives breaker state transitions. Invoked outside the
// breaker's lock.
type stateChangeFunc func(serviceName string, from, to State)

type stateTransition struct {
	from State
	to   State
}

// breaker is the concrete circuit breaker. All state and counters are
// guarded by mu; every transition happens inside Execute or Reset, so
// transitions are linearizable with respect to concurrent callers.
type breaker struct {
	name          string
	config        Config
	onStateChange stateChangeFunc
	now           func() time.Time

	mu               sync.Mutex
	state            State
	failureCount     int
	successCount     int64
	totalRequests    int64
	totalFailures    int64
	rejectedRequests int64
	streakStartedAt  time.Time
	lastFailureAt    time.Time
	lastSuccessAt    time.Time
	nextRetryAt      time.Time
	trialInFlight    bool
}

func newBreaker(name string, config Config, onStateChange stateChangeFunc) *breaker {
	return &breaker{
		name:          name,
		config:        config,
		onStateChange: onStateChange,
		now:           time.Now,
		state:         StateClosed,
	}
}

// Execute runs fn through the breaker. While open it fails fast with
// ErrOpenState without invoking fn; once the reset timeout elapses a single
// call is admitted as the half-open trial. The operation's own error is
// returned unchanged.
func (b *breaker) Execute(fn func() (any, error)) (any, error) {
	trial, err := b.beforeCall()
	if err != nil {
		return nil, err
	}

	result, opErr := fn()

	b.afterCall(trial, opErr)

	if opErr != nil {
		return nil, opErr
	}

	return result, nil
}

// beforeCall admits or rejects the call and reports whether the admitted
// call is the half-open trial.
func (b *breaker) beforeCall() (bool, error) {
	b.mu.Lock()

	now := b.now()

	var transitions []stateTransition

	trial := false

	switch b.state {
	case StateClosed:
		// A stale failure streak is forgotten once the monitoring period passes.
		if b.config.MonitoringPeriod > 0 && b.failureCount > 0 &&
			now.Sub(b.streakStartedAt) >= b.config.MonitoringPeriod {
			b.failureCount = 0
		}

	case StateOpen:
		if now.Before(b.nextRetryAt) {
			b.rejectedRequests++
			b.mu.Unlock()

			return false, ErrOpenState
		}

		transitions = append(transitions, b.transitionTo(StateHalfOpen))
		b.trialInFlight = true
		trial = true

	case StateHalfOpen:
		if b.trialInFlight {
			b.rejectedRequests++
			b.mu.Unlock()

			return false, ErrTooManyRequests
		}

		b.trialInFlight = true
		trial = true
	}

	b.totalRequests++
	b.mu.Unlock()

	b.notify(transitions)

	return trial, nil
}

// afterCall applies the outcome of an admitted call.
func (b *breaker) afterCall(trial bool, opErr error) {
	b.mu.Lock()

	now := b.now()

	var transitions []stateTransition

	if opErr != nil {
		b.totalFailures++
		b.lastFailureAt = now

		switch {
		case trial:
			b.trialInFlight = false
			transitions = append(transitions, b.trip(now))
		case b.state == StateClosed:
			if b.failureCount == 0 {
				b.streakStartedAt = now
			}

			b.failureCount++

			if b.failureCount >= b.config.FailureThreshold {
				transitions = append(transitions, b.trip(now))
			}
		default:
			// A call admitted before a transition finished after the breaker
			// moved on. The failure is counted; state is left alone.
		}
	} else {
		b.successCount++
		b.lastSuccessAt = now

		switch {
		case trial:
			b.trialInFlight = false
			b.failureCount = 0
			b.nextRetryAt = time.Time{}
			transitions = append(transitions, b.transitionTo(StateClosed))
		case b.state == StateClosed:
			b.failureCount = 0
		}
	}

	b.mu.Unlock()

	b.notify(transitions)
}

// trip moves the breaker to open and schedules the next trial. Caller must
// hold mu.
func (b *breaker) trip(now time.Time) stateTransition {
	b.nextRetryAt = now.Add(b.config.ResetTimeout)
	return b.transitionTo(StateOpen)
}

// transitionTo changes state and returns the transition for notification.
// Caller must hold mu.
func (b *breaker) transitionTo(to State) stateTransition {
	from := b.state
	b.state = to

	return stateTransition{from: from, to: to}
}

func (b *breaker) notify(transitions []stateTransition) {
	if b.onStateChange == nil {
		return
	}

	for _, tr := range transitions {
		if tr.from != tr.to {
			b.onStateChange(b.name, tr.from, tr.to)
		}
	}
}

// State returns the breaker's current state. The open-to-half-open move is
// lazy, so an open breaker whose reset timeout has elapsed still reports
// open until the next call arrives.
func (b *breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// Stats returns a point-in-time snapshot of the breaker.
func (b *breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		Name:             b.name,
		State:            b.state,
		FailureCount:     b.failureCount,
		SuccessCount:     b.successCount,
		TotalRequests:    b.totalRequests,
		TotalFailures:    b.totalFailures,
		RejectedRequests: b.rejectedRequests,
		LastFailureAt:    b.lastFailureAt,
		LastSuccessAt:    b.lastSuccessAt,
		NextRetryAt:      b.nextRetryAt,
		ErrorRate:        safe.Ratio(b.totalFailures, b.totalRequests),
	}
}

// Reset forces the breaker to closed with all counters zeroed. Usable by an
// operator or by a recovery path once the downstream service heals.
func (b *breaker) Reset() {
	b.mu.Lock()

	var transitions []stateTransition

	if b.state != StateClosed {
		transitions = append(transitions, b.transitionTo(StateClosed))
	}

	b.failureCount = 0
	b.successCount = 0
	b.totalRequests = 0
	b.totalFailures = 0
	b.rejectedRequests = 0
	b.lastFailureAt = time.Time{}
	b.lastSuccessAt = time.Time{}
	b.nextRetryAt = time.Time{}
	b.streakStartedAt = time.Time{}
	b.trialInFlight = false

	b.mu.Unlock()

	b.notify(transitions)
}
