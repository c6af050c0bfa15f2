package retry

import (
	"context"
	"errors"
	"time"

	"github.com/LerianStudio/lib-resilience/resilience/backoff"
)

// Operation is the unit of work retried by Do. Implementations should honor
// the context so in-flight work can be cancelled between or during attempts.
type Operation func(ctx context.Context) (any, error)

// Policy controls how many attempts are made and how long to wait between
// them. The delay before attempt n (1-based) is
// min(InitialDelay * Factor^(n-1), MaxDelay), optionally jittered.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Factor       float64

	// Jitter randomizes each delay over [0, delay) using the full-jitter
	// strategy. Leave off when callers depend on deterministic minimum
	// spacing between attempts.
	Jitter bool
}

// ErrInvalidMaxAttempts is returned when a policy requests fewer than one attempt.
var ErrInvalidMaxAttempts = errors.New("retry: max attempts must be at least 1")

// ErrNilOperation is returned when Do is called without an operation.
var ErrNilOperation = errors.New("retry: operation must not be nil")

// DefaultPolicy provides balanced settings for transient downstream failures.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Factor:       2,
	}
}

// Validate reports whether the policy is usable.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	return nil
}

// Do runs op up to policy.MaxAttempts times, sleeping between attempts per
// the policy. The last attempt's error is returned unchanged so callers can
// keep matching it with errors.Is / errors.As.
//
// Cancellation stops further attempts: if the context is done after a failed
// attempt, the attempt's error is returned without waiting out the backoff.
func Do(ctx context.Context, policy Policy, op Operation) (any, error) {
	if op == nil {
		return nil, ErrNilOperation
	}

	if err := policy.Validate(); err != nil {
		return nil, err
	}

	var lastErr error

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoff.Cap(
				backoff.Exponential(policy.InitialDelay, policy.Factor, attempt-1),
				policy.MaxDelay,
			)

			if policy.Jitter {
				delay = backoff.FullJitter(delay)
			}

			if err := backoff.SleepWithContext(ctx, delay); err != nil {
				return nil, lastErr
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	return nil, lastErr
}
