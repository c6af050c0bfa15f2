package circuitbreaker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LerianStudio/lib-resilience/resilience/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHealthChecker_Validation(t *testing.T) {
	t.Parallel()

	manager, err := NewManager(&log.NoneLogger{})
	require.NoError(t, err)

	_, err = NewHealthChecker(manager, 0, time.Second, &log.NoneLogger{})
	assert.ErrorIs(t, err, ErrInvalidHealthCheckInterval)

	_, err = NewHealthChecker(manager, time.Second, 0, &log.NoneLogger{})
	assert.ErrorIs(t, err, ErrInvalidHealthCheckTimeout)

	hc, err := NewHealthChecker(manager, time.Second, time.Second, nil)
	require.NoError(t, err)
	assert.NotNil(t, hc)
}

func TestHealthChecker_ResetsBreakerWhenServiceRecovers(t *testing.T) {
	t.Parallel()

	manager, err := NewManager(&log.NoneLogger{})
	require.NoError(t, err)

	config := Config{FailureThreshold: 1, ResetTimeout: time.Hour}
	_, err = manager.GetOrCreate("flaky-db", config)
	require.NoError(t, err)

	// Open the breaker.
	_, _ = manager.Execute("flaky-db", func() (any, error) {
		return nil, errors.New("db down")
	})
	require.Equal(t, StateOpen, manager.GetState("flaky-db"))

	var healthy atomic.Bool

	hc, err := NewHealthChecker(manager, 20*time.Millisecond, time.Second, &log.NoneLogger{})
	require.NoError(t, err)

	hc.Register("flaky-db", func(ctx context.Context) error {
		if healthy.Load() {
			return nil
		}

		return errors.New("still down")
	})

	hc.Start()
	defer hc.Stop()

	// While the probe fails, the breaker stays open.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, StateOpen, manager.GetState("flaky-db"))

	healthy.Store(true)

	assert.Eventually(t, func() bool {
		return manager.GetState("flaky-db") == StateClosed
	}, time.Second, 10*time.Millisecond, "recovered service should reset the breaker")
}

func TestHealthChecker_ImmediateCheckOnOpen(t *testing.T) {
	t.Parallel()

	manager, err := NewManager(&log.NoneLogger{})
	require.NoError(t, err)

	config := Config{FailureThreshold: 1, ResetTimeout: time.Hour}
	_, err = manager.GetOrCreate("payments-api", config)
	require.NoError(t, err)

	// Long interval so only the immediate check can explain a fast recovery.
	hc, err := NewHealthChecker(manager, time.Hour, time.Second, &log.NoneLogger{})
	require.NoError(t, err)

	hc.Register("payments-api", func(ctx context.Context) error {
		return nil
	})

	manager.RegisterStateChangeListener(hc)

	hc.Start()
	defer hc.Stop()

	_, _ = manager.Execute("payments-api", func() (any, error) {
		return nil, errors.New("first failure")
	})

	assert.Eventually(t, func() bool {
		return manager.GetState("payments-api") == StateClosed
	}, time.Second, 10*time.Millisecond, "open transition should trigger an immediate heal")
}

func TestHealthChecker_GetHealthStatus(t *testing.T) {
	t.Parallel()

	manager, err := NewManager(&log.NoneLogger{})
	require.NoError(t, err)

	_, err = manager.GetOrCreate("svc-a", DefaultConfig())
	require.NoError(t, err)

	hc, err := NewHealthChecker(manager, time.Second, time.Second, &log.NoneLogger{})
	require.NoError(t, err)

	hc.Register("svc-a", func(ctx context.Context) error { return nil })
	hc.Register("svc-b", func(ctx context.Context) error { return nil })

	status := hc.GetHealthStatus()
	assert.Equal(t, "closed", status["svc-a"])
	assert.Equal(t, "unknown", status["svc-b"], "no breaker registered for svc-b")
}

func TestHealthChecker_ProbeTimeoutIsBounded(t *testing.T) {
	t.Parallel()

	manager, err := NewManager(&log.NoneLogger{})
	require.NoError(t, err)

	config := Config{FailureThreshold: 1, ResetTimeout: time.Hour}
	_, err = manager.GetOrCreate("slow-svc", config)
	require.NoError(t, err)

	_, _ = manager.Execute("slow-svc", func() (any, error) {
		return nil, errors.New("down")
	})

	hc, err := NewHealthChecker(manager, 20*time.Millisecond, 30*time.Millisecond, &log.NoneLogger{})
	require.NoError(t, err)

	hc.Register("slow-svc", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	hc.Start()
	defer hc.Stop()

	time.Sleep(120 * time.Millisecond)

	// The hanging probe is cancelled by its timeout and the breaker stays open.
	assert.Equal(t, StateOpen, manager.GetState("slow-svc"))
}
