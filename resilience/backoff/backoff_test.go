//go:build unit

package backoff

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponential(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		base    time.Duration
		factor  float64
		attempt int
		want    time.Duration
	}{
		{name: "attempt zero is base", base: 100 * time.Millisecond, factor: 2, attempt: 0, want: 100 * time.Millisecond},
		{name: "doubles per attempt", base: 100 * time.Millisecond, factor: 2, attempt: 2, want: 400 * time.Millisecond},
		{name: "factor three", base: time.Second, factor: 3, attempt: 2, want: 9 * time.Second},
		{name: "negative attempt treated as zero", base: time.Second, factor: 2, attempt: -5, want: time.Second},
		{name: "factor below one is constant", base: time.Second, factor: 0.5, attempt: 4, want: time.Second},
		{name: "zero base", base: 0, factor: 2, attempt: 3, want: 0},
		{name: "negative base", base: -time.Second, factor: 2, attempt: 3, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, Exponential(tt.base, tt.factor, tt.attempt))
		})
	}
}

func TestExponential_OverflowSaturates(t *testing.T) {
	t.Parallel()

	got := Exponential(time.Hour, 2, 80)
	assert.Equal(t, time.Duration(math.MaxInt64), got)
}

func TestCap(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.Second, Cap(5*time.Second, time.Second))
	assert.Equal(t, 500*time.Millisecond, Cap(500*time.Millisecond, time.Second))
	assert.Equal(t, 5*time.Second, Cap(5*time.Second, 0), "non-positive maximum means uncapped")
}

func TestFullJitter(t *testing.T) {
	t.Parallel()

	delay := 250 * time.Millisecond
	for i := 0; i < 100; i++ {
		got := FullJitter(delay)
		assert.GreaterOrEqual(t, got, time.Duration(0))
		assert.Less(t, got, delay)
	}

	assert.Equal(t, time.Duration(0), FullJitter(0))
	assert.Equal(t, time.Duration(0), FullJitter(-time.Second))
}

func TestSleepWithContext_Completes(t *testing.T) {
	t.Parallel()

	start := time.Now()
	err := SleepWithContext(context.Background(), 50*time.Millisecond)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestSleepWithContext_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := SleepWithContext(ctx, 5*time.Second)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleepWithContext_ZeroDuration(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Zero duration returns before checking the context.
	assert.NoError(t, SleepWithContext(ctx, 0))
}
