package backoff

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	mrand "math/rand/v2"
	"time"
)

// maxExponent bounds factor^attempt so the multiplier stays representable.
const maxExponent = 62

// Exponential calculates the delay for a given attempt as base * factor^attempt
// with overflow protection. Negative attempts are treated as 0; factors below
// 1 are treated as 1 (constant delay).
func Exponential(base time.Duration, factor float64, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}

	if factor < 1 {
		factor = 1
	}

	if attempt < 0 {
		attempt = 0
	} else if attempt > maxExponent {
		attempt = maxExponent
	}

	multiplier := math.Pow(factor, float64(attempt))

	delay := float64(base) * multiplier
	if delay >= float64(math.MaxInt64) || math.IsInf(delay, 1) {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(delay)
}

// Cap limits a delay to the given maximum. A non-positive maximum means
// uncapped.
func Cap(delay, maximum time.Duration) time.Duration {
	if maximum > 0 && delay > maximum {
		return maximum
	}

	return delay
}

// FullJitter returns a random duration in the range [0, delay).
// Uses crypto/rand for secure randomness, falling back to math/rand if crypto fails.
// Returns 0 for zero or negative delays.
func FullJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(delay)))
	if err != nil {
		return time.Duration(cryptoFallbackRand(int64(delay)))
	}

	return time.Duration(n.Int64())
}

// fallbackDivisor is used when crypto/rand fails completely.
const fallbackDivisor = 2

// cryptoFallbackRand provides a fallback random number generator when
// crypto/rand fails. It first attempts to seed a math/rand PRNG via
// crypto/rand (a different code path that may still succeed), and if even
// that fails it returns a deterministic midpoint so jitter never stalls.
func cryptoFallbackRand(maxValue int64) int64 {
	var seed [8]byte

	_, err := rand.Read(seed[:])
	if err != nil {
		return maxValue / fallbackDivisor
	}

	rng := mrand.New(
		mrand.NewPCG(binary.LittleEndian.Uint64(seed[:]), 0),
	) // #nosec G404 -- Fallback when crypto/rand fails

	return rng.Int64N(maxValue)
}

// SleepWithContext sleeps for the specified duration but respects context
// cancellation. Returns nil if the sleep completes, or an error if the
// context is cancelled. Returns immediately (nil) for zero or negative
// durations.
func SleepWithContext(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context done: %w", ctx.Err())
	}
}
