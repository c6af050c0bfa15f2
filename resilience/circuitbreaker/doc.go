// Package circuitbreaker provides per-service failure isolation and
// health-check-driven recovery.
//
// Use NewManager to create and manage per-service breakers, then run calls
// through Manager.Execute so failures are tracked consistently across
// callers. Each breaker is a three-state machine (closed, open, half-open)
// whose open-to-half-open transition is evaluated lazily when a call
// arrives; no background timer is involved.
//
// Optional health-check integration can automatically reset breakers after
// downstream services recover.
package circuitbreaker
