// Package backoff provides exponential delay calculation with jitter support
// and context-aware sleeping for retry mechanisms.
package backoff
