// Package coordinator composes circuit breaking, retry, and error recovery
// into a single entry point for calls to external dependencies. Dependencies
// are registered with a kind and criticality; each one gets a circuit breaker
// tuned for its kind, and failed calls flow through recovery strategies and
// fallbacks before the error is propagated.
package coordinator
