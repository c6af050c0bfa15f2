// Package retry executes operations with bounded attempts and exponential
// backoff between failures.
//
// Each call to Do is independent; the package holds no shared state. The
// inter-attempt delay suspends only the calling goroutine and honors
// context cancellation.
package retry
