// Package errgroup coordinates goroutines that share a cancellation context.
//
// The first goroutine error cancels the group context and is returned by
// Wait; recovered panics are converted into errors so a misbehaving probe
// or listener cannot take down the process.
package errgroup
