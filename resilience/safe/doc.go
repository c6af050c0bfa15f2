// Package safe provides panic-free math helpers for ratio and percentage
// calculations on request counters.
//
// Functions that can fail return explicit errors instead of panicking, so
// callers can handle failures predictably in production paths.
package safe
