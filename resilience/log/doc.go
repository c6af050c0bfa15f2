// Package log defines the logging contract used across lib-resilience.
//
// The Logger interface is satisfied by GoLogger (standard library backend,
// useful for tools and tests), ZapLogger (production structured backend),
// and NoneLogger (discard everything).
//
// All string arguments are sanitized against control-character log
// injection (CWE-117) before being written.
package log
