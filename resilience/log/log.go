package log

import (
	"fmt"
	"strings"
)

// Logger is the common logging interface consumed by every package in
// lib-resilience. Implementations must be safe for concurrent use.
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)
	Infoln(args ...any)

	Warn(args ...any)
	Warnf(format string, args ...any)
	Warnln(args ...any)

	Error(args ...any)
	Errorf(format string, args ...any)
	Errorln(args ...any)

	Debug(args ...any)
	Debugf(format string, args ...any)
	Debugln(args ...any)

	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Fatalln(args ...any)

	// WithFields returns a child logger with additional key/value pairs
	// attached to every entry.
	WithFields(fields ...any) Logger

	// WithDefaultMessageTemplate returns a child logger that prefixes every
	// entry with the given template.
	WithDefaultMessageTemplate(message string) Logger

	// Sync flushes any buffered log entries.
	Sync() error
}

// LogLevel represents the level of severity for a log entry. A logger
// configured at a given level emits that level and every level with a
// lower numeric value.
type LogLevel uint8

// Severity levels, most severe first.
const (
	FatalLevel LogLevel = iota
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
)

// String returns the lower-case name of the level.
func (level LogLevel) String() string {
	switch level {
	case FatalLevel:
		return "fatal"
	case ErrorLevel:
		return "error"
	case WarnLevel:
		return "warn"
	case InfoLevel:
		return "info"
	case DebugLevel:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel takes a string level and returns the LogLevel constant.
func ParseLevel(lvl string) (LogLevel, error) {
	switch strings.ToLower(lvl) {
	case "fatal":
		return FatalLevel, nil
	case "error":
		return ErrorLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "info":
		return InfoLevel, nil
	case "debug":
		return DebugLevel, nil
	}

	var l LogLevel

	return l, fmt.Errorf("not a valid LogLevel: %q", lvl)
}

// logControlCharReplacer escapes control characters that can be used for log
// injection (CWE-117). Newlines, carriage returns, and tabs in log messages
// can forge fake log entries or inject false audit trail entries.
var logControlCharReplacer = strings.NewReplacer(
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// sanitizeLogString escapes control characters in a single string value.
func sanitizeLogString(s string) string {
	return logControlCharReplacer.Replace(s)
}

// sanitizeLogArgs escapes control characters in all string-typed arguments.
// Non-string arguments are passed through unchanged.
func sanitizeLogArgs(args []any) []any {
	sanitized := make([]any, len(args))

	for i, arg := range args {
		if s, ok := arg.(string); ok {
			sanitized[i] = sanitizeLogString(s)
		} else {
			sanitized[i] = arg
		}
	}

	return sanitized
}
