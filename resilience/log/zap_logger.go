package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger is the production implementation of Logger backed by
// go.uber.org/zap's sugared logger.
type ZapLogger struct {
	Logger *zap.SugaredLogger
	Level  LogLevel
}

// NewZapLogger builds a production zap logger at the given level.
func NewZapLogger(level LogLevel) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(toZapLevel(level))

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	return &ZapLogger{
		Logger: logger.Sugar(),
		Level:  level,
	}, nil
}

// NewZapLoggerFromEnv builds a production zap logger reading the level from
// the given string (e.g. the LOG_LEVEL environment variable). Unparseable
// values fall back to info.
func NewZapLoggerFromEnv(level string) (*ZapLogger, error) {
	parsed, err := ParseLevel(level)
	if err != nil {
		parsed = InfoLevel
	}

	return NewZapLogger(parsed)
}

func toZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case FatalLevel:
		return zapcore.FatalLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case DebugLevel:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *ZapLogger) must() *zap.SugaredLogger {
	if l == nil || l.Logger == nil {
		return zap.NewNop().Sugar()
	}

	return l.Logger
}

// Info implements Info Logger interface function.
func (l *ZapLogger) Info(args ...any) { l.must().Info(sanitizeLogArgs(args)...) }

// Infof implements Infof Logger interface function.
func (l *ZapLogger) Infof(format string, args ...any) {
	l.must().Infof(sanitizeLogString(format), args...)
}

// Infoln implements Infoln Logger interface function.
func (l *ZapLogger) Infoln(args ...any) { l.must().Infoln(sanitizeLogArgs(args)...) }

// Warn implements Warn Logger interface function.
func (l *ZapLogger) Warn(args ...any) { l.must().Warn(sanitizeLogArgs(args)...) }

// Warnf implements Warnf Logger interface function.
func (l *ZapLogger) Warnf(format string, args ...any) {
	l.must().Warnf(sanitizeLogString(format), args...)
}

// Warnln implements Warnln Logger interface function.
func (l *ZapLogger) Warnln(args ...any) { l.must().Warnln(sanitizeLogArgs(args)...) }

// Error implements Error Logger interface function.
func (l *ZapLogger) Error(args ...any) { l.must().Error(sanitizeLogArgs(args)...) }

// Errorf implements Errorf Logger interface function.
func (l *ZapLogger) Errorf(format string, args ...any) {
	l.must().Errorf(sanitizeLogString(format), args...)
}

// Errorln implements Errorln Logger interface function.
func (l *ZapLogger) Errorln(args ...any) { l.must().Errorln(sanitizeLogArgs(args)...) }

// Debug implements Debug Logger interface function.
func (l *ZapLogger) Debug(args ...any) { l.must().Debug(sanitizeLogArgs(args)...) }

// Debugf implements Debugf Logger interface function.
func (l *ZapLogger) Debugf(format string, args ...any) {
	l.must().Debugf(sanitizeLogString(format), args...)
}

// Debugln implements Debugln Logger interface function.
func (l *ZapLogger) Debugln(args ...any) { l.must().Debugln(sanitizeLogArgs(args)...) }

// Fatal implements Fatal Logger interface function.
func (l *ZapLogger) Fatal(args ...any) { l.must().Fatal(sanitizeLogArgs(args)...) }

// Fatalf implements Fatalf Logger interface function.
func (l *ZapLogger) Fatalf(format string, args ...any) {
	l.must().Fatalf(sanitizeLogString(format), args...)
}

// Fatalln implements Fatalln Logger interface function.
func (l *ZapLogger) Fatalln(args ...any) { l.must().Fatalln(sanitizeLogArgs(args)...) }

// WithFields implements WithFields Logger interface function.
//
//nolint:ireturn
func (l *ZapLogger) WithFields(fields ...any) Logger {
	return &ZapLogger{
		Logger: l.must().With(sanitizeLogArgs(fields)...),
		Level:  l.level(),
	}
}

// WithDefaultMessageTemplate implements WithDefaultMessageTemplate Logger
// interface function.
//
//nolint:ireturn
func (l *ZapLogger) WithDefaultMessageTemplate(message string) Logger {
	return &ZapLogger{
		Logger: l.must().Named(sanitizeLogString(message)),
		Level:  l.level(),
	}
}

// Sync implements Sync Logger interface function.
func (l *ZapLogger) Sync() error { return l.must().Sync() }

func (l *ZapLogger) level() LogLevel {
	if l == nil {
		return InfoLevel
	}

	return l.Level
}
