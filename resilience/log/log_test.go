//go:build unit

package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{input: "debug", want: DebugLevel},
		{input: "INFO", want: InfoLevel},
		{input: "warn", want: WarnLevel},
		{input: "warning", want: WarnLevel},
		{input: "Error", want: ErrorLevel},
		{input: "fatal", want: FatalLevel},
		{input: "verbose", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogLevel_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "debug", DebugLevel.String())
	assert.Equal(t, "info", InfoLevel.String())
	assert.Equal(t, "warn", WarnLevel.String())
	assert.Equal(t, "error", ErrorLevel.String())
	assert.Equal(t, "fatal", FatalLevel.String())
	assert.Equal(t, "unknown", LogLevel(42).String())
}

func TestSanitizeLogString_EscapesControlChars(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `line1\nline2`, sanitizeLogString("line1\nline2"))
	assert.Equal(t, `a\rb\tc`, sanitizeLogString("a\rb\tc"))
	assert.Equal(t, "clean", sanitizeLogString("clean"))
}

func TestSanitizeLogArgs_OnlyTouchesStrings(t *testing.T) {
	t.Parallel()

	out := sanitizeLogArgs([]any{"bad\nstring", 42, true})

	assert.Equal(t, `bad\nstring`, out[0])
	assert.Equal(t, 42, out[1])
	assert.Equal(t, true, out[2])
}

func TestGoLogger_LevelGating(t *testing.T) {
	t.Parallel()

	logger := &GoLogger{Level: InfoLevel}

	assert.True(t, logger.IsLevelEnabled(ErrorLevel))
	assert.True(t, logger.IsLevelEnabled(WarnLevel))
	assert.True(t, logger.IsLevelEnabled(InfoLevel))
	assert.False(t, logger.IsLevelEnabled(DebugLevel))
}

func TestGoLogger_NilReceiverSafe(t *testing.T) {
	t.Parallel()

	var logger *GoLogger

	assert.False(t, logger.IsLevelEnabled(ErrorLevel))
	assert.NotPanics(t, func() {
		logger.Info("should not panic")
		logger.Errorf("also fine: %d", 1)
	})
	assert.NotNil(t, logger.WithFields("k", "v"))
}

func TestGoLogger_HydrateFields(t *testing.T) {
	t.Parallel()

	logger := &GoLogger{Level: DebugLevel}
	child, ok := logger.WithFields("service", "postgres", "attempt", 2).(*GoLogger)
	require.True(t, ok)

	hydrated := child.hydrateWithLevel(InfoLevel, "connected")
	assert.Contains(t, hydrated, "[info]")
	assert.Contains(t, hydrated, "service=postgres")
	assert.Contains(t, hydrated, "attempt=2")
	assert.Contains(t, hydrated, "connected")
}

func TestNoneLogger_ImplementsLogger(t *testing.T) {
	t.Parallel()

	var logger Logger = &NoneLogger{}

	assert.NotPanics(t, func() {
		logger.Infof("dropped %s", "entry")
		logger.Error("dropped")
	})
	assert.NoError(t, logger.Sync())
	assert.Same(t, logger, logger.WithFields("k", "v"))
}

func TestNewZapLogger(t *testing.T) {
	t.Parallel()

	logger, err := NewZapLogger(DebugLevel)
	require.NoError(t, err)
	require.NotNil(t, logger)

	child := logger.WithFields("component", "circuitbreaker")
	assert.NotNil(t, child)
	assert.NotPanics(t, func() {
		child.Debugf("breaker %s created", "postgres")
	})
}

func TestNewZapLoggerFromEnv_FallsBackToInfo(t *testing.T) {
	t.Parallel()

	logger, err := NewZapLoggerFromEnv("not-a-level")
	require.NoError(t, err)
	assert.Equal(t, InfoLevel, logger.Level)
}
