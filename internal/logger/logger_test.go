package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":  zapcore.DebugLevel,
		"info":   zapcore.InfoLevel,
		" WARN ": zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
		"dpanic": zapcore.DPanicLevel,
		"panic":  zapcore.PanicLevel,
		"fatal":  zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestApplyLevel checks that empty input is ignored and garbage is rejected.
func TestApplyLevel(t *testing.T) {
	t.Parallel()

	require.NoError(t, ApplyLevel(""))
	require.ErrorIs(t, ApplyLevel("loud"), ErrUnknownLevel)
}

// TestContextLogger ensures scoped loggers travel through the context.
func TestContextLogger(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())
	ctx = WithName(ctx, "coordinator")
	ctx = WithKV(ctx, "cycle_id", "c-1")

	WarnKV(ctx, "Emergency countdown armed", "seconds_remaining", 10)

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "coordinator", entries[0].LoggerName)
	require.Equal(t, "Emergency countdown armed", entries[0].Message)
	require.Equal(t, "c-1", entries[0].ContextMap()["cycle_id"])

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestWithMinLevel ensures a quiet context logger drops low level entries.
func TestWithMinLevel(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())
	quiet := WithMinLevel(ctx, zapcore.WarnLevel)

	Info(quiet, "SOS activates in 3s")
	Warn(quiet, "SOS ACTIVATED")
	Info(ctx, "still visible")

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "SOS ACTIVATED", entries[0].Message)
	require.Equal(t, "still visible", entries[1].Message)
}

func TestWithMinLevel_NeverLowers(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())
	verbose := WithMinLevel(ctx, zapcore.DebugLevel)

	Debug(verbose, "tick")
	Info(verbose, "armed")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "armed", entries[0].Message)
}
