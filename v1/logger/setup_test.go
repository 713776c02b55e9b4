package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel(Debug))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(Info))
	assert.Equal(t, zapcore.WarnLevel, parseLevel(Warning))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel(Error))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestLoggerWritesErrorAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core), false)

	l.Error("failed to fetch schema", errors.New("boom"), map[string]interface{}{"schema_id": 7})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "failed to fetch schema", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "boom", fields["error"])
	assert.EqualValues(t, 7, fields["schema_id"])
}

func TestLoggerWithContextAddsTraceIDs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core), true)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	l.InfoWithContext(ctx, "processing", nil)
	l.InfoWithContext(context.Background(), "no span", nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entries[0].ContextMap()["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entries[0].ContextMap()["span_id"])
	assert.NotContains(t, entries[1].ContextMap(), "trace_id")
}
