package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNoopLoggerNeverPanics(t *testing.T) {
	l := NewNoopLogger()
	ctx := context.Background()
	require.NotPanics(t, func() {
		l.Debug(ctx, "msg", "k", "v")
		l.Info(ctx, "msg")
		l.Warn(ctx, "msg", "k", 1)
		l.Error(ctx, "msg", "err", errors.New("boom"))
	})
}

func TestNoopMetricsNeverPanics(t *testing.T) {
	m := NewNoopMetrics()
	require.NotPanics(t, func() {
		m.IncCounter("c", 1, "tag", "v")
		m.RecordTimer("t", time.Second)
		m.RecordGauge("g", 1.5)
	})
}

func TestNoopTracerReturnsUsableSpan(t *testing.T) {
	tr := NewNoopTracer()
	ctx, span := tr.Start(context.Background(), "op")
	require.NotNil(t, ctx)
	require.NotPanics(t, func() {
		span.AddEvent("e")
		span.SetStatus(codes.Ok, "")
		span.RecordError(errors.New("boom"))
		span.End()
	})
	require.NotNil(t, tr.Span(ctx))
}

func TestZapLoggerEmitsStructuredFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewZapLogger(zap.New(core))

	logger.Info(context.Background(), "tool dispatched", "tool", "adder", "step", 2)

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "tool dispatched", entries[0].Message)
	fields := entries[0].ContextMap()
	require.Equal(t, "adder", fields["tool"])
}

func TestZapLoggerLevelsRoute(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewZapLogger(zap.New(core))
	ctx := context.Background()

	logger.Debug(ctx, "d")
	logger.Warn(ctx, "w")
	logger.Error(ctx, "e")

	require.Equal(t, 3, logs.Len())
	require.Equal(t, zap.DebugLevel, logs.All()[0].Level)
	require.Equal(t, zap.WarnLevel, logs.All()[1].Level)
	require.Equal(t, zap.ErrorLevel, logs.All()[2].Level)
}

func TestOTELMetricsNeverPanicsWithoutConfiguredProvider(t *testing.T) {
	m := NewOTELMetrics("agentcore-test")
	require.NotPanics(t, func() {
		m.IncCounter("agent.run_ok", 1, "mode", "direct")
		m.RecordTimer("agent.latency", 10*time.Millisecond)
		m.RecordGauge("agent.budget_remaining", 100)
	})
}

func TestOTELTracerNeverPanicsWithoutConfiguredProvider(t *testing.T) {
	tr := NewOTELTracer("agentcore-test")
	ctx, span := tr.Start(context.Background(), "agent.run")
	require.NotPanics(t, func() {
		span.AddEvent("dispatch", "tool", "adder")
		span.SetStatus(codes.Ok, "")
		span.RecordError(errors.New("boom"))
		span.End()
	})
	require.NotNil(t, tr.Span(ctx))
}
