package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/pilab-dev/shadow-auth/log"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, log.ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, log.ParseLevel(" warn "))
	assert.Equal(t, zerolog.InfoLevel, log.ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, log.ParseLevel("loud"))
}

func TestNew_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "warn")

	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestTraceHook(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "debug")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	logger.Info().Ctx(ctx).Msg("traced")

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", event["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", event["span_id"])

	buf.Reset()
	logger.Info().Ctx(context.Background()).Msg("untraced")
	var plain map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &plain))
	_, ok := plain["trace_id"]
	assert.False(t, ok)
}
