// Package log configures the process-wide zerolog logger.
package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Setup installs the global logger at level, writing to stderr. Pretty selects the
// human readable console writer. Unknown levels fall back to info.
func Setup(level string, pretty bool) zerolog.Logger {
	var out io.Writer = os.Stderr
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	logger := New(out, level)
	zerolog.SetGlobalLevel(logger.GetLevel())
	zlog.Logger = logger

	return logger
}

// New builds a timestamped logger on out with the trace hook attached.
func New(out io.Writer, level string) zerolog.Logger {
	return zerolog.New(out).
		Level(ParseLevel(level)).
		Hook(TraceHook{}).
		With().
		Timestamp().
		Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

// TraceHook adds trace_id and span_id to events whose context carries a valid span.
type TraceHook struct{}

func (TraceHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}
	span := trace.SpanContextFromContext(ctx)
	if !span.IsValid() {
		return
	}
	e.Str("trace_id", span.TraceID().String()).
		Str("span_id", span.SpanID().String())
}
