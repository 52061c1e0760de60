package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope under which all Tablemuse spans are
// recorded.
const tracerName = "github.com/woodwose/tablemuse"

// StartSpan opens a span on the globally registered tracer and returns the
// derived context. The caller must call span.End.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// Tracer returns the package-level [trace.Tracer].
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// CorrelationID reports the active trace ID, or "" when ctx carries no valid
// span. Response streams attach it to every chunk so a client can discard
// output that belongs to a superseded request.
func CorrelationID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns the default [slog.Logger] widened with trace_id and span_id
// when ctx carries an active span, and unchanged otherwise.
func Logger(ctx context.Context) *slog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return slog.Default()
	}
	return slog.Default().With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}
