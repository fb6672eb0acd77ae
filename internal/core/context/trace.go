// Package context provides request-scoped value extraction.
package context

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// TraceID returns the active span's trace id, or "" when no span is
// recording. Log lines carry it so engine operations correlate with the
// spans the transaction manager opens.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
