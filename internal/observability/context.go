package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// DetachTraceContextFrom copies the trace span from src into baseCtx, so a
// background job keeps baseCtx's lifetime but stays linked to the request
// trace that started it.
func DetachTraceContextFrom(src, baseCtx context.Context) context.Context {
	sc := trace.SpanContextFromContext(src)
	if !sc.IsValid() {
		return baseCtx
	}
	return trace.ContextWithRemoteSpanContext(baseCtx, sc)
}
