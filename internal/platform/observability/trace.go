package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/tabletap/orderkit/internal/platform/observability")

// StartClientSpan opens a client span for an outbound backend request. The
// operation name is the logical endpoint (e.g. "orders.updateStatus"), not the
// concrete path, so candidate fallbacks share one span per attempt.
func StartClientSpan(ctx context.Context, operation, method, path string, candidate int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, operation, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("http.request.method", SanitizeMethod(method)),
		attribute.String("url.path", SanitizeRoute(path)),
		attribute.Int("orderkit.candidate", candidate),
	)
	return ctx, span
}

// EndClientSpan records the response status (or failure) and closes the span.
func EndClientSpan(span trace.Span, status int, err error) {
	if span == nil {
		return
	}
	if status > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case status >= 400:
		span.SetStatus(codes.Error, "")
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
