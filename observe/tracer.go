package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// EndpointMeta describes a backend endpoint for telemetry purposes.
type EndpointMeta struct {
	Name   string // logical name, e.g. "login" or "token_refresh"
	Method string // HTTP method
	Path   string // request path relative to the base URL
}

// SpanName returns the deterministic span name: api.call.<name>.
func (m EndpointMeta) SpanName() string {
	return "api.call." + m.Name
}

func (m EndpointMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("api.endpoint", m.Name),
	}
	if m.Method != "" {
		attrs = append(attrs, attribute.String("http.request.method", m.Method))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with per-endpoint span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	StartSpan(ctx context.Context, meta EndpointMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording the response status and any error.
	EndSpan(span trace.Span, status int, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta EndpointMeta) (context.Context, trace.Span) {
	attrs := meta.attributes()
	if meta.Path != "" {
		attrs = append(attrs, attribute.String("url.path", meta.Path))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, status int, err error) {
	if status > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	switch {
	case err != nil:
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	case status >= 400:
		span.SetStatus(codes.Error, "")
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta EndpointMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ int, _ error) {
	span.End()
}
