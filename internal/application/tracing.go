package application

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/example/session-scheduler/internal/application"

// newTracer returns a tracer backed by the global provider, so spans start
// flowing once telemetry.Setup installs an exporter.
func newTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func startSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on span, tags it with the error kind and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.kind", ErrorKind(err)))
		if ErrorKind(err) == "unexpected" {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
