// Package otel provides tracing helpers shared by the ingestion and activation paths.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on spans across the application
const (
	AttrProvider    = attribute.Key("scm.provider")
	AttrOwner       = attribute.Key("scm.owner")
	AttrRepository  = attribute.Key("scm.repository")
	AttrRef         = attribute.Key("scm.ref")
	AttrRefKind     = attribute.Key("scm.ref_kind")
	AttrCatalogName = attribute.Key("catalog.name")
	AttrCatalogType = attribute.Key("catalog.type")
	AttrPageCount   = attribute.Key("pagination.pages")
	AttrResultCount = attribute.Key("result.count")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns a no-op span.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records an error on a span and sets the span status to error.
// The status description stays generic; the error text is kept in the span event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}

// WithSpan runs fn inside a span named name and records its error, if any.
func WithSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	fn func(context.Context) error,
	attrs ...attribute.KeyValue,
) error {
	ctx, span := StartSpan(ctx, tracer, name, trace.WithAttributes(attrs...))
	defer span.End()

	err := fn(ctx)
	RecordError(span, err)
	return err
}
