package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("error_occurred", trace.WithAttributes(
		attrs...,
	))
}

// End records *errp on the span, if set, and ends it. Use it deferred with a
// named error result.
func End(span trace.Span, errp *error) {
	if errp != nil && *errp != nil {
		SetError(span, *errp)
	}

	span.End()
}
