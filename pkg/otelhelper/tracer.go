// Package otelhelper provides tracing setup and span helpers for the service layer.
package otelhelper

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Common attribute keys.
	WorkflowIDKey   = "flowdeck.workflow.id"
	WorkflowNameKey = "flowdeck.workflow.name"
	NodeIDKey       = "flowdeck.node.id"
	TemplateIDKey   = "flowdeck.template.id"
	AppIDKey        = "flowdeck.app.id"
	ExecutionIDKey  = "flowdeck.execution.id"
	QueryKey        = "flowdeck.query"
	ResultCountKey  = "flowdeck.result.count"
	LimitKey        = "flowdeck.limit"
)

// TracerName names the tracer of the service layer.
const TracerName = "github.com/dukex/flowdeck/pkg/services"

// NewTracerProvider installs an OTLP/HTTP exporting provider as the global
// tracer provider. The exporter reads the standard OTEL_EXPORTER_OTLP_* variables.
func NewTracerProvider(ctx context.Context, serviceName string) (*sdktrace.TracerProvider, error) {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}))

	return tp, nil
}

// Tracer returns the service layer tracer of the global provider.
// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// nolint:ireturn,spancheck // Returning interface is intentional for OpenTelemetry tracing
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// ID formats a numeric id attribute.
func ID(key string, id int64) attribute.KeyValue {
	return attribute.String(key, strconv.FormatInt(id, 10))
}
