package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorMessageKey tags span error events with the failing message.
const ErrorMessageKey = "botflow.error.message"

// SetError marks the span failed and records the error as a span event.
// Extra attributes land on the event alongside the error message.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	eventAttrs := append([]attribute.KeyValue{
		attribute.String(ErrorMessageKey, err.Error()),
	}, attrs...)

	span.AddEvent("botflow.error", trace.WithAttributes(eventAttrs...))
}
