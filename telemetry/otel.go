package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by recording each event as its own
// short-lived span, named after the event's Msg and started from a
// background context (so it is not parented to any caller span). The span
// carries flow/task attributes plus every string-valued Meta entry, and is
// ended before Emit returns.
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates an OTelEmitter using tracer (e.g.
// otel.Tracer("taskflow")).
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

func (o *OTelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), event.Msg)
	defer span.End()

	attrs := []attribute.KeyValue{
		attribute.String("flow.uuid", event.FlowUUID),
		attribute.String("flow.name", event.FlowName),
	}
	if event.TaskName != "" {
		attrs = append(attrs, attribute.String("task.name", event.TaskName))
	}
	for k, v := range event.Meta {
		if s, ok := v.(string); ok {
			attrs = append(attrs, attribute.String(k, s))
		}
	}
	span.SetAttributes(attrs...)

	if errVal, ok := event.Meta["error"]; ok {
		span.SetStatus(codes.Error, "taskflow event carried an error")
		if s, ok := errVal.(string); ok {
			span.RecordError(errorString(s))
		}
	}
}

func (o *OTelEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, e := range events {
		o.Emit(e)
	}
	return nil
}

func (o *OTelEmitter) Flush(context.Context) error { return nil }

type errorString string

func (e errorString) Error() string { return string(e) }

var _ Emitter = (*OTelEmitter)(nil)
