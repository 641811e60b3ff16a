package emit

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by recording OpenTelemetry spans.
//
// Each event becomes a short span named after event.Msg, carrying the run
// id, the solver name and the event metadata as attributes. An "error"
// metadata entry sets the span status to error.
//
// Setup follows the usual OpenTelemetry pattern:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
//	emitter := emit.NewOTelEmitter(otel.Tracer("stp-go"))
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter returns an emitter recording spans on the given tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit records a span for the event. The span is ended immediately; events
// are points in time, not durations.
func (o *OTelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), event.Msg)
	defer span.End()

	attrs := []attribute.KeyValue{
		attribute.String("stp.run_id", event.RunID),
		attribute.String("stp.solver", event.Solver),
	}
	keys := make([]string, 0, len(event.Meta))
	for k := range event.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, metaAttribute("stp."+k, event.Meta[k]))
	}
	span.SetAttributes(attrs...)

	if errMsg, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(fmt.Errorf("%s", errMsg))
	}
}

// metaAttribute converts a metadata value into a typed span attribute.
func metaAttribute(key string, v interface{}) attribute.KeyValue {
	switch val := v.(type) {
	case string:
		return attribute.String(key, val)
	case bool:
		return attribute.Bool(key, val)
	case int:
		return attribute.Int(key, val)
	case int64:
		return attribute.Int64(key, val)
	case float64:
		return attribute.Float64(key, val)
	default:
		return attribute.String(key, fmt.Sprintf("%v", val))
	}
}

// Flush is a no-op; span delivery is owned by the tracer provider.
func (o *OTelEmitter) Flush(context.Context) error { return nil }

// Close is a no-op.
func (o *OTelEmitter) Close() error { return nil }
