package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter translates workflow events into OpenTelemetry spans.
//
// Each event becomes an immediately-ended span:
//   - Span name: event.Type (e.g. "decision", "final_result")
//   - Attributes: session, correlation, executor, and type-specific fields
//   - Status: error for TypeError events
//
// Events are points in time rather than durations, so spans are ended on
// creation and exported through whatever span processor the tracer's
// provider is configured with.
//
//	tracer := otel.Tracer("reflectgraph")
//	emitter := emit.NewOTelEmitter(tracer)
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates an OTelEmitter using the given tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit creates and ends a span for the event.
func (o *OTelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), event.Type)
	defer span.End()

	o.setAttributes(span, event)

	if event.Type == TypeError {
		span.SetStatus(codes.Error, event.Text)
		span.RecordError(fmt.Errorf("%s: %s", event.ErrKind, event.Text))
	}
}

func (o *OTelEmitter) setAttributes(span trace.Span, event Event) {
	span.SetAttributes(
		attribute.String("session.id", event.SessionID),
		attribute.String("correlation.id", event.CorrelationID),
	)

	if event.ExecutorID != "" {
		span.SetAttributes(attribute.String("executor.id", event.ExecutorID))
	}
	if event.ToolName != "" {
		span.SetAttributes(attribute.String("tool.name", event.ToolName))
	}
	if event.Type == TypeDecision {
		span.SetAttributes(
			attribute.Bool("decision.approved", event.Approved),
			attribute.String("decision.feedback", event.Feedback),
		)
	}
	if event.Degraded {
		span.SetAttributes(attribute.Bool("result.degraded", true))
	}
	if event.ErrKind != "" {
		span.SetAttributes(attribute.String("error.kind", event.ErrKind))
	}

	for key, value := range event.Meta {
		switch v := value.(type) {
		case string:
			span.SetAttributes(attribute.String(key, v))
		case int:
			span.SetAttributes(attribute.Int(key, v))
		case int64:
			span.SetAttributes(attribute.Int64(key, v))
		case float64:
			span.SetAttributes(attribute.Float64(key, v))
		case bool:
			span.SetAttributes(attribute.Bool(key, v))
		default:
			span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
		}
	}
}
