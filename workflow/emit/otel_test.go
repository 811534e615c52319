package emit

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestOTelEmitter(t *testing.T) (*OTelEmitter, *tracetest.InMemoryExporter) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	return NewOTelEmitter(tp.Tracer("test")), exporter
}

func attributeMap(attrs []attribute.KeyValue) map[string]interface{} {
	m := make(map[string]interface{}, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value.AsInterface()
	}
	return m
}

func TestOTelEmitter_DecisionSpan(t *testing.T) {
	emitter, exporter := newTestOTelEmitter(t)

	emitter.Emit(Event{
		Type:          TypeDecision,
		SessionID:     "s1",
		CorrelationID: "corr-1",
		ExecutorID:    "reviewer",
		Approved:      false,
		Feedback:      "add detail",
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != "decision" {
		t.Errorf("span name = %q", span.Name)
	}

	attrs := attributeMap(span.Attributes)
	if attrs["session.id"] != "s1" {
		t.Errorf("session.id = %v", attrs["session.id"])
	}
	if attrs["correlation.id"] != "corr-1" {
		t.Errorf("correlation.id = %v", attrs["correlation.id"])
	}
	if attrs["executor.id"] != "reviewer" {
		t.Errorf("executor.id = %v", attrs["executor.id"])
	}
	if attrs["decision.approved"] != false {
		t.Errorf("decision.approved = %v", attrs["decision.approved"])
	}
	if attrs["decision.feedback"] != "add detail" {
		t.Errorf("decision.feedback = %v", attrs["decision.feedback"])
	}
}

func TestOTelEmitter_ErrorSpanStatus(t *testing.T) {
	emitter, exporter := newTestOTelEmitter(t)

	emitter.Emit(Event{
		Type:          TypeError,
		SessionID:     "s1",
		CorrelationID: "corr-1",
		ErrKind:       "generation",
		Text:          "provider exploded",
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Status.Code != codes.Error {
		t.Errorf("status = %v, want error", span.Status.Code)
	}
	if len(span.Events) == 0 {
		t.Error("expected a recorded error event on the span")
	}

	attrs := attributeMap(span.Attributes)
	if attrs["error.kind"] != "generation" {
		t.Errorf("error.kind = %v", attrs["error.kind"])
	}
}

func TestOTelEmitter_MetaAttributes(t *testing.T) {
	emitter, exporter := newTestOTelEmitter(t)

	emitter.Emit(Event{
		Type:          TypeFinalResult,
		SessionID:     "s1",
		CorrelationID: "corr-1",
		Degraded:      true,
		Meta: map[string]interface{}{
			"attempts": 4,
			"source":   "bound",
		},
	})

	attrs := attributeMap(exporter.GetSpans()[0].Attributes)
	if attrs["result.degraded"] != true {
		t.Errorf("result.degraded = %v", attrs["result.degraded"])
	}
	if attrs["attempts"] != int64(4) {
		t.Errorf("attempts = %v", attrs["attempts"])
	}
	if attrs["source"] != "bound" {
		t.Errorf("source = %v", attrs["source"])
	}
}
