package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dshills/reflectgraph/workflow/model"
)

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics

	// None of these may panic.
	m.CorrelationStarted()
	m.CorrelationEnded(2)
	m.RecordHop("primary", time.Millisecond, "success")
	m.RecordDecision(true)
	m.RecordTerminal("approved")
	m.RecordEventDropped()
}

func TestMetrics_Counters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.CorrelationStarted()
	m.CorrelationStarted()
	m.CorrelationEnded(1)

	if got := testutil.ToFloat64(m.inflight); got != 1 {
		t.Errorf("inflight = %v, want 1", got)
	}

	m.RecordDecision(true)
	m.RecordDecision(false)
	m.RecordDecision(false)

	if got := testutil.ToFloat64(m.decisions.WithLabelValues("approved")); got != 1 {
		t.Errorf("approved decisions = %v", got)
	}
	if got := testutil.ToFloat64(m.decisions.WithLabelValues("rejected")); got != 2 {
		t.Errorf("rejected decisions = %v", got)
	}

	m.RecordTerminal("approved")
	m.RecordTerminal("degraded")
	if got := testutil.ToFloat64(m.terminals.WithLabelValues("degraded")); got != 1 {
		t.Errorf("degraded terminals = %v", got)
	}

	m.RecordEventDropped()
	if got := testutil.ToFloat64(m.eventsDropped); got != 1 {
		t.Errorf("events dropped = %v", got)
	}
}

func TestMetrics_WiredIntoWorkflow(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	primaryModel := &model.MockChatModel{Responses: []model.ChatOut{{Text: "answer"}}}
	reviewerModel := &model.MockChatModel{Responses: []model.ChatOut{
		rejectJSON("again"),
		approveJSON(""),
	}}
	wf := newTestWorkflow(t, primaryModel, reviewerModel, WithMetrics(m))

	if _, err := wf.Submit(context.Background(), "s1", "hello"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if got := testutil.ToFloat64(m.inflight); got != 0 {
		t.Errorf("inflight after terminal = %v", got)
	}
	if got := testutil.ToFloat64(m.decisions.WithLabelValues("rejected")); got != 1 {
		t.Errorf("rejected decisions = %v", got)
	}
	if got := testutil.ToFloat64(m.decisions.WithLabelValues("approved")); got != 1 {
		t.Errorf("approved decisions = %v", got)
	}
	if got := testutil.ToFloat64(m.terminals.WithLabelValues("approved")); got != 1 {
		t.Errorf("approved terminals = %v", got)
	}
}
