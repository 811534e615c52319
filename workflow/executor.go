package workflow

import (
	"context"

	"github.com/dshills/reflectgraph/workflow/emit"
)

// Executor is a unit of computation in the workflow graph. It receives typed
// messages and stages zero or more outbound messages and events on the
// ExecContext. Executors hold no mutable state across invocations; anything
// per-request lives on the ExecContext or in the runtime's correlation
// record, so concurrent correlations cannot corrupt each other.
type Executor interface {
	// ID identifies the executor in events, errors, and metrics.
	ID() string

	// Handle processes one message. Outbound messages go through ec.Send;
	// progress events through ec.Emit. At most one external call (model or
	// tool round) happens per invocation.
	Handle(ctx context.Context, msg Message, ec *ExecContext) error
}

// ExecContext is the per-invocation context handed to an executor. Send and
// Emit stage work; the runtime drains the outbox after the handler returns,
// which keeps dispatch strictly sequential per correlation.
type ExecContext struct {
	executorID    string
	correlationID string
	sessionID     string

	// Turn is the current turn for the correlation, carried by the runtime
	// so executors stay stateless across the feedback hop.
	Turn Turn

	outbox  []Message
	emitter emit.Emitter
}

func newExecContext(executorID, correlationID, sessionID string, turn Turn, emitter emit.Emitter) *ExecContext {
	if emitter == nil {
		emitter = emit.NewNullEmitter()
	}
	return &ExecContext{
		executorID:    executorID,
		correlationID: correlationID,
		sessionID:     sessionID,
		Turn:          turn,
		emitter:       emitter,
	}
}

// Send stages an outbound message. Delivery happens after the handler
// returns; Send never blocks.
func (ec *ExecContext) Send(msg Message) {
	ec.outbox = append(ec.outbox, msg)
}

// Emit pushes a progress event to the event sink. Session, correlation, and
// executor identifiers are filled in when unset. Emit never blocks on
// observer readiness; back-pressure is absorbed by the sink.
func (ec *ExecContext) Emit(event emit.Event) {
	if event.SessionID == "" {
		event.SessionID = ec.sessionID
	}
	if event.CorrelationID == "" {
		event.CorrelationID = ec.correlationID
	}
	if event.ExecutorID == "" {
		event.ExecutorID = ec.executorID
	}
	ec.emitter.Emit(event)
}

// CorrelationID returns the correlation this invocation belongs to.
func (ec *ExecContext) CorrelationID() string { return ec.correlationID }

// SessionID returns the caller session this invocation belongs to.
func (ec *ExecContext) SessionID() string { return ec.sessionID }

// drain returns and clears the staged outbound messages.
func (ec *ExecContext) drain() []Message {
	out := ec.outbox
	ec.outbox = nil
	return out
}
