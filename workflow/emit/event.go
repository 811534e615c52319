// Package emit provides the observability event surface for the workflow.
package emit

// Event type constants. These are the wire-visible progress notifications a
// caller or observer can receive while a request moves through the workflow.
const (
	// TypeAgentStart marks an executor beginning work on a correlation.
	TypeAgentStart = "agent_start"

	// TypeAgentToken carries an incremental text fragment from an executor.
	// The bundled executors reply in whole messages (ChatModel is not a
	// streaming interface), so only custom executors that stream their own
	// output produce this type.
	TypeAgentToken = "agent_token"

	// TypeAgentMessage carries an executor's complete generated text.
	TypeAgentMessage = "agent_message"

	// TypeToolCalled marks an external tool invocation by an executor.
	TypeToolCalled = "tool_called"

	// TypeDecision carries the reviewer's verdict for one candidate.
	TypeDecision = "decision"

	// TypeDecisionDropped marks a duplicate or late verdict discarded after
	// the correlation already reached a terminal state.
	TypeDecisionDropped = "decision_dropped"

	// TypeFinalResult carries the terminal response text delivered to the
	// caller, approved or degraded.
	TypeFinalResult = "final_result"

	// TypeError carries a terminal failure for the correlation.
	TypeError = "error"
)

// Event is a single observability event emitted during workflow execution.
//
// Only the fields relevant to the event's Type are populated; the rest are
// zero values. Events are value types and safe to fan out to multiple
// observers.
type Event struct {
	// Type is one of the Type* constants.
	Type string

	// SessionID identifies the caller session the event belongs to.
	SessionID string

	// CorrelationID links the event to one logical user request.
	CorrelationID string

	// ExecutorID identifies which executor produced the event, when any.
	ExecutorID string

	// Fragment is an incremental text piece (agent_token, custom streaming
	// executors only).
	Fragment string

	// Text is a complete text payload (agent_message, final_result, error
	// detail).
	Text string

	// ToolName identifies the invoked tool (tool_called).
	ToolName string

	// Approved is the reviewer's verdict (decision).
	Approved bool

	// Feedback is the reviewer's guidance text (decision).
	Feedback string

	// Degraded marks a final_result delivered after the refinement bound
	// was exhausted rather than by approval.
	Degraded bool

	// ErrKind classifies a terminal failure (error), e.g. "generation".
	ErrKind string

	// Meta holds additional structured data specific to the event.
	Meta map[string]interface{}
}
