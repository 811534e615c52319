// Package workflow implements a reflection workflow: a Primary executor
// generates candidate responses and a Reviewer executor gates them against
// quality criteria, routing rejections back to the Primary with feedback
// until a candidate is approved or the refinement bound is reached.
//
// The runtime owns all per-request state. Executors are stateless message
// handlers wired together by explicit edges, so concurrent requests never
// share mutable state.
package workflow

import "github.com/dshills/reflectgraph/workflow/model"

// Turn is one user utterance plus the conversation history visible to both
// executors. Turns are immutable; deriving a new Turn copies the history.
type Turn struct {
	History  []model.Message
	UserText string
}

// With derives a new Turn whose history includes the given exchange. The
// receiver is left untouched.
func (t Turn) With(role, text string) Turn {
	history := make([]model.Message, len(t.History), len(t.History)+1)
	copy(history, t.History)
	history = append(history, model.Message{Role: role, Content: text})
	return Turn{History: history, UserText: t.UserText}
}

// Message is the closed set of values routed between executors. Dispatch is
// an explicit type switch in each handler, never reflection.
type Message interface {
	// Correlation returns the opaque ID linking all messages that belong to
	// one logical user request.
	Correlation() string

	isMessage()
}

// RequestEnvelope seeds the Primary executor with a new user turn. The
// runtime creates exactly one per Submit call with a fresh correlation ID.
type RequestEnvelope struct {
	CorrelationID string
	Turn          Turn
}

// Correlation implements Message.
func (m RequestEnvelope) Correlation() string { return m.CorrelationID }

func (RequestEnvelope) isMessage() {}

// ReviewRequest carries a candidate response from Primary to Reviewer. The
// candidate is an ordered list of message fragments; for a plain text reply
// it holds a single assistant message.
type ReviewRequest struct {
	CorrelationID string
	Turn          Turn
	Candidate     []model.Message
}

// Correlation implements Message.
func (m ReviewRequest) Correlation() string { return m.CorrelationID }

func (ReviewRequest) isMessage() {}

// ReviewDecision is the Reviewer's verdict on a candidate. Feedback is
// non-empty on rejection and explains the required changes; on approval it
// is an acknowledgment and may be empty.
type ReviewDecision struct {
	CorrelationID string
	Approved      bool
	Feedback      string
}

// Correlation implements Message.
func (m ReviewDecision) Correlation() string { return m.CorrelationID }

func (ReviewDecision) isMessage() {}

// CandidateText flattens a candidate fragment list into the text delivered
// to the caller.
func CandidateText(candidate []model.Message) string {
	switch len(candidate) {
	case 0:
		return ""
	case 1:
		return candidate[0].Content
	}
	var out string
	for i, frag := range candidate {
		if i > 0 {
			out += "\n"
		}
		out += frag.Content
	}
	return out
}
