package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dshills/reflectgraph/workflow/emit"
	"github.com/dshills/reflectgraph/workflow/model"
)

// DefaultReviewInstruction is the system prompt the Reviewer uses to judge
// candidates. The model must answer with a JSON object matching
// ReviewDecision's wire shape.
const DefaultReviewInstruction = `You are a quality reviewer for customer support responses. Evaluate the
candidate response against five criteria:
1. Factual accuracy relative to any tool-retrieved data
2. Completeness: every part of the user's question is answered
3. Professional tone
4. Correct and necessary tool usage
5. Clarity

The decision is binary; there is no partial credit. Respond ONLY with a JSON
object of the form {"approved": true|false, "feedback": "..."}. On rejection,
feedback must explain the required changes. On approval, feedback may be a
short acknowledgment.`

// genericRejectionFeedback replaces empty rejection feedback so the Primary
// always receives actionable guidance.
const genericRejectionFeedback = "Revise the response for accuracy, completeness, tone, and clarity."

// Reviewer evaluates candidate responses against fixed quality criteria and
// returns a binary decision. It never delivers output to the caller and
// never touches conversation history; it only sends a ReviewDecision, which
// the runtime routes.
type Reviewer struct {
	id          string
	chat        model.ChatModel
	instruction string
}

// ReviewerOption configures a Reviewer executor.
type ReviewerOption func(*Reviewer)

// WithReviewerInstruction replaces the default review criteria prompt.
func WithReviewerInstruction(instruction string) ReviewerOption {
	return func(r *Reviewer) {
		if instruction != "" {
			r.instruction = instruction
		}
	}
}

// NewReviewer creates the quality-gate executor.
func NewReviewer(chat model.ChatModel, opts ...ReviewerOption) *Reviewer {
	r := &Reviewer{
		id:          "reviewer",
		chat:        chat,
		instruction: DefaultReviewInstruction,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ID implements Executor.
func (r *Reviewer) ID() string { return r.id }

// Handle implements Executor.
func (r *Reviewer) Handle(ctx context.Context, msg Message, ec *ExecContext) error {
	req, ok := msg.(ReviewRequest)
	if !ok {
		return &ProtocolViolationError{
			ExecutorID:    r.id,
			CorrelationID: msg.Correlation(),
			State:         StatusPendingReview.String(),
			Msg:           fmt.Sprintf("unexpected message type %T", msg),
		}
	}

	ec.Emit(emit.Event{Type: emit.TypeAgentStart})

	msgs := []model.Message{
		{Role: model.RoleSystem, Content: r.instruction},
		{Role: model.RoleUser, Content: r.buildReviewPrompt(req)},
	}

	out, err := r.chat.Chat(ctx, msgs, nil)
	if err != nil {
		return &GenerationError{
			ExecutorID:    r.id,
			CorrelationID: req.CorrelationID,
			Retryable:     model.IsRetryable(err),
			Err:           err,
		}
	}

	decision, err := parseDecision(out.Text)
	if err != nil {
		return &GenerationError{
			ExecutorID:    r.id,
			CorrelationID: req.CorrelationID,
			Retryable:     false,
			Err:           err,
		}
	}

	if !decision.Approved && strings.TrimSpace(decision.Feedback) == "" {
		decision.Feedback = genericRejectionFeedback
	}

	ec.Emit(emit.Event{
		Type:     emit.TypeDecision,
		Approved: decision.Approved,
		Feedback: decision.Feedback,
	})

	ec.Send(ReviewDecision{
		CorrelationID: req.CorrelationID,
		Approved:      decision.Approved,
		Feedback:      decision.Feedback,
	})
	return nil
}

func (r *Reviewer) buildReviewPrompt(req ReviewRequest) string {
	var b strings.Builder
	b.WriteString("User question:\n")
	b.WriteString(req.Turn.UserText)
	if len(req.Turn.History) > 0 {
		b.WriteString("\n\nConversation so far:\n")
		for _, m := range req.Turn.History {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}
	b.WriteString("\n\nCandidate response:\n")
	b.WriteString(CandidateText(req.Candidate))
	return b.String()
}

type decisionJSON struct {
	Approved bool   `json:"approved"`
	Feedback string `json:"feedback"`
}

// parseDecision extracts the decision JSON from model output. Models often
// wrap JSON in code fences or prose, so parsing is lenient: fences are
// stripped and the outermost object is taken.
func parseDecision(text string) (decisionJSON, error) {
	raw := strings.TrimSpace(text)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return decisionJSON{}, fmt.Errorf("review output contains no decision object: %q", truncate(text, 120))
	}

	var d decisionJSON
	if err := json.Unmarshal([]byte(raw[start:end+1]), &d); err != nil {
		return decisionJSON{}, fmt.Errorf("failed to parse review decision: %w", err)
	}
	return d, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
